// Package config handles exporter configuration loading and management.
package config

import (
	"github.com/Faultbox/bigworld-export/pkg/bsp"
	"github.com/Faultbox/bigworld-export/pkg/formats"
)

// Config holds all exporter settings.
type Config struct {
	Export   ExportConfig   `yaml:"export"`
	BSP      BSPConfig      `yaml:"bsp"`
	Material MaterialConfig `yaml:"material"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ExportConfig holds output layout and geometry settings.
type ExportConfig struct {
	OutputDir       string `yaml:"output_dir"`
	ModelsDir       string `yaml:"models_dir"`
	AnimationsDir   string `yaml:"animations_dir"`
	MaterialsDir    string `yaml:"materials_dir"`
	VertexFormat    string `yaml:"vertex_format"`
	Use32BitIndices bool   `yaml:"use_32bit_indices"`
	ConvertToYUp    bool   `yaml:"convert_to_yup"`
}

// BSPConfig holds collision tree settings.
type BSPConfig struct {
	Enabled       bool `yaml:"enabled"`
	LeafTriangles int  `yaml:"leaf_triangles"`
	MaxDepth      int  `yaml:"max_depth"`
}

// MaterialConfig holds defaults applied to generated materials.
type MaterialConfig struct {
	FX   string `yaml:"fx"`
	Kind string `yaml:"kind"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			OutputDir:       "export",
			ModelsDir:       "models",
			AnimationsDir:   "animations",
			MaterialsDir:    "materials",
			VertexFormat:    "xyznuvtb",
			Use32BitIndices: false,
			ConvertToYUp:    false,
		},
		BSP: BSPConfig{
			Enabled:       true,
			LeafTriangles: bsp.DefaultLeafTriangles,
			MaxDepth:      bsp.DefaultMaxDepth,
		},
		Material: MaterialConfig{
			FX:   formats.DefaultFX,
			Kind: formats.DefaultMaterialKind,
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}
