package config

// Overrides carries command line values that take priority over the
// config file. Zero values mean "not set" and leave the config alone.
type Overrides struct {
	OutputDir       string
	VertexFormat    string
	Use32BitIndices bool
	ConvertToYUp    bool
	DisableBSP      bool
	FX              string
	Kind            string
	Debug           bool
}

// apply writes the overrides onto the config.
func (ov Overrides) apply(cfg *Config) {
	if ov.OutputDir != "" {
		cfg.Export.OutputDir = ov.OutputDir
	}
	if ov.VertexFormat != "" {
		cfg.Export.VertexFormat = ov.VertexFormat
	}
	if ov.Use32BitIndices {
		cfg.Export.Use32BitIndices = true
	}
	if ov.ConvertToYUp {
		cfg.Export.ConvertToYUp = true
	}
	if ov.DisableBSP {
		cfg.BSP.Enabled = false
	}
	if ov.FX != "" {
		cfg.Material.FX = ov.FX
	}
	if ov.Kind != "" {
		cfg.Material.Kind = ov.Kind
	}
	if ov.Debug {
		cfg.Logging.Level = "debug"
	}
}
