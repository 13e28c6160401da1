// bwexport is a CLI for exporting OBJ scenes to BigWorld model assets.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/bigworld-export/internal/config"
	"github.com/Faultbox/bigworld-export/internal/export"
	"github.com/Faultbox/bigworld-export/internal/logger"
	"github.com/Faultbox/bigworld-export/pkg/formats"
	"github.com/Faultbox/bigworld-export/pkg/obj"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "export":
		cmdExport(args)
	case "formats":
		cmdFormats(args)
	case "inspect":
		cmdInspect(args)
	case "version":
		fmt.Println("bwexport " + version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`bwexport - BigWorld model asset exporter

Usage:
  bwexport <command> [options]

Commands:
  export [options] <scene.obj>      Export an OBJ scene to model assets
  formats                           List registered vertex formats
  inspect [options] <.primitives>   Summarize a compiled geometry file
  version                           Print the version

Export options:
  -out <dir>       Output directory
  -format <name>   Vertex format (see "bwexport formats")
  -index32         Write 32-bit indices
  -yup             Rotate Z-up input into Y-up space
  -nobsp           Skip collision tree generation
  -fx <path>       Default material effect
  -kind <name>     Default material kind
  -config <file>   Configuration file
  -debug           Verbose logging

Inspect options:
  -groups          Print the primitive group table
  -bsp             Print collision tree statistics

Examples:
  bwexport export -yup -out ./res crate.obj
  bwexport formats
  bwexport inspect -groups -bsp ./res/models/Crate.primitives`)
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file")
	out := fs.String("out", "", "Output directory")
	format := fs.String("format", "", "Vertex format")
	index32 := fs.Bool("index32", false, "Write 32-bit indices")
	yup := fs.Bool("yup", false, "Rotate Z-up input into Y-up space")
	nobsp := fs.Bool("nobsp", false, "Skip collision tree generation")
	fx := fs.String("fx", "", "Default material effect")
	kind := fs.String("kind", "", "Default material kind")
	debug := fs.Bool("debug", false, "Verbose logging")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: bwexport export [options] <scene.obj>")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath, config.Overrides{
		OutputDir:       *out,
		VertexFormat:    *format,
		Use32BitIndices: *index32,
		ConvertToYUp:    *yup,
		DisableBSP:      *nobsp,
		FX:              *fx,
		Kind:            *kind,
		Debug:           *debug,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level, logger.FileConfig{
		Path:       cfg.Logging.LogFile,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	}, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	scenePath := fs.Arg(0)
	scene, err := obj.Load(scenePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	exporter := export.New(cfg, log)
	report, err := exporter.Run(export.Job{
		Scene:     scene,
		Materials: exporter.LoadMaterials(scene, filepath.Dir(scenePath)),
	})
	if report != nil {
		for _, res := range report.Results {
			if res.Err != nil {
				fmt.Fprintf(os.Stderr, "Failed: %s: %v\n", res.Name, res.Err)
				continue
			}
			for _, f := range res.Files {
				fmt.Println(f)
			}
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "\nExported %d of %d objects to %s\n",
		report.Succeeded(), len(report.Results), cfg.Export.OutputDir)
}

func cmdFormats(args []string) {
	fmt.Printf("%-15s %-7s %-8s %s\n", "FORMAT", "STRIDE", "SKINNED", "ATTRIBUTES")
	for _, info := range formats.ListFormats() {
		skinned := "no"
		if info.HasSkinning {
			skinned = "yes"
		}
		fmt.Printf("%-15s %-7d %-8s %s\n", info.Identifier, info.Stride, skinned, strings.Join(info.Attributes, " "))
	}
}

func cmdInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	showGroups := fs.Bool("groups", false, "Print the primitive group table")
	showBSP := fs.Bool("bsp", false, "Print collision tree statistics")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: bwexport inspect [options] <file.primitives>")
		os.Exit(1)
	}

	f, err := formats.ReadPrimitivesFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("File:      %s\n", fs.Arg(0))
	fmt.Printf("Format:    %s\n", f.Format)
	fmt.Printf("Vertices:  %d\n", len(f.Vertices))
	fmt.Printf("Indices:   %d (%s)\n", len(f.Indices), f.IndexFormat)
	fmt.Printf("Triangles: %d\n", f.TriangleCount())
	fmt.Printf("Groups:    %d\n", len(f.Groups))
	if f.BSP != nil {
		fmt.Printf("BSP:       %d nodes, %d triangles\n", len(f.BSP.Nodes), len(f.BSP.Triangles))
	} else {
		fmt.Println("BSP:       none")
	}

	if *showGroups && len(f.Groups) > 0 {
		fmt.Println()
		fmt.Printf("%-6s %-11s %-8s %-12s %s\n", "GROUP", "STARTINDEX", "PRIMS", "STARTVERTEX", "VERTICES")
		for i, g := range f.Groups {
			fmt.Printf("%-6d %-11d %-8d %-12d %d\n", i, g.StartIndex, g.NumPrims, g.StartVertex, g.NumVertices)
		}
	}

	if *showBSP && f.BSP != nil {
		leaves, maxDepth, maxLeafTris := 0, 0, 0
		var walk func(idx int32, depth int)
		walk = func(idx int32, depth int) {
			if idx < 0 || int(idx) >= len(f.BSP.Nodes) {
				return
			}
			if depth > maxDepth {
				maxDepth = depth
			}
			n := &f.BSP.Nodes[idx]
			if n.Leaf() {
				leaves++
				if int(n.TriCount) > maxLeafTris {
					maxLeafTris = int(n.TriCount)
				}
				return
			}
			walk(n.ChildA, depth+1)
			walk(n.ChildB, depth+1)
		}
		walk(0, 0)

		fmt.Println()
		fmt.Printf("Leaves:         %d\n", leaves)
		fmt.Printf("Depth:          %d\n", maxDepth)
		fmt.Printf("Max leaf tris:  %d\n", maxLeafTris)
	}
}
