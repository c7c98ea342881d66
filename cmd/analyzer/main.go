package main

import (
	"fmt"
	"os"

	"github.com/your-org/workflow-analyzer/internal/app"
	"github.com/your-org/workflow-analyzer/internal/audit"
	"github.com/your-org/workflow-analyzer/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "-v" || command == "--version" || command == "version" {
		fmt.Println(version.String())
		return
	}
	path := "configs/workflow.example.yaml"
	if len(os.Args) > 2 {
		path = os.Args[2]
	}

	switch command {
	case "run":
		if err := app.RunSimulation(path, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
			os.Exit(1)
		}
	case "optimize":
		if err := app.OptimizeManifest(path, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "optimize failed: %v\n", err)
			os.Exit(1)
		}
	case "validate":
		if err := app.ValidateManifest(path); err != nil {
			fmt.Fprintf(os.Stderr, "validate failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("manifest is valid: %s\n", path)
	case "graph":
		optimized := len(os.Args) > 3 && os.Args[3] == "--optimized"
		if err := app.GraphManifest(path, optimized, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "graph failed: %v\n", err)
			os.Exit(1)
		}
	case "replay":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		manifestPath := ""
		if len(os.Args) > 3 {
			manifestPath = os.Args[3]
		}
		if err := app.ReplayTrace(os.Args[2], manifestPath, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "replay failed: %v\n", err)
			os.Exit(1)
		}
	case "diff":
		if len(os.Args) < 4 {
			usage()
			os.Exit(1)
		}
		if err := app.DiffTraces(os.Args[2], os.Args[3], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "diff failed: %v\n", err)
			os.Exit(1)
		}
	case "audit-export":
		inputPath := path
		outputPath := "audit.csv"
		if len(os.Args) > 3 {
			outputPath = os.Args[3]
		}
		if err := audit.ExportJSONLToCSV(inputPath, outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "audit-export failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("audit export complete: %s -> %s\n", inputPath, outputPath)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: workflow-analyzer <run|optimize|validate|graph|replay|diff|audit-export|version> [path] [--optimized|manifest|trace_b|output_csv]")
}
