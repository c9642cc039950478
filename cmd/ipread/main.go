package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"ipread/pkg/config"
	"ipread/pkg/plate"
	"ipread/pkg/visualization"
)

const version = "0.2.0"

func main() {
	// Parse command line arguments
	listOnly := flag.Bool("l", false, "List properties of the assembled image, do not render anything")
	logScale := flag.Bool("log", false, "Render a log10 image instead of a linear one")
	save := flag.String("s", "", "Save the rendered image to this file (.png or .jpg); default writes a preview next to the first input")
	verbose := flag.Bool("v", false, "Write diagnostic quotient images to verify the calculated scale factors")
	domainFlag := flag.String("domain", "", "Fusion domain: raw or psl (default from config)")
	ceiling := flag.Float64("ceiling", 0, "Over-exposure ceiling override, in fusion-domain units")
	floor := flag.Float64("floor", 0, "Under-exposure floor override, in fusion-domain units")
	configPath := flag.String("config", "", "Path to a YAML config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	// Validate inputs
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ipread [flags] file...")
		fmt.Fprintln(os.Stderr, "input files can be *.inf, *.img or base names without extension")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	opts, err := cfg.AssemblerOptions()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *domainFlag != "" {
		opts.Domain, err = plate.ParseDomain(*domainFlag)
		if err != nil {
			log.Fatalf("Invalid -domain: %v", err)
		}
	}
	if *ceiling != 0 {
		opts.OverexposedCeiling = *ceiling
	}
	if *floor != 0 {
		opts.UnderexposedFloor = *floor
	}

	ip, err := plate.NewAssembler(flag.Args(), opts)
	if err != nil {
		log.Fatalf("HDR assembly failed: %v", err)
	}

	fmt.Println(ip)
	for _, w := range ip.Warnings() {
		log.Printf("Warning: %s", w)
	}

	if *listOnly {
		return
	}

	// Render the calibrated image
	viewer := visualization.NewViewer(ip.PSL(), *logScale || cfg.Output.LogScale)
	if *save != "" {
		if err := viewer.Save(*save); err != nil {
			log.Fatalf("Failed to save image: %v", err)
		}
		fmt.Printf("Saved image to %s\n", *save)
	} else {
		previewName := ip.Files()[0] + "_preview.png"
		preview := viewer.Preview(uint(cfg.Output.PreviewMaxDim))
		if err := visualization.SaveImage(preview, previewName); err != nil {
			log.Fatalf("Failed to save preview: %v", err)
		}
		fmt.Printf("Saved preview to %s\n", previewName)
	}

	// Diagnostic quotient images for manual verification of the scale
	// factors between consecutive readouts
	if *verbose || cfg.Output.Verbose {
		for n := 0; n < len(ip.Files())-1; n++ {
			name := fmt.Sprintf("%s_quotient_%02d.png", ip.Files()[0], n)
			if err := visualization.NewViewer(ip.Quotient(n), false).Save(name); err != nil {
				log.Printf("Warning: Failed to save quotient image %d: %v", n, err)
			} else {
				fmt.Printf("Saved quotient image to %s\n", name)
			}
		}
	}
}
