package main

import (
	"flag"
	"log"
	"os"

	"github.com/esimov/smoke-fluid/config"
	"github.com/esimov/smoke-fluid/desktop"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "YAML config file (defaults are embedded)")
		width   = flag.Int("w", 0, "window width, overrides the config")
		height  = flag.Int("h", 0, "window height, overrides the config")
		perfCSV = flag.String("perf-csv", "", "write one row per perf window to this CSV file")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalln(err)
	}
	if *width > 0 {
		cfg.Desktop.Width = *width
	}
	if *height > 0 {
		cfg.Desktop.Height = *height
	}
	if *perfCSV != "" {
		cfg.Perf.CSVPath = *perfCSV
	}

	logger := cfg.Logger(os.Stderr)
	if err := desktop.Run(cfg, logger); err != nil {
		logger.Error("desktop host failed", "error", err)
		os.Exit(1)
	}
}
