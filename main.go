package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/esimov/smoke-fluid/config"
	"github.com/esimov/smoke-fluid/terminal"
)

func main() {
	var (
		cfgPath    = flag.String("config", "", "YAML config file (defaults are embedded)")
		logPath    = flag.String("log", "debug.log", "log and debug output file")
		resolution = flag.Int("resolution", 0, "cells along the shorter side, overrides the config")
		perfCSV    = flag.String("perf-csv", "", "write one row per perf window to this CSV file")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalln(err)
	}
	if *resolution > 0 {
		cfg.Fluid.Resolution = *resolution
	}
	if *perfCSV != "" {
		cfg.Perf.CSVPath = *perfCSV
	}

	// The screen belongs to termbox, logs go to a file.
	logfile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatalln(err)
	}
	defer logfile.Close()
	logger := cfg.Logger(logfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	term := terminal.New(cfg, logfile, logger)
	if err := term.Run(ctx); err != nil {
		logger.Error("terminal host failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
