package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/esimov/smoke-fluid/config"
	"github.com/esimov/smoke-fluid/detector"
	smokehttp "github.com/esimov/smoke-fluid/http"
	"github.com/esimov/smoke-fluid/websocket"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "YAML config file (defaults are embedded)")
		addr    = flag.String("a", "", "address to serve(host:port), overrides the config")
		prefix  = flag.String("p", "", "prefix path under, overrides the config")
		root    = flag.String("r", "", "root path to serve, overrides the config")
		faces   = flag.Bool("faces", false, "drive the pointer with faces found in camera frames")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalln(err)
	}
	if *addr != "" {
		cfg.Server.Address = *addr
	}
	if *prefix != "" {
		cfg.Server.Prefix = *prefix
	}
	if *root != "" {
		cfg.Server.Root = *root
	}
	logger := cfg.Logger(os.Stderr)

	var det *detector.Detector
	if *faces {
		if det, err = detector.Load(cfg.Server.CascadeDir); err != nil {
			logger.Error("loading cascades", "error", err)
			os.Exit(1)
		}
	}

	srv, err := smokehttp.NewServer(smokehttp.Params(cfg.Server), websocket.NewServer(cfg, det, logger), logger)
	if err != nil {
		logger.Error("creating server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
