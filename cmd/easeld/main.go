package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"easel/internal/config"
	"easel/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	logLevel := flag.String("log-level", "", "override configured log level")
	skipReadyWait := flag.Bool("skip-ready-wait", false, "serve immediately without waiting for the backend")
	flag.Parse()

	// A local .env mirrors the hosting platform's environment injection;
	// absence is not an error.
	_ = godotenv.Load()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:      *logLevel,
		SkipReadyWait: *skipReadyWait,
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
