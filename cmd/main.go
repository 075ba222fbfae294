package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"sibs/internal/config"
	"sibs/internal/driver"
	"sibs/internal/logger"
	"sibs/pkg/color"

	"github.com/charmbracelet/log"
)

// Main entry point for the sibs task runner.
func main() {
	options := driver.Driver{}

	flag.BoolVar(&options.Help, "h", false, "Show help")
	flag.BoolVar(&options.Verbose, "v", false, "Verbose mode")
	flag.BoolVar(&options.NoColor, "n", false, "No color")
	flag.BoolVar(&options.Interactive, "i", false, "Start the interactive prompt")
	flag.StringVar(&options.Params.Component, "c", "", "Component to run")
	flag.StringVar(&options.Params.Task, "t", "", "Task of the component to run")
	flag.StringVar(&options.Params.Cwd, "C", "", "Working directory")
	flag.StringVar(&options.ConfigFile, "config", "", "Path to "+config.FileName)
	flag.Int64Var(&options.MaxSteps, "max-steps", 0, "Stop after this many interpreted nodes (0 = unlimited)")

	flag.Parse()
	args := flag.Args()

	if options.Help {
		fmt.Printf("Usage: %s [options] <file> [task args...]\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
		return
	}

	dir := options.Params.Cwd
	if dir == "" {
		dir = "."
	}
	cfg, err := config.Find(options.ConfigFile, dir)
	if err != nil {
		logger.Init(options.Verbose, options.NoColor)
		log.Fatal("Invalid configuration", "error", err)
	}
	options.FromConfig(cfg)

	logger.Init(options.Verbose, options.NoColor)
	if options.NoColor {
		color.EnableColor(false)
	}
	if cfg.Path != "" {
		log.Debug("Loaded configuration", "file", cfg.Path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if len(args) > 0 {
		options.SourceFile = args[0]
		options.Params.Args = args[1:]
	}

	if options.Interactive {
		if err := options.Repl(ctx); err != nil {
			log.Fatal("Interactive session failed", "error", err)
		}
		return
	}

	if options.SourceFile == "" {
		log.Fatal("No input file provided", "help", fmt.Sprintf("%s -h", os.Args[0]))
	}

	if err := options.Run(ctx); err != nil {
		if errors.Is(err, driver.ErrScriptFailed) {
			stop()
			os.Exit(1)
		}
		log.Fatal("Execution failed", "error", err)
	}
}
