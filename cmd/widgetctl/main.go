package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "validate":
		err = cmdValidate(ctx, args, os.Stdout)
	case "simulate":
		err = cmdSimulate(ctx, args, os.Stdin, os.Stdout)
	case "gen-key":
		err = cmdGenKey(os.Stdout)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `widgetctl - inspect and exercise video widget configurations

Usage:
  widgetctl validate [flags] <config.json>   Check a configuration for dangling references
  widgetctl simulate [flags] <config.json>   Run a scripted session against the widget
  widgetctl gen-key                          Generate an admin API key and its bcrypt hash
  widgetctl help                             Show this help message

Simulation script commands (one per line, # starts a comment):
  show | hide | toggle | close | reset | state
  select <option-id>
  advance <seconds>
  wait <duration>

For help on specific command: widgetctl <command> -h
`)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
