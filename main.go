package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	cmddiscover "github.com/kishansoni2726/multi-cloud-steampipe-console/command/discover"
	cmdquery "github.com/kishansoni2726/multi-cloud-steampipe-console/command/query"
	cmdserve "github.com/kishansoni2726/multi-cloud-steampipe-console/command/serve"
)

// Multi-cloud inventory console backed by the steampipe query engine.
// Usage:
//   console serve [-addr :8080]
//   console query -domain storage -provider all [-format csv -out storage.csv]
//   console discover [-azure] [-gcp] [-restart]
// Notes:
// - Set CONFIG_PATH to a YAML config file (default ./config.yml); a missing file means defaults.
// - LOG_LEVEL selects debug, info, warn or error.

func main() {
	args := os.Args
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(os.Getenv("LOG_LEVEL"))})
	slog.SetDefault(slog.New(h))

	if len(args) > 1 {
		sub := args[1]
		rest := append([]string{}, args[2:]...)
		var run func([]string) error
		switch sub {
		case "serve":
			run = cmdserve.Run
		case "query":
			run = cmdquery.Run
		case "discover":
			run = cmddiscover.Run
		}
		if run != nil {
			if err := run(rest); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: console serve [-addr :8080] | query -domain <storage|compute|billing> [-provider <aws|azure|gcp|all>] [-format json|csv] [-out file] | discover [-azure] [-gcp] [-dir dir] [-restart]\nENV: set CONFIG_PATH to point to a YAML config file (default ./config.yml)")
	os.Exit(2)
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
