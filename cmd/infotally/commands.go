// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tally_service "github.com/AleutianAI/infotally/services/tally"
	"github.com/AleutianAI/infotally/services/tally/config"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "~/.infotally/config.yaml"

var (
	configPath    string
	traceExporter string
	jsonOutput    bool
	basisFlag     string

	rootCmd = &cobra.Command{
		Use:   "infotally",
		Short: "Tally observations and report their entropy and mutual information",
		Long: `infotally counts observations of configured variables and reports
entropy, conditional entropy and mutual information between them.

Run it once over data files with "report", or as a long-lived HTTP service
with "serve".`,
		SilenceUsage: true,
	}

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}

	reportCmd = &cobra.Command{
		Use:   "report <file>...",
		Short: "Tally CSV or JSONL files and print a report",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runReport,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect stored snapshots (the server must be stopped)",
	}

	snapshotListCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE:  runSnapshotList,
	}

	snapshotDeleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runSnapshotDelete,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "infotally %s\n", tally_service.ServiceVersion)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Configuration file (default "+defaultConfigPath+")")

	rootCmd.AddCommand(initCmd)

	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	reportCmd.Flags().StringVarP(&basisFlag, "basis", "b", "",
		"Logarithm basis: bits, nats, bans or an integer >= 2 (default from config)")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&traceExporter, "trace", "",
		"Trace exporter: otlp, stdout or none (default $OTEL_TRACES_EXPORTER or none)")

	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotListCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the list as JSON")
	snapshotCmd.AddCommand(snapshotDeleteCmd)

	rootCmd.AddCommand(versionCmd)
}

// resolveConfigPath returns the --config value or the expanded default.
func resolveConfigPath() string {
	path := configPath
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return path
}

// loadConfig loads the configuration file. Without --config a missing
// default file falls back to the built-in defaults.
func loadConfig() (*config.Config, error) {
	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if configPath == "" && errors.Is(err, os.ErrNotExist) {
		def := config.DefaultConfig()
		def.Storage.Path = filepath.Join(filepath.Dir(path), "data")
		return &def, nil
	}
	return nil, err
}

func runInit(cmd *cobra.Command, _ []string) error {
	path := resolveConfigPath()
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
