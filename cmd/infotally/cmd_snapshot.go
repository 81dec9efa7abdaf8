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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AleutianAI/infotally/pkg/logging"
	"github.com/AleutianAI/infotally/services/tally/snapshot"
	"github.com/spf13/cobra"
)

// withStore opens persistent storage for a snapshot subcommand. Badger
// holds a directory lock, so this fails while a server is running.
func withStore(fn func(store *snapshot.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.InMemory {
		return errors.New("storage is configured in memory; no snapshots persist")
	}

	cfg.Storage.GCInterval = 0
	db, err := openStorage(cfg, logging.Nop())
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(snapshot.NewStore(db))
}

func runSnapshotList(cmd *cobra.Command, _ []string) error {
	return withStore(func(store *snapshot.Store) error {
		list, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			if list == nil {
				list = []snapshot.Summary{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		newPrinter(cmd.OutOrStdout()).snapshots(list)
		return nil
	})
}

func runSnapshotDelete(cmd *cobra.Command, args []string) error {
	return withStore(func(store *snapshot.Store) error {
		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted snapshot %s\n", args[0])
		return nil
	})
}
