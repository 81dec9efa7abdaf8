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
	"fmt"

	"github.com/AleutianAI/infotally/pkg/infotheory"
	"github.com/AleutianAI/infotally/pkg/logging"
	tally_service "github.com/AleutianAI/infotally/services/tally"
	"github.com/AleutianAI/infotally/services/tally/ingest"
	"github.com/spf13/cobra"
)

// reportOutput is the --json form of a report.
type reportOutput struct {
	Files  []fileSummary         `json:"files"`
	Report *tally_service.Report `json:"report"`
}

type fileSummary struct {
	ingest.FileResult
	Error string `json:"error,omitempty"`
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	basis := cfg.BasisValue()
	if basisFlag != "" {
		if basis, err = infotheory.ParseBasis(basisFlag); err != nil {
			return err
		}
	}

	logger := logging.New(logging.Config{
		Level:   logging.LevelWarn,
		Service: cfg.Service.Name,
		Output:  cmd.ErrOrStderr(),
	})
	defer logger.Close()

	svc, err := tally_service.NewService(cfg)
	if err != nil {
		return err
	}
	svc.WithLogger(logger)

	ing := ingest.NewIngester(svc, ingest.Options{Workers: cfg.Ingest.Workers, Logger: logger})
	results, ingestErr := ing.IngestFiles(cmd.Context(), args)

	report, err := svc.Report(cmd.Context(), basis)
	if err != nil {
		return err
	}

	files := make([]fileSummary, len(results))
	for i, res := range results {
		files[i] = fileSummary{FileResult: res}
		if res.Err != nil {
			files[i].Error = res.Err.Error()
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reportOutput{Files: files, Report: report}); err != nil {
			return err
		}
	} else {
		newPrinter(out).report(files, report)
	}

	if ingestErr != nil {
		return fmt.Errorf("some files were not fully ingested: %w", ingestErr)
	}
	return nil
}
