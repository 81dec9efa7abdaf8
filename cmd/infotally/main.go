// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command infotally tallies observations and reports their information
// content.
//
// Usage:
//
//	infotally init                       # write ~/.infotally/config.yaml
//	infotally report data/*.csv          # one-shot report over files
//	infotally report --json --basis nats data.jsonl
//	infotally serve                      # HTTP service with snapshots
//	infotally snapshot list
//
// Example requests against a running server:
//
//	# Tally two records
//	curl -X POST http://localhost:8090/v1/tally/observe \
//	  -H "Content-Type: application/json" \
//	  -d '{"records": [{"weather": "sunny", "temperature": 21.5}, {"weather": "rainy"}]}'
//
//	# Report in bits
//	curl http://localhost:8090/v1/tally/report?basis=bits | jq
//
//	# Save a snapshot
//	curl -X POST http://localhost:8090/v1/tally/snapshots -d '{"label": "nightly"}'
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
