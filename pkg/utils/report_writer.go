/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report_writer.go
Description: Writes session reports as JSON files under a report directory, one
subdirectory per algorithm, named by timestamp and session id for easy comparison
across runs.
*/

package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WriteReport writes v as indented JSON to dir/<kind>/<timestamp>_<name>.json and
// returns the file path
func WriteReport(dir, kind, name string, v interface{}) (string, error) {
	if kind == "" || name == "" {
		return "", fmt.Errorf("report kind and name must not be empty")
	}
	reportDir := filepath.Join(dir, kind)
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	// 2026-06-11_01-30-00_<session>.json
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	path := filepath.Join(reportDir, fmt.Sprintf("%s_%s.json", timestamp, name))

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}
