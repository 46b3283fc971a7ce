package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// GenerateReportPath creates a timestamped report filename inside dir
func GenerateReportPath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("report_%s.yaml", timestamp))
}

// FindLatestReport finds the most recent report file in dir
func FindLatestReport(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read reports directory: %w", err)
	}

	var reports []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), "report_") && strings.HasSuffix(entry.Name(), ".yaml") {
			reports = append(reports, filepath.Join(dir, entry.Name()))
		}
	}

	if len(reports) == 0 {
		return "", fmt.Errorf("no report files found in %s", dir)
	}

	// Sort by modification time (newest first)
	sort.Slice(reports, func(i, j int) bool {
		infoI, _ := os.Stat(reports[i])
		infoJ, _ := os.Stat(reports[j])
		return infoI.ModTime().After(infoJ.ModTime())
	})

	return reports[0], nil
}
