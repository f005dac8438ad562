package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"imgsx/engines"
)

func getStateDir() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		stateHome = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateHome, "imgsx")
}

func getHistoryFile() string {
	return filepath.Join(getStateDir(), "history")
}

// HistoryEntry is one searched image. Matches counts the engines that
// returned their own result rather than a fallback.
type HistoryEntry struct {
	Timestamp time.Time
	Image     string
	Matches   int
	Engines   int
}

func appendHistory(ref string, outcomes []engines.Outcome) error {
	if !config.HistoryEnabled || ref == "" {
		return nil
	}

	stateDir := getStateDir()
	if stateDir == "" {
		return nil
	}

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(getHistoryFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	matches := 0
	for _, o := range outcomes {
		if !o.Failed() {
			matches++
		}
	}

	entry := fmt.Sprintf("%s\t%d/%d\t%s\n", time.Now().Format(time.RFC3339), matches, len(outcomes), ref)
	if _, err := f.WriteString(entry); err != nil {
		return err
	}

	// Trim history if it exceeds max
	return trimHistory()
}

func trimHistory() error {
	maxHistory := config.MaxHistory
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}

	lines, err := readHistoryLines()
	if err != nil {
		return err
	}

	if len(lines) <= maxHistory {
		return nil
	}

	// Keep only the last maxHistory entries
	lines = lines[len(lines)-maxHistory:]

	f, err := os.Create(getHistoryFile())
	if err != nil {
		return err
	}
	defer f.Close()

	for _, line := range lines {
		fmt.Fprintln(f, line)
	}

	return nil
}

func readHistoryLines() ([]string, error) {
	f, err := os.Open(getHistoryFile())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}

	return lines, scanner.Err()
}

func loadHistory() ([]HistoryEntry, error) {
	lines, err := readHistoryLines()
	if err != nil {
		return nil, err
	}

	var entries []HistoryEntry
	for _, line := range lines {
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		ts, err := time.Parse(time.RFC3339, parts[0])
		if err != nil {
			continue
		}

		matches, total, ok := parseCounts(parts[1])
		if !ok {
			continue
		}

		entries = append(entries, HistoryEntry{
			Timestamp: ts,
			Image:     parts[2],
			Matches:   matches,
			Engines:   total,
		})
	}

	return entries, nil
}

func parseCounts(s string) (int, int, bool) {
	a, b, found := strings.Cut(s, "/")
	if !found {
		return 0, 0, false
	}
	matches, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, false
	}
	total, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, false
	}
	return matches, total, true
}

func printHistory(w io.Writer, limit int) error {
	entries, err := loadHistory()
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No search history.")
		return nil
	}

	start := 0
	if limit > 0 && limit < len(entries) {
		start = len(entries) - limit
	}

	for _, entry := range entries[start:] {
		fmt.Fprintf(w, "  %s  %d/%d  %s\n", entry.Timestamp.Format("2006-01-02 15:04"), entry.Matches, entry.Engines, entry.Image)
	}

	return nil
}

func clearHistory(w io.Writer) error {
	if err := os.Remove(getHistoryFile()); err != nil && !os.IsNotExist(err) {
		return err
	}
	fmt.Fprintln(w, "History cleared.")
	return nil
}
