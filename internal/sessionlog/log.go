// Package sessionlog keeps an append-only JSON log of processing sessions,
// one record per handled email, and answers bounded history and stats
// queries over it.
package sessionlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Execution records the outcome of one tool step within a session.
type Execution struct {
	Tool           string `json:"tool"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	DurationMillis int64  `json:"duration_ms"`
}

// Record is one processed email. Records are immutable once appended.
type Record struct {
	ID             string         `json:"id"`
	MessageID      string         `json:"message_id"`
	ProcessedAt    time.Time      `json:"processed_at"`
	Subject        string         `json:"subject,omitempty"`
	Sender         string         `json:"sender,omitempty"`
	Category       string         `json:"category"`
	Confidence     float64        `json:"confidence"`
	Extracted      map[string]any `json:"extracted,omitempty"`
	Executions     []Execution    `json:"executions,omitempty"`
	Status         string         `json:"status"`
	SuccessRate    float64        `json:"success_rate"`
	DurationMillis int64          `json:"duration_ms"`
}

// Stats summarizes the whole log.
type Stats struct {
	Sessions        int            `json:"sessions"`
	ByCategory      map[string]int `json:"by_category"`
	ToolRuns        int            `json:"tool_runs"`
	ToolFailures    int            `json:"tool_failures"`
	ToolSuccessRate float64        `json:"tool_success_rate"`
}

// Log is a JSON-file-backed session log. All methods are safe for
// concurrent use.
type Log struct {
	mu      sync.Mutex
	path    string
	records []Record
}

// NewLog opens the log at path, loading any existing records. A missing
// file yields an empty log.
func NewLog(path string) (*Log, error) {
	l := &Log{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}

	if err := json.Unmarshal(data, &l.records); err != nil {
		return nil, fmt.Errorf("failed to parse session log %s: %w", path, err)
	}

	return l, nil
}

// Append adds the record and persists the log.
func (l *Log) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, rec)
	return l.flushLocked()
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Recent returns up to n records, most recent first. n <= 0 returns all of
// them.
func (l *Log) Recent(n int) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > len(l.records) {
		n = len(l.records)
	}

	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = l.records[len(l.records)-1-i]
	}
	return out
}

// Stats aggregates category counts and tool outcomes over all records.
func (l *Log) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := Stats{
		Sessions:   len(l.records),
		ByCategory: make(map[string]int),
	}

	for _, rec := range l.records {
		stats.ByCategory[rec.Category]++
		for _, ex := range rec.Executions {
			stats.ToolRuns++
			if !ex.Success {
				stats.ToolFailures++
			}
		}
	}

	if stats.ToolRuns > 0 {
		stats.ToolSuccessRate = float64(stats.ToolRuns-stats.ToolFailures) / float64(stats.ToolRuns)
	}

	return stats
}

func (l *Log) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(l.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session log: %w", err)
	}

	if err := os.WriteFile(l.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session log: %w", err)
	}

	return nil
}
