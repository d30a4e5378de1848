package results

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExportCSV writes a run's records as CSV with a header row.
func (s *Store) ExportCSV(ctx context.Context, w io.Writer, runID string) error {
	records, err := s.ListRun(ctx, runID)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	header := []string{"target", "status", "label", "score", "from_cache", "error", "updated_at"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, record := range records {
		score := ""
		if record.Score != nil {
			score = strconv.FormatFloat(*record.Score, 'f', -1, 64)
		}
		row := []string{
			record.Target,
			string(record.Status),
			record.Label,
			score,
			strconv.FormatBool(record.FromCache),
			record.Error,
			record.UpdatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

type exportedRecord struct {
	Target    string   `json:"target"`
	Status    Status   `json:"status"`
	Label     string   `json:"label,omitempty"`
	Score     *float64 `json:"score,omitempty"`
	FromCache bool     `json:"from_cache"`
	Error     string   `json:"error,omitempty"`
	UpdatedAt string   `json:"updated_at"`
}

// ExportJSON writes a run's records as a JSON array.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, runID string) error {
	records, err := s.ListRun(ctx, runID)
	if err != nil {
		return err
	}

	exported := make([]exportedRecord, 0, len(records))
	for _, record := range records {
		exported = append(exported, exportedRecord{
			Target:    record.Target,
			Status:    record.Status,
			Label:     record.Label,
			Score:     record.Score,
			FromCache: record.FromCache,
			Error:     record.Error,
			UpdatedAt: record.UpdatedAt.Format(time.RFC3339),
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exported); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}
