package results

import "fmt"

// Status tracks a target through the pipeline stages.
type Status string

const (
	StatusPending      Status = "pending"
	StatusFetched      Status = "fetched"
	StatusPreprocessed Status = "preprocessed"
	StatusPredicted    Status = "predicted"
	StatusFailed       Status = "failed"
	StatusSkipped      Status = "skipped"
)

// validTransitions encodes the stage order. Failure is reachable from any
// live state; skipped only from pending (a missing dataset is discovered at
// fetch time).
var validTransitions = map[Status][]Status{
	StatusPending:      {StatusFetched, StatusFailed, StatusSkipped},
	StatusFetched:      {StatusPreprocessed, StatusFailed},
	StatusPreprocessed: {StatusPredicted, StatusFailed},
}

// CanTransition reports whether moving from one status to another follows
// the stage order.
func CanTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid status transition %s -> %s", from, to)
	}
	return nil
}

// IsTerminal reports whether a status ends processing for the target.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPredicted, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}
