package domain

import "time"

// Book is one known top-level work with the spellings users type for it.
type Book struct {
	Name    string   `json:"name" yaml:"name"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases"`
}

type ReindexRequest struct {
	RequestID   string    `json:"request_id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

type ReindexStats struct {
	Chunks   int           `json:"chunks"`
	Batches  int           `json:"batches"`
	Duration time.Duration `json:"duration"`
}
