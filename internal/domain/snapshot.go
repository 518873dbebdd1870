package domain

import "time"

// Snapshot is the ranked output of one run. It becomes the previous-run
// input of the next run.
type Snapshot struct {
	ID            string          `json:"id"`
	CreatedAt     time.Time       `json:"createdAt"`
	Articles      []ArticleRecord `json:"articles"`
	FailedSources []string        `json:"failedSources,omitempty"`
}
