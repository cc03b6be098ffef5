package project

import "time"

// Report records one generated business unit report.
type Report struct {
	ID           string    `json:"id"`
	BusinessUnit string    `json:"business_unit"`
	Dir          string    `json:"dir"`
	Files        []string  `json:"files"`
	Metrics      int       `json:"metrics"`
	Rows         int       `json:"rows"`
	Source       string    `json:"source"`
	FromCache    bool      `json:"from_cache,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
}
