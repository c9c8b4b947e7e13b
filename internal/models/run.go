package models

import (
	"time"

	"github.com/google/uuid"
)

// ResearchRun records one execution of the research pipeline for a profile.
type ResearchRun struct {
	ID            uuid.UUID  `json:"id"`
	ProfileID     string     `json:"profile_id"`
	SiteDomain    string     `json:"site_domain"`
	Competitors   []string   `json:"competitors"`
	Status        string     `json:"status"` // running, completed, degraded, failed
	Error         string     `json:"error,omitempty"`
	ClustersFound int        `json:"clusters_found"`
	GapsFound     int        `json:"gaps_found"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}
