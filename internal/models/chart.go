// Package models defines the vault-level types shared by storage, index and services.
package models

import "time"

// ChartFile describes one chart document in the vault.
type ChartFile struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChartSummary is the listing form of an indexed chart.
type ChartSummary struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Owner       string    `json:"owner,omitempty"`
	StartYear   int       `json:"start_year"`
	StopYear    int       `json:"stop_year"`
	Savings     int64     `json:"savings"`
	StreamCount int       `json:"stream_count"`
	MomentCount int       `json:"moment_count"`
	Checksum    string    `json:"checksum"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MomentUsage is a stream that anchors on a moment.
type MomentUsage struct {
	StreamID   string `json:"stream_id"`
	StreamName string `json:"stream_name"`
	Boundary   string `json:"boundary"`
	// Side is "start" or "stop".
	Side string `json:"side"`
}

// DanglingReference is a stream anchor naming a moment the chart lacks.
type DanglingReference struct {
	StreamID   string `json:"stream_id"`
	StreamName string `json:"stream_name"`
	MomentID   string `json:"moment_id"`
	Side       string `json:"side"`
}
