// Package model defines the core data types shared across the ingest
// pipeline, the store, and the HTTP API.
package model

import (
	"fmt"
	"time"
)

// Source selects which VK surface listings are fetched from.
type Source string

const (
	// SourceMarket fetches listings from the group's market catalog.
	SourceMarket Source = "market"
	// SourceWall extracts market attachments from the group's wall posts.
	SourceWall Source = "wall"
)

// Valid reports whether s is a known listing source.
func (s Source) Valid() bool {
	return s == SourceMarket || s == SourceWall
}

// CaseColor is the resolved case color of a build. Empty means unresolved.
type CaseColor string

const (
	ColorWhite CaseColor = "white"
	ColorBlack CaseColor = "black"
	ColorNone  CaseColor = ""
)

// Build is the canonical, deduplication-ready record produced for one
// marketplace listing. It is assembled once by the parser and never
// mutated afterwards; the store merges records by ID on upsert.
type Build struct {
	ID          string    `json:"id"`
	Company     string    `json:"company"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	CPU         string    `json:"cpu"`
	GPU         string    `json:"gpu"`
	RAM         string    `json:"ram"` // bare gigabyte figure, e.g. "16"
	CaseColor   CaseColor `json:"case_color"`
	PhotoURL    string    `json:"photo_url"`
	VKURL       string    `json:"vk_url"`
	ParsedAt    time.Time `json:"parsed_at"`
	IsOurBuild  bool      `json:"is_our_build"`
}

// BuildID returns the canonical record identity for a (group, item) pair.
func BuildID(groupID, itemID int64) string {
	return fmt.Sprintf("%d_%d", groupID, itemID)
}

// ListingURL returns the public VK product URL for a (group, item) pair.
func ListingURL(groupID, itemID int64) string {
	return fmt.Sprintf("https://vk.com/market-%d?w=product-%d_%d", groupID, groupID, itemID)
}

// RunStatus represents the current state of a parse run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// ParseRun is the audit record for one pipeline invocation.
type ParseRun struct {
	ID         string    `json:"id"`
	GroupIDs   []int64   `json:"group_ids"`
	Source     Source    `json:"source"`
	Status     RunStatus `json:"status"`
	Parsed     int       `json:"parsed"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}
