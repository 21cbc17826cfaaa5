package models

import "time"

// Project is a registered documentation folder. Path is the natural key:
// opening a folder that is already registered re-attaches to the existing
// record instead of creating a duplicate.
type Project struct {
	UUID          string     `json:"uuid"`
	Name          string     `json:"name"`
	Path          string     `json:"path"`
	IsFavorite    bool       `json:"is_favorite"`
	IsPinned      bool       `json:"is_pinned"`
	Tags          []string   `json:"tags,omitempty"`
	Category      string     `json:"category,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastOpenedAt  *time.Time `json:"last_opened_at,omitempty"`
	DocumentCount int        `json:"document_count"`
}
