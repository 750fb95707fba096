package domain

import "time"

// ID is used across domain entities.
type ID int64

// Pagination carries paging params and totals.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
	Offset     int `json:"offset"`
	// FirstRow and LastRow are 1-based display bounds ("showing 11-20 of 23").
	FirstRow int `json:"firstRow"`
	LastRow  int `json:"lastRow"`
}

// RequestContext carries authenticated user info when available.
type RequestContext struct {
	UserID    ID     `json:"userId"`
	Role      string `json:"role"`
	RequestID string `json:"requestId,omitempty"`
}

// Result is returned by every mutating operation and carried by the caller
// (response body, redirect payload) instead of a session flash message.
type Result struct {
	OK       bool           `json:"ok"`
	Message  string         `json:"message"`
	Entity   string         `json:"entity"`
	EntityID ID             `json:"entityId,omitempty"`
	Action   string         `json:"action"`
	OldState string         `json:"oldState,omitempty"`
	NewState string         `json:"newState,omitempty"`
	Changes  map[string]any `json:"changes,omitempty"`
	At       time.Time      `json:"at"`
}
