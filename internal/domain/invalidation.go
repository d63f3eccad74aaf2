package domain

import "time"

// Invalidation announces that cached query results are stale.
//
// Keys lists exact cache keys. A non-empty Version drops every key of that version.
type Invalidation struct {
	Origin  string    `json:"origin"`
	Keys    []string  `json:"keys,omitempty"`
	Version Version   `json:"version,omitempty"`
	At      time.Time `json:"at"`
}
