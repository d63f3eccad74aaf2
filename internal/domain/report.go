package domain

import "time"

// SyncReport is the settled outcome of one association sync.
type SyncReport struct {
	Kind      AssociationKind `json:"kind"`
	PrimaryID string          `json:"primaryId"`
	Version   Version         `json:"version"`
	Created   []Association   `json:"created"`
	Updated   []Association   `json:"updated"`
	Deleted   []Association   `json:"deleted"`
	Failures  []ItemFailure   `json:"failures"`
	Duration  time.Duration   `json:"duration"`
}

func NewSyncReport(kind AssociationKind, primaryID string, version Version) *SyncReport {
	return &SyncReport{
		Kind:      kind,
		PrimaryID: primaryID,
		Version:   version,
		Created:   []Association{},
		Updated:   []Association{},
		Deleted:   []Association{},
		Failures:  []ItemFailure{},
	}
}

func (r *SyncReport) HasFailures() bool {
	return len(r.Failures) > 0
}

func (r *SyncReport) Total() int {
	return len(r.Created) + len(r.Updated) + len(r.Deleted) + len(r.Failures)
}

// Err returns a *BatchError listing every failed item, or nil.
func (r *SyncReport) Err() error {
	if !r.HasFailures() {
		return nil
	}
	return &BatchError{
		Kind:      r.Kind,
		PrimaryID: r.PrimaryID,
		Total:     r.Total(),
		Failures:  r.Failures,
	}
}
