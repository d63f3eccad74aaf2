package domain

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ErrInvariantViolation marks errors detected client-side before any call was made.
var ErrInvariantViolation = errors.New("invariant violation")

// NoParentConnectionError is returned when a reconnect finds no parent connection to replace.
type NoParentConnectionError struct {
	NodeID string
}

func (e *NoParentConnectionError) Error() string {
	return fmt.Sprintf("node %s has no parent connection", e.NodeID)
}

func (e *NoParentConnectionError) Unwrap() error {
	return ErrInvariantViolation
}

func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ItemFailure is one association whose call failed inside a batch.
type ItemFailure struct {
	ID           string `json:"id"`
	ConnectionID string `json:"connectionId,omitempty"`
	Action       Action `json:"action"`
	Message      string `json:"message"`
	Err          error  `json:"-"`
}

// BatchError reports a partially failed sync. Calls not listed in Failures succeeded
// and stay persisted.
type BatchError struct {
	Kind      AssociationKind
	PrimaryID string
	Total     int
	Failures  []ItemFailure
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s %s: %s", f.Action, f.ID, f.Message))
	}
	return fmt.Sprintf(
		"sync %s of %s: %d of %d calls failed: %s",
		e.Kind, e.PrimaryID, len(e.Failures), e.Total, strings.Join(parts, "; "),
	)
}

func (e *BatchError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.ID)
	}
	return ids
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

func IsPartial(err error) bool {
	var batch *BatchError
	return errors.As(err, &batch)
}

type ReconnectStage string

const (
	StageLookup     ReconnectStage = "lookup"
	StageDisconnect ReconnectStage = "disconnect"
	StageConnect    ReconnectStage = "connect"
)

// ReconnectError tells at which step a reconnect stopped.
//
// Only the primary parent connection is replaced. At StageLookup and
// StageDisconnect it is untouched. At StageConnect it is gone; Restored tells
// whether the compensating reconnect to the old parent succeeded. Secondary
// parents are never touched.
type ReconnectError struct {
	NodeID      string
	OldParentID string
	NewParentID string
	Stage       ReconnectStage
	Restored    bool
	Err         error
}

func (e *ReconnectError) Error() string {
	switch {
	case e.Stage == StageConnect && e.Restored:
		return fmt.Sprintf("reconnect %s to %s failed, restored under %s: %v", e.NodeID, e.NewParentID, e.OldParentID, e.Err)
	case e.Stage == StageConnect:
		return fmt.Sprintf("reconnect %s to %s failed after disconnecting from %s, node lost its primary parent: %v", e.NodeID, e.NewParentID, e.OldParentID, e.Err)
	default:
		return fmt.Sprintf("reconnect %s failed at %s: %v", e.NodeID, e.Stage, e.Err)
	}
}

func (e *ReconnectError) Unwrap() error {
	return e.Err
}

// Orphaned reports whether the node was left without its primary parent.
func (e *ReconnectError) Orphaned() bool {
	return e.Stage == StageConnect && !e.Restored
}
