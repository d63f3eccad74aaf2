package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundErrorIs(t *testing.T) {
	err := fmt.Errorf("load node: %w", NotFoundError{Resource: "node urn:topic:1"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped NotFoundError to match ErrNotFound")
	}
	if err.Error() != "load node: node urn:topic:1 not found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestNoParentConnectionIsInvariantViolation(t *testing.T) {
	err := fmt.Errorf("reconnect: %w", &NoParentConnectionError{NodeID: "urn:topic:1"})
	if !IsInvariantViolation(err) {
		t.Fatalf("expected invariant violation")
	}
	if IsInvariantViolation(errors.New("boom")) {
		t.Fatalf("plain errors are not invariant violations")
	}
}

func TestSyncReportErr(t *testing.T) {
	report := NewSyncReport(KindFilters, "urn:resource:1", DefaultVersion)
	if report.Err() != nil {
		t.Fatalf("expected nil error for a clean report")
	}

	cause := errors.New("500")
	report.Created = append(report.Created, Association{ID: "f:1"})
	report.Failures = append(report.Failures, ItemFailure{ID: "f:2", Action: ActionDelete, Message: "500", Err: cause})

	err := report.Err()
	if !IsPartial(err) {
		t.Fatalf("expected partial failure, got %v", err)
	}
	var batch *BatchError
	if !errors.As(err, &batch) {
		t.Fatalf("expected *BatchError")
	}
	if batch.Total != 2 || len(batch.FailedIDs()) != 1 || batch.FailedIDs()[0] != "f:2" {
		t.Fatalf("unexpected batch %+v", batch)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected batch to unwrap to its item errors")
	}
}

func TestReconnectErrorOrphaned(t *testing.T) {
	cases := []struct {
		err      ReconnectError
		orphaned bool
	}{
		{ReconnectError{Stage: StageDisconnect, Err: errors.New("x")}, false},
		{ReconnectError{Stage: StageConnect, Restored: true, Err: errors.New("x")}, false},
		{ReconnectError{Stage: StageConnect, Err: errors.New("x")}, true},
	}
	for _, c := range cases {
		if c.err.Orphaned() != c.orphaned {
			t.Fatalf("stage %s restored %v: expected orphaned=%v", c.err.Stage, c.err.Restored, c.orphaned)
		}
	}
}
