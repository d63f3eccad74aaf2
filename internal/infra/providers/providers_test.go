package providers

import (
	"context"
	"testing"

	"github.com/totegamma/taxonomy-sync/internal/config"
	"github.com/totegamma/taxonomy-sync/internal/infra/repository"
)

func TestOptionalBackendsStayOff(t *testing.T) {
	audit, err := NewAuditRecorder(config.Server{})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, ok := audit.(repository.NopAuditRecorder); !ok {
		t.Fatalf("expected a no-op recorder, got %T", audit)
	}

	if shared := NewSharedTier(config.Cache{}); shared != nil {
		t.Fatalf("expected no shared tier, got %T", shared)
	}

	signal, closer, err := NewSignal(context.Background(), config.Server{})
	if err != nil || signal != nil {
		t.Fatalf("expected no signal service, got %v %v", signal, err)
	}
	if err := closer(); err != nil {
		t.Fatalf("unexpected close error %v", err)
	}
}
