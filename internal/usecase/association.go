package usecase

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/totegamma/taxonomy-sync/internal/domain"
)

// AssociationUsecase reads association sets and runs syncs, keeping the cache and the
// audit log in step with them.
type AssociationUsecase struct {
	sync    *SyncUsecase
	gateway TaxonomyGateway
	cache   QueryCache
	audit   AuditRecorder
}

func NewAssociationUsecase(sync *SyncUsecase, gateway TaxonomyGateway, cache QueryCache, audit AuditRecorder) *AssociationUsecase {
	return &AssociationUsecase{
		sync:    sync,
		gateway: gateway,
		cache:   cache,
		audit:   audit,
	}
}

func (uc *AssociationUsecase) Get(ctx context.Context, version domain.Version, kind domain.AssociationKind, primaryID string) ([]domain.Association, error) {
	ctx, span := tracer.Start(ctx, "Association.Usecase.Get")
	defer span.End()

	if !kind.IsValid() {
		return nil, errors.Errorf("unknown association kind %q", kind)
	}

	v, err := uc.cache.Load(ctx, domain.AssociationsKey(version, kind, primaryID), func(ctx context.Context) (any, error) {
		return uc.gateway.Associations(ctx, version, kind, primaryID)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return v.([]domain.Association), nil
}

// Sync runs the sync and, once every call has settled, drops the cached views it touched.
func (uc *AssociationUsecase) Sync(
	ctx context.Context,
	version domain.Version,
	kind domain.AssociationKind,
	primaryID string,
	desired []domain.Association,
) (*domain.SyncReport, error) {
	ctx, span := tracer.Start(ctx, "Association.Usecase.Sync")
	defer span.End()

	report, err := uc.sync.Sync(ctx, kind, primaryID, desired, version)
	if report == nil {
		span.RecordError(err)
		return nil, err
	}

	uc.cache.Invalidate(ctx, affectedKeys(version, report)...)

	if auditErr := uc.audit.Record(ctx, report.AuditEntry()); auditErr != nil {
		slog.ErrorContext(
			ctx, "failed to record audit entry",
			slog.String("error", auditErr.Error()),
			slog.String("module", "association"),
		)
	}

	if err != nil {
		slog.WarnContext(
			ctx, "association sync partially failed",
			slog.String("kind", string(kind)),
			slog.String("primaryId", primaryID),
			slog.Int("failed", len(report.Failures)),
			slog.String("module", "association"),
		)
	}
	return report, err
}

// affectedKeys lists the association set itself and, for parent links, the child lists of
// every parent whose link was touched, failed calls included.
func affectedKeys(version domain.Version, report *domain.SyncReport) []domain.CacheKey {
	keys := []domain.CacheKey{domain.AssociationsKey(version, report.Kind, report.PrimaryID)}

	var listKey func(domain.Version, string, string) domain.CacheKey
	switch report.Kind {
	case domain.KindTopicResources:
		listKey = domain.ResourcesKey
	case domain.KindNodeParents:
		listKey = domain.ChildrenKey
	default:
		return keys
	}

	seen := map[string]bool{}
	add := func(parentID string) {
		if seen[parentID] {
			return
		}
		seen[parentID] = true
		keys = append(keys, listKey(version, "", parentID))
	}
	for _, group := range [][]domain.Association{report.Created, report.Updated, report.Deleted} {
		for _, a := range group {
			add(a.ID)
		}
	}
	for _, f := range report.Failures {
		add(f.ID)
	}
	return keys
}
