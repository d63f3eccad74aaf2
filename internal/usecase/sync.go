package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/totegamma/taxonomy-sync/internal/domain"
)

var tracer = otel.Tracer("usecase")

const defaultConcurrency = 8

// SyncUsecase reconciles a desired association set with the persisted one.
type SyncUsecase struct {
	gateway     TaxonomyGateway
	concurrency int
}

func NewSyncUsecase(gateway TaxonomyGateway, config domain.Config) *SyncUsecase {
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &SyncUsecase{
		gateway:     gateway,
		concurrency: concurrency,
	}
}

type syncTask struct {
	action domain.Action
	item   domain.Association
}

// Sync issues every create, update and delete needed to make the persisted set of
// kind under primaryID equal desired.
//
// All calls are sent and awaited; one failing call does not stop the others, and
// nothing is retried or rolled back. The report lists what was applied; when any call
// failed the returned error is a *domain.BatchError. A nil report means the persisted
// set could not be read and no call was made.
func (uc *SyncUsecase) Sync(
	ctx context.Context,
	kind domain.AssociationKind,
	primaryID string,
	desired []domain.Association,
	version domain.Version,
) (*domain.SyncReport, error) {
	ctx, span := tracer.Start(ctx, "Sync.Usecase.Sync")
	defer span.End()
	span.SetAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("primaryId", primaryID),
		attribute.String("version", version.String()),
	)

	if !kind.IsValid() {
		return nil, errors.Errorf("unknown association kind %q", kind)
	}

	started := time.Now()
	persisted, err := uc.gateway.Associations(ctx, version, kind, primaryID)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "SyncUsecase.Sync: gateway.Associations failed")
	}

	diff := domain.Diff(desired, persisted, kind.UpdateFields()...)
	span.SetAttributes(
		attribute.Int("create", len(diff.ToCreate)),
		attribute.Int("update", len(diff.ToUpdate)),
		attribute.Int("delete", len(diff.ToDelete)),
	)

	tasks := make([]syncTask, 0, diff.Len())
	for _, a := range diff.ToDelete {
		tasks = append(tasks, syncTask{action: domain.ActionDelete, item: a})
	}
	for _, a := range diff.ToCreate {
		tasks = append(tasks, syncTask{action: domain.ActionCreate, item: a})
	}
	for _, a := range diff.ToUpdate {
		tasks = append(tasks, syncTask{action: domain.ActionUpdate, item: a})
	}

	report := domain.NewSyncReport(kind, primaryID, version)
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(uc.concurrency)
	for _, task := range tasks {
		g.Go(func() error {
			item, err := uc.apply(ctx, version, kind, primaryID, task)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures = append(report.Failures, domain.ItemFailure{
					ID:           task.item.ID,
					ConnectionID: task.item.ConnectionID,
					Action:       task.action,
					Message:      err.Error(),
					Err:          err,
				})
				return nil
			}
			switch task.action {
			case domain.ActionCreate:
				report.Created = append(report.Created, item)
			case domain.ActionUpdate:
				report.Updated = append(report.Updated, item)
			case domain.ActionDelete:
				report.Deleted = append(report.Deleted, item)
			}
			return nil
		})
	}
	// every task reports through the mutex and returns nil
	_ = g.Wait()

	sortByID(report.Created)
	sortByID(report.Updated)
	sortByID(report.Deleted)
	sort.Slice(report.Failures, func(i, j int) bool {
		if report.Failures[i].ID != report.Failures[j].ID {
			return report.Failures[i].ID < report.Failures[j].ID
		}
		return report.Failures[i].Action < report.Failures[j].Action
	})
	report.Duration = time.Since(started)

	if err := report.Err(); err != nil {
		span.RecordError(err)
		return report, err
	}
	return report, nil
}

func (uc *SyncUsecase) apply(
	ctx context.Context,
	version domain.Version,
	kind domain.AssociationKind,
	primaryID string,
	task syncTask,
) (domain.Association, error) {
	item := task.item
	switch task.action {
	case domain.ActionCreate:
		connectionID, err := uc.gateway.CreateAssociation(ctx, version, kind, primaryID, item)
		if err != nil {
			return item, err
		}
		item.ConnectionID = connectionID
		return item, nil
	case domain.ActionUpdate:
		return item, uc.gateway.UpdateAssociation(ctx, version, kind, primaryID, item)
	default:
		return item, uc.gateway.DeleteAssociation(ctx, version, kind, item)
	}
}

func sortByID(items []domain.Association) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].ID != items[j].ID {
			return items[i].ID < items[j].ID
		}
		return items[i].ConnectionID < items[j].ConnectionID
	})
}
