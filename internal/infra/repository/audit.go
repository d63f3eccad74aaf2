package repository

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/totegamma/taxonomy-sync/internal/domain"
	"github.com/totegamma/taxonomy-sync/internal/infra/database/models"
)

var tracer = otel.Tracer("repository")

const maxAuditLimit = 500

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ",")
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func toModel(entry domain.AuditEntry) models.AuditEntry {
	return models.AuditEntry{
		Operation: string(entry.Operation),
		Kind:      string(entry.Kind),
		EntityID:  entry.EntityID,
		Version:   entry.Version.String(),
		Created:   joinIDs(entry.Created),
		Updated:   joinIDs(entry.Updated),
		Deleted:   joinIDs(entry.Deleted),
		Failed:    joinIDs(entry.Failed),
		Error:     entry.Error,
	}
}

func fromModel(m models.AuditEntry) domain.AuditEntry {
	return domain.AuditEntry{
		ID:        m.ID,
		Operation: domain.Operation(m.Operation),
		Kind:      domain.AssociationKind(m.Kind),
		EntityID:  m.EntityID,
		Version:   domain.Version(m.Version),
		Created:   splitIDs(m.Created),
		Updated:   splitIDs(m.Updated),
		Deleted:   splitIDs(m.Deleted),
		Failed:    splitIDs(m.Failed),
		Error:     m.Error,
		CreatedAt: m.CDate,
	}
}

func (r *AuditRepository) Record(ctx context.Context, entry domain.AuditEntry) error {
	ctx, span := tracer.Start(ctx, "Audit.Repository.Record")
	defer span.End()

	model := toModel(entry)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "AuditRepository.Record: create failed")
	}
	return nil
}

// List returns the newest entries for entityID. An empty entityID lists every entity.
func (r *AuditRepository) List(ctx context.Context, entityID string, limit int) ([]domain.AuditEntry, error) {
	ctx, span := tracer.Start(ctx, "Audit.Repository.List")
	defer span.End()

	if limit <= 0 || limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	query := r.db.WithContext(ctx).Order("c_date DESC").Order("id DESC").Limit(limit)
	if entityID != "" {
		query = query.Where("entity_id = ?", entityID)
	}

	var rows []models.AuditEntry
	if err := query.Find(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "AuditRepository.List: query failed")
	}

	entries := make([]domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, fromModel(row))
	}
	return entries, nil
}

// NopAuditRecorder is used when no database is configured.
type NopAuditRecorder struct{}

func (NopAuditRecorder) Record(ctx context.Context, entry domain.AuditEntry) error {
	return nil
}

func (NopAuditRecorder) List(ctx context.Context, entityID string, limit int) ([]domain.AuditEntry, error) {
	return []domain.AuditEntry{}, nil
}
