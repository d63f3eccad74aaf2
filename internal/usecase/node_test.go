package usecase

import (
	"context"
	"testing"

	"github.com/totegamma/taxonomy-sync"
	"github.com/totegamma/taxonomy-sync/internal/domain"
	"github.com/totegamma/taxonomy-sync/internal/infra/cache"
)

func TestUpdateMetadataMergesFeatures(t *testing.T) {
	category := "alpha"
	gw := &mockGateway{
		node: domain.TreeNode{
			ID: "urn:subject:1",
			Features: domain.NodeFeatures{
				SubjectCategory: &category,
				Extra:           map[string]string{"old": "yes"},
			},
		},
	}
	audit := &mockAudit{}
	uc := NewNodeUsecase(gw, cache.New(cache.Options{}), audit)

	ungrouped := domain.GroupingUngrouped
	_, err := uc.UpdateMetadata(context.Background(), domain.DefaultVersion, "nb", "urn:subject:1", domain.MetadataUpdate{
		Features: &domain.NodeFeatures{TopicResources: &ungrouped},
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if len(gw.metadataUpdates) != 1 {
		t.Fatalf("expected one metadata update, got %d", len(gw.metadataUpdates))
	}
	written := gw.metadataUpdates[0].Features
	if written == nil || written.SubjectCategory == nil || *written.SubjectCategory != "alpha" {
		t.Fatalf("expected existing category to be kept, got %+v", written)
	}
	if written.Grouped() {
		t.Fatalf("expected resources to be ungrouped")
	}
	if written.Extra["old"] != "yes" {
		t.Fatalf("expected unknown fields to survive, got %v", written.Extra)
	}
	if len(audit.entries) != 1 || audit.entries[0].Operation != domain.OperationUpdateNode {
		t.Fatalf("unexpected audit %+v", audit.entries)
	}
}

func TestUpdateMetadataInvalidatesNodeAndParents(t *testing.T) {
	gw := &mockGateway{
		node:         domain.TreeNode{ID: "urn:topic:1"},
		associations: []domain.Association{{ID: "urn:subject:1", ConnectionID: "c:1", Primary: true}},
	}
	qc := cache.New(cache.Options{})
	ctx := context.Background()
	nodeKey := domain.NodeKey(domain.DefaultVersion, "en", "urn:topic:1")
	childrenKey := domain.ChildrenKey(domain.DefaultVersion, "nb", "urn:subject:1")
	qc.Reconcile(ctx, nodeKey, domain.TreeNode{ID: "urn:topic:1", Name: "stale"})
	qc.Reconcile(ctx, childrenKey, []domain.TreeNode{})

	visible := false
	uc := NewNodeUsecase(gw, qc, &mockAudit{})
	if _, err := uc.UpdateMetadata(ctx, domain.DefaultVersion, "nb", "urn:topic:1", domain.MetadataUpdate{Visible: &visible}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if _, ok := qc.Get(nodeKey); ok {
		t.Fatalf("expected node to be invalidated in every language")
	}
	if _, ok := qc.Get(childrenKey); ok {
		t.Fatalf("expected parent's children to be invalidated")
	}
	if gw.count("GetNode") != 1 {
		t.Fatalf("expected the node to be reloaded once, got %v", gw.Calls())
	}
}

func TestUpdateMetadataEmptyIsRead(t *testing.T) {
	gw := &mockGateway{node: domain.TreeNode{ID: "urn:topic:1"}}
	uc := NewNodeUsecase(gw, cache.New(cache.Options{}), &mockAudit{})

	if _, err := uc.UpdateMetadata(context.Background(), domain.DefaultVersion, "nb", "urn:topic:1", domain.MetadataUpdate{}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if gw.count("UpdateMetadata") != 0 {
		t.Fatalf("expected no write, got %v", gw.Calls())
	}
}

func TestChildrenAreCached(t *testing.T) {
	gw := &mockGateway{childrenFn: func() ([]domain.TreeNode, error) { return siblings(1, 2), nil }}
	uc := NewNodeUsecase(gw, cache.New(cache.Options{}), &mockAudit{})

	for i := 0; i < 3; i++ {
		children, err := uc.Children(context.Background(), domain.DefaultVersion, "nb", "p")
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if len(children) != 2 {
			t.Fatalf("unexpected children %v", children)
		}
	}
	if gw.count("Children") != 1 {
		t.Fatalf("expected a single fetch, got %v", gw.Calls())
	}

	if _, err := uc.Children(context.Background(), domain.DefaultVersion, "en", "p"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if gw.count("Children") != 2 {
		t.Fatalf("expected another language to be fetched separately, got %v", gw.Calls())
	}
}

func TestDeleteDropsVersion(t *testing.T) {
	gw := &mockGateway{}
	qc := cache.New(cache.Options{})
	ctx := context.Background()
	key := domain.ChildrenKey(domain.DefaultVersion, "nb", "urn:subject:1")
	other := domain.ChildrenKey("draft", "nb", "urn:subject:1")
	qc.Reconcile(ctx, key, []domain.TreeNode{})
	qc.Reconcile(ctx, other, []domain.TreeNode{})

	audit := &mockAudit{}
	uc := NewNodeUsecase(gw, qc, audit)
	if err := uc.Delete(ctx, domain.DefaultVersion, "urn:topic:1"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, ok := qc.Get(key); ok {
		t.Fatalf("expected version to be dropped")
	}
	if _, ok := qc.Get(other); !ok {
		t.Fatalf("expected other versions to survive")
	}

	entries, _ := uc.Audit(ctx, "urn:topic:1", 10)
	if len(entries) != 1 || entries[0].Operation != domain.OperationDeleteNode {
		t.Fatalf("unexpected audit %+v", entries)
	}
}

func TestCreateRecordsAudit(t *testing.T) {
	gw := &mockGateway{}
	audit := &mockAudit{}
	uc := NewNodeUsecase(gw, cache.New(cache.Options{}), audit)

	id, err := uc.Create(context.Background(), domain.DefaultVersion, taxonomy.NodePostPut{Name: "Topic", NodeType: taxonomy.NodeTypeTopic})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if id != "urn:topic:new" {
		t.Fatalf("unexpected id %s", id)
	}
	if len(audit.entries) != 1 || audit.entries[0].EntityID != id {
		t.Fatalf("unexpected audit %+v", audit.entries)
	}
}
