package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/totegamma/taxonomy-sync"
	"github.com/totegamma/taxonomy-sync/internal/domain"
)

type mockGateway struct {
	mu    sync.Mutex
	calls []string

	node         domain.TreeNode
	nodeErr      error
	associations []domain.Association
	lookupErr    error

	childrenFn         func() ([]domain.TreeNode, error)
	connectFn          func(parentID, childID string) (string, error)
	updateConnectionFn func(connection domain.ChildConnection) error
	disconnectErr      map[string]error
	metadataUpdates    []domain.MetadataUpdate

	// keyed by association id
	itemErr map[string]error
	delay   time.Duration

	inFlight    int
	maxInFlight int
}

func (m *mockGateway) called(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *mockGateway) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockGateway) count(prefix string) int {
	n := 0
	for _, c := range m.Calls() {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (m *mockGateway) GetNode(ctx context.Context, version domain.Version, language, id string) (domain.TreeNode, error) {
	m.called("GetNode %s", id)
	return m.node, m.nodeErr
}

func (m *mockGateway) ListNodes(ctx context.Context, version domain.Version, query taxonomy.NodeQuery) ([]domain.TreeNode, error) {
	m.called("ListNodes")
	return []domain.TreeNode{m.node}, nil
}

func (m *mockGateway) CreateNode(ctx context.Context, version domain.Version, node taxonomy.NodePostPut) (string, error) {
	m.called("CreateNode %s", node.Name)
	return "urn:topic:new", nil
}

func (m *mockGateway) UpdateMetadata(ctx context.Context, version domain.Version, id string, update domain.MetadataUpdate) error {
	m.called("UpdateMetadata %s", id)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadataUpdates = append(m.metadataUpdates, update)
	return nil
}

func (m *mockGateway) DeleteNode(ctx context.Context, version domain.Version, id string) error {
	m.called("DeleteNode %s", id)
	return nil
}

func (m *mockGateway) Children(ctx context.Context, version domain.Version, language, parentID string) ([]domain.TreeNode, error) {
	m.called("Children %s", parentID)
	if m.childrenFn == nil {
		return []domain.TreeNode{}, nil
	}
	return m.childrenFn()
}

func (m *mockGateway) Resources(ctx context.Context, version domain.Version, language, parentID string) ([]domain.TreeNode, error) {
	m.called("Resources %s", parentID)
	if m.childrenFn == nil {
		return []domain.TreeNode{}, nil
	}
	return m.childrenFn()
}

func (m *mockGateway) Connect(ctx context.Context, version domain.Version, parentID, childID string, primary bool, relevanceID string) (string, error) {
	m.called("Connect %s %s", parentID, childID)
	if m.connectFn == nil {
		return "urn:node-connection:new", nil
	}
	return m.connectFn(parentID, childID)
}

func (m *mockGateway) UpdateConnection(ctx context.Context, version domain.Version, connection domain.ChildConnection) error {
	m.called("UpdateConnection %s %d", connection.ConnectionID, connection.Rank)
	if m.updateConnectionFn == nil {
		return nil
	}
	return m.updateConnectionFn(connection)
}

func (m *mockGateway) Disconnect(ctx context.Context, version domain.Version, connectionID string) error {
	m.called("Disconnect %s", connectionID)
	return m.disconnectErr[connectionID]
}

func (m *mockGateway) Associations(ctx context.Context, version domain.Version, kind domain.AssociationKind, primaryID string) ([]domain.Association, error) {
	m.called("Associations %s %s", kind, primaryID)
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return append([]domain.Association(nil), m.associations...), nil
}

func (m *mockGateway) track() func() {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}
}

func (m *mockGateway) CreateAssociation(ctx context.Context, version domain.Version, kind domain.AssociationKind, primaryID string, a domain.Association) (string, error) {
	defer m.track()()
	m.called("CreateAssociation %s", a.ID)
	if err := m.itemErr[a.ID]; err != nil {
		return "", err
	}
	return "conn:" + a.ID, nil
}

func (m *mockGateway) UpdateAssociation(ctx context.Context, version domain.Version, kind domain.AssociationKind, primaryID string, a domain.Association) error {
	defer m.track()()
	m.called("UpdateAssociation %s %s %s", a.ID, a.ConnectionID, a.RelevanceID)
	return m.itemErr[a.ID]
}

func (m *mockGateway) DeleteAssociation(ctx context.Context, version domain.Version, kind domain.AssociationKind, a domain.Association) error {
	defer m.track()()
	m.called("DeleteAssociation %s %s", a.ID, a.ConnectionID)
	return m.itemErr[a.ID]
}

type mockAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (m *mockAudit) Record(ctx context.Context, entry domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAudit) List(ctx context.Context, entityID string, limit int) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.AuditEntry
	for _, e := range m.entries {
		if e.EntityID == entityID {
			result = append(result, e)
		}
	}
	return result, nil
}
