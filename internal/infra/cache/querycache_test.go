package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/totegamma/taxonomy-sync/internal/domain"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []domain.Invalidation
}

func (n *recordingNotifier) Publish(ctx context.Context, invalidation domain.Invalidation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, invalidation)
	return nil
}

type mockShared struct {
	mu       sync.Mutex
	entries  map[string][]byte
	versions []domain.Version
}

func newMockShared() *mockShared {
	return &mockShared{entries: map[string][]byte{}}
}

func (m *mockShared) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key.String()]
	return v, ok, nil
}

func (m *mockShared) Set(ctx context.Context, key Key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key.String()] = value
	return nil
}

func (m *mockShared) Delete(ctx context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key.String())
	return nil
}

func (m *mockShared) DropVersion(ctx context.Context, version domain.Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions = append(m.versions, version)
	return nil
}

func children(ranks ...int) []domain.TreeNode {
	nodes := make([]domain.TreeNode, 0, len(ranks))
	for i, r := range ranks {
		id := string(rune('a' + i))
		nodes = append(nodes, domain.TreeNode{
			Kind: domain.NodeKindChild,
			ID:   id,
			Connection: &domain.ChildConnection{
				ParentID:     "p",
				ConnectionID: "c:" + id,
				Rank:         r,
			},
		})
	}
	return nodes
}

func TestLoadFetchesOnce(t *testing.T) {
	c := New(Options{})
	key := domain.ChildrenKey(domain.DefaultVersion, "nb", "urn:subject:1")

	var fetches int32
	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&fetches, 1)
		return children(1, 2), nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.Load(context.Background(), key, fetch)
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if len(v.([]domain.TreeNode)) != 2 {
			t.Fatalf("unexpected value %v", v)
		}
	}
	if fetches != 1 {
		t.Fatalf("expected one fetch got %d", fetches)
	}
}

func TestConcurrentLoadsShareOneFetch(t *testing.T) {
	c := New(Options{})
	key := domain.NodeKey(domain.DefaultVersion, "nb", "urn:topic:1")

	release := make(chan struct{})
	var fetches int32
	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&fetches, 1)
		<-release
		return domain.TreeNode{ID: "urn:topic:1"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Load(context.Background(), key, fetch); err != nil {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if fetches != 1 {
		t.Fatalf("expected one fetch got %d", fetches)
	}
}

func TestLoadErrorIsNotCached(t *testing.T) {
	c := New(Options{})
	key := domain.NodeKey(domain.DefaultVersion, "nb", "urn:topic:1")

	_, err := c.Load(context.Background(), key, func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := c.Get(key); ok {
		t.Fatalf("failed fetch must not be cached")
	}
}

func TestApplySeesLatestSnapshot(t *testing.T) {
	c := New(Options{})
	key := domain.ChildrenKey(domain.DefaultVersion, "nb", "p")
	c.Reconcile(context.Background(), key, children(1, 2, 3))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Apply(key, func(current any, found bool) (any, error) {
				nodes := current.([]domain.TreeNode)
				next := make([]domain.TreeNode, len(nodes))
				copy(next, nodes)
				conn := *next[0].Connection
				conn.Rank++
				next[0].Connection = &conn
				return next, nil
			})
			if err != nil {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	v, _ := c.Get(key)
	if rank := v.([]domain.TreeNode)[0].Connection.Rank; rank != 21 {
		t.Fatalf("expected every patch to build on the previous one, got rank %d", rank)
	}
}

func TestApplyErrorKeepsValue(t *testing.T) {
	c := New(Options{})
	key := domain.ChildrenKey(domain.DefaultVersion, "nb", "p")
	original := children(1)
	c.Reconcile(context.Background(), key, original)

	_, err := c.Apply(key, func(current any, found bool) (any, error) {
		return nil, errors.New("no")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	v, _ := c.Get(key)
	if v.([]domain.TreeNode)[0].Connection.Rank != 1 {
		t.Fatalf("value changed after failed patch")
	}
}

func TestInvalidatedLoadIsNotStored(t *testing.T) {
	c := New(Options{})
	key := domain.ChildrenKey(domain.DefaultVersion, "nb", "p")

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Load(context.Background(), key, func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return children(1), nil
		})
	}()

	<-started
	c.Invalidate(context.Background(), key)
	close(release)
	<-done

	if _, ok := c.Get(key); ok {
		t.Fatalf("a fetch started before invalidation must not be stored")
	}
}

func TestInvalidatePublishes(t *testing.T) {
	notifier := &recordingNotifier{}
	shared := newMockShared()
	c := New(Options{Notifier: notifier, Shared: shared, Origin: "me"})
	key := domain.NodeKey(domain.DefaultVersion, "nb", "urn:topic:1")
	c.Reconcile(context.Background(), key, domain.TreeNode{ID: "urn:topic:1"})

	c.Invalidate(context.Background(), key)

	if _, ok := c.Get(key); ok {
		t.Fatalf("expected key to be dropped")
	}
	if _, ok := shared.entries[key.String()]; ok {
		t.Fatalf("expected shared entry to be dropped")
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("expected one publish got %d", len(notifier.calls))
	}
	inv := notifier.calls[0]
	if inv.Origin != "me" || len(inv.Keys) != 1 || inv.Keys[0] != key.String() {
		t.Fatalf("unexpected invalidation %+v", inv)
	}
}

func TestInvalidateVersion(t *testing.T) {
	shared := newMockShared()
	c := New(Options{Shared: shared})
	draft := domain.ChildrenKey("draft", "nb", "p")
	published := domain.ChildrenKey(domain.DefaultVersion, "nb", "p")
	c.Reconcile(context.Background(), draft, children(1))
	c.Reconcile(context.Background(), published, children(1))

	c.InvalidateVersion(context.Background(), "draft")

	if _, ok := c.Get(draft); ok {
		t.Fatalf("expected draft key to be dropped")
	}
	if _, ok := c.Get(published); !ok {
		t.Fatalf("other versions must stay cached")
	}
	if len(shared.versions) != 1 || shared.versions[0] != "draft" {
		t.Fatalf("expected shared version drop, got %v", shared.versions)
	}
}

func TestDropIgnoresOwnOrigin(t *testing.T) {
	c := New(Options{Origin: "me"})
	key := domain.NodeKey(domain.DefaultVersion, "nb", "urn:topic:1")
	c.Reconcile(context.Background(), key, domain.TreeNode{ID: "urn:topic:1"})

	c.Drop(domain.Invalidation{Origin: "me", Keys: []string{key.String()}})
	if _, ok := c.Get(key); !ok {
		t.Fatalf("own invalidation must be ignored")
	}

	c.Drop(domain.Invalidation{Origin: "other", Keys: []string{key.String()}})
	if _, ok := c.Get(key); ok {
		t.Fatalf("remote invalidation must drop the key")
	}
}

func TestLoadReadsSharedTier(t *testing.T) {
	shared := newMockShared()
	first := New(Options{Shared: shared})
	key := domain.ChildrenKey(domain.DefaultVersion, "nb", "p")
	_, err := first.Load(context.Background(), key, func(ctx context.Context) (any, error) {
		return children(4, 5), nil
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	second := New(Options{Shared: shared})
	v, err := second.Load(context.Background(), key, func(ctx context.Context) (any, error) {
		t.Fatalf("expected value from shared tier")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	nodes := v.([]domain.TreeNode)
	if len(nodes) != 2 || nodes[1].Connection.Rank != 5 {
		t.Fatalf("unexpected value %+v", nodes)
	}
}

func TestApplyStaysLocal(t *testing.T) {
	shared := newMockShared()
	c := New(Options{Shared: shared})
	key := domain.ChildrenKey(domain.DefaultVersion, "nb", "p")

	_, err := c.Apply(key, func(current any, found bool) (any, error) {
		if found {
			t.Fatalf("expected empty cache")
		}
		return children(1), nil
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(shared.entries) != 0 {
		t.Fatalf("provisional values must not reach the shared tier")
	}
}

func TestParseCacheKey(t *testing.T) {
	key := domain.AssociationsKey("draft", domain.KindFilters, "urn:resource:1")
	parsed, ok := domain.ParseCacheKey(key.String())
	if !ok || parsed != key {
		t.Fatalf("expected %+v got %+v", key, parsed)
	}
	if _, ok := domain.ParseCacheKey("nope"); ok {
		t.Fatalf("expected malformed key to fail")
	}
}

func TestEntryKeyDependsOnNamespace(t *testing.T) {
	key := domain.NodeKey(domain.DefaultVersion, "nb", "urn:topic:1")
	if entryKey("1", key) == entryKey("2", key) {
		t.Fatalf("expected namespace to change the entry key")
	}
	if len(entryKey("1", key)) > 250 {
		t.Fatalf("memcached keys are limited to 250 bytes")
	}
}

func TestInvalidateWithoutLanguageDropsEveryLanguage(t *testing.T) {
	c := New(Options{})
	nb := domain.ChildrenKey(domain.DefaultVersion, "nb", "p")
	nn := domain.ChildrenKey(domain.DefaultVersion, "nn", "p")
	other := domain.ChildrenKey(domain.DefaultVersion, "nb", "q")
	for _, key := range []Key{nb, nn, other} {
		c.Reconcile(context.Background(), key, children(1))
	}

	c.Invalidate(context.Background(), domain.ChildrenKey(domain.DefaultVersion, "", "p"))

	if _, ok := c.Get(nb); ok {
		t.Fatalf("expected nb to be dropped")
	}
	if _, ok := c.Get(nn); ok {
		t.Fatalf("expected nn to be dropped")
	}
	if _, ok := c.Get(other); !ok {
		t.Fatalf("other parents must stay cached")
	}
}

func TestRemoteDropWithoutLanguage(t *testing.T) {
	c := New(Options{Origin: "me"})
	nb := domain.ResourcesKey("draft", "nb", "p")
	c.Reconcile(context.Background(), nb, children(1))

	c.Drop(domain.Invalidation{Origin: "other", Keys: []string{domain.ResourcesKey("draft", "", "p").String()}})

	if _, ok := c.Get(nb); ok {
		t.Fatalf("expected remote invalidation to drop every language")
	}
}
