package reorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"post-reorder-backend/pkg/models"
	"post-reorder-backend/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory DatabaseInterface for persister tests.
type memStore struct {
	mu      sync.Mutex
	items   map[int64]*models.Item
	failIDs map[int64]bool
	applied [][]models.OrderAssignment
}

func newMemStore(items ...models.Item) *memStore {
	s := &memStore{items: map[int64]*models.Item{}, failIDs: map[int64]bool{}}
	for i := range items {
		it := items[i]
		s.items[it.ID] = &it
	}
	return s
}

func (s *memStore) ListItems(ctx context.Context, q models.ListQuery) ([]models.Item, error) {
	return nil, errors.New("not used")
}

func (s *memStore) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *it
	return &cp, nil
}

func (s *memStore) CreateItem(ctx context.Context, it *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *it
	s.items[it.ID] = &cp
	return nil
}

func (s *memStore) FilterInScope(ctx context.Context, postType, postStatus string, ids []int64) (map[int64]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := map[int64]bool{}
	for _, id := range ids {
		if it, ok := s.items[id]; ok && it.PostType == postType && it.PostStatus == postStatus {
			in[id] = true
		}
	}
	return in, nil
}

func (s *memStore) ApplyOrder(ctx context.Context, assignments []models.OrderAssignment) models.ReorderReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, assignments)
	written := 0
	var failures []models.WriteFailure
	for _, a := range assignments {
		it, ok := s.items[a.ID]
		if !ok || s.failIDs[a.ID] {
			failures = append(failures, models.WriteFailure{ID: a.ID, Error: "write failed"})
			continue
		}
		it.MenuOrder = a.MenuOrder
		if a.SetParent {
			it.ParentID = a.ParentID
		}
		written++
	}
	return models.NewReorderReport(len(assignments), written, failures)
}

func (s *memStore) HealthCheck(ctx context.Context) error { return nil }
func (s *memStore) Close() error                          { return nil }

func (s *memStore) menuOrder(t *testing.T, id int64) int {
	t.Helper()
	it, err := s.GetItem(context.Background(), id)
	require.NoError(t, err)
	return it.MenuOrder
}

type targets map[string]models.ReorderTarget

func (ts targets) Target(postType string) (models.ReorderTarget, bool) {
	if postType == "" {
		postType = "post"
	}
	t, ok := ts[postType]
	return t, ok
}

func defaultTargets() targets {
	return targets{
		"post": models.ReorderTarget{PostType: "post"}.WithDefaults(),
		"page": models.ReorderTarget{PostType: "page", MaxLevels: 2}.WithDefaults(),
	}
}

func post(id int64, menuOrder int) models.Item {
	return models.Item{ID: id, Title: fmt.Sprintf("post %d", id), PostType: "post", PostStatus: models.StatusPublish, MenuOrder: menuOrder}
}

type persisterFixture struct {
	store     *memStore
	nonces    *utils.NonceService
	persister *Persister
}

func newFixture(items ...models.Item) persisterFixture {
	store := newMemStore(items...)
	nonces := utils.NewNonceService("secret", time.Hour)
	return persisterFixture{
		store:     store,
		nonces:    nonces,
		persister: NewPersister(store, nonces, defaultTargets(), utils.SortNonceAction, nil),
	}
}

func (f persisterFixture) nonce(t *testing.T, user string) string {
	t.Helper()
	n, err := f.nonces.Create(user, utils.SortNonceAction)
	require.NoError(t, err)
	return n
}

func TestPersistWritesNDownToOne(t *testing.T) {
	f := newFixture(post(42, 0), post(17, 0), post(9, 0), post(100, 55))

	report, err := f.persister.Persist(context.Background(), PersistRequest{
		UserID: "u1",
		Nonce:  f.nonce(t, "u1"),
		Order:  "42,17,9",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReorderReport{Outcome: models.OutcomeFull, Submitted: 3, Written: 3}, report)

	assert.Equal(t, 3, f.store.menuOrder(t, 42))
	assert.Equal(t, 2, f.store.menuOrder(t, 17))
	assert.Equal(t, 1, f.store.menuOrder(t, 9))
	// untouched items keep their value
	assert.Equal(t, 55, f.store.menuOrder(t, 100))
}

func TestPersistRejectsBadNonceWithoutWriting(t *testing.T) {
	f := newFixture(post(1, 7), post(2, 8))

	tests := map[string]string{
		"missing":      "",
		"garbage":      "xyz",
		"another user": f.nonce(t, "u2"),
	}
	for name, nonce := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.persister.Persist(context.Background(), PersistRequest{UserID: "u1", Nonce: nonce, Order: "1,2"})
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
	assert.Empty(t, f.store.applied)
	assert.Equal(t, 7, f.store.menuOrder(t, 1))
}

func TestPersistChecksNonceBeforeParsing(t *testing.T) {
	f := newFixture()
	_, err := f.persister.Persist(context.Background(), PersistRequest{UserID: "u1", Nonce: "bad", Order: "not,ids"})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPersistEmptySubmission(t *testing.T) {
	f := newFixture(post(1, 7))

	report, err := f.persister.Persist(context.Background(), PersistRequest{UserID: "u1", Nonce: f.nonce(t, "u1"), Order: ""})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeFull, report.Outcome)
	assert.Zero(t, report.Submitted)
	assert.Empty(t, f.store.applied)
}

func TestPersistMalformed(t *testing.T) {
	f := newFixture(post(1, 7))

	_, err := f.persister.Persist(context.Background(), PersistRequest{UserID: "u1", Nonce: f.nonce(t, "u1"), Order: "1,x"})
	assert.ErrorIs(t, err, ErrMalformedOrder)
	assert.Empty(t, f.store.applied)
}

func TestPersistUnknownTarget(t *testing.T) {
	f := newFixture(post(1, 7))

	_, err := f.persister.Persist(context.Background(), PersistRequest{UserID: "u1", Nonce: f.nonce(t, "u1"), Order: "1", PostType: "product"})
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestPersistOutOfScopeWritesNothing(t *testing.T) {
	draft := post(3, 4)
	draft.PostStatus = models.StatusDraft
	page := post(4, 5)
	page.PostType = "page"
	f := newFixture(post(1, 1), post(2, 2), draft, page)

	_, err := f.persister.Persist(context.Background(), PersistRequest{UserID: "u1", Nonce: f.nonce(t, "u1"), Order: "1,2,3,4,99"})
	scopeErr, ok := IsOutOfScope(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, []int64{3, 4, 99}, scopeErr.IDs)
	assert.Contains(t, scopeErr.Error(), "3,4,99")
	assert.Empty(t, f.store.applied)
	assert.Equal(t, 1, f.store.menuOrder(t, 1))
}

func TestPersistPartialAndNone(t *testing.T) {
	f := newFixture(post(1, 0), post(2, 0), post(3, 0))
	f.store.failIDs[2] = true

	report, err := f.persister.Persist(context.Background(), PersistRequest{UserID: "u1", Nonce: f.nonce(t, "u1"), Order: "1,2,3"})
	assert.ErrorIs(t, err, ErrPartialWrite)
	assert.Equal(t, models.OutcomePartial, report.Outcome)
	assert.Equal(t, 2, report.Written)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, int64(2), report.Failures[0].ID)
	assert.Equal(t, 3, f.store.menuOrder(t, 1))
	assert.Equal(t, 1, f.store.menuOrder(t, 3))

	f.store.failIDs[1], f.store.failIDs[3] = true, true
	report, err = f.persister.Persist(context.Background(), PersistRequest{UserID: "u1", Nonce: f.nonce(t, "u1"), Order: "3,2,1"})
	assert.ErrorIs(t, err, ErrNothingWritten)
	assert.Equal(t, models.OutcomeNone, report.Outcome)
	assert.Equal(t, 3, report.Submitted)
}

func TestPersistHierarchySetsParents(t *testing.T) {
	child := post(2, 0)
	f := newFixture(post(1, 0), child, post(3, 0))

	_, err := f.persister.Persist(context.Background(), PersistRequest{
		UserID: "u1",
		Nonce:  f.nonce(t, "u1"),
		Order:  `[{"id":"3"},{"id":"1","children":[{"id":"2"}]}]`,
	})
	require.NoError(t, err)

	it, err := f.store.GetItem(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), it.ParentID)
	assert.Equal(t, 1, it.MenuOrder)
	assert.Equal(t, 3, f.store.menuOrder(t, 3))
}

func TestPersistKeepsParentsOutsideTheListing(t *testing.T) {
	draft := post(50, 0)
	draft.PostStatus = models.StatusDraft
	first, second, moved := post(1, 2), post(2, 1), post(3, 0)
	first.ParentID, second.ParentID, moved.ParentID = 50, 50, 50
	f := newFixture(draft, first, second, moved)

	// the page lists published posts only: 1 and 2 stay top level under an
	// unlisted parent, 3 was dragged under 1
	order := `[{"id":"2","keep_parent":true},{"id":"1","keep_parent":true,"children":[{"id":"3"}]}]`

	report, err := f.persister.Persist(context.Background(), PersistRequest{UserID: "u1", Nonce: f.nonce(t, "u1"), Order: order})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Written)

	for id, want := range map[int64]int64{1: 50, 2: 50, 3: 1} {
		it, err := f.store.GetItem(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, it.ParentID, "post_parent of %d", id)
	}
	assert.Equal(t, 3, f.store.menuOrder(t, 2))
	assert.Equal(t, 2, f.store.menuOrder(t, 1))
	assert.Equal(t, 1, f.store.menuOrder(t, 3))
}

func TestKeepParentOnlyAppliesAtTopLevel(t *testing.T) {
	sub, err := ParseSubmission(`[{"id":1,"keep_parent":true,"children":[{"id":2,"keep_parent":true}]},{"id":3}]`, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.OrderAssignment{
		{ID: 1, MenuOrder: 3, SetParent: false},
		{ID: 2, MenuOrder: 2, ParentID: 1, SetParent: true},
		{ID: 3, MenuOrder: 1, SetParent: true},
	}, sub.Assignments())
}

func TestPersistHonoursTargetMaxLevels(t *testing.T) {
	page := func(id int64) models.Item {
		it := post(id, 0)
		it.PostType = "page"
		return it
	}
	f := newFixture(page(1), page(2), page(3))

	_, err := f.persister.Persist(context.Background(), PersistRequest{
		UserID:   "u1",
		Nonce:    f.nonce(t, "u1"),
		PostType: "page",
		Order:    `[{"id":1,"children":[{"id":2,"children":[{"id":3}]}]}]`,
	})
	assert.ErrorIs(t, err, ErrMalformedOrder)
}

func TestPersistIgnoresClientCancellationOnceAccepted(t *testing.T) {
	f := newFixture(post(1, 0), post(2, 0))
	ctx, cancel := context.WithCancel(context.Background())
	nonce := f.nonce(t, "u1")
	cancel()

	s := &cancelAwareStore{memStore: f.store}
	p := NewPersister(s, f.nonces, defaultTargets(), utils.SortNonceAction, nil)
	report, err := p.Persist(ctx, PersistRequest{UserID: "u1", Nonce: nonce, Order: "1,2"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Written)
}

// cancelAwareStore fails writes when handed a cancelled context.
type cancelAwareStore struct {
	*memStore
}

func (s *cancelAwareStore) ApplyOrder(ctx context.Context, assignments []models.OrderAssignment) models.ReorderReport {
	if ctx.Err() != nil {
		return models.NewReorderReport(len(assignments), 0, nil)
	}
	return s.memStore.ApplyOrder(ctx, assignments)
}
