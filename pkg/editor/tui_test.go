package editor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"post-reorder-backend/pkg/models"
	"post-reorder-backend/pkg/utils"
)

// fakeServer answers the editor endpoints and records submitted orders.
type fakeServer struct {
	mu     sync.Mutex
	orders []string
	items  []models.Item
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/items":
		utils.WriteSuccessResponse(w, f.items)
	case "/api/nonce":
		utils.WriteSuccessResponse(w, map[string]string{"nonce": "n-1"})
	case "/admin/ajax":
		_ = r.ParseForm()
		f.mu.Lock()
		f.orders = append(f.orders, r.PostForm.Get("order"))
		f.mu.Unlock()
		if r.PostForm.Get("nonce") != "n-1" {
			utils.WriteErrorResponseWithCode(w, http.StatusForbidden, "INVALID_NONCE", "bad nonce", "")
			return
		}
		utils.WriteSuccessResponse(w, models.NewReorderReport(len(f.items), len(f.items), nil))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeServer) lastOrder() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.orders) == 0 {
		return ""
	}
	return f.orders[len(f.orders)-1]
}

func newTestModel(t *testing.T) (Model, *fakeServer) {
	t.Helper()
	fake := &fakeServer{items: []models.Item{
		{ID: 1, Title: "One", PostType: "post", PostStatus: models.StatusPublish, MenuOrder: 3},
		{ID: 2, Title: "Two", PostType: "post", PostStatus: models.StatusPublish, MenuOrder: 2},
		{ID: 3, Title: "Three", PostType: "post", PostStatus: models.StatusPublish, MenuOrder: 1},
	}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	m := NewModel(context.Background(), NewClient(srv.URL, "token"), models.ReorderTarget{PostType: "post"})
	msg := m.Init()()
	next, _ := m.Update(msg)
	return next.(Model), fake
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelLoads(t *testing.T) {
	m, _ := newTestModel(t)
	require.NotNil(t, m.tree)
	assert.Equal(t, []int64{1, 2, 3}, m.tree.Flat())
	assert.Equal(t, "n-1", m.nonce)
	assert.Contains(t, m.View(), "Three")
}

func TestModelMoveSubmitsImmediately(t *testing.T) {
	m, fake := newTestModel(t)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Nil(t, cmd, "selection alone does not submit")
	assert.Equal(t, 1, m.cursor)

	m, cmd = press(t, m, runes("K"))
	require.NotNil(t, cmd)
	assert.Equal(t, []int64{2, 1, 3}, m.tree.Flat())
	assert.Equal(t, 0, m.cursor, "cursor follows the moved item")

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.NoError(t, m.err)
	assert.Contains(t, m.status, "full")
	assert.JSONEq(t, `[{"id":2},{"id":1},{"id":3}]`, fake.lastOrder())
}

func TestModelIndentAndOutdent(t *testing.T) {
	m, fake := newTestModel(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.JSONEq(t, `[{"id":1,"children":[{"id":2}]},{"id":3}]`, fake.lastOrder())

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.JSONEq(t, `[{"id":1},{"id":2},{"id":3}]`, fake.lastOrder())

	// nothing to outdent: no request
	_, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Nil(t, cmd)
}

func TestModelShowsSubmitErrors(t *testing.T) {
	m, _ := newTestModel(t)
	m.nonce = "stale"

	m, cmd := press(t, m, runes("J"))
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	m = next.(Model)

	require.Error(t, m.err)
	assert.Contains(t, m.View(), "INVALID_NONCE")
}

func TestModelQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := press(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
