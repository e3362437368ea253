package liveedit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pagecraft/internal/grid"
	"pagecraft/internal/models"
)

type liveServer struct {
	hub       *Hub
	srv       *httptest.Server
	page      *models.Page
	persister *fakePersister
}

func newLiveServer(t *testing.T) *liveServer {
	t.Helper()
	ls := &liveServer{page: testPage(), persister: &fakePersister{}}
	ls.hub = NewHub(func(_ context.Context, id uuid.UUID) (*Session, error) {
		if id != ls.page.ID {
			return nil, nil
		}
		return NewSession(ls.page, testSchema(), ls.persister), nil
	})
	ls.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/live/"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		err = ls.hub.ServeWS(w, r, id, Role(r.URL.Query().Get("role")))
		switch {
		case errors.Is(err, ErrNoSession):
			http.NotFound(w, r)
		case errors.Is(err, ErrUpgrade):
		case err != nil:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}))
	t.Cleanup(func() {
		ls.hub.Close()
		ls.srv.Close()
	})
	return ls
}

func (ls *liveServer) dial(t *testing.T, id uuid.UUID, role Role) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ls.srv.URL, "http") + "/live/" + id.String() + "?role=" + string(role)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", role, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (ls *liveServer) waitPeers(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ls.hub.mu.Lock()
		rm := ls.hub.rooms[ls.page.ID]
		count := 0
		if rm != nil {
			count = len(rm.peers)
		}
		ls.hub.mu.Unlock()
		if count == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("room never reached %d peers", n)
}

func write(t *testing.T, conn *websocket.Conn, m Message) {
	t.Helper()
	data, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	m, err := Decode(data)
	if err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return m
}

func TestHubRelaysBetweenShellAndSurface(t *testing.T) {
	ls := newLiveServer(t)
	shell := ls.dial(t, ls.page.ID, RoleShell)
	surface := ls.dial(t, ls.page.ID, RoleSurface)
	ls.waitPeers(t, 2)

	widget := ls.page.Sections[0].Widgets[0]
	sel := New(TypeSelect, Select{Level: LevelWidget, ID: widget.ID, Metadata: map[string]string{"type": "heading"}})
	write(t, surface, sel)

	if m := read(t, shell); m.Type != TypeSelect || m.Payload.(Select).ID != widget.ID {
		t.Fatalf("shell got %s %#v", m.Type, m.Payload)
	}
	if m := read(t, shell); m.Type != TypeProperties || m.Payload.(Properties).Name != "Heading" {
		t.Fatalf("shell got %s, want properties", m.Type)
	}

	// A duplicate select and a malformed frame are dropped; the hover that
	// follows is the next thing the shell sees.
	write(t, surface, sel)
	if err := surface.WriteMessage(websocket.TextMessage, []byte(`{"type":"select","payload":{"level":"nope"}}`)); err != nil {
		t.Fatal(err)
	}
	write(t, surface, New(TypeHover, Hover{Level: LevelSection, ID: ls.page.Sections[1].ID}))
	if m := read(t, shell); m.Type != TypeHover {
		t.Fatalf("shell got %s, want hover", m.Type)
	}

	// Selecting the page enables section reordering.
	write(t, surface, New(TypeSelect, Select{Level: LevelPage, ID: ls.page.ID}))
	if m := read(t, shell); m.Type != TypeSelect {
		t.Fatalf("shell got %s, want select", m.Type)
	}
	if m := read(t, shell); m.Type != TypeProperties {
		t.Fatalf("shell got %s, want properties", m.Type)
	}

	reversed := []uuid.UUID{ls.page.Sections[1].ID, ls.page.Sections[0].ID}
	write(t, surface, New(TypeReorderSections, ReorderSections{OrderedIDs: reversed}))
	if m := read(t, shell); m.Type != TypeReorderSections {
		t.Fatalf("shell got %s, want the forwarded reorder", m.Type)
	}
	if m := read(t, shell); m.Type != TypeDocumentChanged {
		t.Fatalf("shell got %s, want document-changed", m.Type)
	}
	if m := read(t, surface); m.Type != TypeDocumentChanged {
		t.Fatalf("surface got %s, want document-changed", m.Type)
	}
	if got := ls.persister.calls(); got != 1 {
		t.Errorf("persister calls = %d", got)
	}

	doc, ok := ls.hub.Document(ls.page.ID)
	if !ok || !grid.SameOrder(sectionIDs(doc), reversed) {
		t.Error("hub document does not reflect the reorder")
	}
}

func TestHubShellSelectionReachesSurface(t *testing.T) {
	ls := newLiveServer(t)
	shell := ls.dial(t, ls.page.ID, RoleShell)
	surface := ls.dial(t, ls.page.ID, RoleSurface)
	ls.waitPeers(t, 2)

	section := ls.page.Sections[0]
	write(t, shell, New(TypeSelect, Select{Level: LevelSection, ID: section.ID}))
	if m := read(t, surface); m.Type != TypeSelect {
		t.Fatalf("surface got %s", m.Type)
	}
	if m := read(t, shell); m.Type != TypeProperties {
		t.Fatalf("shell got %s, want properties", m.Type)
	}
	write(t, shell, New(TypeClearSelection, ClearSelection{}))
	if m := read(t, surface); m.Type != TypeClearSelection {
		t.Fatalf("surface got %s", m.Type)
	}

	// After the shell cleared it, the surface may select the same node again.
	write(t, surface, New(TypeSelect, Select{Level: LevelSection, ID: section.ID}))
	for _, want := range []Type{TypeSelect, TypeProperties} {
		if m := read(t, shell); m.Type != want {
			t.Fatalf("shell got %s, want %s", m.Type, want)
		}
	}
}

func TestHubSaveBroadcastsState(t *testing.T) {
	ls := newLiveServer(t)
	shell := ls.dial(t, ls.page.ID, RoleShell)
	surface := ls.dial(t, ls.page.ID, RoleSurface)
	ls.waitPeers(t, 2)

	err := ls.hub.Save(context.Background(), ls.page.ID, SaverFunc(func(_ context.Context, p *models.Page) (*models.Page, error) {
		return p, nil
	}))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, want := range []Type{TypeSaveState, TypeSaveState, TypeDocumentChanged} {
		if m := read(t, shell); m.Type != want {
			t.Fatalf("shell got %s, want %s", m.Type, want)
		}
	}
	if m := read(t, surface); m.Type != TypeDocumentChanged {
		t.Fatalf("surface got %s", m.Type)
	}

	if err := ls.hub.Save(context.Background(), uuid.New(), nil); !errors.Is(err, ErrNoSession) {
		t.Errorf("save without session: %v", err)
	}
}

func TestHubUnknownPage(t *testing.T) {
	ls := newLiveServer(t)
	url := "ws" + strings.TrimPrefix(ls.srv.URL, "http") + "/live/" + uuid.New().String() + "?role=shell"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %v", resp)
	}
}

func TestHubDropsRoomWhenEmpty(t *testing.T) {
	ls := newLiveServer(t)
	shell := ls.dial(t, ls.page.ID, RoleShell)
	ls.waitPeers(t, 1)

	shell.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	shell.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := ls.hub.Session(ls.page.ID); !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("room still open after its last peer left")
}

func TestHubKeepsRoomWhileJoining(t *testing.T) {
	ls := newLiveServer(t)
	ctx := context.Background()

	rm, err := ls.hub.join(ctx, ls.page.ID)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	// The last registered peer leaving must not drop a room that another
	// connection is still joining.
	ls.hub.leave(rm, nil)
	again, err := ls.hub.join(ctx, ls.page.ID)
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if again != rm {
		t.Fatal("a second join opened another room for the same page")
	}

	ls.hub.abandon(rm)
	if _, ok := ls.hub.Session(ls.page.ID); !ok {
		t.Fatal("room dropped while a join is pending")
	}
	ls.hub.abandon(again)
	if _, ok := ls.hub.Session(ls.page.ID); ok {
		t.Error("room kept after every join was abandoned")
	}
}
