// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package liveedit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pagecraft/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 256 << 10
	sendBuffer     = 64
)

// Role is the side of the protocol a connection speaks for.
type Role string

const (
	RoleShell   Role = "shell"
	RoleSurface Role = "surface"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleShell || r == RoleSurface
}

func (r Role) other() Role {
	if r == RoleShell {
		return RoleSurface
	}
	return RoleShell
}

// ErrNoSession is returned for pages nobody is editing live.
var ErrNoSession = errors.New("no live session")

// ErrUpgrade is returned when the websocket handshake fails. The upgrader
// has already written the HTTP error response.
var ErrUpgrade = errors.New("websocket upgrade failed")

// SessionLoader creates the session for a page when its first peer joins.
// A nil session with a nil error means the page does not exist.
type SessionLoader func(ctx context.Context, pageID uuid.UUID) (*Session, error)

// Hub relays messages between the shell and surface connections of each
// page and feeds them to the page's Session. Delivery is fire-and-forget:
// a peer whose buffer is full misses the message.
type Hub struct {
	mu       sync.Mutex
	rooms    map[uuid.UUID]*room
	load     SessionLoader
	upgrader websocket.Upgrader
}

type room struct {
	pageID  uuid.UUID
	session *Session
	peers   map[Role]*peer
	surface Selection // selection state as shown on the surface
	joining int       // connections between join and registration
}

type peer struct {
	role Role
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (p *peer) close() {
	p.once.Do(func() { close(p.send) })
}

// NewHub creates a Hub. The upgrader only accepts same-origin requests.
func NewHub(load SessionLoader) *Hub {
	return &Hub{
		rooms: make(map[uuid.UUID]*room),
		load:  load,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// ServeWS upgrades the request and serves the connection as role in the
// room of pageID until it closes. A new connection for a role already
// present replaces the old one.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, pageID uuid.UUID, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("serve live connection: unknown role %q", role)
	}
	rm, err := h.join(r.Context(), pageID)
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.abandon(rm)
		return fmt.Errorf("%w: %v", ErrUpgrade, err)
	}

	p := &peer{role: role, conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	rm.joining--
	if old := rm.peers[role]; old != nil {
		old.close()
	}
	rm.peers[role] = p
	h.mu.Unlock()
	slog.Info("live peer connected", "page_id", pageID, "role", role)

	go p.writePump()
	h.readPump(r.Context(), rm, p)
	return nil
}

// join returns the room of pageID, loading its session when needed. The
// room is kept open until the caller registers its peer or calls abandon.
func (h *Hub) join(ctx context.Context, pageID uuid.UUID) (*room, error) {
	h.mu.Lock()
	rm, ok := h.rooms[pageID]
	if ok {
		rm.joining++
	}
	h.mu.Unlock()
	if ok {
		return rm, nil
	}

	s, err := h.load(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("load live session: %w", err)
	}
	if s == nil {
		return nil, ErrNoSession
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if rm, ok := h.rooms[pageID]; ok {
		rm.joining++
		return rm, nil
	}
	rm = &room{pageID: pageID, session: s, peers: make(map[Role]*peer), joining: 1}
	h.rooms[pageID] = rm
	return rm, nil
}

// abandon releases a join that never registered a peer.
func (h *Hub) abandon(rm *room) {
	h.mu.Lock()
	rm.joining--
	h.mu.Unlock()
	h.leave(rm, nil)
}

// leave removes p from the room and drops the room once it is empty.
func (h *Hub) leave(rm *room, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p != nil && rm.peers[p.role] == p {
		delete(rm.peers, p.role)
		p.close()
	}
	if len(rm.peers) > 0 || rm.joining > 0 || h.rooms[rm.pageID] != rm {
		return
	}
	delete(h.rooms, rm.pageID)
	if rm.session.Dirty() {
		slog.Warn("live session closed with unsaved changes", "page_id", rm.pageID)
	} else {
		slog.Info("live session closed", "page_id", rm.pageID)
	}
}

func (h *Hub) readPump(ctx context.Context, rm *room, p *peer) {
	defer func() {
		h.leave(rm, p)
		p.conn.Close()
	}()

	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("live connection closed", "page_id", rm.pageID, "role", p.role, "error", err)
			}
			return
		}
		m, err := Decode(data)
		if err != nil {
			slog.Warn("dropping malformed message", "page_id", rm.pageID, "role", p.role, "error", err)
			continue
		}
		h.dispatch(ctx, rm, p.role, m)
	}
}

// dispatch forwards m to the other side and delivers what the session
// answers.
func (h *Hub) dispatch(ctx context.Context, rm *room, from Role, m Message) {
	if isSelection(m.Type) {
		h.mu.Lock()
		changed := rm.surface.Apply(m)
		h.mu.Unlock()
		if !changed && from == RoleSurface {
			return
		}
	}
	h.send(rm, from.other(), m)
	for _, out := range rm.session.Handle(ctx, m) {
		for _, to := range audience(out.Type) {
			h.send(rm, to, out)
		}
	}
}

// Broadcast delivers msgs to the peers of pageID by their audience.
func (h *Hub) Broadcast(pageID uuid.UUID, msgs ...Message) {
	h.mu.Lock()
	rm, ok := h.rooms[pageID]
	h.mu.Unlock()
	if !ok {
		return
	}
	for _, m := range msgs {
		for _, to := range audience(m.Type) {
			h.send(rm, to, m)
		}
	}
}

func (h *Hub) send(rm *room, to Role, m Message) {
	data, err := Encode(m)
	if err != nil {
		slog.Error("encode live message", "type", m.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	p := rm.peers[to]
	if p == nil {
		return
	}
	select {
	case p.send <- data:
	default:
		slog.Warn("live peer buffer full, message dropped", "page_id", rm.pageID, "role", to, "type", m.Type)
	}
}

// Session returns the live session of pageID, if any.
func (h *Hub) Session(pageID uuid.UUID) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[pageID]
	if !ok {
		return nil, false
	}
	return rm.session, true
}

// Document returns the working document of pageID when it is being edited.
func (h *Hub) Document(pageID uuid.UUID) (*models.Page, bool) {
	s, ok := h.Session(pageID)
	if !ok {
		return nil, false
	}
	return s.Document(), true
}

// Save saves the working document of pageID and tells both peers about the
// outcome.
func (h *Hub) Save(ctx context.Context, pageID uuid.UUID, saver Saver) error {
	s, ok := h.Session(pageID)
	if !ok {
		return ErrNoSession
	}
	if s.Guard().InFlight() {
		return ErrSaveInProgress
	}
	h.Broadcast(pageID, New(TypeSaveState, SaveState{InFlight: true}))
	msgs, err := s.Save(ctx, saver)
	h.Broadcast(pageID, msgs...)
	return err
}

// Close disconnects every peer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, rm := range h.rooms {
		for _, p := range rm.peers {
			p.close()
		}
		delete(h.rooms, id)
	}
}

func (p *peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case data, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func isSelection(t Type) bool {
	return t == TypeHover || t == TypeSelect || t == TypeClearSelection
}

// audience lists the roles a session-generated message goes to.
func audience(t Type) []Role {
	switch t {
	case TypeProperties, TypeSaveState:
		return []Role{RoleShell}
	}
	return []Role{RoleShell, RoleSurface}
}
