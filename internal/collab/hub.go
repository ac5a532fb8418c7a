package collab

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const loadTimeout = 5 * time.Second

// SnapshotLoader returns the shape states and state styles of a map.
type SnapshotLoader func(ctx context.Context, mapID string) (map[string]int32, map[int32]string, error)

// Mutator applies operator changes. Accepted changes come back to the hub
// through its notifier methods.
type Mutator interface {
	SetShapeState(ctx context.Context, mapID, shapeID string, state int32) error
	ClearShapeState(ctx context.Context, mapID, shapeID string) error
	SetStateStyle(ctx context.Context, mapID string, state int32, style string) error
}

type Room struct {
	mapID    string
	clients  map[string]*Client // clientID -> client
	presence *PresenceManager
	seq      int64
}

func NewRoom(mapID string) *Room {
	return &Room{
		mapID:    mapID,
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // mapID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	loader  SnapshotLoader
	mutator Mutator
}

func NewHub(loader SnapshotLoader, mutator Mutator) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		loader:     loader,
		mutator:    mutator,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop ends Run and closes every client's send queue.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.closeSend()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount reports how many clients are connected to a map.
func (h *Hub) ClientCount(mapID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[mapID]; ok {
		return len(room.clients)
	}
	return 0
}

// addClient loads the map snapshot and joins the room in one critical
// section, so every change is either in the snapshot or delivered after it.
func (h *Hub) addClient(client *Client) {
	h.mu.Lock()

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	states, styles, err := h.loader(ctx, client.MapID)
	cancel()
	if err != nil {
		h.mu.Unlock()
		slog.Warn("snapshot load failed", "error", err, "map", client.MapID)
		client.Send(newMessage(TypeError, ErrorPayload{Message: "map not available"}))
		client.closeSend()
		return
	}

	room, ok := h.rooms[client.MapID]
	if !ok {
		room = NewRoom(client.MapID)
		h.rooms[client.MapID] = room
	}
	room.clients[client.ClientID] = client

	client.Send(newMessage(TypeWelcome, WelcomePayload{ClientID: client.ClientID, Anonymous: client.Anonymous}))

	snapshot := newMessage(TypeStateSnapshot, SnapshotPayload{States: states, Styles: styles})
	snapshot.MapID = client.MapID
	snapshot.Seq = room.seq
	client.Send(snapshot)

	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}
	h.mu.Unlock()

	joinMsg := newMessage(TypePresenceJoin, PresenceJoinPayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg.ClientID = client.ClientID
	h.broadcastToRoom(client.MapID, joinMsg, client.ClientID)

	slog.Info("client joined", "client", client.ClientID, "user", client.UserID, "map", client.MapID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.MapID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.closeSend()
	room.presence.Remove(client.ClientID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.MapID)
	}
	h.mu.Unlock()

	leaveMsg := newMessage(TypePresenceLeave, PresenceLeavePayload{ClientID: client.ClientID})
	leaveMsg.ClientID = client.ClientID
	h.broadcastToRoom(client.MapID, leaveMsg, "")

	slog.Info("client left", "client", client.ClientID, "map", client.MapID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		for _, c := range room.clients {
			c.closeSend()
		}
		delete(h.rooms, id)
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypeHoverUpdate:
		h.handleHoverUpdate(sender, msg)
	case TypeStateSet:
		h.handleStateSet(sender, msg)
	case TypeStyleSet:
		h.handleStyleSet(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", sender.ClientID)
	}
}

// ShapeStateChanged broadcasts an accepted state change to the map's room.
func (h *Hub) ShapeStateChanged(ctx context.Context, mapID, shapeID string, state int32, cleared bool) {
	h.broadcastChange(ctx, mapID, newMessage(TypeStateUpdate, StateUpdatePayload{
		ShapeID: shapeID,
		State:   state,
		Cleared: cleared,
	}))
}

func (h *Hub) StateStyleChanged(ctx context.Context, mapID string, state int32, style string) {
	h.broadcastChange(ctx, mapID, newMessage(TypeStyleUpdate, StyleUpdatePayload{State: state, Style: style}))
}

// DocumentReplaced tells viewers to fetch the new document. States and
// styles are unchanged by a replace.
func (h *Hub) DocumentReplaced(ctx context.Context, mapID string) {
	h.broadcastChange(ctx, mapID, newMessage(TypeDocumentReplaced, struct{}{}))
}

type seqKey struct{}

// withSeq returns a context that records the sequence number of the change
// broadcast while it is in use.
func withSeq(ctx context.Context) (context.Context, *int64) {
	seq := new(int64)
	return context.WithValue(ctx, seqKey{}, seq), seq
}

// broadcastChange stamps msg with the room's next sequence number and sends
// it to everyone in the room.
func (h *Hub) broadcastChange(ctx context.Context, mapID string, msg *Message) {
	h.mu.Lock()
	room, ok := h.rooms[mapID]
	if !ok {
		h.mu.Unlock()
		return
	}
	room.seq++
	msg.Seq = room.seq
	msg.MapID = mapID
	h.mu.Unlock()

	if seq, ok := ctx.Value(seqKey{}).(*int64); ok {
		*seq = msg.Seq
	}
	h.broadcastToRoom(mapID, msg, "")
}

func (h *Hub) broadcastToRoom(mapID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[mapID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
