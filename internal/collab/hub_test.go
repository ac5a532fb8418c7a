package collab

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMutator struct {
	mu    sync.Mutex
	hub   *Hub
	calls []string
	fail  error
	after func()
}

func (m *fakeMutator) SetShapeState(ctx context.Context, mapID, shapeID string, state int32) error {
	if m.fail != nil {
		return m.fail
	}
	m.record("set " + shapeID)
	m.hub.ShapeStateChanged(ctx, mapID, shapeID, state, false)
	if m.after != nil {
		m.after()
	}
	return nil
}

func (m *fakeMutator) ClearShapeState(ctx context.Context, mapID, shapeID string) error {
	m.record("clear " + shapeID)
	m.hub.ShapeStateChanged(ctx, mapID, shapeID, 0, true)
	return nil
}

func (m *fakeMutator) SetStateStyle(ctx context.Context, mapID string, state int32, style string) error {
	m.record("style " + style)
	m.hub.StateStyleChanged(ctx, mapID, state, style)
	return nil
}

func (m *fakeMutator) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

var errNoMap = errors.New("no such map")

func loader(ctx context.Context, mapID string) (map[string]int32, map[int32]string, error) {
	if mapID != "map_1" {
		return nil, nil, errNoMap
	}
	return map[string]int32{"dynamic_a": 1}, map[int32]string{1: "green"}, nil
}

func startHub(t *testing.T) (*Hub, *fakeMutator) {
	t.Helper()
	m := &fakeMutator{}
	h := NewHub(loader, m)
	m.hub = h
	go h.Run()
	t.Cleanup(h.Stop)
	return h, m
}

func recv(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func decode[T any](t *testing.T, msg *Message) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(msg.Payload, &v))
	return v
}

func join(t *testing.T, h *Hub, userID, name, clientID string) *Client {
	t.Helper()
	c := NewClient(h, nil, userID, name, "map_1", clientID)
	h.Register(c)

	welcome := recv(t, c)
	require.Equal(t, TypeWelcome, welcome.Type)
	snapshot := recv(t, c)
	require.Equal(t, TypeStateSnapshot, snapshot.Type)
	presence := recv(t, c)
	require.Equal(t, TypePresenceState, presence.Type)
	return c
}

func message(t *testing.T, typ string, payload interface{}) *Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &Message{Type: typ, Payload: data}
}

func TestJoinReceivesSnapshot(t *testing.T) {
	h, _ := startHub(t)

	c := NewClient(h, nil, "", "", "map_1", "c1")
	h.Register(c)

	welcome := decode[WelcomePayload](t, recv(t, c))
	assert.Equal(t, WelcomePayload{ClientID: "c1", Anonymous: true}, welcome)

	snapMsg := recv(t, c)
	assert.Equal(t, "map_1", snapMsg.MapID)
	snap := decode[SnapshotPayload](t, snapMsg)
	assert.Equal(t, map[string]int32{"dynamic_a": 1}, snap.States)
	assert.Equal(t, map[int32]string{1: "green"}, snap.Styles)

	assert.Equal(t, TypePresenceState, recv(t, c).Type)
	assert.Equal(t, 1, h.ClientCount("map_1"))
	assert.Equal(t, "Guest", c.DisplayName)
}

func TestJoinUnknownMap(t *testing.T) {
	h, _ := startHub(t)

	c := NewClient(h, nil, "user_1", "Ops", "map_missing", "c1")
	h.Register(c)

	msg := recv(t, c)
	assert.Equal(t, TypeError, msg.Type)
	_, ok := <-c.send
	assert.False(t, ok)
	assert.Equal(t, 0, h.ClientCount("map_missing"))
}

func TestPresenceJoinHoverLeave(t *testing.T) {
	h, _ := startHub(t)

	viewer := join(t, h, "", "", "c1")
	operator := join(t, h, "user_1", "Ops", "c2")

	joined := recv(t, viewer)
	require.Equal(t, TypePresenceJoin, joined.Type)
	assert.Equal(t, PresenceJoinPayload{ClientID: "c2", UserID: "user_1", DisplayName: "Ops"}, decode[PresenceJoinPayload](t, joined))

	h.handleMessage(operator, message(t, TypeHoverUpdate, HoverPayload{ShapeID: "dynamic_a"}))
	hover := recv(t, viewer)
	require.Equal(t, TypeHoverUpdate, hover.Type)
	assert.Equal(t, "c2", hover.ClientID)
	assert.Equal(t, HoverPayload{ShapeID: "dynamic_a", DisplayName: "Ops"}, decode[HoverPayload](t, hover))

	h.Unregister(operator)
	left := recv(t, viewer)
	require.Equal(t, TypePresenceLeave, left.Type)
	assert.Equal(t, "c2", decode[PresenceLeavePayload](t, left).ClientID)
	assert.Equal(t, 1, h.ClientCount("map_1"))

	// Unregistering twice is harmless.
	h.Unregister(operator)
	_, ok := <-operator.send
	assert.False(t, ok)
}

func TestStateSet(t *testing.T) {
	h, m := startHub(t)

	viewer := join(t, h, "", "", "c1")
	operator := join(t, h, "user_1", "Ops", "c2")
	recv(t, viewer) // presence.join

	state := int32(3)
	h.handleMessage(operator, message(t, TypeStateSet, StateSetPayload{RequestID: "r1", ShapeID: "dynamic_b", State: &state}))

	for _, c := range []*Client{viewer, operator} {
		update := recv(t, c)
		require.Equal(t, TypeStateUpdate, update.Type)
		assert.Equal(t, int64(1), update.Seq)
		assert.Equal(t, StateUpdatePayload{ShapeID: "dynamic_b", State: 3}, decode[StateUpdatePayload](t, update))
	}

	ack := recv(t, operator)
	require.Equal(t, TypeAck, ack.Type)
	assert.Equal(t, AckPayload{RequestID: "r1", ServerSeq: 1}, decode[AckPayload](t, ack))

	h.handleMessage(operator, message(t, TypeStateSet, StateSetPayload{RequestID: "r2", ShapeID: "dynamic_b"}))
	cleared := decode[StateUpdatePayload](t, recv(t, viewer))
	assert.True(t, cleared.Cleared)

	h.handleMessage(operator, message(t, TypeStyleSet, StyleSetPayload{RequestID: "r3", State: 3, Style: "red"}))
	style := recv(t, viewer)
	require.Equal(t, TypeStyleUpdate, style.Type)
	assert.Equal(t, int64(3), style.Seq)

	assert.Equal(t, []string{"set dynamic_b", "clear dynamic_b", "style red"}, m.calls)
}

func TestStateSetRejected(t *testing.T) {
	h, m := startHub(t)

	viewer := join(t, h, "", "", "c1")
	state := int32(1)

	h.handleMessage(viewer, message(t, TypeStateSet, StateSetPayload{RequestID: "r1", ShapeID: "dynamic_a", State: &state}))
	nack := recv(t, viewer)
	require.Equal(t, TypeNack, nack.Type)
	assert.Equal(t, NackPayload{RequestID: "r1", Reason: "not allowed"}, decode[NackPayload](t, nack))

	operator := join(t, h, "user_1", "Ops", "c2")
	recv(t, viewer) // presence.join

	h.handleMessage(operator, message(t, TypeStateSet, StateSetPayload{RequestID: "r2", State: &state}))
	assert.Equal(t, "shapeId is required", decode[NackPayload](t, recv(t, operator)).Reason)

	h.handleMessage(operator, message(t, TypeStyleSet, StyleSetPayload{RequestID: "r3", State: 1}))
	assert.Equal(t, "style is required", decode[NackPayload](t, recv(t, operator)).Reason)

	m.fail = errors.New("store down")
	h.handleMessage(operator, message(t, TypeStateSet, StateSetPayload{RequestID: "r4", ShapeID: "dynamic_a", State: &state}))
	nack = recv(t, operator)
	assert.Equal(t, NackPayload{RequestID: "r4", Reason: "store down"}, decode[NackPayload](t, nack))
	assert.Empty(t, m.calls)
}

func TestNotifierWithoutRoomIsNoop(t *testing.T) {
	h, _ := startHub(t)
	ctx, seq := withSeq(context.Background())
	h.ShapeStateChanged(ctx, "map_nobody", "dynamic_a", 1, false)
	h.DocumentReplaced(ctx, "map_nobody")
	assert.Equal(t, int64(0), *seq)
}

func TestStopClosesClients(t *testing.T) {
	h, _ := startHub(t)
	c := join(t, h, "", "", "c1")

	h.DocumentReplaced(context.Background(), "map_1")
	assert.Equal(t, TypeDocumentReplaced, recv(t, c).Type)

	h.Stop()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-c.send:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	late := NewClient(h, nil, "", "", "map_1", "c2")
	h.Register(late)
	_, ok := <-late.send
	assert.False(t, ok)
}

func TestJoinDuringChangeSeesEveryUpdate(t *testing.T) {
	var h *Hub
	var changing bool
	h = NewHub(func(ctx context.Context, mapID string) (map[string]int32, map[int32]string, error) {
		if !changing {
			return loader(ctx, mapID)
		}
		// A change committed while the snapshot is being read.
		go h.ShapeStateChanged(context.Background(), mapID, "dynamic_b", 2, false)
		time.Sleep(50 * time.Millisecond)
		return map[string]int32{"dynamic_a": 1, "dynamic_b": 2}, map[int32]string{1: "green"}, nil
	}, &fakeMutator{})
	go h.Run()
	t.Cleanup(h.Stop)

	join(t, h, "", "", "c1")
	changing = true

	c := NewClient(h, nil, "", "", "map_1", "c2")
	h.Register(c)
	require.Equal(t, TypeWelcome, recv(t, c).Type)
	snapshot := recv(t, c)
	require.Equal(t, TypeStateSnapshot, snapshot.Type)
	require.Equal(t, TypePresenceState, recv(t, c).Type)

	update := recv(t, c)
	require.Equal(t, TypeStateUpdate, update.Type)
	assert.Equal(t, snapshot.Seq+1, update.Seq)
}

func TestAckCarriesOwnSequence(t *testing.T) {
	h, m := startHub(t)
	operator := join(t, h, "user_1", "Ops", "c1")

	// Another change lands on the room right after this mutation's broadcast.
	m.after = func() { h.DocumentReplaced(context.Background(), "map_1") }
	state := int32(1)
	h.handleMessage(operator, message(t, TypeStateSet, StateSetPayload{RequestID: "r1", ShapeID: "dynamic_a", State: &state}))

	assert.Equal(t, int64(1), recv(t, operator).Seq)
	assert.Equal(t, int64(2), recv(t, operator).Seq)
	ack := recv(t, operator)
	require.Equal(t, TypeAck, ack.Type)
	assert.Equal(t, AckPayload{RequestID: "r1", ServerSeq: 1}, decode[AckPayload](t, ack))
}
