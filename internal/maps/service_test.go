package maps

import (
	"bytes"
	"context"
	"image/png"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/dynmap/internal/document"
	"github.com/inamate/dynmap/internal/engine"
	"github.com/inamate/dynmap/internal/shapes"
	"github.com/inamate/dynmap/internal/raster"
	"github.com/inamate/dynmap/internal/store"
	"github.com/inamate/dynmap/internal/typeid"
)

type event struct {
	kind    string
	mapID   string
	shapeID string
	state   int32
	style   string
	cleared bool
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *recordingNotifier) ShapeStateChanged(_ context.Context, mapID, shapeID string, state int32, cleared bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{kind: "state", mapID: mapID, shapeID: shapeID, state: state, cleared: cleared})
}

func (n *recordingNotifier) StateStyleChanged(_ context.Context, mapID string, state int32, style string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{kind: "style", mapID: mapID, state: state, style: style})
}

func (n *recordingNotifier) DocumentReplaced(_ context.Context, mapID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{kind: "document", mapID: mapID})
}

func openStore(t *testing.T) *store.SQLite {
	t.Helper()
	st, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "maps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

const boxes = `<svg viewBox="0 0 200 100">
	<path id="dynamic_left" d="M 10 10 h 80 v 80 h -80 z"/>
	<path id="dynamic_right" d="M 110 10 H 190 V 90 H 110 Z"/>
</svg>`

func TestCreateValidatesDocument(t *testing.T) {
	svc := NewService(openStore(t))
	ctx := context.Background()

	_, err := svc.Create(ctx, "broken", "", `<svg><path id="dynamic_a" d="M0 0"/></svg>`)
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.ErrorIs(t, err, shapes.ErrMissingViewBox)

	_, err = svc.Create(ctx, "no data", "", `<svg viewBox="0 0 1 1"><path id="dynamic_a"/></svg>`)
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.ErrorIs(t, err, shapes.ErrMissingPathData)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateAndGet(t *testing.T) {
	svc := NewService(openStore(t))
	ctx := context.Background()

	m, err := svc.Create(ctx, "Boxes", "user_1", boxes)
	require.NoError(t, err)
	assert.Equal(t, shapes.ViewBox{Width: 200, Height: 100}, m.ViewBox)
	assert.Equal(t, []string{"dynamic_left", "dynamic_right"}, m.ShapeIDs)

	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Boxes", got.Name)
	assert.Equal(t, "user_1", got.OwnerID)

	doc, err := svc.Document(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, boxes, doc)

	_, err = svc.Get(ctx, "map_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStateChangesArePersistedAndNotified(t *testing.T) {
	st := openStore(t)
	svc := NewService(st)
	n := &recordingNotifier{}
	svc.SetNotifier(n)
	ctx := context.Background()

	m, err := svc.Create(ctx, "Boxes", "", boxes)
	require.NoError(t, err)

	require.NoError(t, svc.SetStateStyle(ctx, m.ID, 1, "green"))
	require.NoError(t, svc.SetShapeState(ctx, m.ID, "dynamic_left", 1))
	require.NoError(t, svc.SetShapeState(ctx, m.ID, "dynamic_right", 7))
	require.NoError(t, svc.ClearShapeState(ctx, m.ID, "dynamic_right"))

	assert.Equal(t, []event{
		{kind: "style", mapID: m.ID, state: 1, style: "green"},
		{kind: "state", mapID: m.ID, shapeID: "dynamic_left", state: 1},
		{kind: "state", mapID: m.ID, shapeID: "dynamic_right", state: 7},
		{kind: "state", mapID: m.ID, shapeID: "dynamic_right", cleared: true},
	}, n.events)

	list, err := svc.Shapes(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "green", list[0].Fill)
	require.NotNil(t, list[0].State)
	assert.Equal(t, int32(1), *list[0].State)
	assert.Nil(t, list[1].State)
	assert.Equal(t, engine.DefaultFillStyle, list[1].Fill)
	assert.Equal(t, engine.Rect{X: 110, Y: 10, Width: 80, Height: 80}, list[1].Bounds)
	assert.InDelta(t, 0.55, list[1].Relative.X, 1e-9)
	assert.InDelta(t, 0.8, list[1].Relative.Height, 1e-9)

	// A fresh service hydrates the same tables from the store.
	fresh := NewService(st)
	snap, err := fresh.Snapshot(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int32{"dynamic_left": 1}, snap.States)
	assert.Equal(t, map[int32]string{1: "green"}, snap.Styles)

	assert.ErrorIs(t, svc.SetShapeState(ctx, "map_missing", "x", 1), ErrNotFound)
}

func TestHitTestAndRender(t *testing.T) {
	svc := NewService(openStore(t))
	ctx := context.Background()

	m, err := svc.Create(ctx, "Boxes", "", boxes)
	require.NoError(t, err)

	res, err := svc.HitTest(ctx, m.ID, 0.25, 0.5)
	require.NoError(t, err)
	assert.Equal(t, HitResult{ShapeID: "dynamic_left", Hit: true}, res)

	res, err = svc.HitTest(ctx, m.ID, 0.5, 0.5)
	require.NoError(t, err)
	assert.False(t, res.Hit)

	var buf bytes.Buffer
	require.NoError(t, svc.RenderPNG(ctx, m.ID, 0.25, 0.5, &buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	cmds, err := svc.DrawList(ctx, m.ID, 0.25, 0.5)
	require.NoError(t, err)
	require.Len(t, cmds, 5)
	assert.Equal(t, engine.HoverFillStyle, cmds[1].Fill)
	assert.Equal(t, engine.DefaultFillStyle, cmds[3].Fill)

	_, err = svc.HitTest(ctx, "map_missing", 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceDocument(t *testing.T) {
	svc := NewService(openStore(t))
	n := &recordingNotifier{}
	svc.SetNotifier(n)
	ctx := context.Background()

	m, err := svc.Create(ctx, "Boxes", "", boxes)
	require.NoError(t, err)
	require.NoError(t, svc.SetShapeState(ctx, m.ID, "dynamic_left", 2))

	err = svc.ReplaceDocument(ctx, m.ID, `<svg viewBox="0 0 1 1"><path id="dynamic_x"/></svg>`)
	assert.ErrorIs(t, err, ErrInvalidDocument)
	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, got.ShapeIDs, 2, "failed replace keeps the old map")

	require.NoError(t, svc.ReplaceDocument(ctx, m.ID, `<svg viewBox="0 0 50 50"><path id="dynamic_left" d="M0 0 H 10 V 10 Z"/></svg>`))
	got, err = svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"dynamic_left"}, got.ShapeIDs)

	snap, err := svc.Snapshot(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), snap.States["dynamic_left"], "states survive a replace")
	assert.Equal(t, "document", n.events[len(n.events)-1].kind)
}

func TestCreateSampleAndDelete(t *testing.T) {
	svc := NewService(openStore(t))
	ctx := context.Background()

	m, err := svc.CreateSample(ctx, "")
	require.NoError(t, err)
	assert.Len(t, m.ShapeIDs, 13)

	snap, err := svc.Snapshot(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, document.SampleStates(), snap.States)
	assert.Equal(t, document.SampleStyles(), snap.Styles)

	require.NoError(t, svc.Delete(ctx, m.ID))
	_, err = svc.Get(ctx, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, m.ID), ErrNotFound)
}

const huge = `<svg viewBox="0 0 3e9 3e9"><path id="dynamic_a" d="M0 0 H 10 V 10 Z"/></svg>`

func TestOversizedMapsAreRejected(t *testing.T) {
	st := openStore(t)
	svc := NewService(st)
	ctx := context.Background()

	_, err := svc.Create(ctx, "huge", "", huge)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.ErrorIs(t, err, raster.ErrTooLarge)

	m, err := svc.Create(ctx, "Boxes", "", boxes)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.ReplaceDocument(ctx, m.ID, huge), ErrTooLarge)
	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, got.ViewBox.Width)

	// A map stored without going through Create still cannot be rendered.
	id := typeid.NewMapID()
	require.NoError(t, st.CreateMap(ctx, store.Map{ID: id, Name: "legacy", Document: huge}))
	var buf bytes.Buffer
	assert.ErrorIs(t, svc.RenderPNG(ctx, id, 0.5, 0.5, &buf), ErrTooLarge)
	assert.Zero(t, buf.Len())

	res, err := svc.HitTest(ctx, id, 0.5, 0.5)
	require.NoError(t, err)
	assert.False(t, res.Hit)
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	svc := NewService(openStore(t))
	ctx := context.Background()

	for _, id := range []string{"", "map_missing", typeid.NewUserID()} {
		_, err := svc.Get(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, id)
		_, err = svc.Document(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, id)
		assert.ErrorIs(t, svc.Delete(ctx, id), ErrNotFound, id)
	}
}
