package maps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/inamate/dynmap/internal/document"
	"github.com/inamate/dynmap/internal/engine"
	"github.com/inamate/dynmap/internal/raster"
	"github.com/inamate/dynmap/internal/shapes"
	"github.com/inamate/dynmap/internal/store"
	"github.com/inamate/dynmap/internal/typeid"
)

var (
	ErrNotFound        = errors.New("map not found")
	ErrInvalidDocument = errors.New("invalid map document")
	ErrTooLarge        = errors.New("map too large to render")
)

// Store is the part of the store the map service needs.
type Store interface {
	CreateMap(ctx context.Context, m store.Map) error
	GetMap(ctx context.Context, id string) (*store.Map, error)
	ListMaps(ctx context.Context) ([]store.Map, error)
	UpdateMapDocument(ctx context.Context, id, document string) error
	DeleteMap(ctx context.Context, id string) error
	SetShapeState(ctx context.Context, mapID, shapeID string, state int32) error
	ClearShapeState(ctx context.Context, mapID, shapeID string) error
	ShapeStates(ctx context.Context, mapID string) (map[string]int32, error)
	SetStateStyle(ctx context.Context, mapID string, state int32, style string) error
	StateStyles(ctx context.Context, mapID string) (map[int32]string, error)
}

// Notifier is told about every accepted change so connected viewers can
// follow along. ctx is the context of the call that made the change.
type Notifier interface {
	ShapeStateChanged(ctx context.Context, mapID, shapeID string, state int32, cleared bool)
	StateStyleChanged(ctx context.Context, mapID string, state int32, style string)
	DocumentReplaced(ctx context.Context, mapID string)
}

type Service struct {
	store    Store
	notifier Notifier

	// mu serializes all engine access.
	mu      sync.Mutex
	engines map[string]*engine.Engine
}

func NewService(st Store) *Service {
	return &Service{
		store:   st,
		engines: make(map[string]*engine.Engine),
	}
}

// SetNotifier installs the change listener. It must be called before the
// service is used concurrently.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Map struct {
	Summary
	ViewBox  shapes.ViewBox `json:"viewBox"`
	ShapeIDs []string       `json:"shapeIds"`
}

type Shape struct {
	ID     string      `json:"id"`
	State  *int32      `json:"state,omitempty"`
	Fill   string      `json:"fill"`
	Bounds engine.Rect `json:"bounds"`
	// Relative is Bounds as fractions of the map size.
	Relative engine.Rect `json:"relative"`
}

type Snapshot struct {
	States map[string]int32 `json:"states"`
	Styles map[int32]string `json:"styles"`
}

type HitResult struct {
	ShapeID string `json:"shapeId,omitempty"`
	Hit     bool   `json:"hit"`
}

// loadDocument parses svg into a fresh engine and checks that the map can
// be rendered.
func loadDocument(svg string) (*engine.Engine, error) {
	eng := engine.NewEngine()
	if err := eng.LoadDocument(svg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err := checkRenderSize(eng); err != nil {
		return nil, err
	}
	return eng, nil
}

func checkRenderSize(eng *engine.Engine) error {
	vb := eng.ViewBox()
	if err := raster.CheckSize(vb.Width, vb.Height); err != nil {
		return fmt.Errorf("%w: %w", ErrTooLarge, err)
	}
	return nil
}

// Create validates and stores a new map.
func (s *Service) Create(ctx context.Context, name, ownerID, svg string) (*Map, error) {
	eng, err := loadDocument(svg)
	if err != nil {
		return nil, err
	}

	m := store.Map{ID: typeid.NewMapID(), Name: name, OwnerID: ownerID, Document: svg}
	if err := s.store.CreateMap(ctx, m); err != nil {
		return nil, fmt.Errorf("create map: %w", err)
	}

	s.mu.Lock()
	s.engines[m.ID] = eng
	s.mu.Unlock()

	slog.Info("map created", "map", m.ID, "shapes", len(eng.ShapeIDs()))
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	return toMap(&m, eng), nil
}

// CreateSample stores the built-in office plan with its demo states.
func (s *Service) CreateSample(ctx context.Context, ownerID string) (*Map, error) {
	m, err := s.Create(ctx, "Office", ownerID, document.SampleOfficeSVG)
	if err != nil {
		return nil, err
	}
	for state, style := range document.SampleStyles() {
		if err := s.SetStateStyle(ctx, m.ID, state, style); err != nil {
			return nil, err
		}
	}
	for id, state := range document.SampleStates() {
		if err := s.SetShapeState(ctx, m.ID, id, state); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (s *Service) List(ctx context.Context) ([]Summary, error) {
	stored, err := s.store.ListMaps(ctx)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	out := make([]Summary, len(stored))
	for i := range stored {
		out[i] = toSummary(&stored[i])
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Map, error) {
	stored, err := s.getStored(ctx, id)
	if err != nil {
		return nil, err
	}
	var m *Map
	err = s.withEngine(ctx, id, func(eng *engine.Engine) error {
		m = toMap(stored, eng)
		return nil
	})
	return m, err
}

// Document returns the stored SVG text.
func (s *Service) Document(ctx context.Context, id string) (string, error) {
	stored, err := s.getStored(ctx, id)
	if err != nil {
		return "", err
	}
	return stored.Document, nil
}

// ReplaceDocument swaps the SVG of a map. States and styles are kept. An
// invalid document leaves the map unchanged.
func (s *Service) ReplaceDocument(ctx context.Context, id, svg string) error {
	if _, err := loadDocument(svg); err != nil {
		return err
	}
	err := s.withEngine(ctx, id, func(eng *engine.Engine) error {
		if err := s.store.UpdateMapDocument(ctx, id, svg); err != nil {
			return err
		}
		return eng.LoadDocument(svg)
	})
	if err != nil {
		return s.mapStoreError(err)
	}
	if s.notifier != nil {
		s.notifier.DocumentReplaced(ctx, id)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := s.store.DeleteMap(ctx, id); err != nil {
		return s.mapStoreError(err)
	}
	s.mu.Lock()
	delete(s.engines, id)
	s.mu.Unlock()
	return nil
}

// Shapes lists the shapes of a map with their state and resolved fill.
func (s *Service) Shapes(ctx context.Context, id string) ([]Shape, error) {
	var out []Shape
	err := s.withEngine(ctx, id, func(eng *engine.Engine) error {
		for _, shapeID := range eng.ShapeIDs() {
			sh := Shape{ID: shapeID, Fill: eng.FillStyle(shapeID)}
			if state, ok := eng.ShapeState(shapeID); ok {
				sh.State = &state
			}
			sh.Bounds, _ = eng.ShapeBounds(shapeID)
			sh.Relative = engine.RelativeBounds(eng.ViewBox(), sh.Bounds)
			out = append(out, sh)
		}
		return nil
	})
	return out, err
}

func (s *Service) SetShapeState(ctx context.Context, mapID, shapeID string, state int32) error {
	err := s.withEngine(ctx, mapID, func(eng *engine.Engine) error {
		if err := s.store.SetShapeState(ctx, mapID, shapeID, state); err != nil {
			return err
		}
		eng.SetShapeState(shapeID, state)
		return nil
	})
	if err != nil {
		return s.mapStoreError(err)
	}
	if s.notifier != nil {
		s.notifier.ShapeStateChanged(ctx, mapID, shapeID, state, false)
	}
	return nil
}

func (s *Service) ClearShapeState(ctx context.Context, mapID, shapeID string) error {
	err := s.withEngine(ctx, mapID, func(eng *engine.Engine) error {
		if err := s.store.ClearShapeState(ctx, mapID, shapeID); err != nil {
			return err
		}
		eng.ClearShapeState(shapeID)
		return nil
	})
	if err != nil {
		return s.mapStoreError(err)
	}
	if s.notifier != nil {
		s.notifier.ShapeStateChanged(ctx, mapID, shapeID, 0, true)
	}
	return nil
}

func (s *Service) SetStateStyle(ctx context.Context, mapID string, state int32, style string) error {
	err := s.withEngine(ctx, mapID, func(eng *engine.Engine) error {
		if err := s.store.SetStateStyle(ctx, mapID, state, style); err != nil {
			return err
		}
		eng.SetStateStyle(state, style)
		return nil
	})
	if err != nil {
		return s.mapStoreError(err)
	}
	if s.notifier != nil {
		s.notifier.StateStyleChanged(ctx, mapID, state, style)
	}
	return nil
}

// Snapshot returns the state and style tables of a map.
func (s *Service) Snapshot(ctx context.Context, id string) (*Snapshot, error) {
	var snap *Snapshot
	err := s.withEngine(ctx, id, func(eng *engine.Engine) error {
		snap = &Snapshot{States: eng.States(), Styles: eng.Styles()}
		return nil
	})
	return snap, err
}

// HitTest finds the shape at a point given as fractions of the map size.
func (s *Service) HitTest(ctx context.Context, id string, relX, relY float64) (HitResult, error) {
	var res HitResult
	err := s.withEngine(ctx, id, func(eng *engine.Engine) error {
		res.ShapeID, res.Hit = eng.ShapeAt(relX, relY)
		return nil
	})
	return res, err
}

// RenderPNG draws the map with the shape under the relative point
// highlighted and writes it as PNG. Maps stored before the size limit
// existed are refused with ErrTooLarge.
func (s *Service) RenderPNG(ctx context.Context, id string, relX, relY float64, w io.Writer) error {
	surface := raster.New(0, 0)
	err := s.withEngine(ctx, id, func(eng *engine.Engine) error {
		if err := checkRenderSize(eng); err != nil {
			return err
		}
		eng.Render(surface, relX, relY)
		return nil
	})
	if err != nil {
		return err
	}
	if err := surface.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// DrawList returns the display list a remote canvas replays to draw the map.
func (s *Service) DrawList(ctx context.Context, id string, relX, relY float64) ([]engine.DrawCommand, error) {
	var cmds []engine.DrawCommand
	err := s.withEngine(ctx, id, func(eng *engine.Engine) error {
		cmds = eng.DrawList(relX, relY)
		return nil
	})
	return cmds, err
}

// withEngine runs fn with the engine of a map, loading it from the store on
// first use. Calls are serialized.
func (s *Service) withEngine(ctx context.Context, id string, fn func(*engine.Engine) error) error {
	if err := checkID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eng, ok := s.engines[id]
	if !ok {
		var err error
		eng, err = s.hydrate(ctx, id)
		if err != nil {
			return err
		}
		s.engines[id] = eng
	}
	return fn(eng)
}

func (s *Service) hydrate(ctx context.Context, id string) (*engine.Engine, error) {
	stored, err := s.getStored(ctx, id)
	if err != nil {
		return nil, err
	}

	eng := engine.NewEngine()
	if err := eng.LoadDocument(stored.Document); err != nil {
		return nil, fmt.Errorf("load stored map %s: %w", id, err)
	}

	styles, err := s.store.StateStyles(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load state styles: %w", err)
	}
	for state, style := range styles {
		eng.SetStateStyle(state, style)
	}

	states, err := s.store.ShapeStates(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load shape states: %w", err)
	}
	for shapeID, state := range states {
		eng.SetShapeState(shapeID, state)
	}

	slog.Debug("map engine loaded", "map", id, "shapes", len(eng.ShapeIDs()), "states", len(states))
	return eng, nil
}

func (s *Service) getStored(ctx context.Context, id string) (*store.Map, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	m, err := s.store.GetMap(ctx, id)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	return m, nil
}

// checkID rejects ids that are not map typeids without a store round trip.
func checkID(id string) error {
	if err := typeid.Validate(id, typeid.PrefixMap); err != nil {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return nil
}

func (s *Service) mapStoreError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func toSummary(m *store.Map) Summary {
	return Summary{
		ID:        m.ID,
		Name:      m.Name,
		OwnerID:   m.OwnerID,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toMap(m *store.Map, eng *engine.Engine) *Map {
	return &Map{
		Summary:  toSummary(m),
		ViewBox:  eng.ViewBox(),
		ShapeIDs: eng.ShapeIDs(),
	}
}
