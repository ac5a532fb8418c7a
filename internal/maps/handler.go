package maps

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/inamate/dynmap/internal/auth"
)

const maxDocumentSize = 8 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name     string `json:"name"`
	Document string `json:"document"`
}

type stateRequest struct {
	State *int32 `json:"state"`
}

type styleRequest struct {
	Style string `json:"style"`
}

// Register mounts the map routes on r. Reads are public; protect wraps the
// routes that change a map.
func (h *Handler) Register(r *mux.Router, protect mux.MiddlewareFunc) {
	r.HandleFunc("/maps", h.List).Methods("GET")
	r.HandleFunc("/maps/{mapId}", h.Get).Methods("GET")
	r.HandleFunc("/maps/{mapId}/document", h.GetDocument).Methods("GET")
	r.HandleFunc("/maps/{mapId}/shapes", h.ListShapes).Methods("GET")
	r.HandleFunc("/maps/{mapId}/snapshot", h.GetSnapshot).Methods("GET")
	r.HandleFunc("/maps/{mapId}/hit", h.HitTest).Methods("GET")
	r.HandleFunc("/maps/{mapId}/render.png", h.RenderPNG).Methods("GET")
	r.HandleFunc("/maps/{mapId}/draw", h.DrawList).Methods("GET")

	w := r.NewRoute().Subrouter()
	w.Use(protect)
	w.HandleFunc("/maps", h.Create).Methods("POST")
	w.HandleFunc("/maps/sample", h.CreateSample).Methods("POST")
	w.HandleFunc("/maps/upload", h.Upload).Methods("POST")
	w.HandleFunc("/maps/{mapId}", h.Delete).Methods("DELETE")
	w.HandleFunc("/maps/{mapId}/document", h.ReplaceDocument).Methods("PUT")
	w.HandleFunc("/maps/{mapId}/shapes/{shapeId}/state", h.SetShapeState).Methods("PUT")
	w.HandleFunc("/maps/{mapId}/shapes/{shapeId}/state", h.ClearShapeState).Methods("DELETE")
	w.HandleFunc("/maps/{mapId}/styles/{state}", h.SetStateStyle).Methods("PUT")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDocumentSize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.Document == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and document are required"})
		return
	}

	m, err := h.service.Create(r.Context(), req.Name, userID, req.Document)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

// Upload creates a map from a multipart form: an SVG in the "file" field
// and an optional "name" (the file name otherwise).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize)

	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large (max 8MB)"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/svg+xml") && !strings.HasPrefix(contentType, "application/octet-stream") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only SVG documents are supported"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read file failed"})
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	}

	m, err := h.service.Create(r.Context(), name, auth.UserIDFromContext(r.Context()), string(data))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) CreateSample(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.CreateSample(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("list maps failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if list == nil {
		list = []Summary{}
	}

	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Get(r.Context(), mux.Vars(r)["mapId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["mapId"]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Document(r.Context(), mux.Vars(r)["mapId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, doc)
}

func (h *Handler) ReplaceDocument(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize))
	if err != nil || len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document is required"})
		return
	}

	if err := h.service.ReplaceDocument(r.Context(), mux.Vars(r)["mapId"], string(body)); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListShapes(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Shapes(r.Context(), mux.Vars(r)["mapId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if list == nil {
		list = []Shape{}
	}

	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context(), mux.Vars(r)["mapId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) SetShapeState(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req stateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.State == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "state is required"})
		return
	}

	if err := h.service.SetShapeState(r.Context(), vars["mapId"], vars["shapeId"], *req.State); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearShapeState(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.service.ClearShapeState(r.Context(), vars["mapId"], vars["shapeId"]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetStateStyle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	state, err := strconv.ParseInt(vars["state"], 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "state must be an integer"})
		return
	}

	var req styleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Style == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "style is required"})
		return
	}

	if err := h.service.SetStateStyle(r.Context(), vars["mapId"], int32(state), req.Style); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HitTest(w http.ResponseWriter, r *http.Request) {
	x, y, ok := relativePoint(w, r)
	if !ok {
		return
	}

	res, err := h.service.HitTest(r.Context(), mux.Vars(r)["mapId"], x, y)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) RenderPNG(w http.ResponseWriter, r *http.Request) {
	x, y, ok := relativePoint(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.RenderPNG(r.Context(), mux.Vars(r)["mapId"], x, y, &buf); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) DrawList(w http.ResponseWriter, r *http.Request) {
	x, y, ok := relativePoint(w, r)
	if !ok {
		return
	}

	cmds, err := h.service.DrawList(r.Context(), mux.Vars(r)["mapId"], x, y)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cmds)
}

// relativePoint reads the x and y query parameters. Missing values mean a
// point off the map, so nothing is highlighted.
func relativePoint(w http.ResponseWriter, r *http.Request) (float64, float64, bool) {
	parse := func(name string) (float64, bool) {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			return -1, true
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": name + " must be a number"})
			return 0, false
		}
		return v, true
	}

	x, ok := parse("x")
	if !ok {
		return 0, 0, false
	}
	y, ok := parse("y")
	if !ok {
		return 0, 0, false
	}
	return x, y, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrInvalidDocument), errors.Is(err, ErrTooLarge):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
