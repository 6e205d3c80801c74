package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/okian/capflow/internal/adapters/tablefile"
	"github.com/okian/capflow/internal/domain/model"
)

// DatasetsHandler serves upload, query and export of datasets.
type DatasetsHandler struct {
	deps      Dependencies
	maxUpload int64
}

// NewDatasetsHandler creates a new datasets handler.
func NewDatasetsHandler(deps Dependencies, opts ...ServerOption) *DatasetsHandler {
	h := &DatasetsHandler{deps: deps, maxUpload: defaultMaxUploadBytes}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type pathResponse struct {
	Path []string `json:"path"`
	Hops int      `json:"hops"`
}

// HandleUpload handles POST /datasets?name= with a raw JSON event log body.
func (h *DatasetsHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload_dataset"

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", WrapKind(op, ErrPayloadTooLarge, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	info, err := h.deps.Ingest(r.Context(), r.URL.Query().Get("name"), body)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	status := http.StatusCreated
	if info.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, info)
}

// HandleList handles GET /datasets.
func (h *DatasetsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.List(r.Context())
	if err != nil {
		writeServiceError(w, "api.list_datasets", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleDelete handles DELETE /datasets/{id}.
func (h *DatasetsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, "api.delete_dataset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// view resolves the request view for dataset id.
func (h *DatasetsHandler) view(r *http.Request, id string) (model.View, error) {
	base, err := h.deps.DefaultView(r.Context(), id)
	if err != nil {
		return model.View{}, err
	}
	return parseView(r.URL.Query(), base)
}

// HandleSnapshot handles GET /datasets/{id}/snapshot.
func (h *DatasetsHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	const op = "api.snapshot"
	id := r.PathValue("id")

	v, err := h.view(r, id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	snap, err := h.deps.Snapshot(r.Context(), id, v)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandlePath handles GET /datasets/{id}/path?src=&dst=.
func (h *DatasetsHandler) HandlePath(w http.ResponseWriter, r *http.Request) {
	const op = "api.path"
	id := r.PathValue("id")
	q := r.URL.Query()

	src, dst := q.Get("src"), q.Get("dst")
	if src == "" || dst == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("src and dst are required")))
		return
	}
	v, err := h.view(r, id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	path, err := h.deps.ShortestPath(r.Context(), id, v, src, dst)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, pathResponse{Path: path, Hops: len(path) - 1})
}

// HandleNode handles GET /datasets/{id}/nodes/{node}.
func (h *DatasetsHandler) HandleNode(w http.ResponseWriter, r *http.Request) {
	const op = "api.node"
	id := r.PathValue("id")

	v, err := h.view(r, id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	info, err := h.deps.Inspect(r.Context(), id, v, r.PathValue("node"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleEventsCSV handles GET /datasets/{id}/events.csv, the filtered table.
func (h *DatasetsHandler) HandleEventsCSV(w http.ResponseWriter, r *http.Request) {
	const op = "api.events_csv"
	id := r.PathValue("id")

	v, err := h.view(r, id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	events, err := h.deps.Events(r.Context(), id, &v)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events_filtered.csv"`)
	w.WriteHeader(http.StatusOK)
	_ = tablefile.WriteCSV(w, events)
}

// HandleEventsJSON handles GET /datasets/{id}/events.json, the full canonical table.
func (h *DatasetsHandler) HandleEventsJSON(w http.ResponseWriter, r *http.Request) {
	events, err := h.deps.Events(r.Context(), r.PathValue("id"), nil)
	if err != nil {
		writeServiceError(w, "api.events_json", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = tablefile.WriteJSON(w, events)
}
