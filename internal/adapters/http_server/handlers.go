package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storedir/internal/app"
	"storedir/internal/domain"
)

type Handlers struct {
	Q *app.QueryService
	C *app.CommandService
}

type problem struct {
	Type       string             `json:"type"`
	Title      string             `json:"title"`
	Status     int                `json:"status"`
	Detail     string             `json:"detail,omitempty"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/api/search", h.search)
	s.mux.Get("/api/stores/near", h.near)
	s.mux.Get("/api/tags", h.tags)
	s.mux.Get("/api/stores/top", h.topStores)
	s.mux.Get("/store/{slug}", h.getStore)
	s.mux.Get("/api/stores/{id}/reviews", h.listReviews)
	s.mux.Post("/api/stores", h.createStore)
	s.mux.Patch("/api/stores/{id}", h.updateStore)
	s.mux.Post("/api/stores/{id}/reviews", h.addReview)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemFull(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemFull(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the core's error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a 500; absence of data never becomes a silent 200.
func writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	var nf *domain.NotFoundError
	var iq *domain.InvalidQueryError
	var cf *domain.ConflictError
	switch {
	case errors.As(err, &ve):
		writeProblemFull(w, problem{
			Type: "about:blank", Title: "Validation Failed",
			Status: http.StatusUnprocessableEntity, Detail: ve.Error(), Violations: ve.Violations,
		})
	case errors.As(err, &nf):
		writeProblem(w, http.StatusNotFound, "Not Found", nf.Error())
	case errors.As(err, &iq):
		writeProblem(w, http.StatusBadRequest, "Invalid Query", iq.Error())
	case errors.As(err, &cf):
		writeProblem(w, http.StatusConflict, "Conflict", cf.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", nil, err
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body, nil
}

// authorID reads the already-authenticated identity the auth layer put on
// the request. Authentication itself happens upstream of this service.
func authorID(r *http.Request) (primitive.ObjectID, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return primitive.NilObjectID, errors.New("missing X-User-ID")
	}
	return primitive.ObjectIDFromHex(raw)
}

func limitParam(r *http.Request, def int64) (int64, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	l, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || l <= 0 || l > 100 {
		return 0, errors.New("limit must be an integer between 1 and 100")
	}
	return l, nil
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, domain.DefaultSearchLimit)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", err.Error())
		return
	}
	hits, err := h.Q.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if hits == nil {
		hits = []domain.SearchHit{}
	}
	writeJSON(w, http.StatusOK, hits)
}

func (h *Handlers) near(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Query", "lng must be a number")
		return
	}
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Query", "lat must be a number")
		return
	}
	radius := float64(domain.DefaultNearRadius)
	if raw := q.Get("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid Query", "radius must be a positive number of meters")
			return
		}
	}
	limit, err := limitParam(r, domain.DefaultNearLimit)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", err.Error())
		return
	}

	pins, err := h.Q.Near(r.Context(), domain.NearQuery{Lng: lng, Lat: lat, RadiusMeters: radius, Limit: limit})
	if err != nil {
		writeError(w, err)
		return
	}
	if pins == nil {
		pins = []domain.StorePin{}
	}
	writeJSON(w, http.StatusOK, pins)
}

func (h *Handlers) tags(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Q.TagHistogram(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if counts == nil {
		counts = []domain.TagCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *Handlers) topStores(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, domain.DefaultTopLimit)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", err.Error())
		return
	}
	ranked, err := h.Q.TopStores(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if ranked == nil {
		ranked = []domain.RankedStore{}
	}
	writeJSON(w, http.StatusOK, ranked)
}

func (h *Handlers) getStore(w http.ResponseWriter, r *http.Request) {
	inc := domain.Include{
		Reviews: r.URL.Query().Get("reviews") == "true",
		Author:  r.URL.Query().Get("author") == "true",
	}
	view, err := h.Q.GetStore(r.Context(), chi.URLParam(r, "slug"), inc)
	if err != nil {
		writeError(w, err)
		return
	}

	etag, body, err := calcETagAndBody(view)
	if err != nil {
		writeError(w, err)
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write store body")
	}
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	store, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a hex object id")
		return
	}
	includeAuthor := r.URL.Query().Get("author") == "true"
	rs, err := h.Q.ListReviews(r.Context(), store, includeAuthor)
	if err != nil {
		writeError(w, err)
		return
	}
	if rs == nil {
		rs = []domain.Review{}
	}
	writeJSON(w, http.StatusOK, rs)
}

func (h *Handlers) createStore(w http.ResponseWriter, r *http.Request) {
	author, err := authorID(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Author", err.Error())
		return
	}
	var draft domain.StoreDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be a JSON store draft")
		return
	}
	st, err := h.C.CreateStore(r.Context(), draft, author)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *Handlers) updateStore(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a hex object id")
		return
	}
	var patch domain.StorePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be a JSON store patch")
		return
	}
	st, err := h.C.UpdateStore(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) addReview(w http.ResponseWriter, r *http.Request) {
	author, err := authorID(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Author", err.Error())
		return
	}
	store, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a hex object id")
		return
	}
	var draft domain.ReviewDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be a JSON review draft")
		return
	}
	rv, err := h.C.AddReview(r.Context(), draft, author, store)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}
