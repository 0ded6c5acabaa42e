package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	httpserver "storedir/internal/adapters/http_server"
	"storedir/internal/app"
	"storedir/internal/domain"
)

// ---- fakes (engine contracts mimicked at the port boundary) ----

type stubStores struct {
	view domain.StoreView
	hits []domain.SearchHit
	err  error
}

func (f *stubStores) Create(ctx context.Context, d domain.StoreDraft, a primitive.ObjectID) (domain.Store, error) {
	if f.err != nil {
		return domain.Store{}, f.err
	}
	return domain.Store{ID: primitive.NewObjectID(), Name: d.Name, Slug: "stub", Author: a}, nil
}
func (f *stubStores) Update(ctx context.Context, id primitive.ObjectID, p domain.StorePatch) (domain.Store, error) {
	if f.err != nil {
		return domain.Store{}, f.err
	}
	return domain.Store{ID: id}, nil
}
func (f *stubStores) FindBySlug(ctx context.Context, slug string, inc domain.Include) (domain.StoreView, error) {
	if f.err != nil {
		return domain.StoreView{}, f.err
	}
	return f.view, nil
}
func (f *stubStores) Search(ctx context.Context, q string, limit int64) ([]domain.SearchHit, error) {
	if strings.TrimSpace(q) == "" {
		return nil, &domain.InvalidQueryError{Reason: "search text must not be empty"}
	}
	return f.hits, f.err
}
func (f *stubStores) Near(ctx context.Context, q domain.NearQuery) ([]domain.StorePin, error) {
	if err := domain.CheckCoordinates(q.Lng, q.Lat); err != nil {
		return nil, err
	}
	return nil, f.err
}
func (f *stubStores) TagHistogram(ctx context.Context) ([]domain.TagCount, error) {
	return []domain.TagCount{{Tag: "coffee", Count: 2}}, f.err
}
func (f *stubStores) TopStores(ctx context.Context, limit int64) ([]domain.RankedStore, error) {
	return nil, f.err
}

type stubReviews struct{ err error }

func (f *stubReviews) Add(ctx context.Context, d domain.ReviewDraft, a, s primitive.ObjectID) (domain.Review, error) {
	if f.err != nil {
		return domain.Review{}, f.err
	}
	return domain.Review{ID: primitive.NewObjectID(), Text: d.Text, Rating: d.Rating}, nil
}
func (f *stubReviews) ListByStore(ctx context.Context, s primitive.ObjectID, includeAuthor bool) ([]domain.Review, error) {
	return nil, f.err
}

func newTestServer(stores *stubStores, reviews *stubReviews) http.Handler {
	q := app.NewQueryService(stores, reviews, nil, time.Minute)
	c := app.NewCommandService(stores, reviews, nil)
	srv := httpserver.New(0)
	srv.MountHandlers(&httpserver.Handlers{Q: q, C: c})
	return srv.Mux()
}

func doReq(t *testing.T, h http.Handler, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// ---- tests ----

func TestSearch_BlankQueryIs400(t *testing.T) {
	h := newTestServer(&stubStores{}, &stubReviews{})
	rr := doReq(t, h, "GET", "/api/search?q=++", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type: %s", ct)
	}
}

func TestSearch_ReturnsHits(t *testing.T) {
	hits := []domain.SearchHit{
		{Store: domain.Store{Name: "Grounded Coffee Corner", Slug: "grounded-coffee-corner"}, Score: 1.5},
	}
	h := newTestServer(&stubStores{hits: hits}, &stubReviews{})
	rr := doReq(t, h, "GET", "/api/search?q=coffee", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d", rr.Code)
	}
	var out []domain.SearchHit
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].Slug != "grounded-coffee-corner" {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestNear_BadCoordinates(t *testing.T) {
	h := newTestServer(&stubStores{}, &stubReviews{})

	rr := doReq(t, h, "GET", "/api/stores/near?lng=abc&lat=43", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric lng: %d", rr.Code)
	}

	rr = doReq(t, h, "GET", "/api/stores/near?lng=-200&lat=43", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range lng: %d", rr.Code)
	}
}

func TestGetStore_NotFoundIs404(t *testing.T) {
	h := newTestServer(&stubStores{err: &domain.NotFoundError{Resource: "store", Key: "nope"}}, &stubReviews{})
	rr := doReq(t, h, "GET", "/store/nope", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: %d", rr.Code)
	}
}

func TestGetStore_ETagShortCircuit(t *testing.T) {
	view := domain.StoreView{Store: domain.Store{Name: "Grounded", Slug: "grounded"}}
	h := newTestServer(&stubStores{view: view}, &stubReviews{})

	first := doReq(t, h, "GET", "/store/grounded", "", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("status: %d", first.Code)
	}
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag")
	}

	second := doReq(t, h, "GET", "/store/grounded", "", map[string]string{"If-None-Match": etag})
	if second.Code != http.StatusNotModified {
		t.Fatalf("status: %d", second.Code)
	}
}

func TestCreateStore_ValidationIs422WithViolations(t *testing.T) {
	ve := &domain.ValidationError{}
	ve.Add("name", "store name is required")
	ve.Add("location.address", "address is required")
	h := newTestServer(&stubStores{err: ve}, &stubReviews{})

	rr := doReq(t, h, "POST", "/api/stores", `{"name":""}`,
		map[string]string{"X-User-ID": primitive.NewObjectID().Hex()})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: %d", rr.Code)
	}
	var p struct {
		Violations []domain.Violation `json:"violations"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(p.Violations) != 2 {
		t.Fatalf("expected both violations, got %+v", p.Violations)
	}
}

func TestCreateStore_MissingIdentityIs400(t *testing.T) {
	h := newTestServer(&stubStores{}, &stubReviews{})
	rr := doReq(t, h, "POST", "/api/stores", `{"name":"Cafe"}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rr.Code)
	}
}

func TestCreateStore_ConflictIs409(t *testing.T) {
	h := newTestServer(&stubStores{err: &domain.ConflictError{Field: "slug", Value: "cafe"}}, &stubReviews{})
	rr := doReq(t, h, "POST", "/api/stores", `{"name":"Cafe"}`,
		map[string]string{"X-User-ID": primitive.NewObjectID().Hex()})
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: %d", rr.Code)
	}
}

func TestAddReview_Created(t *testing.T) {
	h := newTestServer(&stubStores{}, &stubReviews{})
	id := primitive.NewObjectID().Hex()
	rr := doReq(t, h, "POST", "/api/stores/"+id+"/reviews", `{"text":"Great","rating":5}`,
		map[string]string{"X-User-ID": primitive.NewObjectID().Hex()})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: %d, body: %s", rr.Code, rr.Body.String())
	}
}
