package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	server "chileadicto/internal/adapters/http_server"
	"chileadicto/internal/app"
	"chileadicto/internal/domain"
)

/********** in-memory backing for the full router **********/

type memRepo struct {
	mu         sync.Mutex
	seq        int64
	ids        map[string]int64
	posts      map[int64]domain.Post
	categories []string
}

func newMemRepo() *memRepo {
	return &memRepo{ids: map[string]int64{}, posts: map[int64]domain.Post{}}
}

func (m *memRepo) FindPostID(_ context.Context, slug string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.ids[slug]
	return id, ok, nil
}

func (m *memRepo) InsertPostBase(_ context.Context, p domain.Post) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.ids[p.Slug] = m.seq
	m.posts[m.seq] = p
	return m.seq, nil
}

func (m *memRepo) UpdatePostBase(_ context.Context, id int64, p domain.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[id] = p
	return nil
}

// Child rows live inside the stored Post already; the fine-grained writes are
// no-ops here.
func (m *memRepo) InsertTranslations(context.Context, int64, domain.Post) error    { return nil }
func (m *memRepo) DeleteTranslations(context.Context, int64) error                 { return nil }
func (m *memRepo) InsertImages(context.Context, int64, []string) error             { return nil }
func (m *memRepo) DeleteImages(context.Context, int64) error                       { return nil }
func (m *memRepo) InsertLocations(context.Context, int64, []domain.Location) error { return nil }
func (m *memRepo) DeleteLocations(context.Context, int64) error                    { return nil }
func (m *memRepo) LinkCategories(context.Context, int64, []string) error           { return nil }
func (m *memRepo) UnlinkCategories(context.Context, int64) error                   { return nil }

func (m *memRepo) GetPost(_ context.Context, slug string) (domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.ids[slug]; ok {
		return m.posts[id], nil
	}
	return domain.Post{}, domain.ErrNotFound
}

func (m *memRepo) ListPosts(_ context.Context, _ domain.PostsQuery) ([]domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, p)
	}
	return out, nil
}

func (m *memRepo) ListCategories(context.Context) ([]string, error) {
	return m.categories, nil
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noopCache) Set(context.Context, string, any, int) error    { return nil }
func (noopCache) Del(context.Context, string) error              { return nil }

func newTestAPI(t *testing.T, adminToken string) (*httptest.Server, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	sliderDir := filepath.Join(t.TempDir(), "imagenes-slider")
	manifest := filepath.Join(t.TempDir(), "sliders.json")

	srv := server.New()
	srv.MountHandlers(&server.Handlers{
		Q:          app.NewQueryService(repo, noopCache{}, time.Minute),
		C:          app.NewCommandService(repo, noopCache{}),
		S:          app.NewSliderService(sliderDir, manifest),
		AdminToken: adminToken,
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts, repo
}

const createBody = `{
	"slug": "w-santiago",
	"es": {"name": "W Santiago", "subtitle": "Hotel de lujo", "description": ["texto"]},
	"en": {"name": "W Santiago", "subtitle": "Luxury hotel", "description": ["text"]},
	"images": ["a.jpg", "a.jpg", "b.jpg"],
	"categories": ["hoteles"],
	"phone": "+56 9 1234 5678",
	"website": "wsantiago.cl"
}`

func doJSON(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

/********** posts **********/

func TestAPI_CreateThenGet(t *testing.T) {
	ts, _ := newTestAPI(t, "")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/posts", "", createBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created struct {
		OK   bool   `json:"ok"`
		Slug string `json:"slug"`
	}
	decodeBody(t, resp, &created)
	if !created.OK || created.Slug != "w-santiago" {
		t.Fatalf("create body = %+v", created)
	}

	get, err := http.Get(ts.URL + "/api/posts/w-santiago")
	if err != nil {
		t.Fatal(err)
	}
	if get.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", get.StatusCode)
	}
	etag := get.Header.Get("ETag")
	if etag == "" {
		t.Fatal("detail response missing ETag")
	}
	var p domain.Post
	decodeBody(t, get, &p)
	if p.Phone != "tel:+56912345678" {
		t.Errorf("phone = %q, want normalized", p.Phone)
	}
	if len(p.Images) != 2 {
		t.Errorf("images = %v, want duplicates dropped", p.Images)
	}
	if p.Website != "https://wsantiago.cl" {
		t.Errorf("website = %q", p.Website)
	}
	if len(p.Categories) != 1 || p.Categories[0] != "HOTELES" {
		t.Errorf("categories = %v, want uppercased", p.Categories)
	}

	// conditional GET round-trip
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/posts/w-santiago", nil)
	req.Header.Set("If-None-Match", etag)
	cond, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	cond.Body.Close()
	if cond.StatusCode != http.StatusNotModified {
		t.Fatalf("conditional get status = %d, want 304", cond.StatusCode)
	}
}

func TestAPI_CreateValidationIssues(t *testing.T) {
	ts, _ := newTestAPI(t, "")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/posts", "", `{"slug": "Bad Slug"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		OK     bool   `json:"ok"`
		Error  string `json:"error"`
		Issues []struct {
			Path    string `json:"path"`
			Message string `json:"message"`
		} `json:"issues"`
	}
	decodeBody(t, resp, &body)
	if body.OK || body.Error != "bad_request" {
		t.Fatalf("body = %+v", body)
	}
	if len(body.Issues) == 0 {
		t.Fatal("expected issues in the 400 body")
	}
	for _, i := range body.Issues {
		if i.Path == "" || i.Message == "" {
			t.Fatalf("issue missing path or message: %+v", i)
		}
	}
}

func TestAPI_CreateDuplicate(t *testing.T) {
	ts, _ := newTestAPI(t, "")

	if resp := doJSON(t, http.MethodPost, ts.URL+"/api/posts", "", createBody); resp.StatusCode != 201 {
		t.Fatalf("first create = %d", resp.StatusCode)
	}
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/posts", "", createBody)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second create = %d, want 409", resp.StatusCode)
	}
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &body)
	if body.Error != "slug_exists" {
		t.Fatalf("error = %q", body.Error)
	}
}

func TestAPI_GetMissing(t *testing.T) {
	ts, _ := newTestAPI(t, "")
	resp, err := http.Get(ts.URL + "/api/posts/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAPI_UpdateMissing(t *testing.T) {
	ts, _ := newTestAPI(t, "")
	resp := doJSON(t, http.MethodPut, ts.URL+"/api/posts/nope", "", createBody)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAPI_UpdateThenGet(t *testing.T) {
	ts, _ := newTestAPI(t, "")
	if resp := doJSON(t, http.MethodPost, ts.URL+"/api/posts", "", createBody); resp.StatusCode != 201 {
		t.Fatal("seed create failed")
	}

	updated := strings.Replace(createBody, "Hotel de lujo", "Hotel renovado", 1)
	resp := doJSON(t, http.MethodPut, ts.URL+"/api/posts/w-santiago", "", updated)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}

	get, _ := http.Get(ts.URL + "/api/posts/w-santiago")
	var p domain.Post
	decodeBody(t, get, &p)
	if p.ES.Subtitle != "Hotel renovado" {
		t.Fatalf("subtitle = %q", p.ES.Subtitle)
	}
}

func TestAPI_DeleteIsAcknowledged(t *testing.T) {
	ts, _ := newTestAPI(t, "")
	resp := doJSON(t, http.MethodDelete, ts.URL+"/api/posts/w-santiago", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAPI_ListPosts(t *testing.T) {
	ts, _ := newTestAPI(t, "")
	if resp := doJSON(t, http.MethodPost, ts.URL+"/api/posts", "", createBody); resp.StatusCode != 201 {
		t.Fatal("seed create failed")
	}

	resp, err := http.Get(ts.URL + "/api/posts")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Header.Get("ETag") == "" {
		t.Error("list response missing ETag")
	}
	var items []domain.Post
	decodeBody(t, resp, &items)
	if len(items) != 1 || items[0].Slug != "w-santiago" {
		t.Fatalf("items = %+v", items)
	}
}

func TestAPI_ListCategories(t *testing.T) {
	ts, repo := newTestAPI(t, "")
	repo.categories = []string{"HOTELES", "RESTAURANTES"}

	resp, err := http.Get(ts.URL + "/api/categories")
	if err != nil {
		t.Fatal(err)
	}
	var labels []string
	decodeBody(t, resp, &labels)
	if len(labels) != 2 {
		t.Fatalf("labels = %v", labels)
	}
}

/********** auth **********/

func TestAPI_AdminTokenGuardsWrites(t *testing.T) {
	ts, _ := newTestAPI(t, "s3cret")

	if resp := doJSON(t, http.MethodPost, ts.URL+"/api/posts", "", createBody); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token = %d, want 401", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodPost, ts.URL+"/api/posts", "wrong", createBody); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token = %d, want 401", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodPost, ts.URL+"/api/posts", "s3cret", createBody); resp.StatusCode != http.StatusCreated {
		t.Fatalf("valid token = %d, want 201", resp.StatusCode)
	}

	// reads stay public
	if resp, err := http.Get(ts.URL + "/api/posts"); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("public read blocked: %v", resp.StatusCode)
	}
}

func TestAPI_IncludeHiddenListing(t *testing.T) {
	ts, repo := newTestAPI(t, "s3cret")
	draft := domain.Post{Slug: "draft-bar", PublicationStatus: domain.StatusUnpublished}
	if _, err := repo.InsertPostBase(context.Background(), draft); err != nil {
		t.Fatal(err)
	}

	var items []domain.Post
	resp, err := http.Get(ts.URL + "/api/posts")
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, resp, &items)
	if len(items) != 0 {
		t.Fatalf("public listing leaked drafts: %+v", items)
	}

	// the flag is ignored without the admin token
	resp, err = http.Get(ts.URL + "/api/posts?includeHidden=1")
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, resp, &items)
	if len(items) != 0 {
		t.Fatalf("unauthenticated includeHidden leaked drafts: %+v", items)
	}

	adm := doJSON(t, http.MethodGet, ts.URL+"/api/posts?includeHidden=1", "s3cret", "")
	decodeBody(t, adm, &items)
	if len(items) != 1 || items[0].Slug != "draft-bar" {
		t.Fatalf("admin listing = %+v, want the draft", items)
	}
}

/********** sliders & media **********/

func TestAPI_SliderManifestRoundTrip(t *testing.T) {
	ts, _ := newTestAPI(t, "")

	put := doJSON(t, http.MethodPut, ts.URL+"/api/sliders", "", `{"home": ["https://cdn.example.cl/1.jpg"]}`)
	if put.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d", put.StatusCode)
	}

	resp, err := http.Get(ts.URL + "/api/slider-images?section=home")
	if err != nil {
		t.Fatal(err)
	}
	var imgs []string
	decodeBody(t, resp, &imgs)
	if len(imgs) != 1 || imgs[0] != "https://cdn.example.cl/1.jpg" {
		t.Fatalf("images = %v", imgs)
	}

	manifest, err := http.Get(ts.URL + "/api/imagenes-slider/manifest")
	if err != nil {
		t.Fatal(err)
	}
	var m map[string][]string
	decodeBody(t, manifest, &m)
	if len(m["home"]) != 1 {
		t.Fatalf("manifest = %v", m)
	}
}

func TestAPI_SliderSectionPutRoutes(t *testing.T) {
	ts, _ := newTestAPI(t, "")

	put := doJSON(t, http.MethodPut, ts.URL+"/api/slider-images?section=home", "", `["https://cdn.example.cl/h.jpg"]`)
	if put.StatusCode != http.StatusOK {
		t.Fatalf("slider-images put status = %d", put.StatusCode)
	}
	resp, err := http.Get(ts.URL + "/api/slider-images?section=home")
	if err != nil {
		t.Fatal(err)
	}
	var imgs []string
	decodeBody(t, resp, &imgs)
	if len(imgs) != 1 || imgs[0] != "https://cdn.example.cl/h.jpg" {
		t.Fatalf("home images = %v", imgs)
	}

	put = doJSON(t, http.MethodPut, ts.URL+"/api/restaurant-slider-mobile", "", `["https://cdn.example.cl/r.jpg"]`)
	if put.StatusCode != http.StatusOK {
		t.Fatalf("restaurant put status = %d", put.StatusCode)
	}
	resp, err = http.Get(ts.URL + "/api/restaurant-slider-mobile")
	if err != nil {
		t.Fatal(err)
	}
	decodeBody(t, resp, &imgs)
	if len(imgs) != 1 || imgs[0] != "https://cdn.example.cl/r.jpg" {
		t.Fatalf("restaurant images = %v", imgs)
	}

	put = doJSON(t, http.MethodPut, ts.URL+"/api/imagenes-slider/manifest", "", `{"home": ["https://cdn.example.cl/m.jpg"]}`)
	if put.StatusCode != http.StatusOK {
		t.Fatalf("manifest alias put status = %d", put.StatusCode)
	}

	bad := doJSON(t, http.MethodPut, ts.URL+"/api/slider-images", "", `{"not": "a list"}`)
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad body status = %d, want 400", bad.StatusCode)
	}
}

func TestAPI_SliderReadsNeverFail(t *testing.T) {
	ts, _ := newTestAPI(t, "")
	for _, path := range []string{
		"/api/slider-images",
		"/api/slider-images?section=missing",
		"/api/restaurant-slider-mobile",
	} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d", path, resp.StatusCode)
		}
		var imgs []string
		decodeBody(t, resp, &imgs)
		if imgs == nil {
			t.Fatalf("%s returned null, want []", path)
		}
	}
}

func TestAPI_MediaEchoesNormalizedURL(t *testing.T) {
	ts, _ := newTestAPI(t, "")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/media", "", `{"url": "cdn.example.cl/x.jpg"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		URL string `json:"url"`
	}
	decodeBody(t, resp, &body)
	if body.URL != "https://cdn.example.cl/x.jpg" {
		t.Fatalf("url = %q", body.URL)
	}

	for _, bad := range []string{`{"url": ""}`, `{"url": "not a url"}`, `broken`} {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/media", "", bad)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q status = %d, want 400", bad, resp.StatusCode)
		}
	}
}

func TestAPI_Healthz(t *testing.T) {
	ts, _ := newTestAPI(t, "")
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
