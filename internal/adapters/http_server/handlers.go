package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"

	"chileadicto/internal/app"
	"chileadicto/internal/domain"
)

type Handlers struct {
	Q *app.QueryService
	C *app.CommandService
	S *app.SliderService

	// AdminToken guards write routes. Empty disables the check (dev only).
	AdminToken string
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/posts", h.listPosts)
		r.Get("/posts/{slug}", h.getPost)
		r.Get("/categories", h.listCategories)

		// Carousel reads degrade to empty arrays, never 500.
		r.Get("/sliders", h.getSliderManifest)
		r.Get("/imagenes-slider/manifest", h.getSliderManifest)
		r.Get("/slider-images", h.getSliderImages)
		r.Get("/restaurant-slider-mobile", h.getRestaurantSliderMobile)

		r.Group(func(w chi.Router) {
			w.Use(httprate.LimitByIP(30, time.Minute))
			w.Use(h.requireAdmin)
			w.Post("/posts", h.createPost)
			w.Put("/posts/{slug}", h.updatePost)
			w.Delete("/posts/{slug}", h.deletePost)
			w.Put("/sliders", h.putSliderManifest)
			w.Put("/imagenes-slider/manifest", h.putSliderManifest)
			w.Put("/slider-images", h.putSliderImages)
			w.Put("/restaurant-slider-mobile", h.putRestaurantSliderMobile)
			w.Post("/media", h.createMedia)
		})
	})
}

/********** response plumbing **********/

type apiError struct {
	OK      bool        `json:"ok"`
	Error   string      `json:"error"`
	Step    string      `json:"step,omitempty"`
	Message string      `json:"message,omitempty"`
	Issues  []app.Issue `json:"issues,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeError(w http.ResponseWriter, status int, code string, e apiError) {
	e.OK = false
	e.Error = code
	writeJSON(w, status, e)
}

// writeCommandError translates write-pipeline failures into the API taxonomy.
func writeCommandError(w http.ResponseWriter, err error) {
	var ve *app.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, "bad_request", apiError{Issues: ve.Issues})
	case errors.Is(err, domain.ErrSlugExists):
		writeError(w, http.StatusConflict, "slug_exists", apiError{})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", apiError{})
	default:
		log.Error().Err(err).Str("step", domain.FailedStep(err)).Msg("write pipeline failed")
		writeError(w, http.StatusInternalServerError, "internal", apiError{
			Step:    domain.FailedStep(err),
			Message: err.Error(),
		})
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// isAdmin reports whether the request carries the admin bearer token. An
// empty AdminToken disables the check (dev only).
func (h *Handlers) isAdmin(r *http.Request) bool {
	if h.AdminToken == "" {
		return true
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ") == h.AdminToken
}

func (h *Handlers) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.isAdmin(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized", apiError{})
			return
		}
		next.ServeHTTP(w, r)
	})
}

/********** posts **********/

func (h *Handlers) listPosts(w http.ResponseWriter, r *http.Request) {
	q := domain.PostsQuery{
		Q:            r.URL.Query().Get("q"),
		Category:     r.URL.Query().Get("category"),
		CategorySlug: r.URL.Query().Get("categorySlug"),
	}
	// The admin editor needs drafts and out-of-window posts in its listing.
	if r.URL.Query().Get("includeHidden") == "1" && h.isAdmin(r) {
		q.IncludeHidden = true
	}
	items, err := h.Q.ListPosts(r.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("list posts failed")
		writeError(w, http.StatusInternalServerError, "internal", apiError{Message: "could not list posts"})
		return
	}
	writeCached(w, r, items)
}

func (h *Handlers) getPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p, err := h.Q.GetPost(r.Context(), slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", apiError{})
			return
		}
		log.Error().Err(err).Str("slug", slug).Msg("get post failed")
		writeError(w, http.StatusInternalServerError, "internal", apiError{Message: "could not fetch post"})
		return
	}
	writeCached(w, r, p)
}

func (h *Handlers) createPost(w http.ResponseWriter, r *http.Request) {
	var p domain.Post
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", apiError{Message: "invalid JSON body"})
		return
	}
	slug, err := h.C.CreatePost(r.Context(), p)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "slug": slug})
}

func (h *Handlers) updatePost(w http.ResponseWriter, r *http.Request) {
	var p domain.Post
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", apiError{Message: "invalid JSON body"})
		return
	}
	if err := h.C.UpdatePost(r.Context(), chi.URLParam(r, "slug"), p); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handlers) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.C.DeletePost(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	labels, err := h.Q.ListCategories(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list categories failed")
		writeError(w, http.StatusInternalServerError, "internal", apiError{Message: "could not list categories"})
		return
	}
	writeCached(w, r, labels)
}

/********** sliders & media **********/

func (h *Handlers) getSliderManifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.S.Manifest())
}

func (h *Handlers) getSliderImages(w http.ResponseWriter, r *http.Request) {
	section := r.URL.Query().Get("section")
	if section == "" {
		section = "home"
	}
	writeJSON(w, http.StatusOK, h.S.Images(section))
}

func (h *Handlers) getRestaurantSliderMobile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.S.Images("restaurantes-mobile"))
}

func (h *Handlers) putSliderManifest(w http.ResponseWriter, r *http.Request) {
	var m map[string][]string
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", apiError{Message: "expected {section: [urls]}"})
		return
	}
	for section, urls := range m {
		if err := h.S.SetSection(section, urls); err != nil {
			log.Error().Err(err).Str("section", section).Msg("slider manifest write failed")
			writeError(w, http.StatusInternalServerError, "internal", apiError{Message: "could not save manifest"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// putSliderImages replaces one manifest section with the posted URL list.
func (h *Handlers) putSliderImages(w http.ResponseWriter, r *http.Request) {
	section := r.URL.Query().Get("section")
	if section == "" {
		section = "home"
	}
	h.putSliderSection(w, r, section)
}

func (h *Handlers) putRestaurantSliderMobile(w http.ResponseWriter, r *http.Request) {
	h.putSliderSection(w, r, "restaurantes-mobile")
}

func (h *Handlers) putSliderSection(w http.ResponseWriter, r *http.Request, section string) {
	var urls []string
	if err := json.NewDecoder(r.Body).Decode(&urls); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", apiError{Message: "expected [urls]"})
		return
	}
	if err := h.S.SetSection(section, urls); err != nil {
		log.Error().Err(err).Str("section", section).Msg("slider section write failed")
		writeError(w, http.StatusInternalServerError, "internal", apiError{Message: "could not save slider section"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// createMedia accepts an already-hosted image URL and echoes its canonical
// form; there is no upload storage behind it.
func (h *Handlers) createMedia(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.URL) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", apiError{Message: "url is required"})
		return
	}
	u := app.NormalizeURL(body.URL)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		writeError(w, http.StatusBadRequest, "bad_request", apiError{Message: "not a valid URL"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "url": u})
}
