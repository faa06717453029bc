package app

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"chileadicto/internal/domain"
)

// Issue is one violated constraint; Path is the dotted field path.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type Result struct {
	OK     bool    `json:"ok"`
	Issues []Issue `json:"issues,omitempty"`
}

var (
	slugRe  = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	phoneRe = regexp.MustCompile(`^tel:\+?[0-9]+$`)
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ValidatePost checks a normalized post against the canonical shape. Every
// violation is collected; nothing short-circuits and nothing panics.
func ValidatePost(p domain.Post) Result {
	var issues []Issue
	add := func(path, format string, args ...any) {
		issues = append(issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if p.Slug == "" {
		add("slug", "slug is required")
	} else if !slugRe.MatchString(p.Slug) {
		add("slug", "slug must be lowercase kebab-case (%q)", p.Slug)
	}

	validateLang("es", p.ES, add)
	validateLang("en", p.EN, add)

	if len(p.Images) == 0 {
		add("images", "at least one image is required")
	}
	for i, img := range p.Images {
		if !isImageRef(img) {
			add(fmt.Sprintf("images.%d", i), "not a valid image URL (%q)", img)
		}
	}

	if len(p.Categories) == 0 {
		add("categories", "at least one category is required")
	}

	if p.Phone != "" && !phoneRe.MatchString(p.Phone) {
		add("phone", "phone must match tel:+<digits> (%q)", p.Phone)
	}
	if p.Email != "" && !emailRe.MatchString(p.Email) {
		add("email", "not a valid email address (%q)", p.Email)
	}
	if p.Website != "" && !isHTTPURL(p.Website) {
		add("website", "not a valid URL (%q)", p.Website)
	}
	if p.ReservationLink != "" && !isHTTPURL(p.ReservationLink) {
		add("reservationLink", "not a valid URL (%q)", p.ReservationLink)
	}

	return Result{OK: len(issues) == 0, Issues: issues}
}

func validateLang(path string, l domain.LangContent, add func(string, string, ...any)) {
	if l.Name == "" {
		add(path+".name", "name is required")
	}
	if l.Subtitle == "" {
		add(path+".subtitle", "subtitle is required")
	}
	if len(l.Description) == 0 {
		add(path+".description", "at least one description paragraph is required")
	}
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// isImageRef accepts absolute http(s) URLs and the relative asset paths the
// legacy dataset carries ("imagenes/w.jpg", "/slider/home-1.jpg").
func isImageRef(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return false
	}
	if isHTTPURL(s) {
		return true
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme == "" && u.Path != ""
}

// ValidationError carries the full issue list across the service boundary so
// handlers can return a structured 400 body.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid post"
	}
	return fmt.Sprintf("invalid post: %s: %s", e.Issues[0].Path, e.Issues[0].Message)
}
