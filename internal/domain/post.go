package domain

import "time"

// Publication statuses. Anything else normalizes to "" which readers treat
// as published.
const (
	StatusPublished   = "published"
	StatusUnpublished = "unpublished"
)

// Post is the flat bilingual catalog entry served to the UI. This is the
// legacy "flat shape": one record carrying both language blocks, the image
// gallery, free-text category tags and the contact fields.
type Post struct {
	Slug string `json:"slug"`

	ES LangContent `json:"es"`
	EN LangContent `json:"en"`

	Images        []string `json:"images"`
	FeaturedImage string   `json:"featuredImage,omitempty"`

	// Free-text tags, stored uppercased for matching (e.g. "SANTIAGO").
	Categories []string `json:"categories"`

	Website           string `json:"website,omitempty"`
	WebsiteDisplay    string `json:"website_display,omitempty"`
	Instagram         string `json:"instagram,omitempty"`
	InstagramDisplay  string `json:"instagram_display,omitempty"`
	Email             string `json:"email,omitempty"`
	Phone             string `json:"phone,omitempty"` // canonical "tel:+<digits>"
	Address           string `json:"address,omitempty"`
	PhotosCredit      string `json:"photosCredit,omitempty"`
	ReservationLink   string `json:"reservationLink,omitempty"`
	ReservationPolicy string `json:"reservationPolicy,omitempty"`
	InterestingFact   string `json:"interestingFact,omitempty"`
	Hours             string `json:"hours,omitempty"`

	// Secondary branches for multi-location entries.
	Locations []Location `json:"locations,omitempty"`

	PublicationStatus string `json:"publicationStatus,omitempty"`
	PublishStartAt    string `json:"publishStartAt,omitempty"` // RFC3339 or date-only
	PublishEndAt      string `json:"publishEndAt,omitempty"`
}

// LangContent is the per-language block of a Post.
type LangContent struct {
	Name        string   `json:"name"`
	Subtitle    string   `json:"subtitle"`
	Description []string `json:"description"`
	Category    string   `json:"category,omitempty"`
	Location    string   `json:"location,omitempty"`
	Distance    string   `json:"distance,omitempty"`
	Amenities   []string `json:"amenities,omitempty"`
	InfoHTML    string   `json:"infoHtml,omitempty"`
}

// Location is a secondary physical branch with its own contact subset.
type Location struct {
	Name             string `json:"name,omitempty"`
	Address          string `json:"address,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Email            string `json:"email,omitempty"`
	Website          string `json:"website,omitempty"`
	WebsiteDisplay   string `json:"website_display,omitempty"`
	Instagram        string `json:"instagram,omitempty"`
	InstagramDisplay string `json:"instagram_display,omitempty"`
	Hours            string `json:"hours,omitempty"`
	ReservationLink  string `json:"reservationLink,omitempty"`
}

// Cover returns the featured image, falling back to the first gallery entry.
func (p Post) Cover() string {
	if p.FeaturedImage != "" {
		return p.FeaturedImage
	}
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return ""
}

// VisibleAt reports whether the post should appear on public listings at t.
// An unparseable window bound never hides a post.
func (p Post) VisibleAt(t time.Time) bool {
	if p.PublicationStatus == StatusUnpublished {
		return false
	}
	if start, ok := parseWindowBound(p.PublishStartAt, false); ok && t.Before(start) {
		return false
	}
	if end, ok := parseWindowBound(p.PublishEndAt, true); ok && t.After(end) {
		return false
	}
	return true
}

// parseWindowBound accepts RFC3339 timestamps and date-only strings. Date-only
// end bounds cover the whole calendar day (UTC).
func parseWindowBound(s string, endOfDay bool) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if d, err := time.Parse("2006-01-02", s); err == nil {
		if endOfDay {
			return d.Add(24*time.Hour - time.Nanosecond), true
		}
		return d, true
	}
	return time.Time{}, false
}
