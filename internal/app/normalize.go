package app

import (
	"regexp"
	"strings"
	"time"

	"chileadicto/internal/domain"
)

// Value normalizers. All of these are pure and never fail: ambiguous input is
// returned unchanged (or emptied) and left for validation to judge.

var bareDomainRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]*(\.[A-Za-z0-9-]+)+(/\S*)?$`)

// NormalizeURL passes http(s) URLs through and prefixes https:// onto bare
// domains like "example.cl/menu". Anything else is returned as typed.
func NormalizeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	if bareDomainRe.MatchString(s) {
		return "https://" + s
	}
	return s
}

// NormalizePhone canonicalizes to "tel:+<digits>". A leading + survives, every
// other non-digit is stripped. No digits left means the field is omitted.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "tel:")
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || out == "+" {
		return ""
	}
	return "tel:" + out
}

func NormalizeEmail(s string) string {
	return strings.TrimSpace(s)
}

var dateOnlyRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// NormalizeDate keeps date-only strings as calendar dates, interprets the
// datetime-local form in the runtime's local timezone, and converts any other
// parseable timestamp to RFC3339 UTC. Unparseable input is returned unchanged.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if dateOnlyRe.MatchString(s) {
		return s
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", s, time.Local); err == nil {
		return t.UTC().Format(time.RFC3339)
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		time.RFC1123Z,
		time.RFC1123,
	} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return s
}

// Slugify derives a lowercase-kebab-case slug from a display name.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	dash := true // swallow leading separators
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// NormalizePost produces the canonical Post a submission must pass through
// before validation and storage. Idempotent: normalizing its own output is a
// no-op.
func NormalizePost(p domain.Post) domain.Post {
	out := p

	out.Slug = strings.TrimSpace(p.Slug)
	if out.Slug == "" {
		if name := strings.TrimSpace(p.ES.Name); name != "" {
			out.Slug = Slugify(name)
		} else {
			out.Slug = Slugify(p.EN.Name)
		}
	}

	out.ES = normalizeLang(p.ES)
	out.EN = normalizeLang(p.EN)

	out.Images = dedupeStrings(trimNonEmpty(p.Images))
	out.FeaturedImage = strings.TrimSpace(p.FeaturedImage)

	cats := trimNonEmpty(p.Categories)
	for i, c := range cats {
		cats[i] = strings.ToUpper(c)
	}
	out.Categories = dedupeStrings(cats)

	out.Website = NormalizeURL(p.Website)
	out.WebsiteDisplay = strings.TrimSpace(p.WebsiteDisplay)
	out.Instagram = NormalizeURL(p.Instagram)
	out.InstagramDisplay = strings.TrimSpace(p.InstagramDisplay)
	out.Email = NormalizeEmail(p.Email)
	out.Phone = NormalizePhone(p.Phone)
	out.Address = strings.TrimSpace(p.Address)
	out.PhotosCredit = strings.TrimSpace(p.PhotosCredit)
	out.ReservationLink = NormalizeURL(p.ReservationLink)
	out.ReservationPolicy = strings.TrimSpace(p.ReservationPolicy)
	out.InterestingFact = strings.TrimSpace(p.InterestingFact)
	out.Hours = strings.TrimSpace(p.Hours)

	out.Locations = nil
	for _, loc := range p.Locations {
		n := normalizeLocation(loc)
		if n != (domain.Location{}) {
			out.Locations = append(out.Locations, n)
		}
	}

	switch strings.ToLower(strings.TrimSpace(p.PublicationStatus)) {
	case domain.StatusPublished:
		out.PublicationStatus = domain.StatusPublished
	case domain.StatusUnpublished:
		out.PublicationStatus = domain.StatusUnpublished
	default:
		// unknown value -> system default (published) chosen by readers
		out.PublicationStatus = ""
	}
	out.PublishStartAt = NormalizeDate(p.PublishStartAt)
	out.PublishEndAt = NormalizeDate(p.PublishEndAt)

	return out
}

func normalizeLang(l domain.LangContent) domain.LangContent {
	return domain.LangContent{
		Name:        strings.TrimSpace(l.Name),
		Subtitle:    strings.TrimSpace(l.Subtitle),
		Description: trimNonEmpty(l.Description),
		Category:    strings.TrimSpace(l.Category),
		Location:    strings.TrimSpace(l.Location),
		Distance:    strings.TrimSpace(l.Distance),
		Amenities:   trimNonEmpty(l.Amenities),
		InfoHTML:    strings.TrimSpace(l.InfoHTML),
	}
}

func normalizeLocation(l domain.Location) domain.Location {
	return domain.Location{
		Name:             strings.TrimSpace(l.Name),
		Address:          strings.TrimSpace(l.Address),
		Phone:            NormalizePhone(l.Phone),
		Email:            NormalizeEmail(l.Email),
		Website:          NormalizeURL(l.Website),
		WebsiteDisplay:   strings.TrimSpace(l.WebsiteDisplay),
		Instagram:        NormalizeURL(l.Instagram),
		InstagramDisplay: strings.TrimSpace(l.InstagramDisplay),
		Hours:            strings.TrimSpace(l.Hours),
		ReservationLink:  NormalizeURL(l.ReservationLink),
	}
}

func trimNonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// dedupeStrings drops exact duplicates, keeping first-seen order.
func dedupeStrings(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
