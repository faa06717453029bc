package app

import (
	"strings"

	"chileadicto/internal/domain"
)

/********** alias registries (single source of truth) **********/

// The legacy dataset grew by hand over years; the same field shows up under
// several spellings depending on when an entry was added.

var contactAliases = map[string][]string{
	"website":           {"website", "web", "url", "sitio_web"},
	"website_display":   {"website_display", "websiteDisplay", "web_display"},
	"instagram":         {"instagram", "ig", "instagram_url"},
	"instagram_display": {"instagram_display", "instagramDisplay", "ig_display"},
	"email":             {"email", "mail", "correo"},
	"phone":             {"phone", "telefono", "tel", "phone_number"},
	"address":           {"address", "direccion", "ubicacion.direccion"},
	"photos_credit":     {"photosCredit", "photos_credit", "credito_fotos"},
	"reservation_link":  {"reservationLink", "reservation_link", "reservas"},
	"reservation_policy": {
		"reservationPolicy", "reservation_policy", "politica_reservas",
	},
	"interesting_fact": {"interestingFact", "interesting_fact", "dato_curioso"},
	"hours":            {"hours", "horario", "horarios"},
	"featured_image":   {"featuredImage", "featured_image", "portada"},
	"publish_status":   {"publicationStatus", "publication_status", "estado"},
	"publish_start":    {"publishStartAt", "publish_start_at"},
	"publish_end":      {"publishEndAt", "publish_end_at"},
}

var langAliases = map[string][]string{
	"name":        {"name", "nombre", "title", "titulo"},
	"subtitle":    {"subtitle", "subtitulo", "bajada"},
	"description": {"description", "descripcion", "parrafos"},
	"category":    {"category", "categoria"},
	"location":    {"location", "ubicacion", "comuna"},
	"distance":    {"distance", "distancia"},
	"amenities":   {"amenities", "servicios", "comodidades"},
	"info_html":   {"infoHtml", "info_html", "infoHTML"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstAlias: first non-empty string for a named alias set.
func firstAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// firstStrings accepts []any holding strings or {url/src} objects, or a lone
// string, at the first matching path.
func firstStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		switch raw := lookupAny(m, k).(type) {
		case []any:
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if t != "" {
						out = append(out, t)
					}
				case map[string]any:
					if u, ok := t["url"].(string); ok && u != "" {
						out = append(out, u)
					} else if u, ok := t["src"].(string); ok && u != "" {
						out = append(out, u)
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		case string:
			if raw != "" {
				return []string{raw}
			}
		}
	}
	return nil
}

/********** legacy dataset mapper **********/

// MapLegacyPost converts one loosely-typed legacy dataset entry into a Post
// submission. The result still goes through NormalizePost/ValidatePost; this
// only reshapes, it does not canonicalize values.
func MapLegacyPost(slug string, m map[string]any) domain.Post {
	p := domain.Post{
		Slug:              firstOf(slug, lookupStr(m, "slug")),
		Images:            firstStrings(m, "images", "imagenes", "fotos", "gallery"),
		FeaturedImage:     firstAlias(m, contactAliases, "featured_image"),
		Categories:        firstStrings(m, "categories", "categorias", "tags"),
		Website:           firstAlias(m, contactAliases, "website"),
		WebsiteDisplay:    firstAlias(m, contactAliases, "website_display"),
		Instagram:         firstAlias(m, contactAliases, "instagram"),
		InstagramDisplay:  firstAlias(m, contactAliases, "instagram_display"),
		Email:             firstAlias(m, contactAliases, "email"),
		Phone:             firstAlias(m, contactAliases, "phone"),
		Address:           firstAlias(m, contactAliases, "address"),
		PhotosCredit:      firstAlias(m, contactAliases, "photos_credit"),
		ReservationLink:   firstAlias(m, contactAliases, "reservation_link"),
		ReservationPolicy: firstAlias(m, contactAliases, "reservation_policy"),
		InterestingFact:   firstAlias(m, contactAliases, "interesting_fact"),
		Hours:             firstAlias(m, contactAliases, "hours"),
		PublicationStatus: firstAlias(m, contactAliases, "publish_status"),
		PublishStartAt:    firstAlias(m, contactAliases, "publish_start"),
		PublishEndAt:      firstAlias(m, contactAliases, "publish_end"),
	}

	if block, ok := lookupAny(m, "es").(map[string]any); ok {
		p.ES = mapLegacyLang(block)
	}
	if block, ok := lookupAny(m, "en").(map[string]any); ok {
		p.EN = mapLegacyLang(block)
	}

	if raw, ok := lookupAny(m, "locations").([]any); ok {
		for _, it := range raw {
			lm, ok := it.(map[string]any)
			if !ok {
				continue
			}
			p.Locations = append(p.Locations, domain.Location{
				Name:             lookupStr(lm, "name"),
				Address:          firstAlias(lm, contactAliases, "address"),
				Phone:            firstAlias(lm, contactAliases, "phone"),
				Email:            firstAlias(lm, contactAliases, "email"),
				Website:          firstAlias(lm, contactAliases, "website"),
				WebsiteDisplay:   firstAlias(lm, contactAliases, "website_display"),
				Instagram:        firstAlias(lm, contactAliases, "instagram"),
				InstagramDisplay: firstAlias(lm, contactAliases, "instagram_display"),
				Hours:            firstAlias(lm, contactAliases, "hours"),
				ReservationLink:  firstAlias(lm, contactAliases, "reservation_link"),
			})
		}
	}

	return p
}

func mapLegacyLang(m map[string]any) domain.LangContent {
	return domain.LangContent{
		Name:        firstAlias(m, langAliases, "name"),
		Subtitle:    firstAlias(m, langAliases, "subtitle"),
		Description: firstStrings(m, langAliases["description"]...),
		Category:    firstAlias(m, langAliases, "category"),
		Location:    firstAlias(m, langAliases, "location"),
		Distance:    firstAlias(m, langAliases, "distance"),
		Amenities:   firstStrings(m, langAliases["amenities"]...),
		InfoHTML:    firstAlias(m, langAliases, "info_html"),
	}
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
