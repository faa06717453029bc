package postgrest

import (
	"sort"

	"chileadicto/internal/domain"
)

/********** row shapes **********/

// Optional columns are pointers: a deployment missing a column simply never
// sends it, and the mapper treats that the same as NULL.

type idRow struct {
	ID int64 `json:"id"`
}

type postIDRow struct {
	PostID int64 `json:"post_id"`
}

type categoryRow struct {
	ID      int64   `json:"id"`
	Slug    string  `json:"slug"`
	LabelES *string `json:"label_es"`
	LabelEN *string `json:"label_en"`
}

type postRow struct {
	ID                int64   `json:"id"`
	Slug              string  `json:"slug"`
	Website           *string `json:"website"`
	WebsiteDisplay    *string `json:"website_display"`
	Instagram         *string `json:"instagram"`
	InstagramDisplay  *string `json:"instagram_display"`
	Email             *string `json:"email"`
	Phone             *string `json:"phone"`
	Address           *string `json:"address"`
	PhotosCredit      *string `json:"photos_credit"`
	ReservationLink   *string `json:"reservation_link"`
	ReservationPolicy *string `json:"reservation_policy"`
	InterestingFact   *string `json:"interesting_fact"`
	Hours             *string `json:"hours"`
	FeaturedImage     *string `json:"featured_image"`
	PublicationStatus *string `json:"publication_status"`
	PublishStartAt    *string `json:"publish_start_at"`
	PublishEndAt      *string `json:"publish_end_at"`

	Translations []translationRow  `json:"post_translations"`
	Images       []imageRow        `json:"post_images"`
	Locations    []locationRow     `json:"post_locations"`
	Categories   []categoryLinkRow `json:"post_categories"`
}

type translationRow struct {
	Lang        string   `json:"lang"`
	Name        *string  `json:"name"`
	Subtitle    *string  `json:"subtitle"`
	Description []string `json:"description"`
	Category    *string  `json:"category"`
	Location    *string  `json:"location"`
	Distance    *string  `json:"distance"`
	Amenities   []string `json:"amenities"`
	InfoHTML    *string  `json:"info_html"`
}

type imageRow struct {
	URL      string `json:"url"`
	Position int    `json:"position"`
}

type locationRow struct {
	Position         int     `json:"position"`
	Name             *string `json:"name"`
	Address          *string `json:"address"`
	Phone            *string `json:"phone"`
	Email            *string `json:"email"`
	Website          *string `json:"website"`
	WebsiteDisplay   *string `json:"website_display"`
	Instagram        *string `json:"instagram"`
	InstagramDisplay *string `json:"instagram_display"`
	Hours            *string `json:"hours"`
	ReservationLink  *string `json:"reservation_link"`
}

type categoryLinkRow struct {
	Category *categoryRow `json:"category"`
}

/********** domain -> rows **********/

// nullable keeps empty strings out of payloads so remote columns stay NULL
// instead of "".
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func basePostRow(p domain.Post) map[string]any {
	return map[string]any{
		"slug":               p.Slug,
		"website":            nullable(p.Website),
		"website_display":    nullable(p.WebsiteDisplay),
		"instagram":          nullable(p.Instagram),
		"instagram_display":  nullable(p.InstagramDisplay),
		"email":              nullable(p.Email),
		"phone":              nullable(p.Phone),
		"address":            nullable(p.Address),
		"photos_credit":      nullable(p.PhotosCredit),
		"reservation_link":   nullable(p.ReservationLink),
		"reservation_policy": nullable(p.ReservationPolicy),
		"interesting_fact":   nullable(p.InterestingFact),
		"hours":              nullable(p.Hours),
		"featured_image":     nullable(p.FeaturedImage),
		"publication_status": nullable(p.PublicationStatus),
		"publish_start_at":   nullable(p.PublishStartAt),
		"publish_end_at":     nullable(p.PublishEndAt),
	}
}

func translationRowFor(id int64, lang string, l domain.LangContent) map[string]any {
	return map[string]any{
		"post_id":     id,
		"lang":        lang,
		"name":        l.Name,
		"subtitle":    l.Subtitle,
		"description": l.Description,
		"category":    nullable(l.Category),
		"location":    nullable(l.Location),
		"distance":    nullable(l.Distance),
		"amenities":   l.Amenities,
		"info_html":   nullable(l.InfoHTML),
	}
}

func locationRowFor(id int64, position int, l domain.Location) map[string]any {
	return map[string]any{
		"post_id":           id,
		"position":          position,
		"name":              nullable(l.Name),
		"address":           nullable(l.Address),
		"phone":             nullable(l.Phone),
		"email":             nullable(l.Email),
		"website":           nullable(l.Website),
		"website_display":   nullable(l.WebsiteDisplay),
		"instagram":         nullable(l.Instagram),
		"instagram_display": nullable(l.InstagramDisplay),
		"hours":             nullable(l.Hours),
		"reservation_link":  nullable(l.ReservationLink),
	}
}

/********** rows -> domain **********/

// mapPostRow flattens the relational read shape back into the bilingual Post
// the UI consumes. A missing translation becomes an all-empty block, never a
// nil.
func mapPostRow(row postRow) domain.Post {
	p := domain.Post{
		Slug:              row.Slug,
		Website:           deref(row.Website),
		WebsiteDisplay:    deref(row.WebsiteDisplay),
		Instagram:         deref(row.Instagram),
		InstagramDisplay:  deref(row.InstagramDisplay),
		Email:             deref(row.Email),
		Phone:             deref(row.Phone),
		Address:           deref(row.Address),
		PhotosCredit:      deref(row.PhotosCredit),
		ReservationLink:   deref(row.ReservationLink),
		ReservationPolicy: deref(row.ReservationPolicy),
		InterestingFact:   deref(row.InterestingFact),
		Hours:             deref(row.Hours),
		FeaturedImage:     deref(row.FeaturedImage),
		PublicationStatus: deref(row.PublicationStatus),
		PublishStartAt:    deref(row.PublishStartAt),
		PublishEndAt:      deref(row.PublishEndAt),
	}

	p.ES = mapTranslation(row.Translations, "es")
	p.EN = mapTranslation(row.Translations, "en")

	imgs := append([]imageRow(nil), row.Images...)
	sort.SliceStable(imgs, func(i, j int) bool { return imgs[i].Position < imgs[j].Position })
	p.Images = make([]string, 0, len(imgs))
	for _, im := range imgs {
		p.Images = append(p.Images, im.URL)
	}

	locs := append([]locationRow(nil), row.Locations...)
	sort.SliceStable(locs, func(i, j int) bool { return locs[i].Position < locs[j].Position })
	for _, lr := range locs {
		p.Locations = append(p.Locations, domain.Location{
			Name:             deref(lr.Name),
			Address:          deref(lr.Address),
			Phone:            deref(lr.Phone),
			Email:            deref(lr.Email),
			Website:          deref(lr.Website),
			WebsiteDisplay:   deref(lr.WebsiteDisplay),
			Instagram:        deref(lr.Instagram),
			InstagramDisplay: deref(lr.InstagramDisplay),
			Hours:            deref(lr.Hours),
			ReservationLink:  deref(lr.ReservationLink),
		})
	}

	p.Categories = make([]string, 0, len(row.Categories))
	for _, link := range row.Categories {
		if link.Category == nil {
			continue
		}
		label := link.Category.Slug
		if link.Category.LabelES != nil && *link.Category.LabelES != "" {
			label = *link.Category.LabelES
		}
		p.Categories = append(p.Categories, label)
	}

	return p
}

func mapTranslation(rows []translationRow, lang string) domain.LangContent {
	for _, tr := range rows {
		if tr.Lang != lang {
			continue
		}
		l := domain.LangContent{
			Name:        deref(tr.Name),
			Subtitle:    deref(tr.Subtitle),
			Description: tr.Description,
			Category:    deref(tr.Category),
			Location:    deref(tr.Location),
			Distance:    deref(tr.Distance),
			Amenities:   tr.Amenities,
			InfoHTML:    deref(tr.InfoHTML),
		}
		if l.Description == nil {
			l.Description = []string{}
		}
		return l
	}
	return domain.LangContent{Description: []string{}}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
