package app_test

import (
	"reflect"
	"testing"

	"chileadicto/internal/app"
)

func TestMapLegacyPost_Aliases(t *testing.T) {
	entry := map[string]any{
		"es": map[string]any{
			"nombre":      "W Santiago",
			"bajada":      "Hotel de lujo",
			"descripcion": []any{"parrafo uno", "parrafo dos"},
			"comuna":      "Las Condes",
			"servicios":   []any{"piscina", "spa"},
		},
		"en": map[string]any{
			"name":        "W Santiago",
			"subtitle":    "Luxury hotel",
			"description": []any{"first paragraph"},
		},
		"imagenes": []any{
			map[string]any{"url": "imagenes/w-1.jpg"},
			map[string]any{"src": "imagenes/w-2.jpg"},
			"imagenes/w-3.jpg",
		},
		"categorias":    []any{"hoteles", "santiago"},
		"telefono":      "+56 2 2770 0000",
		"correo":        "hola@w.cl",
		"sitio_web":     "wsantiago.cl",
		"horario":       "Lun-Dom 9:00-23:00",
		"dato_curioso":  "el bar del piso 21",
		"credito_fotos": "Marriott",
		"portada":       "imagenes/w-1.jpg",
		"estado":        "published",
	}

	p := app.MapLegacyPost("w-santiago", entry)

	if p.Slug != "w-santiago" {
		t.Errorf("slug = %q", p.Slug)
	}
	if p.ES.Name != "W Santiago" || p.ES.Subtitle != "Hotel de lujo" {
		t.Errorf("es block = %+v", p.ES)
	}
	if got, want := p.ES.Description, []string{"parrafo uno", "parrafo dos"}; !reflect.DeepEqual(got, want) {
		t.Errorf("es.description = %v", got)
	}
	if p.ES.Location != "Las Condes" {
		t.Errorf("es.location = %q", p.ES.Location)
	}
	if got, want := p.ES.Amenities, []string{"piscina", "spa"}; !reflect.DeepEqual(got, want) {
		t.Errorf("es.amenities = %v", got)
	}
	if got, want := p.Images, []string{"imagenes/w-1.jpg", "imagenes/w-2.jpg", "imagenes/w-3.jpg"}; !reflect.DeepEqual(got, want) {
		t.Errorf("images = %v, want %v", got, want)
	}
	if got, want := p.Categories, []string{"hoteles", "santiago"}; !reflect.DeepEqual(got, want) {
		t.Errorf("categories = %v", got)
	}
	if p.Phone != "+56 2 2770 0000" {
		t.Errorf("phone = %q (mapper must not normalize)", p.Phone)
	}
	if p.Email != "hola@w.cl" || p.Website != "wsantiago.cl" {
		t.Errorf("contact = %q / %q", p.Email, p.Website)
	}
	if p.Hours != "Lun-Dom 9:00-23:00" || p.InterestingFact != "el bar del piso 21" {
		t.Errorf("hours/fact = %q / %q", p.Hours, p.InterestingFact)
	}
	if p.PhotosCredit != "Marriott" || p.FeaturedImage != "imagenes/w-1.jpg" {
		t.Errorf("credit/featured = %q / %q", p.PhotosCredit, p.FeaturedImage)
	}
	if p.PublicationStatus != "published" {
		t.Errorf("publicationStatus = %q", p.PublicationStatus)
	}
}

func TestMapLegacyPost_SlugFallsBackToEntry(t *testing.T) {
	p := app.MapLegacyPost("", map[string]any{"slug": "from-entry"})
	if p.Slug != "from-entry" {
		t.Errorf("slug = %q", p.Slug)
	}
}

func TestMapLegacyPost_Locations(t *testing.T) {
	entry := map[string]any{
		"locations": []any{
			map[string]any{
				"name":      "Vitacura",
				"direccion": "Av. Vitacura 1234",
				"telefono":  "+56 2 111 2222",
			},
			"not an object", // skipped
		},
	}
	p := app.MapLegacyPost("x", entry)
	if len(p.Locations) != 1 {
		t.Fatalf("locations = %+v", p.Locations)
	}
	loc := p.Locations[0]
	if loc.Name != "Vitacura" || loc.Address != "Av. Vitacura 1234" || loc.Phone != "+56 2 111 2222" {
		t.Errorf("location = %+v", loc)
	}
}

func TestMapLegacyPost_MissingFieldsStayEmpty(t *testing.T) {
	p := app.MapLegacyPost("bare", map[string]any{})
	if p.Slug != "bare" {
		t.Errorf("slug = %q", p.Slug)
	}
	if len(p.Images) != 0 || len(p.Categories) != 0 || p.Phone != "" {
		t.Errorf("expected empty fields, got %+v", p)
	}
}
