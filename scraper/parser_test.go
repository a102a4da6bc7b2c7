package scraper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/EV9H/renter-x-backend/config"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return string(data)
}

func selectorConfig() *config.SourceConfig {
	src := &config.SourceConfig{
		Name:         "the-eugene",
		URL:          "https://example.com/availabilities",
		ParserType:   config.ParserHTML,
		SelectorType: config.SelectorClass,
		Selectors: config.Selectors{
			UnitList:     ".unit-card",
			BedBathDelim: "|",
			UnitData: map[string]string{
				"unit_number":        ".unit-card__name",
				"bedrooms_bathrooms": ".unit-card__type",
				"price":              ".unit-card__price",
				"area_sqft":          ".unit-card__sqft",
				"availability_date":  ".unit-card__available",
				"features":           ".unit-card__features",
			},
		},
	}
	return src
}

func TestParseUnits_SelectorPage(t *testing.T) {
	body := loadFixture(t, "selector_page.html")

	units, err := ParseUnits(body, selectorConfig())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units (empty card skipped), got %d", len(units))
	}

	first := units[0]
	if first["unit_number"] != "Residence 12A" {
		t.Fatalf("unexpected unit number %q", first["unit_number"])
	}
	if first["bedrooms"] != "2 Bedroom" {
		t.Fatalf("unexpected bedrooms %q", first["bedrooms"])
	}
	if first["bathrooms"] != "2 Bathroom" {
		t.Fatalf("unexpected bathrooms %q", first["bathrooms"])
	}
	if first["price"] != "$5,450/month" {
		t.Fatalf("unexpected price %q", first["price"])
	}
	if first["availability_date"] != "January 2, 2026" {
		t.Fatalf("unexpected availability %q", first["availability_date"])
	}
	if first["features"] != "Dishwasher, Balcony" {
		t.Fatalf("unexpected features %q", first["features"])
	}
}

func TestParseUnits_CombinedBedBathFallback(t *testing.T) {
	body := loadFixture(t, "selector_page.html")

	units, err := ParseUnits(body, selectorConfig())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	// Studio card has no delimiter; bathroom half falls back
	studio := units[1]
	if studio["bedrooms"] != "Studio" {
		t.Fatalf("unexpected bedrooms %q", studio["bedrooms"])
	}
	if studio["bathrooms"] != "1 Bathroom" {
		t.Fatalf("unexpected bathroom fallback %q", studio["bathrooms"])
	}
}

func TestParseUnits_AttributePage(t *testing.T) {
	body := loadFixture(t, "attribute_page.html")
	src := &config.SourceConfig{
		Name:         "the-wexford",
		ParserType:   config.ParserHTML,
		SelectorType: config.SelectorAttribute,
		Selectors: config.Selectors{
			UnitList: "li[data-unit]",
			UnitData: map[string]string{
				"unit_number": "data-unit",
				"bedrooms":    "data-beds",
				"bathrooms":   "data-baths",
				"price":       "data-rent",
				"area_sqft":   "data-sqft",
			},
		},
	}

	units, err := ParseUnits(body, src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if units[0]["unit_number"] != "905" {
		t.Fatalf("unexpected unit number %q", units[0]["unit_number"])
	}
	if units[1]["bathrooms"] != "2.5" {
		t.Fatalf("unexpected bathrooms %q", units[1]["bathrooms"])
	}
	if units[1]["price"] != "$12,500" {
		t.Fatalf("unexpected price %q", units[1]["price"])
	}
}

func TestParseUnits_APIResponse(t *testing.T) {
	body := loadFixture(t, "api_response.json")
	src := &config.SourceConfig{
		Name:       "hudson-house",
		ParserType: config.ParserAPI,
		Selectors: config.Selectors{
			UnitList: "data.units",
			UnitData: map[string]string{
				"unit_number":       "unitNumber",
				"bedrooms":          "bedroomCount",
				"bathrooms":         "bathroomCount",
				"price":             "rent.formatted",
				"area_sqft":         "squareFeet",
				"availability_date": "availableOn",
			},
		},
	}

	units, err := ParseUnits(body, src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if units[0]["unit_number"] != "22B" {
		t.Fatalf("unexpected unit number %q", units[0]["unit_number"])
	}
	if units[0]["price"] != "$6,150" {
		t.Fatalf("unexpected price %q", units[0]["price"])
	}
	if units[0]["bedrooms"] != "2" {
		t.Fatalf("unexpected bedrooms %q", units[0]["bedrooms"])
	}
	if units[1]["bedrooms"] != "0" {
		t.Fatalf("unexpected studio bedrooms %q", units[1]["bedrooms"])
	}
	if units[1]["availability_date"] != "2026-01-15" {
		t.Fatalf("unexpected availability %q", units[1]["availability_date"])
	}
}

func TestParseUnits_NoContainers(t *testing.T) {
	src := selectorConfig()
	_, err := ParseUnits("<html><body><p>maintenance page</p></body></html>", src)
	if err == nil {
		t.Fatalf("expected error for page with no unit containers")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("expected ParseError, got %T", err)
	}
}

func TestParseUnits_BadJSON(t *testing.T) {
	src := &config.SourceConfig{
		Name:       "hudson-house",
		ParserType: config.ParserAPI,
		Selectors: config.Selectors{
			UnitList: "data.units",
			UnitData: map[string]string{"unit_number": "unitNumber"},
		},
	}
	if _, err := ParseUnits("<html>not json</html>", src); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}
