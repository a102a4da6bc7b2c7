package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/EV9H/renter-x-backend/models"
	"github.com/EV9H/renter-x-backend/transform"
)

const sampleSource = `
name: the-eugene
url: https://www.the-eugene.com/availabilities
parser_type: js
selector_type: class
building_info:
  name: The Eugene
  city: New York
  state: NY
selectors:
  unit_list: ".unit-card"
  unit_data:
    unit_number: ".unit-card__name"
    bedrooms_bathrooms: ".unit-card__type"
    price: ".unit-card__price"
transformers:
  availability_date: transform_date
headers:
  X-Api-Key: ${SCRAPER_TEST_KEY}
`

func writeSource(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write source config: %v", err)
	}
	return path
}

func TestLoadSource(t *testing.T) {
	os.Setenv("SCRAPER_TEST_KEY", "secret-123")
	defer os.Unsetenv("SCRAPER_TEST_KEY")

	src, err := LoadSource(writeSource(t, sampleSource))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if src.Name != "the-eugene" {
		t.Fatalf("unexpected name %q", src.Name)
	}
	if src.ParserType != ParserJS {
		t.Fatalf("unexpected parser type %q", src.ParserType)
	}
	if src.SelectorType != SelectorClass {
		t.Fatalf("unexpected selector type %q", src.SelectorType)
	}
	if src.BuildingInfo.Name != "The Eugene" {
		t.Fatalf("unexpected building %q", src.BuildingInfo.Name)
	}
	if src.Selectors.BedBathDelim != "|" {
		t.Fatalf("expected default delimiter, got %q", src.Selectors.BedBathDelim)
	}
	if src.Headers["X-Api-Key"] != "secret-123" {
		t.Fatalf("expected env-expanded header, got %q", src.Headers["X-Api-Key"])
	}
}

func TestValidate_DefaultTransformers(t *testing.T) {
	src, err := LoadSource(writeSource(t, sampleSource))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	expected := map[string]transform.Kind{
		"unit_number":       transform.KindUnitNumber,
		"bedrooms":          transform.KindBedrooms,
		"bathrooms":         transform.KindBathrooms,
		"price":             transform.KindPrice,
		"area_sqft":         transform.KindSqFt,
		"availability_date": transform.KindDate,
	}
	for field, kind := range expected {
		if got, ok := src.TransformerKinds[field]; !ok || got != kind {
			t.Fatalf("field %q: expected kind %d, got %d (present %v)", field, kind, got, ok)
		}
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := map[string]SourceConfig{
		"missing name": {
			URL: "https://example.com",
		},
		"missing url": {
			Name: "x",
		},
		"bad parser type": {
			Name: "x", URL: "https://example.com", ParserType: "xml",
		},
		"bad selector type": {
			Name: "x", URL: "https://example.com", SelectorType: "xpath",
		},
	}
	for label, src := range cases {
		src := src
		if err := src.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", label)
		}
	}
}

func TestValidate_UnknownTransformer(t *testing.T) {
	body := `
name: broken
url: https://example.com
building_info:
  name: Broken House
selectors:
  unit_list: ".card"
  unit_data:
    unit_number: ".name"
transformers:
  price: extract_gold
`
	if _, err := LoadSource(writeSource(t, body)); err == nil {
		t.Fatalf("expected unknown transformer to fail at load time")
	}
}

func TestValidate_DefaultsParserAndSelector(t *testing.T) {
	src := SourceConfig{
		Name: "x",
		URL:  "https://example.com",
		BuildingInfo: models.BuildingInfo{Name: "X House"},
		Selectors: Selectors{
			UnitList: ".card",
			UnitData: map[string]string{"unit_number": ".name"},
		},
	}
	if err := src.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if src.ParserType != ParserHTML {
		t.Fatalf("expected html default, got %q", src.ParserType)
	}
	if src.SelectorType != SelectorClass {
		t.Fatalf("expected class default, got %q", src.SelectorType)
	}
}
