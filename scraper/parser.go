package scraper

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/EV9H/renter-x-backend/config"
	"github.com/EV9H/renter-x-backend/models"
	"github.com/EV9H/renter-x-backend/transform"
)

// bathroomFallback is substituted for the bathroom half of a combined
// bedrooms/bathrooms field when the delimiter is absent (studio cards
// often print only "Studio").
const bathroomFallback = "1 Bathroom"

// ParseUnits extracts one RawUnit per detected listing element. A
// malformed container is skipped with a warning; only a page with zero
// usable containers is an error.
func ParseUnits(body string, cfg *config.SourceConfig) ([]models.RawUnit, error) {
	if cfg.ParserType == config.ParserAPI {
		return parseAPIResponse(body, cfg)
	}
	return parseDocument(body, cfg)
}

func parseDocument(body string, cfg *config.SourceConfig) ([]models.RawUnit, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, &ParseError{Source: cfg.Name, Reason: fmt.Sprintf("parse html: %v", err)}
	}

	containers := doc.Find(cfg.Selectors.UnitList)
	log.Printf("[%s] Found %d potential units", cfg.Name, containers.Length())
	if containers.Length() == 0 {
		return nil, &ParseError{Source: cfg.Name, Reason: "no unit containers matched"}
	}

	var units []models.RawUnit
	containers.Each(func(i int, container *goquery.Selection) {
		var unit models.RawUnit
		if cfg.SelectorType == config.SelectorAttribute {
			unit = parseAttributeContainer(container, cfg)
		} else {
			unit = parseSelectorContainer(container, cfg)
		}

		if len(unit) == 0 {
			log.Printf("[%s] Warning: skipping empty container %d", cfg.Name, i)
			return
		}
		units = append(units, unit)
	})

	if len(units) == 0 {
		return nil, &ParseError{Source: cfg.Name, Reason: "no usable unit containers"}
	}
	return units, nil
}

// parseSelectorContainer reads child-element text for every configured
// field selector, collapsing internal whitespace. A combined
// "bedrooms_bathrooms" field is split on the configured delimiter.
func parseSelectorContainer(container *goquery.Selection, cfg *config.SourceConfig) models.RawUnit {
	unit := make(models.RawUnit)

	for field, selector := range cfg.Selectors.UnitData {
		el := container.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		text := transform.CleanText(el.Text())
		if text == "" {
			continue
		}

		if field == "bedrooms_bathrooms" {
			beds, baths := splitBedBath(text, cfg.Selectors.BedBathDelim)
			unit["bedrooms"] = beds
			unit["bathrooms"] = baths
			continue
		}
		unit[field] = text
	}

	return unit
}

// parseAttributeContainer reads values directly from attributes of the
// matched container; the configured "selector" is the attribute name.
func parseAttributeContainer(container *goquery.Selection, cfg *config.SourceConfig) models.RawUnit {
	unit := make(models.RawUnit)

	for field, attr := range cfg.Selectors.UnitData {
		val, exists := container.Attr(attr)
		if !exists {
			continue
		}
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		unit[field] = val
	}

	return unit
}

func splitBedBath(text, delim string) (string, string) {
	parts := strings.SplitN(text, delim, 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(text), bathroomFallback
}

// parseAPIResponse walks a JSON payload using dotted paths from the
// mapping config: unit_list locates the array of units, each unit_data
// entry locates a field within one unit object.
func parseAPIResponse(body string, cfg *config.SourceConfig) ([]models.RawUnit, error) {
	var payload any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, &ParseError{Source: cfg.Name, Reason: fmt.Sprintf("parse json: %v", err)}
	}

	listVal := resolvePath(payload, cfg.Selectors.UnitList)
	rawList, ok := listVal.([]any)
	if !ok || len(rawList) == 0 {
		return nil, &ParseError{Source: cfg.Name, Reason: "unit list path matched no array"}
	}

	var units []models.RawUnit
	for i, item := range rawList {
		unit := make(models.RawUnit)
		for field, path := range cfg.Selectors.UnitData {
			if val := resolvePath(item, path); val != nil {
				unit[field] = stringify(val)
			}
		}
		if len(unit) == 0 {
			log.Printf("[%s] Warning: skipping empty API record %d", cfg.Name, i)
			continue
		}
		units = append(units, unit)
	}

	if len(units) == 0 {
		return nil, &ParseError{Source: cfg.Name, Reason: "no usable unit records"}
	}
	return units, nil
}

func resolvePath(v any, path string) any {
	for _, key := range strings.Split(path, ".") {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v, ok = m[key]
		if !ok {
			return nil
		}
	}
	return v
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return ""
	}
}
