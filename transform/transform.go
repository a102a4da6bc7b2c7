// Package transform maps raw extracted strings to typed domain values.
// Every function is total: unparseable input yields a documented default,
// never an error. Which transformer applies to which field is decided by
// the per-source config, not by code here.
package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind identifies a transformer. Config documents name transformers by
// string; ParseKind resolves those at load time so an unknown name is a
// config error, not a runtime lookup failure.
type Kind int

const (
	KindString Kind = iota
	KindCleanText
	KindUnitNumber
	KindBedrooms
	KindBathrooms
	KindPrice
	KindSqFt
	KindDate
)

var kindNames = map[string]Kind{
	"extract_string":      KindString,
	"clean_text":          KindCleanText,
	"extract_unit_number": KindUnitNumber,
	"extract_bedrooms":    KindBedrooms,
	"extract_bathrooms":   KindBathrooms,
	"extract_price":       KindPrice,
	"extract_sqft":        KindSqFt,
	"transform_date":      KindDate,
}

// UnknownTransformerError reports a transformer name that is not
// registered. Raised at config load time.
type UnknownTransformerError struct {
	Name string
}

func (e *UnknownTransformerError) Error() string {
	return fmt.Sprintf("unknown transformer: %q", e.Name)
}

// ParseKind resolves a config transformer name to its Kind.
func ParseKind(name string) (Kind, error) {
	k, ok := kindNames[name]
	if !ok {
		return 0, &UnknownTransformerError{Name: name}
	}
	return k, nil
}

// Apply dispatches raw through the transformer for kind. The dynamic
// type of the result depends on the kind: string, float64, int64, int,
// or *time.Time.
func Apply(kind Kind, raw string) any {
	switch kind {
	case KindCleanText:
		return CleanText(raw)
	case KindUnitNumber:
		return UnitNumber(raw)
	case KindBedrooms:
		return Bedrooms(raw)
	case KindBathrooms:
		return Bathrooms(raw)
	case KindPrice:
		return PriceCents(raw)
	case KindSqFt:
		return SqFt(raw)
	case KindDate:
		return Date(raw)
	default:
		return strings.TrimSpace(raw)
	}
}

var (
	bedroomsRe  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:Bedroom|bed|Bd)`)
	bathroomsRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:Bathroom|bath|Ba)`)
	priceRe     = regexp.MustCompile(`\$([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
	numberRe    = regexp.MustCompile(`\d+(?:\.\d+)?`)
	digitsRe    = regexp.MustCompile(`\d+`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// CleanText collapses internal whitespace and trims the result.
func CleanText(raw string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
}

// UnitNumber strips marketing prefixes from a unit identifier,
// e.g. "Residence 12A" -> "12A".
func UnitNumber(raw string) string {
	s := CleanText(raw)
	for _, prefix := range []string{"Residence", "Unit", "Apt", "#"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
			break
		}
	}
	return s
}

// Bedrooms parses a bedroom count. "Studio" -> 0, bare numerics pass
// through, "2 Bedroom"/"2 bed"/"2 Bd" -> 2, any leading digit run as a
// last resort, else 0.
func Bedrooms(raw string) float64 {
	if strings.Contains(strings.ToLower(raw), "studio") {
		return 0
	}
	s := strings.TrimSpace(raw)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if m := bedroomsRe.FindStringSubmatch(raw); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return v
	}
	if m := numberRe.FindString(raw); m != "" {
		v, _ := strconv.ParseFloat(m, 64)
		return v
	}
	return 0
}

// Bathrooms parses a bathroom count, supporting half baths
// ("2.5 Bathroom" -> 2.5). Defaults to 1 when nothing parses.
func Bathrooms(raw string) float64 {
	s := strings.TrimSpace(raw)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if m := bathroomsRe.FindStringSubmatch(raw); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return v
	}
	if m := numberRe.FindString(raw); m != "" {
		v, _ := strconv.ParseFloat(m, 64)
		return v
	}
	return 1
}

// PriceCents extracts the first dollar-amount token and returns it in
// whole cents, e.g. "$1,950" -> 195000. Returns 0 when absent.
func PriceCents(raw string) int64 {
	m := priceRe.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}
	s := strings.ReplaceAll(m[1], ",", "")
	dollars := s
	cents := "00"
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		dollars = s[:idx]
		cents = s[idx+1:]
		if len(cents) == 1 {
			cents += "0"
		}
	}
	d, err := strconv.ParseInt(dollars, 10, 64)
	if err != nil {
		return 0
	}
	c, err := strconv.ParseInt(cents, 10, 64)
	if err != nil {
		return 0
	}
	return d*100 + c
}

// SqFt extracts an integer square footage, 0 if unknown.
func SqFt(raw string) int {
	m := digitsRe.FindString(strings.ReplaceAll(raw, ",", ""))
	if m == "" {
		return 0
	}
	v, _ := strconv.Atoi(m)
	return v
}

// Date parses an availability date like "January 2, 2026". Returns nil
// when the text does not parse.
func Date(raw string) *time.Time {
	for _, layout := range []string{"January 2, 2006", "Jan 2, 2006", "2006-01-02", "01/02/2006"} {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return &t
		}
	}
	return nil
}

// FloorFromUnitNumber derives a floor from a unit identifier: "PH" units
// map to 99, otherwise the first two digits of the leading numeric run
// of the first dash-separated segment. Defaults to 1.
func FloorFromUnitNumber(unitNumber string) int {
	if strings.Contains(strings.ToUpper(unitNumber), "PH") {
		return 99
	}
	segment := unitNumber
	if idx := strings.IndexByte(segment, '-'); idx >= 0 {
		segment = segment[:idx]
	}
	digits := digitsRe.FindString(segment)
	if digits == "" {
		return 1
	}
	if len(digits) > 2 {
		digits = digits[:2]
	}
	floor, err := strconv.Atoi(digits)
	if err != nil || floor == 0 {
		return 1
	}
	return floor
}

// ApartmentType derives the display label from a bedroom count. The
// bathroom position mirrors the bedroom count, matching the labels used
// across the rest of the system ("2B2B", never "2B1B").
func ApartmentType(bedrooms float64) string {
	if bedrooms == 0 {
		return "Studio"
	}
	return fmt.Sprintf("%dB%dB", int(bedrooms), int(bedrooms))
}

// Features splits a comma-separated feature list into a flag map.
func Features(raw string) map[string]bool {
	features := make(map[string]bool)
	for _, f := range strings.Split(raw, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			features[f] = true
		}
	}
	return features
}
