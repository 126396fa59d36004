package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Listing is a single marketplace item as returned by the search API. The
// decoded object is kept whole so fields the pipeline never touches pass
// through to the daily dataset unchanged.
type Listing struct {
	raw map[string]any
}

// NewListing wraps an already decoded object.
func NewListing(raw map[string]any) Listing {
	return Listing{raw: raw}
}

// UnmarshalJSON decodes with UseNumber so numeric identifiers and
// coordinates keep their exact textual form.
func (l *Listing) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	m := make(map[string]any)
	if err := dec.Decode(&m); err != nil {
		return err
	}
	l.raw = m
	return nil
}

func (l Listing) MarshalJSON() ([]byte, error) {
	return marshalUnescaped(l.raw)
}

// Raw exposes the underlying object.
func (l Listing) Raw() map[string]any { return l.raw }

// ID returns the listing identifier in textual form, or "" when the API
// did not provide a usable one.
func (l Listing) ID() string { return stringValue(l.raw["id"]) }

func (l Listing) Title() string { return stringField(l.raw, "title") }

func (l Listing) Description() string { return stringField(l.raw, "description") }

// Text is the searchable text of a listing: title and description joined
// by a single space, mirroring how the keyword taxonomies are matched.
func (l Listing) Text() string { return l.Title() + " " + l.Description() }

// Price returns the listed amount. ok is false when the listing carries no
// numeric price.
func (l Listing) Price() (float64, bool) {
	price, found := l.raw["price"].(map[string]any)
	if !found {
		return 0, false
	}
	return floatValue(price["amount"])
}

// UserID returns the seller identifier in textual form.
func (l Listing) UserID() string { return stringValue(l.raw["user_id"]) }

func (l Listing) ImageCount() int {
	images, found := l.raw["images"].([]any)
	if !found {
		return 0
	}
	return len(images)
}

// Coordinates returns the listing location as the textual latitude and
// longitude the API sent, so exact comparison against the configured
// search coordinate does not depend on float formatting.
func (l Listing) Coordinates() (lat, lon string, ok bool) {
	loc, found := l.raw["location"].(map[string]any)
	if !found {
		return "", "", false
	}
	lat = stringValue(loc["latitude"])
	lon = stringValue(loc["longitude"])
	return lat, lon, lat != "" && lon != ""
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

func floatValue(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	default:
		return 0, false
	}
}

// marshalUnescaped marshals without HTML escaping so non-ASCII text and
// ampersands reach the dataset file literally.
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
