package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Movie is a persisted catalog record for one rentable title.
// Score is nil only for records left incomplete by an interrupted write; such
// records are purged when the inventory aggregator runs into them.
type Movie struct {
	ID               string
	Title            string
	Attributes       *Attributes
	CriticsScore     *int
	AudienceScore    *int
	CriticsConsensus *string
	Score            *int
}

// HasScore reports whether the record finished enrichment.
func (m *Movie) HasScore() bool {
	return m != nil && m.Score != nil
}

// ScoreValue returns the composite score, or 0 when unset.
func (m *Movie) ScoreValue() int {
	if m == nil || m.Score == nil {
		return 0
	}
	return *m.Score
}

// ApplyRating records a matched rating and derives the composite score, with
// the critics score counted twice.
func (m *Movie) ApplyRating(r RatingCandidate) {
	critics := clampScore(r.CriticsScore)
	audience := clampScore(r.AudienceScore)
	consensus := r.CriticsConsensus
	score := (critics + critics + audience) / 3

	m.CriticsScore = &critics
	m.AudienceScore = &audience
	m.CriticsConsensus = &consensus
	m.Score = &score
}

// MarkUnrated sets the composite score to zero for records with no accepted match.
func (m *Movie) MarkUnrated() {
	zero := 0
	m.Score = &zero
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// fields flattens the record into an ordered attribute set, known fields first.
func (m *Movie) fields() *Attributes {
	out := NewAttributes()
	out.Set("id", m.ID)
	out.Set("title", m.Title)
	if m.Attributes != nil {
		for _, key := range m.Attributes.Keys() {
			v, _ := m.Attributes.Get(key)
			out.Set(key, v)
		}
	}
	if m.CriticsScore != nil {
		out.Set("critics_score", *m.CriticsScore)
	}
	if m.AudienceScore != nil {
		out.Set("audience_score", *m.AudienceScore)
	}
	if m.CriticsConsensus != nil {
		out.Set("critics_consensus", *m.CriticsConsensus)
	}
	if m.Score != nil {
		out.Set("score", *m.Score)
	}
	return out
}

// MarshalJSON renders the record as one flat object.
func (m *Movie) MarshalJSON() ([]byte, error) {
	return m.fields().MarshalJSON()
}

// StockEntry joins a catalog record with the kiosk that has it in stock.
type StockEntry struct {
	Movie           *Movie
	StoreID         string
	Distance        float64
	ReservationLink string
}

// Title is the deduplication key of an entry.
func (e StockEntry) Title() string {
	if e.Movie == nil {
		return ""
	}
	return e.Movie.Title
}

// Score is the sort key of an entry.
func (e StockEntry) Score() int {
	return e.Movie.ScoreValue()
}

// MarshalJSON renders the record fields followed by distance and reservation link.
func (e StockEntry) MarshalJSON() ([]byte, error) {
	out := NewAttributes()
	if e.Movie != nil {
		out = e.Movie.fields()
	}
	out.Set("distance", e.Distance)
	out.Set("reservation_link", e.ReservationLink)
	return out.MarshalJSON()
}

// CatalogItem is one product from a catalog page, fields kept in payload order.
type CatalogItem struct {
	Fields []RawField
}

// Lookup returns the raw value of the first field whose key matches name case-insensitively.
func (c CatalogItem) Lookup(name string) (json.RawMessage, bool) {
	for _, f := range c.Fields {
		if strings.EqualFold(f.Key, name) {
			return f.Value, true
		}
	}
	return nil, false
}

// ScalarString renders a raw scalar JSON value as text: strings unquoted,
// numbers and booleans in their literal form.
func ScalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("value %s is not a scalar", raw)
	default:
		return string(raw), nil
	}
}

// RatingCandidate is one search hit from the ratings source.
type RatingCandidate struct {
	Title            string
	CriticsScore     int
	AudienceScore    int
	CriticsConsensus string
}

// Kiosk is a rental location returned by a nearby search.
type Kiosk struct {
	StoreID      string
	DistanceText string
}

// Distance parses the distance-from-search metadata.
func (k Kiosk) Distance() (float64, error) {
	text := strings.TrimSpace(k.DistanceText)
	if text == "" {
		return 0, fmt.Errorf("store %s: missing distance", k.StoreID)
	}
	d, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("store %s: parse distance %q: %w", k.StoreID, text, err)
	}
	return d, nil
}

// InventoryStatusInStock marks an inventory line that can be rented now.
const InventoryStatusInStock = "InStock"

// InventoryItem is one product line of a kiosk inventory.
type InventoryItem struct {
	ProductID string
	Status    string
}

// InStock reports whether the item is rentable.
func (i InventoryItem) InStock() bool {
	return i.Status == InventoryStatusInStock
}
