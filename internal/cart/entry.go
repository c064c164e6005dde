package cart

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"art-store/internal/models"
)

const untitled = "Untitled"

// ParseEntry decodes a loosely typed snapshot such as a browser sends: the
// id may be a number, the price a numeric string, the image absent. ok is
// false when the payload is not an object or carries no usable id.
func ParseEntry(data []byte) (models.CartEntry, bool) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return models.CartEntry{}, false
	}
	return normalizeEntry(coerceEntry(raw))
}

func decodeEntries(data []byte) []models.CartEntry {
	entries := []models.CartEntry{}
	if len(data) == 0 {
		return entries
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return entries
	}

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		entry, ok := ParseEntry(item)
		if !ok || seen[entry.ID] {
			continue
		}
		seen[entry.ID] = true
		entries = append(entries, entry)
	}
	return entries
}

func coerceEntry(raw map[string]any) models.CartEntry {
	entry := models.CartEntry{
		ID:              coerceString(raw["id"]),
		Title:           coerceString(raw["title"]),
		PriceMinorUnits: coerceInt(raw["price_cents"]),
		CurrencyCode:    coerceString(raw["currency"]),
	}
	if img := coerceString(raw["image"]); img != "" {
		entry.PrimaryImage = &img
	}
	return entry
}

func normalizeEntry(e models.CartEntry) (models.CartEntry, bool) {
	e.ID = strings.TrimSpace(e.ID)
	if e.ID == "" {
		return models.CartEntry{}, false
	}

	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		e.Title = untitled
	}

	if e.PriceMinorUnits < 0 {
		e.PriceMinorUnits = 0
	}

	if code, ok := models.NormalizeCurrency(e.CurrencyCode); ok {
		e.CurrencyCode = code
	} else {
		e.CurrencyCode = models.DefaultCurrency
	}

	if e.PrimaryImage != nil && strings.TrimSpace(*e.PrimaryImage) == "" {
		e.PrimaryImage = nil
	}
	return e, true
}

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func coerceInt(v any) int64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(math.Round(f))
}
