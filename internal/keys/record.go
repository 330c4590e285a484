package keys

import (
	"fmt"
	"strconv"
	"strings"

	"pstitle/internal/models"
)

// sanitizeKey replaces path separators and spaces with hyphens and lowercases
// the string.
func sanitizeKey(s string) string {
	s = strings.NewReplacer("/", "-", " ", "-").Replace(s)
	return strings.ToLower(s)
}

// Prefix is the key prefix every persisted record lives under.
const Prefix = "records/"

// Record returns the canonical object key for a populated record.
func Record(r models.Record) string {
	return fmt.Sprintf("%s%s.json", Prefix, sanitizeKey(models.TitleNumber(r)))
}

// ParseRecord returns the record stored under key. It reports false for keys
// Record would not produce.
func ParseRecord(key string) (models.Record, bool) {
	name, ok := strings.CutSuffix(key, ".json")
	if !ok {
		return models.Record{}, false
	}
	i := strings.LastIndex(name, "-")
	if i < 0 {
		return models.Record{}, false
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil || n < 0 {
		return models.Record{}, false
	}
	r := models.Record{Index: n}
	if Record(r) != key {
		return models.Record{}, false
	}
	return r, true
}
