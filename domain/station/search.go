package station

import (
	"sort"
	"strings"
)

// Matches reports whether s passes every set part of f.
func (f Filter) Matches(s Station) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(s.Name), q) &&
			!strings.Contains(strings.ToLower(s.Description), q) &&
			!strings.Contains(strings.ToLower(s.City), q) &&
			!anyTagContains(s.Tags, q) {
			return false
		}
	}
	if facetSet(f.Genre) && !strings.EqualFold(s.Genre, f.Genre) {
		return false
	}
	if facetSet(f.Country) && !strings.EqualFold(s.Country, f.Country) {
		return false
	}
	return true
}

func facetSet(v string) bool {
	return v != "" && !strings.EqualFold(v, "all")
}

func anyTagContains(tags []string, q string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Apply returns the stations matching f, in catalog order.
func (f Filter) Apply(stations []Station) []Station {
	out := make([]Station, 0, len(stations))
	for _, s := range stations {
		if f.Matches(s) {
			out = append(out, s)
		}
	}
	return out
}

// Distinct returns the sorted, de-duplicated values of field across stations.
func Distinct(stations []Station, field func(Station) string) []string {
	seen := make(map[string]struct{}, len(stations))
	out := make([]string, 0, len(stations))
	for _, s := range stations {
		v := field(s)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func GenreOf(s Station) string    { return s.Genre }
func CountryOf(s Station) string  { return s.Country }
func LanguageOf(s Station) string { return s.Language }

// NextID returns max(id)+1, or 1 for an empty catalog.
func NextID(stations []Station) int {
	highest := 0
	for _, s := range stations {
		if s.ID > highest {
			highest = s.ID
		}
	}
	return highest + 1
}
