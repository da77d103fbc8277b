package geocode

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// directionals maps directional tokens (and spelled-out forms) to their
// canonical abbreviation.
var directionals = map[string]string{
	"N": "N", "S": "S", "E": "E", "W": "W",
	"NE": "NE", "NW": "NW", "SE": "SE", "SW": "SW",
	"NORTH": "N", "SOUTH": "S", "EAST": "E", "WEST": "W",
	"NORTHEAST": "NE", "NORTHWEST": "NW", "SOUTHEAST": "SE", "SOUTHWEST": "SW",
}

var titleCaser = cases.Title(language.AmericanEnglish)

// Normalize prepares a free-text address for the provider: collapses
// whitespace, moves a trailing directional to prefix position
// ("123 Main St W" becomes "123 W Main St"), title-cases the street part,
// and appends the service region if it is not already present.
func Normalize(address, regionName, regionState string) string {
	parts := strings.Split(address, ",")
	street := normalizeStreet(parts[0])

	rest := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			rest = append(rest, trimmed)
		}
	}

	out := street
	if len(rest) > 0 {
		out += ", " + strings.Join(rest, ", ")
	}

	if !strings.Contains(strings.ToLower(out), strings.ToLower(regionName)) {
		out += ", " + regionName + ", " + regionState
	}
	return out
}

// normalizeStreet canonicalizes the street portion of an address.
func normalizeStreet(street string) string {
	tokens := strings.Fields(street)
	if len(tokens) == 0 {
		return ""
	}

	// A trailing directional moves to prefix position, after the house
	// number when one leads the address.
	if len(tokens) >= 3 {
		last := strings.ToUpper(tokens[len(tokens)-1])
		if dir, ok := directionals[last]; ok {
			tokens = tokens[:len(tokens)-1]
			if isNumeric(tokens[0]) {
				rest := append([]string{dir}, tokens[1:]...)
				tokens = append(tokens[:1:1], rest...)
			} else {
				tokens = append([]string{dir}, tokens...)
			}
		}
	}

	for i, tok := range tokens {
		if dir, ok := directionals[strings.ToUpper(tok)]; ok {
			tokens[i] = dir
			continue
		}
		if isNumeric(tok) {
			continue
		}
		tokens[i] = titleCaser.String(strings.ToLower(tok))
	}

	return strings.Join(tokens, " ")
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
