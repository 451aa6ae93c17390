// Package geography turns provider address components into a canonical
// locality path for directory placement, for example
// "north_america|united_states|illinois|cook_county|chicago".
package geography

import (
	_ "embed"
	"encoding/json"
	"strings"

	"googlemaps.github.io/maps"
)

//go:embed countries.json
var countriesJSON []byte

var countryContinents map[string]string

func init() {
	if err := json.Unmarshal(countriesJSON, &countryContinents); err != nil {
		panic("geography: load countries.json: " + err.Error())
	}
}

// Continent returns the continent for a country name, case-insensitive.
// Unknown countries return an empty string.
func Continent(country string) string {
	return countryContinents[strings.ToLower(strings.TrimSpace(country))]
}

// NormalizeName lowercases a place name and joins words with underscores.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), "_")
}

// Component types that participate in the path, broad to specific.
var pathLevels = []string{
	"country",
	"administrative_area_level_1",
	"administrative_area_level_2",
	"locality",
	"sublocality",
}

// LocalityPath builds the pipe-separated path from address components.
// Levels absent from the address are skipped; a resolvable country is
// prefixed with its continent.
func LocalityPath(components []maps.AddressComponent) string {
	found := make(map[string]string, len(pathLevels))
	for _, comp := range components {
		for _, ct := range comp.Types {
			for _, level := range pathLevels {
				if ct == level && found[level] == "" {
					found[level] = comp.LongName
				}
			}
		}
	}

	var parts []string
	if country := found["country"]; country != "" {
		if continent := Continent(country); continent != "" {
			parts = append(parts, continent)
		}
	}
	for _, level := range pathLevels {
		if name := found[level]; name != "" {
			parts = append(parts, NormalizeName(name))
		}
	}
	return strings.Join(parts, "|")
}
