package placemap

import (
	"fmt"
	"math"
	"time"

	"googlemaps.github.io/maps"

	"venue-enrichment/internal/models"
	errs "venue-enrichment/pkg/errors"
	"venue-enrichment/pkg/geography"
)

// Map normalizes a raw provider place-details response into the internal
// attribute shape. Pure function of its input; re-fetches produce a new
// instance with a fresh FetchedAt, never a mutation of an earlier one.
func Map(details *maps.PlaceDetailsResult, fetchedAt time.Time) (*models.MappedPlaceAttributes, error) {
	if details == nil {
		return nil, errs.NewMapping("placemap.Map", errs.MappingMissingRequiredField, "provider response is empty", nil)
	}

	addr := extractAddress(details)
	if addr.Formatted == "" {
		return nil, errs.NewMapping("placemap.Map", errs.MappingMissingRequiredField,
			fmt.Sprintf("place %s has no address", details.PlaceID), nil)
	}

	lat := details.Geometry.Location.Lat
	lng := details.Geometry.Location.Lng
	if !validCoordinates(lat, lng) {
		return nil, errs.NewMapping("placemap.Map", errs.MappingMalformedCoordinates,
			fmt.Sprintf("place %s has coordinates (%v, %v)", details.PlaceID, lat, lng), nil)
	}

	if len(details.Types) > 0 && allNonEstablishment(details.Types) {
		return nil, errs.NewMapping("placemap.Map", errs.MappingUnsupportedCategory,
			fmt.Sprintf("place %s is not an enrichable establishment: %v", details.PlaceID, details.Types), nil)
	}

	mapped := &models.MappedPlaceAttributes{
		PlaceID:      details.PlaceID,
		Address:      addr,
		Lat:          lat,
		Lng:          lng,
		Categories:   translateCategories(details.Types),
		LocalityPath: geography.LocalityPath(details.AddressComponents),
		FetchedAt:    fetchedAt,
	}

	if details.OpeningHours != nil {
		mapped.Hours = append(mapped.Hours, details.OpeningHours.WeekdayText...)
	}
	for _, photo := range details.Photos {
		if photo.PhotoReference != "" {
			mapped.PhotoRefs = append(mapped.PhotoRefs, photo.PhotoReference)
		}
	}
	for _, review := range details.Reviews {
		if review.Text != "" {
			mapped.Reviews = append(mapped.Reviews, review.Text)
		}
	}

	return mapped, nil
}

func validCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	if lat == 0 && lng == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func allNonEstablishment(types []string) bool {
	for _, t := range types {
		if !nonEstablishmentTypes[t] {
			return false
		}
	}
	return true
}

// translateCategories runs provider types through the static lookup table.
// Unknown types are kept verbatim with the Unmapped flag.
func translateCategories(types []string) []models.CategoryTag {
	var tags []models.CategoryTag
	seen := make(map[string]bool)
	for _, t := range types {
		if nonEstablishmentTypes[t] || t == "establishment" || t == "point_of_interest" {
			continue
		}
		label, known := categoryTable[t]
		if !known {
			label = t
		}
		if seen[label] {
			continue
		}
		seen[label] = true
		tags = append(tags, models.CategoryTag{Label: label, Unmapped: !known})
	}
	return tags
}

func extractAddress(details *maps.PlaceDetailsResult) models.AddressParts {
	addr := models.AddressParts{Formatted: details.FormattedAddress}

	var streetNumber, route string
	for _, comp := range details.AddressComponents {
		for _, typ := range comp.Types {
			switch typ {
			case "street_number":
				streetNumber = comp.LongName
			case "route":
				route = comp.LongName
			case "locality", "postal_town":
				addr.City = comp.LongName
			case "administrative_area_level_1":
				addr.Region = comp.ShortName
			case "postal_code":
				addr.PostalCode = comp.LongName
			case "country":
				addr.Country = comp.LongName
			}
		}
	}

	switch {
	case streetNumber != "" && route != "":
		addr.Street = streetNumber + " " + route
	case route != "":
		addr.Street = route
	}

	// Fall back to a synthesized formatted line when the provider omits it
	// but components are present.
	if addr.Formatted == "" && addr.Street != "" && addr.City != "" {
		addr.Formatted = addr.Street + ", " + addr.City
	}

	return addr
}
