package placemap

import (
	"testing"
	"time"

	"googlemaps.github.io/maps"

	errs "venue-enrichment/pkg/errors"
)

func validDetails() *maps.PlaceDetailsResult {
	d := &maps.PlaceDetailsResult{
		PlaceID:          "place-1",
		Name:             "Sunny Park Café",
		FormattedAddress: "12 Oak St, Springfield, IL 62704, USA",
		Types:            []string{"cafe", "food", "point_of_interest", "establishment"},
	}
	d.Geometry.Location.Lat = 39.78
	d.Geometry.Location.Lng = -89.65
	d.AddressComponents = []maps.AddressComponent{
		{LongName: "12", Types: []string{"street_number"}},
		{LongName: "Oak Street", Types: []string{"route"}},
		{LongName: "Springfield", Types: []string{"locality"}},
		{LongName: "Illinois", ShortName: "IL", Types: []string{"administrative_area_level_1"}},
		{LongName: "62704", Types: []string{"postal_code"}},
		{LongName: "United States", Types: []string{"country"}},
	}
	d.OpeningHours = &maps.OpeningHours{
		WeekdayText: []string{"Monday: 8:00 AM – 6:00 PM"},
	}
	d.Photos = []maps.Photo{{PhotoReference: "photo-1"}}
	d.Reviews = []maps.PlaceReview{{Text: "great coffee"}}
	return d
}

func TestMap_HappyPath(t *testing.T) {
	fetchedAt := time.Now()
	mapped, err := Map(validDetails(), fetchedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mapped.PlaceID != "place-1" {
		t.Fatalf("unexpected place id: %+v", mapped)
	}
	if mapped.Address.Street != "12 Oak Street" || mapped.Address.City != "Springfield" {
		t.Fatalf("unexpected address parts: %+v", mapped.Address)
	}
	if mapped.Address.Region != "IL" || mapped.Address.PostalCode != "62704" {
		t.Fatalf("unexpected region/postal: %+v", mapped.Address)
	}
	if len(mapped.Hours) != 1 || len(mapped.PhotoRefs) != 1 || len(mapped.Reviews) != 1 {
		t.Fatalf("expected hours, photos and reviews carried over: %+v", mapped)
	}
	if !mapped.FetchedAt.Equal(fetchedAt) {
		t.Fatalf("expected fetchedAt %v, got %v", fetchedAt, mapped.FetchedAt)
	}
	if mapped.LocalityPath != "north_america|united_states|illinois|springfield" {
		t.Fatalf("unexpected locality path %q", mapped.LocalityPath)
	}
}

func TestMap_CategoryTranslation(t *testing.T) {
	d := validDetails()
	d.Types = []string{"cafe", "laser_tag_arena", "establishment"}

	mapped, err := Map(d, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mapped.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %+v", mapped.Categories)
	}
	if mapped.Categories[0].Label != "cafe" || mapped.Categories[0].Unmapped {
		t.Fatalf("expected known cafe tag, got %+v", mapped.Categories[0])
	}
	// Unknown provider types are preserved verbatim, flagged unmapped.
	if mapped.Categories[1].Label != "laser_tag_arena" || !mapped.Categories[1].Unmapped {
		t.Fatalf("expected unmapped passthrough tag, got %+v", mapped.Categories[1])
	}
}

func TestMap_MissingAddress(t *testing.T) {
	d := validDetails()
	d.FormattedAddress = ""
	d.AddressComponents = nil

	_, err := Map(d, time.Now())
	me, ok := errs.AsMapping(err)
	if !ok || me.Reason != errs.MappingMissingRequiredField {
		t.Fatalf("expected missing-required-field, got %v", err)
	}
}

func TestMap_MalformedCoordinates(t *testing.T) {
	for _, coords := range [][2]float64{{0, 0}, {120, 10}, {-42, 999}} {
		d := validDetails()
		d.Geometry.Location.Lat = coords[0]
		d.Geometry.Location.Lng = coords[1]

		_, err := Map(d, time.Now())
		me, ok := errs.AsMapping(err)
		if !ok || me.Reason != errs.MappingMalformedCoordinates {
			t.Fatalf("coords %v: expected malformed-coordinates, got %v", coords, err)
		}
	}
}

func TestMap_UnsupportedCategory(t *testing.T) {
	d := validDetails()
	d.Types = []string{"locality", "political"}

	_, err := Map(d, time.Now())
	me, ok := errs.AsMapping(err)
	if !ok || me.Reason != errs.MappingUnsupportedCategory {
		t.Fatalf("expected unsupported-category, got %v", err)
	}
}

func TestMap_NilResponse(t *testing.T) {
	_, err := Map(nil, time.Now())
	me, ok := errs.AsMapping(err)
	if !ok || me.Reason != errs.MappingMissingRequiredField {
		t.Fatalf("expected missing-required-field for nil response, got %v", err)
	}
}
