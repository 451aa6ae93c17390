package placemap

// categoryTable translates provider place types into internal category tags.
// Unknown provider types are preserved verbatim with Unmapped set so the
// inferrer can still use them as weak signals.
var categoryTable = map[string]string{
	"cafe":               "cafe",
	"coffee_shop":        "cafe",
	"restaurant":         "restaurant",
	"bakery":             "bakery",
	"bar":                "bar",
	"night_club":         "nightlife",
	"library":            "library",
	"book_store":         "bookstore",
	"museum":             "museum",
	"art_gallery":        "gallery",
	"park":               "park",
	"amusement_park":     "amusement-park",
	"playground":         "playground",
	"zoo":                "zoo",
	"aquarium":           "aquarium",
	"bowling_alley":      "bowling",
	"movie_theater":      "cinema",
	"gym":                "gym",
	"spa":                "spa",
	"shopping_mall":      "shopping",
	"pet_store":          "pet-store",
	"tourist_attraction": "attraction",
	"stadium":            "stadium",
	"university":         "education",
	"school":             "education",
	"community_center":   "community-center",
	"food":               "food",
	"meal_takeaway":      "takeaway",
	"brewery":            "brewery",
	"winery":             "winery",
}

// nonEstablishmentTypes are provider types that describe geography rather
// than a venue. A place whose types are all in this set cannot be enriched.
var nonEstablishmentTypes = map[string]bool{
	"political":                   true,
	"country":                     true,
	"locality":                    true,
	"sublocality":                 true,
	"neighborhood":                true,
	"postal_code":                 true,
	"route":                       true,
	"street_address":              true,
	"administrative_area_level_1": true,
	"administrative_area_level_2": true,
	"administrative_area_level_3": true,
	"plus_code":                   true,
	"geocode":                     true,
}
