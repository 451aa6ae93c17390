package placemap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"venue-enrichment/internal/models"
	"venue-enrichment/pkg/circuit"
	errs "venue-enrichment/pkg/errors"
	"venue-enrichment/pkg/logging"
)

// PlacesClient is the subset of the provider client the fetcher needs.
// *maps.Client satisfies it; tests substitute a mock.
type PlacesClient interface {
	TextSearch(ctx context.Context, r *maps.TextSearchRequest) (maps.PlacesSearchResponse, error)
	PlaceDetails(ctx context.Context, r *maps.PlaceDetailsRequest) (maps.PlaceDetailsResult, error)
}

// Service fetches place metadata from the provider and runs it through the
// pure mapper. Submissions carrying a PlaceRef skip the text search. A
// breaker keeps a failing provider from absorbing every retry budget.
type Service struct {
	client  PlacesClient
	breaker *circuit.Breaker
}

func NewService(apiKey string, log *logging.Logger) (*Service, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Service{
		client:  client,
		breaker: circuit.New(circuit.DefaultConfig("places"), log),
	}, nil
}

// NewServiceWithClient wires an explicit client. Used by tests.
func NewServiceWithClient(client PlacesClient) *Service {
	return &Service{
		client:  client,
		breaker: circuit.New(circuit.DefaultConfig("places"), nil),
	}
}

var detailFields = []maps.PlaceDetailsFieldMask{
	maps.PlaceDetailsFieldMaskPlaceID,
	maps.PlaceDetailsFieldMaskName,
	maps.PlaceDetailsFieldMaskFormattedAddress,
	maps.PlaceDetailsFieldMaskAddressComponent,
	maps.PlaceDetailsFieldMaskGeometry,
	maps.PlaceDetailsFieldMaskTypes,
	maps.PlaceDetailsFieldMaskOpeningHours,
	maps.PlaceDetailsFieldMaskPhotos,
	maps.PlaceDetailsFieldMaskReviews,
}

// MapPlace resolves the submission to a provider place and returns its
// normalized attributes. FetchedAt is stamped with the fetch time so the
// scorer can reason about freshness.
func (s *Service) MapPlace(ctx context.Context, sub models.VenueSubmission) (*models.MappedPlaceAttributes, error) {
	placeID, err := s.resolvePlaceID(ctx, sub)
	if err != nil {
		return nil, err
	}

	var details maps.PlaceDetailsResult
	err = s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		details, err = s.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
			PlaceID: placeID,
			Fields:  detailFields,
		})
		return err
	})
	if err != nil {
		return nil, classifyProviderError("placemap.MapPlace", err)
	}

	return Map(&details, time.Now())
}

func (s *Service) resolvePlaceID(ctx context.Context, sub models.VenueSubmission) (string, error) {
	if sub.PlaceRef != nil && *sub.PlaceRef != "" {
		return *sub.PlaceRef, nil
	}

	var resp maps.PlacesSearchResponse
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = s.client.TextSearch(ctx, &maps.TextSearchRequest{
			Query: sub.Name + " " + sub.Address,
		})
		return err
	})
	if err != nil {
		return "", classifyProviderError("placemap.resolvePlaceID", err)
	}
	if len(resp.Results) == 0 {
		return "", errs.NewMapping("placemap.resolvePlaceID", errs.MappingUpstreamUnavailable,
			fmt.Sprintf("no place matched %q", sub.Name), nil)
	}
	return resp.Results[0].PlaceID, nil
}

func classifyProviderError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.NewMapping(op, errs.MappingUpstreamTimeout, "provider call timed out", err)
	}
	if errors.Is(err, circuit.ErrOpen) {
		return errs.NewMapping(op, errs.MappingUpstreamUnavailable, "provider circuit open", err)
	}
	return errs.NewMapping(op, errs.MappingUpstreamUnavailable, "provider call failed", err)
}
