package api

import (
	"time"

	"home_compare/internal/domain"

	"github.com/google/uuid"
)

type propertyResponse struct {
	ID               uuid.UUID             `json:"id"`
	Title            string                `json:"title"`
	Address          string                `json:"address"`
	Bedrooms         int32                 `json:"bedrooms"`
	Bathrooms        int32                 `json:"bathrooms"`
	ParkingSpots     int32                 `json:"parking_spots"`
	Area             float64               `json:"area"`
	Floor            *int32                `json:"floor,omitempty"`
	Costs            domain.MonthlyCosts   `json:"costs"`
	TotalMonthlyCost float64               `json:"total_monthly_cost"`
	Scores           domain.PropertyScores `json:"scores"`
	FinalScore       float64               `json:"final_score"`
	Images           []string              `json:"images"`
	SourceURL        *string               `json:"source_url,omitempty"`
	LocationSummary  *string               `json:"location_summary,omitempty"`
	Coordinates      *domain.Coordinates   `json:"coordinates,omitempty"`
	CreatedAt        string                `json:"created_at"`
	UpdatedAt        string                `json:"updated_at"`
}

type rankedPropertyResponse struct {
	Property      propertyResponse         `json:"property"`
	FinalScore    float64                  `json:"final_score"`
	AdjustedScore float64                  `json:"adjusted_score"`
	Bonuses       []domain.ProximityBonus  `json:"bonuses"`
	Distances     []domain.AddressDistance `json:"distances"`
}

type addressResponse struct {
	ID          uuid.UUID           `json:"id"`
	Label       domain.AddressLabel `json:"label"`
	CustomLabel *string             `json:"custom_label,omitempty"`
	Address     string              `json:"address"`
	Coordinates *domain.Coordinates `json:"coordinates,omitempty"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at"`
}

// costsPatch — частичное изменение расходов.
type costsPatch struct {
	Rent        *float64 `json:"rent"`
	CondoFee    *float64 `json:"condo_fee"`
	PropertyTax *float64 `json:"property_tax"`
	Insurance   *float64 `json:"insurance"`
	OtherFees   *float64 `json:"other_fees"`
}

type updatePropertyRequest struct {
	Title           *string               `json:"title"`
	Address         *string               `json:"address"`
	Bedrooms        *int32                `json:"bedrooms"`
	Bathrooms       *int32                `json:"bathrooms"`
	ParkingSpots    *int32                `json:"parking_spots"`
	Area            *float64              `json:"area"`
	Floor           *int32                `json:"floor"`
	Costs           *costsPatch           `json:"costs"`
	Scores          domain.PropertyScores `json:"scores"`
	Images          []string              `json:"images"`
	SourceURL       *string               `json:"source_url"`
	LocationSummary *string               `json:"location_summary"`
}

type saveCriteriaRequest struct {
	Criteria []domain.CriterionWeight `json:"criteria"`
}

type extractRequest struct {
	URL string `json:"url"`
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func propertyDomainToResponse(p domain.Property) propertyResponse {
	scores := p.Scores
	if scores == nil {
		scores = domain.PropertyScores{}
	}
	images := p.Images
	if images == nil {
		images = []string{}
	}

	return propertyResponse{
		ID:               p.ID,
		Title:            p.Title,
		Address:          p.Address,
		Bedrooms:         p.Bedrooms,
		Bathrooms:        p.Bathrooms,
		ParkingSpots:     p.ParkingSpots,
		Area:             p.Area,
		Floor:            p.Floor,
		Costs:            p.Costs,
		TotalMonthlyCost: p.TotalMonthlyCost(),
		Scores:           scores,
		FinalScore:       p.FinalScore,
		Images:           images,
		SourceURL:        p.SourceURL,
		LocationSummary:  p.LocationSummary,
		Coordinates:      p.Coordinates,
		CreatedAt:        formatTime(p.CreatedAt),
		UpdatedAt:        formatTime(p.UpdatedAt),
	}
}

func rankedDomainToResponse(ranked []domain.RankedProperty) []rankedPropertyResponse {
	out := make([]rankedPropertyResponse, 0, len(ranked))
	for _, rp := range ranked {
		resp := rankedPropertyResponse{
			Property:      propertyDomainToResponse(rp.Property),
			FinalScore:    rp.FinalScore,
			AdjustedScore: rp.AdjustedScore,
			Bonuses:       rp.Bonuses,
			Distances:     rp.Distances,
		}
		if resp.Bonuses == nil {
			resp.Bonuses = []domain.ProximityBonus{}
		}
		if resp.Distances == nil {
			resp.Distances = []domain.AddressDistance{}
		}
		out = append(out, resp)
	}
	return out
}

func addressDomainToResponse(a domain.ReferenceAddress) addressResponse {
	return addressResponse{
		ID:          a.ID,
		Label:       a.Label,
		CustomLabel: a.CustomLabel,
		Address:     a.Address,
		Coordinates: a.Coordinates(),
		CreatedAt:   formatTime(a.CreatedAt),
		UpdatedAt:   formatTime(a.UpdatedAt),
	}
}

func (req updatePropertyRequest) toDomain() domain.PropertyUpdate {
	update := domain.PropertyUpdate{
		Title:           req.Title,
		Address:         req.Address,
		Bedrooms:        req.Bedrooms,
		Bathrooms:       req.Bathrooms,
		ParkingSpots:    req.ParkingSpots,
		Area:            req.Area,
		Floor:           req.Floor,
		Scores:          req.Scores,
		Images:          req.Images,
		SourceURL:       req.SourceURL,
		LocationSummary: req.LocationSummary,
	}
	if req.Costs != nil {
		update.Rent = req.Costs.Rent
		update.CondoFee = req.Costs.CondoFee
		update.PropertyTax = req.Costs.PropertyTax
		update.Insurance = req.Costs.Insurance
		update.OtherFees = req.Costs.OtherFees
	}
	return update
}
