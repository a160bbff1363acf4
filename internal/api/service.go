package api

import (
	"context"

	"home_compare/internal/domain"
	minio "home_compare/internal/lib/minio/core"
	"home_compare/internal/services/address"
	"home_compare/internal/services/preferences"
	"home_compare/internal/services/property"

	"github.com/google/uuid"
)

// PropertyService описывает бизнес-логику объектов недвижимости.
type PropertyService interface {
	CreateProperty(ctx context.Context, userID uuid.UUID, draft domain.PropertyDraft) (domain.Property, error)
	GetProperty(ctx context.Context, userID, id uuid.UUID) (domain.Property, error)
	UpdateProperty(ctx context.Context, userID, id uuid.UUID, update domain.PropertyUpdate) (domain.Property, error)
	DeleteProperty(ctx context.Context, userID, id uuid.UUID) error
	ListRanked(ctx context.Context, userID uuid.UUID, opts domain.SortOptions) ([]domain.RankedProperty, error)
	SuggestScores(ctx context.Context, userID uuid.UUID, draft domain.PropertyDraft) (*property.ScoreSuggestion, error)
	AddImage(ctx context.Context, userID, id uuid.UUID, image minio.Image) (string, error)
}

// AddressService описывает работу с опорными адресами.
type AddressService interface {
	CreateAddress(ctx context.Context, userID uuid.UUID, in address.Input) (domain.ReferenceAddress, error)
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]domain.ReferenceAddress, error)
	UpdateAddress(ctx context.Context, userID, id uuid.UUID, in address.Input) (domain.ReferenceAddress, error)
	DeleteAddress(ctx context.Context, userID, id uuid.UUID) error
}

// PreferenceService описывает настройку критериев и онбординг.
type PreferenceService interface {
	ResolvedConfiguration(ctx context.Context, userID uuid.UUID) domain.ResolvedConfiguration
	SaveCriteria(ctx context.Context, userID uuid.UUID, prefs []domain.CriterionWeight) (domain.ResolvedConfiguration, error)
	CompleteOnboarding(ctx context.Context, userID uuid.UUID, in preferences.OnboardingInput) (*preferences.OnboardingResult, error)
}

// ExtractionService строит черновик объекта по ссылке на объявление.
type ExtractionService interface {
	ExtractFromURL(ctx context.Context, userID uuid.UUID, rawURL string) (domain.PropertyDraft, error)
}
