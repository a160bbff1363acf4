package address

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"home_compare/internal/domain"
	"home_compare/internal/lib/geocoder"
	"home_compare/internal/lib/logger/sl"
	"home_compare/internal/repository"

	"github.com/google/uuid"
)

type AddressRepository interface {
	CreateAddress(ctx context.Context, a domain.ReferenceAddress) (uuid.UUID, error)
	GetByID(ctx context.Context, id, userID uuid.UUID) (domain.ReferenceAddress, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ReferenceAddress, error)
	UpdateAddress(ctx context.Context, id, userID uuid.UUID, update domain.AddressUpdate) error
	SetCoordinates(ctx context.Context, id uuid.UUID, c *domain.Coordinates) error
	DeleteAddress(ctx context.Context, id, userID uuid.UUID) error
}

// Geocoder — одиночное геокодирование при сохранении адреса.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*domain.Coordinates, error)
}

type Service struct {
	log      *slog.Logger
	repo     AddressRepository
	geocoder Geocoder
}

var (
	ErrAddressNotFound = errors.New("reference address not found")
	ErrInvalidLabel    = errors.New("invalid address label")
	ErrInvalidAddress  = errors.New("address is required")
)

func New(log *slog.Logger, repo AddressRepository, g Geocoder) *Service {
	return &Service{log: log, repo: repo, geocoder: g}
}

// Input — данные опорного адреса от пользователя.
type Input struct {
	Label       domain.AddressLabel `json:"label"`
	CustomLabel *string             `json:"custom_label,omitempty"`
	Address     string              `json:"address"`
}

// CreateAddress — сохраняет опорный адрес и пытается сразу его геокодировать.
// Неудача геокодирования не мешает сохранению: координаты определятся при ранжировании.
func (s *Service) CreateAddress(ctx context.Context, userID uuid.UUID, in Input) (domain.ReferenceAddress, error) {
	const op = "address.Service.CreateAddress"
	log := s.log.With(slog.String("op", op), slog.String("user_id", userID.String()))

	if !in.Label.Valid() {
		return domain.ReferenceAddress{}, fmt.Errorf("%s: %w: %q", op, ErrInvalidLabel, in.Label)
	}
	text := strings.TrimSpace(in.Address)
	if text == "" {
		return domain.ReferenceAddress{}, fmt.Errorf("%s: %w", op, ErrInvalidAddress)
	}

	a := domain.ReferenceAddress{
		UserID:      userID,
		Label:       in.Label,
		CustomLabel: customLabel(in.Label, in.CustomLabel),
		Address:     text,
	}
	a.SetCoordinates(s.geocode(ctx, text))

	id, err := s.repo.CreateAddress(ctx, a)
	if err != nil {
		log.Error("failed to create reference address", sl.Err(err))
		return domain.ReferenceAddress{}, fmt.Errorf("%s: %w", op, err)
	}
	a.ID = id

	log.Info("reference address created",
		slog.String("address_id", id.String()),
		slog.Bool("geocoded", a.Coordinates() != nil),
	)
	return a, nil
}

// ListAddresses — опорные адреса пользователя.
func (s *Service) ListAddresses(ctx context.Context, userID uuid.UUID) ([]domain.ReferenceAddress, error) {
	const op = "address.Service.ListAddresses"

	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.log.Error("failed to list reference addresses", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// UpdateAddress — меняет метку и/или текст адреса. Новый текст геокодируется заново.
func (s *Service) UpdateAddress(ctx context.Context, userID, id uuid.UUID, in Input) (domain.ReferenceAddress, error) {
	const op = "address.Service.UpdateAddress"
	log := s.log.With(slog.String("op", op), slog.String("address_id", id.String()))

	current, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return domain.ReferenceAddress{}, s.mapErr(op, err)
	}

	update := domain.AddressUpdate{}
	label := current.Label
	if in.Label != "" {
		if !in.Label.Valid() {
			return domain.ReferenceAddress{}, fmt.Errorf("%s: %w: %q", op, ErrInvalidLabel, in.Label)
		}
		label = in.Label
		update.Label = &label
	}
	if in.CustomLabel != nil || update.Label != nil {
		cl := customLabel(label, in.CustomLabel)
		if cl == nil && label == domain.AddressLabelOther {
			cl = current.CustomLabel
		}
		empty := ""
		if cl == nil {
			cl = &empty
		}
		update.CustomLabel = cl
	}

	text := strings.TrimSpace(in.Address)
	addressChanged := text != "" && text != current.Address
	if addressChanged {
		update.Address = &text
	}

	if update.Label == nil && update.CustomLabel == nil && update.Address == nil {
		return current, nil
	}

	if err := s.repo.UpdateAddress(ctx, id, userID, update); err != nil {
		return domain.ReferenceAddress{}, s.mapErr(op, err)
	}

	if addressChanged {
		if c := s.geocode(ctx, text); c != nil {
			if err := s.repo.SetCoordinates(ctx, id, c); err != nil {
				log.Warn("failed to store coordinates", sl.Err(err))
			}
		}
	}

	updated, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return domain.ReferenceAddress{}, s.mapErr(op, err)
	}

	log.Info("reference address updated", slog.Bool("address_changed", addressChanged))
	return updated, nil
}

// DeleteAddress — удаляет опорный адрес пользователя.
func (s *Service) DeleteAddress(ctx context.Context, userID, id uuid.UUID) error {
	const op = "address.Service.DeleteAddress"

	if err := s.repo.DeleteAddress(ctx, id, userID); err != nil {
		return s.mapErr(op, err)
	}

	s.log.Info("reference address deleted", slog.String("address_id", id.String()))
	return nil
}

func (s *Service) geocode(ctx context.Context, text string) *domain.Coordinates {
	if s.geocoder == nil {
		return nil
	}
	c, err := s.geocoder.Geocode(ctx, text)
	if err != nil {
		if !errors.Is(err, geocoder.ErrNotFound) && !errors.Is(err, geocoder.ErrDisabled) {
			s.log.Warn("geocoding failed, coordinates left empty", sl.Err(err))
		}
		return nil
	}
	return c
}

func (s *Service) mapErr(op string, err error) error {
	if errors.Is(err, repository.ErrAddressNotFound) {
		return fmt.Errorf("%s: %w", op, ErrAddressNotFound)
	}
	s.log.Error("reference address storage failed", slog.String("op", op), sl.Err(err))
	return fmt.Errorf("%s: %w", op, err)
}

// customLabel оставляет пользовательскую подпись только для метки other.
func customLabel(label domain.AddressLabel, cl *string) *string {
	if label != domain.AddressLabelOther || cl == nil {
		return nil
	}
	v := strings.TrimSpace(*cl)
	if v == "" {
		return nil
	}
	return &v
}
