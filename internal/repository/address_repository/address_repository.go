package address_repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"home_compare/internal/domain"
	"home_compare/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AddressRepository struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

func NewAddressRepository(db *pgxpool.Pool, log *slog.Logger) *AddressRepository {
	return &AddressRepository{db: db, log: log}
}

// CreateAddress — сохраняет опорный адрес пользователя.
func (r *AddressRepository) CreateAddress(ctx context.Context, a domain.ReferenceAddress) (uuid.UUID, error) {
	const op = "AddressRepository.CreateAddress"

	query := `
		INSERT INTO reference_addresses (user_id, label, custom_label, address, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING address_id
	`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query,
		a.UserID,
		a.Label.String(),
		a.CustomLabel,
		a.Address,
		a.Latitude,
		a.Longitude,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// GetByID — получает адрес пользователя по ID. Чужой адрес неотличим от отсутствующего.
func (r *AddressRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (domain.ReferenceAddress, error) {
	const op = "AddressRepository.GetByID"

	query := `
		SELECT address_id, user_id, label, custom_label, address, latitude, longitude, created_at, updated_at
		FROM reference_addresses
		WHERE address_id = $1 AND user_id = $2
	`

	a, err := scanAddress(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ReferenceAddress{}, fmt.Errorf("%s: %w", op, repository.ErrAddressNotFound)
		}
		return domain.ReferenceAddress{}, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

// ListByUser — опорные адреса пользователя в порядке добавления.
func (r *AddressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ReferenceAddress, error) {
	const op = "AddressRepository.ListByUser"

	query := `
		SELECT address_id, user_id, label, custom_label, address, latitude, longitude, created_at, updated_at
		FROM reference_addresses
		WHERE user_id = $1
		ORDER BY created_at, address_id
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	addresses := []domain.ReferenceAddress{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan failed: %w", op, err)
		}
		addresses = append(addresses, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return addresses, nil
}

// UpdateAddress — частичное обновление адреса. Смена текста адреса сбрасывает координаты.
func (r *AddressRepository) UpdateAddress(ctx context.Context, id, userID uuid.UUID, update domain.AddressUpdate) error {
	const op = "AddressRepository.UpdateAddress"

	setClauses := []string{}
	params := []interface{}{}
	paramCount := 1

	if update.Label != nil {
		setClauses = append(setClauses, fmt.Sprintf("label = $%d", paramCount))
		params = append(params, update.Label.String())
		paramCount++
	}
	if update.CustomLabel != nil {
		// пустая строка очищает подпись
		setClauses = append(setClauses, fmt.Sprintf("custom_label = NULLIF($%d, '')", paramCount))
		params = append(params, *update.CustomLabel)
		paramCount++
	}
	if update.Address != nil {
		setClauses = append(setClauses, fmt.Sprintf("address = $%d", paramCount))
		params = append(params, *update.Address)
		paramCount++
		setClauses = append(setClauses, "latitude = NULL", "longitude = NULL")
	}

	if len(setClauses) == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNoFieldsToUpdate)
	}

	setClauses = append(setClauses, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE reference_addresses SET %s WHERE address_id = $%d AND user_id = $%d`,
		strings.Join(setClauses, ", "), paramCount, paramCount+1)
	params = append(params, id, userID)

	tag, err := r.db.Exec(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrAddressNotFound)
	}

	return nil
}

// SetCoordinates — записывает результат геокодирования; nil очищает координаты.
func (r *AddressRepository) SetCoordinates(ctx context.Context, id uuid.UUID, c *domain.Coordinates) error {
	const op = "AddressRepository.SetCoordinates"

	var lat, lng *float64
	if c != nil {
		lat, lng = &c.Lat, &c.Lng
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE reference_addresses
		SET latitude = $1, longitude = $2, updated_at = NOW()
		WHERE address_id = $3
	`, lat, lng, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrAddressNotFound)
	}

	return nil
}

// DeleteAddress — удаляет адрес пользователя.
func (r *AddressRepository) DeleteAddress(ctx context.Context, id, userID uuid.UUID) error {
	const op = "AddressRepository.DeleteAddress"

	tag, err := r.db.Exec(ctx, `DELETE FROM reference_addresses WHERE address_id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrAddressNotFound)
	}

	return nil
}

func scanAddress(row pgx.Row) (domain.ReferenceAddress, error) {
	var a domain.ReferenceAddress
	var label string
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&label,
		&a.CustomLabel,
		&a.Address,
		&a.Latitude,
		&a.Longitude,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.ReferenceAddress{}, err
	}
	a.Label = domain.AddressLabel(label)
	return a, nil
}
