package property_repository

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

type PropertyRepository struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

func NewPropertyRepository(db *pgxpool.Pool, log *slog.Logger) *PropertyRepository {
	return &PropertyRepository{db: db, log: log}
}

const selectColumns = `
	property_id, owner_user_id, title, address,
	bedrooms, bathrooms, parking_spots, area, floor,
	rent, condo_fee, property_tax, insurance, other_fees,
	scores, final_score, images, source_url, location_summary,
	created_at, updated_at
`

// CreateProperty — создаёт новый объект недвижимости.
func (r *PropertyRepository) CreateProperty(ctx context.Context, p domain.Property) (uuid.UUID, error) {
	const op = "PropertyRepository.CreateProperty"

	query := `
		INSERT INTO properties (
			owner_user_id, title, address,
			bedrooms, bathrooms, parking_spots, area, floor,
			rent, condo_fee, property_tax, insurance, other_fees,
			scores, final_score, images, source_url, location_summary
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING property_id
	`

	scores := p.Scores
	if scores == nil {
		scores = domain.PropertyScores{}
	}
	images := p.Images
	if images == nil {
		images = []string{}
	}

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query,
		p.OwnerUserID,
		p.Title,
		p.Address,
		p.Bedrooms,
		p.Bathrooms,
		p.ParkingSpots,
		p.Area,
		p.Floor,
		p.Costs.Rent,
		p.Costs.CondoFee,
		p.Costs.PropertyTax,
		p.Costs.Insurance,
		p.Costs.OtherFees,
		scores,
		p.FinalScore,
		images,
		p.SourceURL,
		p.LocationSummary,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// GetByID — получает объект недвижимости по ID.
func (r *PropertyRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Property, error) {
	const op = "PropertyRepository.GetByID"

	query := `SELECT ` + selectColumns + ` FROM properties WHERE property_id = $1`

	p, err := scanProperty(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Property{}, fmt.Errorf("%s: %w", op, repository.ErrPropertyNotFound)
		}
		return domain.Property{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// ListByOwner — все объекты пользователя в порядке добавления.
func (r *PropertyRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Property, error) {
	const op = "PropertyRepository.ListByOwner"

	query := `SELECT ` + selectColumns + ` FROM properties WHERE owner_user_id = $1 ORDER BY created_at, property_id`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	properties := []domain.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan failed: %w", op, err)
		}
		properties = append(properties, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return properties, nil
}

// UpdateProperty — частичное обновление объекта владельца. Scores, если заданы, заменяют сохранённые целиком.
func (r *PropertyRepository) UpdateProperty(ctx context.Context, propertyID, ownerID uuid.UUID, update domain.PropertyUpdate) error {
	const op = "PropertyRepository.UpdateProperty"

	setClauses := []string{}
	params := []interface{}{}
	paramCount := 1

	set := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, paramCount))
		params = append(params, value)
		paramCount++
	}

	if update.Title != nil {
		set("title", *update.Title)
	}
	if update.Address != nil {
		set("address", *update.Address)
	}
	if update.Bedrooms != nil {
		set("bedrooms", *update.Bedrooms)
	}
	if update.Bathrooms != nil {
		set("bathrooms", *update.Bathrooms)
	}
	if update.ParkingSpots != nil {
		set("parking_spots", *update.ParkingSpots)
	}
	if update.Area != nil {
		set("area", *update.Area)
	}
	if update.Floor != nil {
		set("floor", *update.Floor)
	}
	if update.Rent != nil {
		set("rent", *update.Rent)
	}
	if update.CondoFee != nil {
		set("condo_fee", *update.CondoFee)
	}
	if update.PropertyTax != nil {
		set("property_tax", *update.PropertyTax)
	}
	if update.Insurance != nil {
		set("insurance", *update.Insurance)
	}
	if update.OtherFees != nil {
		set("other_fees", *update.OtherFees)
	}
	if update.Scores != nil {
		set("scores", update.Scores)
	}
	if update.Images != nil {
		set("images", update.Images)
	}
	if update.SourceURL != nil {
		set("source_url", *update.SourceURL)
	}
	if update.LocationSummary != nil {
		set("location_summary", *update.LocationSummary)
	}
	if update.FinalScore != nil {
		set("final_score", *update.FinalScore)
	}

	if len(setClauses) == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNoFieldsToUpdate)
	}

	setClauses = append(setClauses, "updated_at = NOW()")

	query := fmt.Sprintf(
		`UPDATE properties SET %s WHERE property_id = $%d AND owner_user_id = $%d`,
		strings.Join(setClauses, ", "), paramCount, paramCount+1,
	)
	params = append(params, propertyID, ownerID)

	tag, err := r.db.Exec(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrPropertyNotFound)
	}

	return nil
}

// UpdateFinalScores — пакетная запись пересчитанных итоговых баллов.
func (r *PropertyRepository) UpdateFinalScores(ctx context.Context, scores map[uuid.UUID]float64) error {
	const op = "PropertyRepository.UpdateFinalScores"

	if len(scores) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for id, score := range scores {
		batch.Queue(`UPDATE properties SET final_score = $1, updated_at = NOW() WHERE property_id = $2`, score, id)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AppendImage — добавляет URL изображения к объекту.
func (r *PropertyRepository) AppendImage(ctx context.Context, propertyID uuid.UUID, imageURL string) error {
	const op = "PropertyRepository.AppendImage"

	query := `
		UPDATE properties
		SET images = array_append(images, $1), updated_at = NOW()
		WHERE property_id = $2
	`

	tag, err := r.db.Exec(ctx, query, imageURL, propertyID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrPropertyNotFound)
	}

	return nil
}

// DeleteProperty — удаляет объект пользователя.
func (r *PropertyRepository) DeleteProperty(ctx context.Context, propertyID, ownerID uuid.UUID) error {
	const op = "PropertyRepository.DeleteProperty"

	tag, err := r.db.Exec(ctx, `DELETE FROM properties WHERE property_id = $1 AND owner_user_id = $2`, propertyID, ownerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrPropertyNotFound)
	}

	return nil
}

func scanProperty(row pgx.Row) (domain.Property, error) {
	var p domain.Property
	err := row.Scan(
		&p.ID,
		&p.OwnerUserID,
		&p.Title,
		&p.Address,
		&p.Bedrooms,
		&p.Bathrooms,
		&p.ParkingSpots,
		&p.Area,
		&p.Floor,
		&p.Costs.Rent,
		&p.Costs.CondoFee,
		&p.Costs.PropertyTax,
		&p.Costs.Insurance,
		&p.Costs.OtherFees,
		&p.Scores,
		&p.FinalScore,
		&p.Images,
		&p.SourceURL,
		&p.LocationSummary,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.Property{}, err
	}
	if p.Scores == nil {
		p.Scores = domain.PropertyScores{}
	}
	return p, nil
}
