package preference_repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"home_compare/internal/domain"
	"home_compare/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PreferenceRepository struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

func NewPreferenceRepository(db *pgxpool.Pool, log *slog.Logger) *PreferenceRepository {
	return &PreferenceRepository{db: db, log: log}
}

// GetCriteriaPreferences — пользовательские веса критериев в сохранённом порядке.
// Пустой срез означает, что пользователь ничего не настраивал.
func (r *PreferenceRepository) GetCriteriaPreferences(ctx context.Context, userID uuid.UUID) ([]domain.CriterionWeight, error) {
	const op = "PreferenceRepository.GetCriteriaPreferences"

	query := `
		SELECT criterion_key, weight
		FROM user_criteria_preferences
		WHERE user_id = $1
		ORDER BY position
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	prefs := []domain.CriterionWeight{}
	for rows.Next() {
		var p domain.CriterionWeight
		if err := rows.Scan(&p.CriterionKey, &p.Weight); err != nil {
			return nil, fmt.Errorf("%s: scan failed: %w", op, err)
		}
		prefs = append(prefs, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return prefs, nil
}

// ReplaceCriteriaPreferences — атомарно заменяет набор весов пользователя.
func (r *PreferenceRepository) ReplaceCriteriaPreferences(ctx context.Context, userID uuid.UUID, prefs []domain.CriterionWeight) error {
	const op = "PreferenceRepository.ReplaceCriteriaPreferences"

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return replacePreferences(ctx, tx, userID, prefs)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SaveOnboarding — в одной транзакции заменяет веса пользователя и сохраняет профиль
// онбординга. Флаг подписки управляется биллингом и здесь не меняется.
func (r *PreferenceRepository) SaveOnboarding(ctx context.Context, p domain.UserProfile, prefs []domain.CriterionWeight) error {
	const op = "PreferenceRepository.SaveOnboarding"

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := replacePreferences(ctx, tx, p.UserID, prefs); err != nil {
			return err
		}
		return upsertProfile(ctx, tx, p)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func replacePreferences(ctx context.Context, tx pgx.Tx, userID uuid.UUID, prefs []domain.CriterionWeight) error {
	if _, err := tx.Exec(ctx, `DELETE FROM user_criteria_preferences WHERE user_id = $1`, userID); err != nil {
		return err
	}

	if len(prefs) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(prefs))
	for i, p := range prefs {
		rows = append(rows, []any{userID, p.CriterionKey, p.Weight, int32(i)})
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"user_criteria_preferences"},
		[]string{"user_id", "criterion_key", "weight", "position"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("duplicate criterion key: %w", err)
		}
		return err
	}

	return nil
}

// GetProfile — профиль онбординга пользователя.
func (r *PreferenceRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	const op = "PreferenceRepository.GetProfile"

	query := `
		SELECT user_id, profile_type, onboarding_completed, subscription_active
		FROM user_profiles
		WHERE user_id = $1
	`

	var p domain.UserProfile
	var profileType string
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&profileType,
		&p.OnboardingCompleted,
		&p.SubscriptionActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, repository.ErrProfileNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.ProfileType = domain.ProfileType(profileType)

	return &p, nil
}

func upsertProfile(ctx context.Context, tx pgx.Tx, p domain.UserProfile) error {
	query := `
		INSERT INTO user_profiles (user_id, profile_type, onboarding_completed)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET profile_type = EXCLUDED.profile_type,
			onboarding_completed = EXCLUDED.onboarding_completed,
			updated_at = NOW()
	`

	_, err := tx.Exec(ctx, query, p.UserID, p.ProfileType.String(), p.OnboardingCompleted)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
