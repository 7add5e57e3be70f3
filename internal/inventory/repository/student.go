package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/pkg/database"
	apperrors "github.com/padbank/padbank-backend/pkg/errors"
)

// StudentRepository handles the local student projection
type StudentRepository struct {
	db *database.DB
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(db *database.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Upsert creates or replaces a projected student
func (r *StudentRepository) Upsert(ctx context.Context, s *domain.Student) error {
	if s.Disability == "" {
		s.Disability = "no"
	}

	query := `
		INSERT INTO students (user_id, names, age, sex, disability, disability_type, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET names = $2, age = $3, sex = $4, disability = $5, disability_type = $6, updated_at = NOW()
		RETURNING updated_at
	`

	err := r.db.Conn(ctx).QueryRowxContext(ctx, query,
		s.UserID, s.Names, s.Age, s.Sex, s.Disability, s.DisabilityType,
	).Scan(&s.UpdatedAt)
	return database.MapError(err)
}

// GetByID gets a projected student
func (r *StudentRepository) GetByID(ctx context.Context, userID string) (*domain.Student, error) {
	var s domain.Student
	query := `
		SELECT user_id, names, age, sex, disability, disability_type, updated_at
		FROM students WHERE user_id = $1
	`
	if err := r.db.Conn(ctx).GetContext(ctx, &s, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("Student")
		}
		return nil, err
	}
	return &s, nil
}

// Delete removes a projected student. Distribution history keeps the
// user id and name snapshot.
func (r *StudentRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx, `DELETE FROM students WHERE user_id = $1`, userID)
	return err
}
