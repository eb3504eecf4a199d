package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// UserRepository handles user account database operations
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, email, full_name, status, wallet_balance, wallet_pin_hash,
	daily_limit, monthly_limit, total_spent, total_topped_up,
	wallet_tier, created_at, updated_at`

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	err := r.db.Get(&user, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	err := r.db.Get(&user, query, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// SetWalletPin stores the bcrypt hash of the user's wallet PIN
func (r *UserRepository) SetWalletPin(userID uuid.UUID, pinHash string) error {
	result, err := r.db.Exec(`
		UPDATE users
		SET wallet_pin_hash = $2, updated_at = NOW()
		WHERE id = $1`,
		userID, pinHash)
	if err != nil {
		return fmt.Errorf("failed to set wallet pin: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return models.NewNotFoundError("user")
	}
	return nil
}

// SetSpendLimits updates the user's daily and monthly wallet spend limits
func (r *UserRepository) SetSpendLimits(userID uuid.UUID, daily, monthly float64) error {
	result, err := r.db.Exec(`
		UPDATE users
		SET daily_limit = $2, monthly_limit = $3, updated_at = NOW()
		WHERE id = $1`,
		userID, daily, monthly)
	if err != nil {
		return fmt.Errorf("failed to set spend limits: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return models.NewNotFoundError("user")
	}
	return nil
}
