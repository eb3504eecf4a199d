package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// PaymentAuditRepository handles the append-only payment audit trail
type PaymentAuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log creates a new payment audit entry.
// This should NEVER fail silently - payment events must be logged.
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, ticket_id, user_id, gateway_intent_id, gateway_event_id,
			event_type, event_source,
			expected_amount, received_amount, amounts_match,
			payload, error_message, is_duplicate,
			ip_address, device_info, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7,
			$8, $9, $10,
			$11, $12, $13,
			$14, $15, $16
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.TicketID, audit.UserID, audit.GatewayIntentID, audit.GatewayEventID,
		audit.EventType, audit.EventSource,
		audit.ExpectedAmount, audit.ReceivedAmount, audit.AmountsMatch,
		audit.Payload, audit.ErrorMessage, audit.IsDuplicate,
		audit.IPAddress, audit.DeviceInfo, audit.CreatedAt,
	)

	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"ticket_id":  audit.TicketID,
		}).Error("CRITICAL: Failed to log payment audit - THIS SHOULD NEVER HAPPEN")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   audit.ID,
		"event_type": audit.EventType,
		"ticket_id":  audit.TicketID,
	}).Debug("Payment audit logged")

	return nil
}

// CheckDuplicateEvent checks if a gateway event has already been processed.
// Returns true if a non-duplicate entry with this event ID already exists.
func (r *PaymentAuditRepository) CheckDuplicateEvent(ctx context.Context, gatewayEventID string) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM payment_audits
		WHERE gateway_event_id = $1
		AND is_duplicate = FALSE`

	err := r.db.GetContext(ctx, &count, query, gatewayEventID)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}

	return count > 0, nil
}

// GetByTicketID retrieves all audit entries for a ticket in event order
func (r *PaymentAuditRepository) GetByTicketID(ctx context.Context, ticketID uuid.UUID) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE ticket_id = $1
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &audits, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audits by ticket ID: %w", err)
	}

	return audits, nil
}

// GetByIntentID retrieves all audit entries for a gateway intent
func (r *PaymentAuditRepository) GetByIntentID(ctx context.Context, intentID string) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE gateway_intent_id = $1
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &audits, query, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audits by intent ID: %w", err)
	}

	return audits, nil
}

// GetAmountMismatches retrieves audits where amounts don't match.
// These feed the reconciliation report for manual follow-up.
func (r *PaymentAuditRepository) GetAmountMismatches(ctx context.Context, limit int) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE amounts_match = FALSE
		ORDER BY created_at DESC
		LIMIT $1`

	err := r.db.SelectContext(ctx, &audits, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get amount mismatches: %w", err)
	}

	return audits, nil
}

// GetRecentByEventType retrieves recent events of a specific type
func (r *PaymentAuditRepository) GetRecentByEventType(ctx context.Context, eventType models.PaymentEventType, hours int, limit int) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE event_type = $1
		AND created_at > NOW() - INTERVAL '1 hour' * $2
		ORDER BY created_at DESC
		LIMIT $3`

	err := r.db.SelectContext(ctx, &audits, query, eventType, hours, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}

	return audits, nil
}

// DeleteOlderThan prunes audit entries past the retention window.
// Mismatch entries are kept regardless of age.
func (r *PaymentAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM payment_audits
		WHERE created_at < $1
		AND (amounts_match IS NULL OR amounts_match = TRUE)
		AND event_type != 'reconciliation_mismatch'`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune payment audits: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rows, nil
}
