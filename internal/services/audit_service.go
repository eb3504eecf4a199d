package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/skyreserve/flight-booking-backend/internal/models"
	"github.com/skyreserve/flight-booking-backend/internal/utils"
)

// AuditService handles security event logging for account-facing actions.
// Payment money movement has its own audit trail; this one records who did
// what from where.
type AuditService struct {
	db *sqlx.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db *sqlx.DB) *AuditService {
	return &AuditService{
		db: db,
	}
}

// AuditEvent represents a security event to be logged
type AuditEvent struct {
	UserID     *uuid.UUID
	Action     string // e.g. "booking_created", "wallet_pin_failed"
	EntityType string // e.g. "ticket", "wallet", "coupon"
	EntityID   *uuid.UUID
	IPAddress  string
	UserAgent  string
	Details    map[string]interface{}
}

// LogBookingCreated logs a successful booking
func (s *AuditService) LogBookingCreated(userID, ticketID uuid.UUID, ipAddress, userAgent string, seats []string) error {
	return s.logEvent(AuditEvent{
		UserID:     &userID,
		Action:     "booking_created",
		EntityType: "ticket",
		EntityID:   &ticketID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: map[string]interface{}{
			"seats":       seats,
			"device_info": utils.ParseUserAgent(userAgent),
		},
	})
}

// LogTicketCancelled logs a cancellation or refund request
func (s *AuditService) LogTicketCancelled(userID, ticketID uuid.UUID, ipAddress, userAgent, reason string) error {
	details := map[string]interface{}{
		"device_info": utils.ParseUserAgent(userAgent),
	}
	if reason != "" {
		details["reason"] = reason
	}

	return s.logEvent(AuditEvent{
		UserID:     &userID,
		Action:     "ticket_cancelled",
		EntityType: "ticket",
		EntityID:   &ticketID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogCheckIn logs a passenger check-in
func (s *AuditService) LogCheckIn(userID, ticketID uuid.UUID, ipAddress, userAgent string) error {
	return s.logEvent(AuditEvent{
		UserID:     &userID,
		Action:     "check_in",
		EntityType: "ticket",
		EntityID:   &ticketID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: map[string]interface{}{
			"device_info": utils.ParseUserAgent(userAgent),
		},
	})
}

// LogWalletPinFailure logs a failed wallet PIN attempt. Repeated failures
// from one address are the main fraud signal for stored-value accounts.
func (s *AuditService) LogWalletPinFailure(userID uuid.UUID, ipAddress, userAgent string) error {
	return s.logEvent(AuditEvent{
		UserID:     &userID,
		Action:     "wallet_pin_failed",
		EntityType: "wallet",
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: map[string]interface{}{
			"device_info": utils.ParseUserAgent(userAgent),
		},
	})
}

// LogWithdrawal logs a wallet withdrawal request
func (s *AuditService) LogWithdrawal(userID, txnID uuid.UUID, amount float64, ipAddress, userAgent string) error {
	return s.logEvent(AuditEvent{
		UserID:     &userID,
		Action:     "wallet_withdrawal",
		EntityType: "wallet",
		EntityID:   &txnID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: map[string]interface{}{
			"amount":      amount,
			"device_info": utils.ParseUserAgent(userAgent),
		},
	})
}

// LogSuspiciousActivity logs suspicious security events
func (s *AuditService) LogSuspiciousActivity(userID *uuid.UUID, activity, ipAddress, userAgent string, details map[string]interface{}) error {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["device_info"] = utils.ParseUserAgent(userAgent)
	details["activity"] = activity

	return s.logEvent(AuditEvent{
		UserID:     userID,
		Action:     "suspicious_activity",
		EntityType: "security",
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// logEvent writes to the audit_logs table
func (s *AuditService) logEvent(event AuditEvent) error {
	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

	_, err := s.db.Exec(
		query,
		event.UserID,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.IPAddress,
		event.UserAgent,
		models.JSONB(event.Details),
	)

	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}

// GetRecentEvents retrieves recent audit events for a user
func (s *AuditService) GetRecentEvents(userID uuid.UUID, limit int) ([]map[string]interface{}, error) {
	query := `
		SELECT action, entity_type, ip_address, user_agent, details, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.Queryx(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}
	defer rows.Close()

	events := []map[string]interface{}{}
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			continue
		}
		events = append(events, row)
	}

	return events, nil
}
