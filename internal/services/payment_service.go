package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// PaymentService coordinates card settlements, webhooks and refunds.
// Settlement is idempotent: the webhook and the client confirm path can
// race, and the ticket's state-guarded transition picks exactly one winner.
type PaymentService struct {
	ticketRepo *database.TicketRepository
	walletRepo *database.WalletRepository
	auditRepo  *database.PaymentAuditRepository
	bookingSvc *BookingService
	couponSvc  *CouponService
	gatewaySvc *GatewayService
	logger     *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	ticketRepo *database.TicketRepository,
	walletRepo *database.WalletRepository,
	auditRepo *database.PaymentAuditRepository,
	bookingSvc *BookingService,
	couponSvc *CouponService,
	gatewaySvc *GatewayService,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		ticketRepo: ticketRepo,
		walletRepo: walletRepo,
		auditRepo:  auditRepo,
		bookingSvc: bookingSvc,
		couponSvc:  couponSvc,
		gatewaySvc: gatewaySvc,
		logger:     logger,
	}
}

// InitiateCardPayment creates a gateway intent for a pending ticket and
// stores the intent ID on the ticket for webhook correlation.
func (s *PaymentService) InitiateCardPayment(ctx context.Context, userID, ticketID uuid.UUID) (*models.Ticket, *GatewayIntentResponse, error) {
	ticket, err := s.ticketRepo.GetByID(ticketID)
	if err != nil {
		return nil, nil, err
	}
	if ticket == nil {
		return nil, nil, models.NewNotFoundError("ticket")
	}
	if ticket.UserID != userID {
		return nil, nil, models.NewForbiddenError("ticket belongs to another user")
	}
	if !ticket.CanMarkPaid() {
		return nil, nil, models.NewStateConflictError("ticket", string(ticket.PaymentStatus))
	}
	if ticket.IsDeadlineExpired() {
		return nil, nil, models.NewValidationError("ticket_id", "payment deadline has passed")
	}

	intent, err := s.gatewaySvc.CreateIntent(ticket.TicketCode, ticket.FinalAmount,
		fmt.Sprintf("Flight ticket %s", ticket.TicketCode))
	if err != nil {
		return nil, nil, err
	}

	if err := s.ticketRepo.SetGatewayIntent(ticket.ID, intent.IntentID); err != nil {
		return nil, nil, err
	}
	ticket.GatewayIntentID = &intent.IntentID

	audit := models.NewPaymentAudit(models.PaymentEventIntentCreated, models.PaymentSourceBackend).
		WithTicket(ticket.ID)
	audit.UserID = &userID
	audit.GatewayIntentID = &intent.IntentID
	expected := ticket.FinalAmount
	audit.ExpectedAmount = &expected
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		s.logger.WithError(err).Error("Failed to audit intent creation")
	}

	s.logger.WithFields(logrus.Fields{
		"ticket_id": ticket.ID,
		"intent_id": intent.IntentID,
		"amount":    ticket.FinalAmount,
	}).Info("Card payment initiated")

	return ticket, intent, nil
}

// ConfirmPayment is the client-driven settlement path. The gateway is asked
// for the authoritative status before any state moves. If the webhook
// settled the ticket first this is a no-op returning the paid ticket.
func (s *PaymentService) ConfirmPayment(ctx context.Context, userID, ticketID uuid.UUID) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, models.NewNotFoundError("ticket")
	}
	if ticket.UserID != userID {
		return nil, models.NewForbiddenError("ticket belongs to another user")
	}

	// Already settled by the webhook or a concurrent confirm
	if ticket.PaymentStatus == models.PaymentStatusPaid {
		return ticket, nil
	}
	if !ticket.CanMarkPaid() {
		return nil, models.NewStateConflictError("ticket", string(ticket.PaymentStatus))
	}
	if ticket.GatewayIntentID == nil {
		return nil, models.NewValidationError("ticket_id", "no card payment was initiated for this ticket")
	}

	status, err := s.gatewaySvc.CheckStatus(*ticket.GatewayIntentID)
	if err != nil {
		return nil, err
	}
	if status.PaymentStatus != "succeeded" {
		return nil, models.NewValidationError("ticket_id",
			fmt.Sprintf("gateway reports payment is %s", status.PaymentStatus))
	}

	audit := models.NewPaymentAudit(models.PaymentEventClientConfirm, models.PaymentSourceUser).
		WithTicket(ticket.ID)
	audit.UserID = &userID
	audit.GatewayIntentID = ticket.GatewayIntentID
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		s.logger.WithError(err).Error("Failed to audit client confirm")
	}

	if err := s.settle(ctx, ticket, models.PaymentSourceUser, ticket.FinalAmount); err != nil {
		return nil, err
	}

	return s.ticketRepo.GetByID(ticketID)
}

// HandleWebhookEvent processes a verified gateway webhook. Events are
// deduplicated by gateway event ID; replays are audited and dropped.
func (s *PaymentService) HandleWebhookEvent(ctx context.Context, body []byte, signature, ipAddress string) error {
	event, err := s.gatewaySvc.VerifyWebhook(body, signature)
	if err != nil {
		return models.NewValidationError("webhook", err.Error())
	}

	duplicate, err := s.auditRepo.CheckDuplicateEvent(ctx, event.EventID)
	if err != nil {
		return err
	}

	audit := models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourceWebhook)
	audit.GatewayEventID = &event.EventID
	audit.GatewayIntentID = &event.IntentID
	audit.IPAddress = &ipAddress
	audit.IsDuplicate = duplicate
	audit.Payload = models.JSONB{
		"event_type": event.EventType,
		"invoice_id": event.InvoiceID,
		"amount":     event.Amount,
	}
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		s.logger.WithError(err).Error("Failed to audit webhook")
	}

	if duplicate {
		s.logger.WithField("event_id", event.EventID).Warn("Duplicate webhook event dropped")
		return nil
	}

	ticket, err := s.ticketRepo.GetByGatewayIntentID(event.IntentID)
	if err != nil {
		return err
	}
	if ticket == nil {
		s.logger.WithFields(logrus.Fields{
			"event_id":  event.EventID,
			"intent_id": event.IntentID,
		}).Warn("Webhook references unknown intent")
		return models.NewNotFoundError("ticket")
	}

	switch event.EventType {
	case "payment.succeeded":
		return s.handlePaymentSucceeded(ctx, ticket, event)
	case "payment.failed":
		return s.handlePaymentFailed(ctx, ticket, event)
	case "payment.dispute_created":
		return s.handleDisputeCreated(ctx, ticket, event)
	default:
		s.logger.WithFields(logrus.Fields{
			"event_id":   event.EventID,
			"event_type": event.EventType,
		}).Warn("Unhandled webhook event type")
		return nil
	}
}

func (s *PaymentService) handlePaymentSucceeded(ctx context.Context, ticket *models.Ticket, event *GatewayWebhookEvent) error {
	// An amount mismatch does not unwind a settlement the gateway already
	// captured; it is flagged for manual reconciliation instead.
	if math.Abs(event.Amount-ticket.FinalAmount) > 0.009 {
		audit := models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, models.PaymentSourceWebhook).
			WithTicket(ticket.ID).
			WithAmounts(ticket.FinalAmount, event.Amount)
		audit.GatewayEventID = &event.EventID
		audit.GatewayIntentID = &event.IntentID
		if err := s.auditRepo.Log(ctx, audit); err != nil {
			s.logger.WithError(err).Error("Failed to audit amount mismatch")
		}
		s.logger.WithFields(logrus.Fields{
			"ticket_id": ticket.ID,
			"expected":  ticket.FinalAmount,
			"received":  event.Amount,
		}).Error("Webhook amount does not match ticket")
	}

	return s.settle(ctx, ticket, models.PaymentSourceWebhook, event.Amount)
}

func (s *PaymentService) handlePaymentFailed(ctx context.Context, ticket *models.Ticket, event *GatewayWebhookEvent) error {
	// Release the seats together with the failed transition. The guard
	// no-ops when the payment already settled through another path.
	err := s.bookingSvc.ReleaseSeats(ticket, s.ticketRepo.MarkFailedTx)
	if err != nil {
		var stateErr *models.StateConflictError
		if errors.As(err, &stateErr) {
			s.logger.WithField("ticket_id", ticket.ID).Warn("Failure webhook lost to a settled payment")
			return nil
		}
		return err
	}

	audit := models.NewPaymentAudit(models.PaymentEventFailed, models.PaymentSourceWebhook).
		WithTicket(ticket.ID)
	audit.GatewayEventID = &event.EventID
	audit.GatewayIntentID = &event.IntentID
	if event.Reason != "" {
		audit.Payload = models.JSONB{"reason": event.Reason}
	}
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		s.logger.WithError(err).Error("Failed to audit payment failure")
	}

	s.logger.WithFields(logrus.Fields{
		"ticket_id": ticket.ID,
		"reason":    event.Reason,
	}).Info("Card payment failed, seats released")

	return nil
}

func (s *PaymentService) handleDisputeCreated(ctx context.Context, ticket *models.Ticket, event *GatewayWebhookEvent) error {
	disputed, err := s.ticketRepo.MarkDisputed(ticket.ID)
	if err != nil {
		return err
	}
	if !disputed {
		s.logger.WithField("ticket_id", ticket.ID).Warn("Dispute webhook for a ticket that is not paid")
		return nil
	}

	// Disputed is terminal for automation. Seats stay with the ticket and
	// funds stay put until an operator resolves the case.
	audit := models.NewPaymentAudit(models.PaymentEventDisputed, models.PaymentSourceWebhook).
		WithTicket(ticket.ID)
	audit.GatewayEventID = &event.EventID
	audit.GatewayIntentID = &event.IntentID
	if event.Reason != "" {
		audit.Payload = models.JSONB{"reason": event.Reason}
	}
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		s.logger.WithError(err).Error("Failed to audit dispute")
	}

	s.logger.WithFields(logrus.Fields{
		"ticket_id": ticket.ID,
		"reason":    event.Reason,
	}).Warn("Payment disputed, ticket frozen for manual review")

	return nil
}

// settle transitions the ticket to paid. The conditional update makes this
// idempotent across racing confirm paths: exactly one caller transitions,
// the rest observe the already-paid ticket and do nothing.
func (s *PaymentService) settle(ctx context.Context, ticket *models.Ticket, source models.PaymentEventSource, receivedAmount float64) error {
	transitioned, err := s.ticketRepo.MarkPaid(ticket.ID, models.PaymentMethodCard)
	if err != nil {
		return err
	}
	if !transitioned {
		// Either a concurrent confirm won, which is benign, or the ticket
		// already expired or failed and the gateway captured money for
		// released seats. The latter needs a reconciliation entry.
		current, err := s.ticketRepo.GetByID(ticket.ID)
		if err != nil {
			return err
		}
		if current != nil && current.PaymentStatus != models.PaymentStatusPaid {
			mismatch := models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, source).
				WithTicket(ticket.ID).
				WithAmounts(ticket.FinalAmount, receivedAmount)
			mismatch.GatewayIntentID = ticket.GatewayIntentID
			mismatch.Payload = models.JSONB{
				"reason":         "payment captured for a ticket no longer pending",
				"payment_status": string(current.PaymentStatus),
			}
			if err := s.auditRepo.Log(ctx, mismatch); err != nil {
				s.logger.WithError(err).Error("Failed to audit settlement mismatch")
			}
			s.logger.WithFields(logrus.Fields{
				"ticket_id":      ticket.ID,
				"payment_status": current.PaymentStatus,
			}).Warn("Settlement arrived after the ticket left pending")
			return nil
		}
		s.logger.WithField("ticket_id", ticket.ID).Info("Settlement lost the race, ticket already settled")
		return nil
	}

	audit := models.NewPaymentAudit(models.PaymentEventSettled, source).
		WithTicket(ticket.ID).
		WithAmounts(ticket.FinalAmount, receivedAmount)
	audit.GatewayIntentID = ticket.GatewayIntentID
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		s.logger.WithError(err).Error("Failed to audit settlement")
	}

	// Count the coupon use now that the discounted payment settled. Losing
	// the usage race never unwinds the captured payment.
	if ticket.CouponID != nil {
		redeemed, err := s.couponSvc.Redeem(*ticket.CouponID)
		if err != nil {
			s.logger.WithError(err).WithField("ticket_id", ticket.ID).Error("Failed to redeem coupon")
		} else if !redeemed {
			mismatch := models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, models.PaymentSourceBackend).
				WithTicket(ticket.ID)
			mismatch.Payload = models.JSONB{
				"reason":    "coupon usage limit hit after payment settled",
				"coupon_id": ticket.CouponID.String(),
			}
			if err := s.auditRepo.Log(ctx, mismatch); err != nil {
				s.logger.WithError(err).Error("Failed to audit coupon redemption mismatch")
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"ticket_id": ticket.ID,
		"source":    source,
		"amount":    receivedAmount,
	}).Info("Payment settled")

	return nil
}

// Refund returns a paid ticket's funds to the original channel and releases
// its seats. Card refunds go through the gateway first; if the gateway
// accepts but the local transition then fails, the discrepancy is audited
// for manual follow-up rather than silently retried.
func (s *PaymentService) Refund(ctx context.Context, userID, ticketID uuid.UUID, isAdmin bool) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, models.NewNotFoundError("ticket")
	}
	if !isAdmin && ticket.UserID != userID {
		return nil, models.NewForbiddenError("ticket belongs to another user")
	}
	if !ticket.CanRefund() {
		return nil, models.NewStateConflictError("ticket", string(ticket.PaymentStatus))
	}

	audit := models.NewPaymentAudit(models.PaymentEventRefundInitiated, models.PaymentSourceUser).
		WithTicket(ticket.ID)
	audit.UserID = &userID
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		s.logger.WithError(err).Error("Failed to audit refund initiation")
	}

	method := models.PaymentMethodCard
	if ticket.PaymentMethod != nil {
		method = *ticket.PaymentMethod
	}

	if method == models.PaymentMethodCard {
		if ticket.GatewayIntentID == nil {
			return nil, models.NewValidationError("ticket_id", "ticket has no gateway intent to refund")
		}
		if _, err := s.gatewaySvc.Refund(*ticket.GatewayIntentID, ticket.FinalAmount); err != nil {
			return nil, err
		}
	}

	if err := s.bookingSvc.ReleaseSeats(ticket, s.ticketRepo.MarkRefundedTx); err != nil {
		if method == models.PaymentMethodCard {
			mismatch := models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, models.PaymentSourceBackend).
				WithTicket(ticket.ID).
				WithError(err)
			mismatch.Payload = models.JSONB{
				"reason": "gateway refund accepted but local refund transition failed",
			}
			if auditErr := s.auditRepo.Log(ctx, mismatch); auditErr != nil {
				s.logger.WithError(auditErr).Error("Failed to audit refund mismatch")
			}
		}
		return nil, err
	}

	// A refunded discount hands its usage slot back to the coupon
	if ticket.CouponID != nil {
		if err := s.couponSvc.Release(*ticket.CouponID); err != nil {
			s.logger.WithFields(logrus.Fields{
				"ticket_id": ticket.ID,
				"coupon_id": *ticket.CouponID,
			}).WithError(err).Error("Failed to release coupon usage on refund")
		}
	}

	// Wallet-settled tickets get the funds credited back to the ledger
	if method == models.PaymentMethodWallet {
		if _, err := s.walletRepo.Credit(ticket.UserID, ticket.FinalAmount, models.WalletTxnRefund,
			fmt.Sprintf("Refund for ticket %s", ticket.TicketCode), &ticket.ID); err != nil {
			// The ticket is already refunded; a failed credit must not be
			// lost, so it lands in the audit trail for manual replay.
			mismatch := models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, models.PaymentSourceBackend).
				WithTicket(ticket.ID).
				WithError(err)
			mismatch.Payload = models.JSONB{
				"reason": "ticket refunded but wallet credit failed",
				"amount": ticket.FinalAmount,
			}
			if auditErr := s.auditRepo.Log(ctx, mismatch); auditErr != nil {
				s.logger.WithError(auditErr).Error("Failed to audit wallet credit failure")
			}
			return nil, err
		}
	}

	completed := models.NewPaymentAudit(models.PaymentEventRefundCompleted, models.PaymentSourceBackend).
		WithTicket(ticket.ID)
	amount := ticket.FinalAmount
	completed.ReceivedAmount = &amount
	if err := s.auditRepo.Log(ctx, completed); err != nil {
		s.logger.WithError(err).Error("Failed to audit refund completion")
	}

	s.logger.WithFields(logrus.Fields{
		"ticket_id": ticket.ID,
		"method":    method,
		"amount":    ticket.FinalAmount,
	}).Info("Ticket refunded")

	return s.ticketRepo.GetByID(ticketID)
}

// ExpireTicket fails a pending ticket whose payment deadline has passed and
// releases its seats. Called by the expiration sweep. A payment that lands
// between the sweep's read and the transition wins; the expiry no-ops.
func (s *PaymentService) ExpireTicket(ctx context.Context, ticket *models.Ticket) error {
	err := s.bookingSvc.ReleaseSeats(ticket, s.ticketRepo.MarkFailedTx)
	if err != nil {
		var stateErr *models.StateConflictError
		if errors.As(err, &stateErr) {
			s.logger.WithField("ticket_id", ticket.ID).Info("Expiry skipped, payment settled first")
			return nil
		}
		return err
	}

	audit := models.NewPaymentAudit(models.PaymentEventDeadlineExpired, models.PaymentSourceSweep).
		WithTicket(ticket.ID)
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		s.logger.WithError(err).Error("Failed to audit deadline expiry")
	}

	s.logger.WithFields(logrus.Fields{
		"ticket_id":   ticket.ID,
		"ticket_code": ticket.TicketCode,
	}).Info("Pending ticket expired, seats released")

	return nil
}
