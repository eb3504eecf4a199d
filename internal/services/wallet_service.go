package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skyreserve/flight-booking-backend/internal/config"
	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// WalletService handles the stored-value wallet: top-ups, payments,
// withdrawals and the transaction PIN.
type WalletService struct {
	walletRepo *database.WalletRepository
	userRepo   *database.UserRepository
	ticketRepo *database.TicketRepository
	couponSvc  *CouponService
	gatewaySvc *GatewayService
	auditRepo  *database.PaymentAuditRepository
	cfg        *config.WalletConfig
	bcryptCost int
	logger     *logrus.Logger
}

// NewWalletService creates a new WalletService
func NewWalletService(
	walletRepo *database.WalletRepository,
	userRepo *database.UserRepository,
	ticketRepo *database.TicketRepository,
	couponSvc *CouponService,
	gatewaySvc *GatewayService,
	auditRepo *database.PaymentAuditRepository,
	cfg *config.WalletConfig,
	bcryptCost int,
	logger *logrus.Logger,
) *WalletService {
	return &WalletService{
		walletRepo: walletRepo,
		userRepo:   userRepo,
		ticketRepo: ticketRepo,
		couponSvc:  couponSvc,
		gatewaySvc: gatewaySvc,
		auditRepo:  auditRepo,
		cfg:        cfg,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// GetBalance returns the user's wallet summary
func (s *WalletService) GetBalance(userID uuid.UUID) (*models.WalletBalance, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("user")
	}

	return &models.WalletBalance{
		UserID:        user.ID,
		Balance:       user.WalletBalance,
		DailyLimit:    user.DailyLimit,
		MonthlyLimit:  user.MonthlyLimit,
		TotalSpent:    user.TotalSpent,
		TotalToppedUp: user.TotalToppedUp,
		Tier:          user.WalletTier,
		HasPin:        user.HasPin(),
	}, nil
}

// SetPin sets or changes the wallet transaction PIN.
// Changing an existing PIN requires the current one.
func (s *WalletService) SetPin(userID uuid.UUID, req *models.SetPinRequest) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewNotFoundError("user")
	}

	if len(req.NewPin) != 4 && len(req.NewPin) != 6 {
		return models.NewValidationError("new_pin", "must be 4 or 6 digits")
	}
	for _, c := range req.NewPin {
		if c < '0' || c > '9' {
			return models.NewValidationError("new_pin", "must contain only digits")
		}
	}

	if user.HasPin() {
		if req.CurrentPin == nil || *req.CurrentPin == "" {
			return models.NewValidationError("current_pin", "required to change an existing pin")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*user.WalletPinHash), []byte(*req.CurrentPin)); err != nil {
			return models.ErrInvalidPin
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPin), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}

	if err := s.userRepo.SetWalletPin(userID, string(hash)); err != nil {
		return err
	}

	s.logger.WithField("user_id", userID).Info("Wallet PIN updated")
	return nil
}

// VerifyPin checks the user's wallet PIN before a spend
func (s *WalletService) VerifyPin(user *models.User, pin string) error {
	if !user.HasPin() {
		return models.NewValidationError("pin", "wallet pin has not been set")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.WalletPinHash), []byte(pin)); err != nil {
		return models.ErrInvalidPin
	}
	return nil
}

// Topup creates a gateway payment intent for a wallet top-up and records the
// pending ledger entry. The balance is credited when the gateway confirms.
func (s *WalletService) Topup(ctx context.Context, userID uuid.UUID, req *models.TopupRequest) (*models.WalletTransaction, *GatewayIntentResponse, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, models.NewNotFoundError("user")
	}
	if !user.IsActive() {
		return nil, nil, models.NewForbiddenError("account is not active")
	}

	if req.Amount < s.cfg.MinTopupAmount {
		return nil, nil, models.NewValidationError("amount",
			fmt.Sprintf("minimum top-up is %.2f", s.cfg.MinTopupAmount))
	}
	if req.Amount > s.cfg.MaxTopupAmount {
		return nil, nil, models.NewValidationError("amount",
			fmt.Sprintf("maximum top-up is %.2f", s.cfg.MaxTopupAmount))
	}

	invoiceID := fmt.Sprintf("topup-%s", uuid.New().String()[:18])
	intent, err := s.gatewaySvc.CreateIntent(invoiceID, req.Amount, "Wallet top-up")
	if err != nil {
		return nil, nil, err
	}

	txn, err := s.walletRepo.CreatePendingTopup(userID, req.Amount, req.Method, intent.IntentID)
	if err != nil {
		return nil, nil, err
	}

	audit := models.NewPaymentAudit(models.PaymentEventIntentCreated, models.PaymentSourceBackend)
	audit.UserID = &userID
	audit.GatewayIntentID = &intent.IntentID
	expected := req.Amount
	audit.ExpectedAmount = &expected
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		s.logger.WithError(err).Error("Failed to audit top-up intent")
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"txn_id":    txn.ID,
		"intent_id": intent.IntentID,
		"amount":    req.Amount,
	}).Info("Wallet top-up initiated")

	return txn, intent, nil
}

// ConfirmTopup settles a pending top-up after the gateway reports success.
// Safe to call more than once per reference; duplicates return the settled
// entry without crediting again.
func (s *WalletService) ConfirmTopup(ctx context.Context, userID uuid.UUID, gatewayRef string) (*models.WalletTransaction, error) {
	if s.gatewaySvc.IsConfigured() {
		status, err := s.gatewaySvc.CheckStatus(gatewayRef)
		if err != nil {
			return nil, err
		}
		if status.PaymentStatus != "succeeded" {
			return nil, models.NewValidationError("gateway_reference",
				fmt.Sprintf("gateway reports payment is %s", status.PaymentStatus))
		}
	}

	txn, duplicate, err := s.walletRepo.SettleTopup(gatewayRef)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		return nil, models.NewForbiddenError("top-up belongs to another user")
	}

	if !duplicate {
		audit := models.NewPaymentAudit(models.PaymentEventWalletCredit, models.PaymentSourceBackend)
		audit.UserID = &userID
		audit.GatewayIntentID = &gatewayRef
		received := txn.Amount
		audit.ReceivedAmount = &received
		if err := s.auditRepo.Log(ctx, audit); err != nil {
			s.logger.WithError(err).Error("Failed to audit top-up settlement")
		}

		s.logger.WithFields(logrus.Fields{
			"user_id":       userID,
			"txn_id":        txn.ID,
			"amount":        txn.Amount,
			"balance_after": txn.BalanceAfter,
		}).Info("Wallet top-up settled")
	}

	return txn, nil
}

// PayWithWallet settles a pending ticket from the wallet balance.
// The debit, the limit checks and the ticket transition commit atomically;
// a card settlement that lands first makes this a clean state conflict with
// no money moved.
func (s *WalletService) PayWithWallet(ctx context.Context, userID uuid.UUID, req *models.PayWithWalletRequest) (*models.WalletTransaction, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("user")
	}
	if !user.IsActive() {
		return nil, models.NewForbiddenError("account is not active")
	}
	if err := s.VerifyPin(user, req.Pin); err != nil {
		return nil, err
	}

	ticket, err := s.ticketRepo.GetByID(req.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, models.NewNotFoundError("ticket")
	}
	if ticket.UserID != userID {
		return nil, models.NewForbiddenError("ticket belongs to another user")
	}
	if !ticket.CanMarkPaid() {
		return nil, models.NewStateConflictError("ticket", string(ticket.PaymentStatus))
	}
	if ticket.IsDeadlineExpired() {
		return nil, models.NewValidationError("ticket_id", "payment deadline has passed")
	}

	txn, err := s.walletRepo.PayForTicket(userID, ticket, ticket.FinalAmount, s.ticketRepo)
	if err != nil {
		return nil, err
	}

	audit := models.NewPaymentAudit(models.PaymentEventWalletDebit, models.PaymentSourceUser).
		WithTicket(ticket.ID).
		WithAmounts(ticket.FinalAmount, txn.Amount)
	audit.UserID = &userID
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		s.logger.WithError(err).Error("Failed to audit wallet payment")
	}

	// Count the coupon use now that the discounted payment settled
	if ticket.CouponID != nil {
		s.redeemCoupon(ctx, ticket)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"ticket_id":     ticket.ID,
		"amount":        txn.Amount,
		"balance_after": txn.BalanceAfter,
	}).Info("Ticket paid from wallet")

	return txn, nil
}

// Withdraw moves funds from the wallet toward the user's bank account.
// The balance is debited immediately into a pending entry.
func (s *WalletService) Withdraw(ctx context.Context, userID uuid.UUID, req *models.WithdrawRequest) (*models.WalletTransaction, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("user")
	}
	if !user.IsActive() {
		return nil, models.NewForbiddenError("account is not active")
	}
	if err := s.VerifyPin(user, req.Pin); err != nil {
		return nil, err
	}

	if req.Amount <= 0 {
		return nil, models.NewValidationError("amount", "must be positive")
	}
	if req.Amount < s.cfg.MinWithdrawalAmount {
		return nil, models.NewValidationError("amount",
			fmt.Sprintf("minimum withdrawal is %.2f", s.cfg.MinWithdrawalAmount))
	}
	if req.Amount > s.cfg.MaxWithdrawalAmount {
		return nil, models.NewValidationError("amount",
			fmt.Sprintf("maximum withdrawal is %.2f", s.cfg.MaxWithdrawalAmount))
	}
	if req.BankAccount == "" {
		return nil, models.NewValidationError("bank_account", "is required")
	}

	txn, err := s.walletRepo.Withdraw(userID, req.Amount, req.BankAccount)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"txn_id":        txn.ID,
		"amount":        req.Amount,
		"balance_after": txn.BalanceAfter,
	}).Info("Wallet withdrawal initiated")

	return txn, nil
}

// ListTransactions returns the user's ledger entries newest first
func (s *WalletService) ListTransactions(userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.walletRepo.ListTransactions(userID, limit, offset)
}

// redeemCoupon consumes the ticket's coupon use after a settled payment.
// Losing the usage race does not unwind the payment; the mismatch is
// audited for manual follow-up.
func (s *WalletService) redeemCoupon(ctx context.Context, ticket *models.Ticket) {
	redeemed, err := s.couponSvc.Redeem(*ticket.CouponID)
	if err != nil {
		s.logger.WithError(err).WithField("ticket_id", ticket.ID).Error("Failed to redeem coupon")
		return
	}
	if !redeemed {
		audit := models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, models.PaymentSourceBackend).
			WithTicket(ticket.ID)
		audit.Payload = models.JSONB{
			"reason":    "coupon usage limit hit after payment settled",
			"coupon_id": ticket.CouponID.String(),
		}
		if err := s.auditRepo.Log(ctx, audit); err != nil {
			s.logger.WithError(err).Error("Failed to audit coupon redemption mismatch")
		}
	}
}
