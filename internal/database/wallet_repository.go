package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/skyreserve/flight-booking-backend/internal/models"
)

// WalletRepository handles the wallet ledger database operations.
// Every balance mutation runs in a transaction holding a row lock on the
// user, so concurrent spends against the same wallet are strictly ordered:
// the check, the ledger insert, the balance_after computation and the
// denormalized users.wallet_balance write commit as one unit.
type WalletRepository struct {
	db *sqlx.DB
}

// NewWalletRepository creates a new WalletRepository
func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

const walletTxnColumns = `
	id, user_id, type, amount, balance_after, description, status,
	ticket_id, gateway_reference, bank_account, created_at, updated_at`

// lockUser loads the user's wallet fields under FOR UPDATE
func (r *WalletRepository) lockUser(tx *sqlx.Tx, userID uuid.UUID) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, email, full_name, status, wallet_balance, wallet_pin_hash,
		       daily_limit, monthly_limit, total_spent, total_topped_up,
		       wallet_tier, created_at, updated_at
		FROM users
		WHERE id = $1
		FOR UPDATE`
	err := tx.Get(&user, query, userID)
	if err == sql.ErrNoRows {
		return nil, models.NewNotFoundError("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	return &user, nil
}

// insertTxn appends one ledger entry inside the transaction
func (r *WalletRepository) insertTxn(tx *sqlx.Tx, txn *models.WalletTransaction) error {
	txn.ID = uuid.New()
	txn.CreatedAt = time.Now()
	txn.UpdatedAt = txn.CreatedAt

	query := `
		INSERT INTO wallet_transactions (
			id, user_id, type, amount, balance_after, description, status,
			ticket_id, gateway_reference, bank_account, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(query,
		txn.ID, txn.UserID, txn.Type, txn.Amount, txn.BalanceAfter,
		txn.Description, txn.Status, txn.TicketID, txn.GatewayReference,
		txn.BankAccount, txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert wallet transaction: %w", err)
	}
	return nil
}

// spentSince sums the user's outgoing transactions created at or after the
// cutoff. Pending withdrawals count against the limits.
func (r *WalletRepository) spentSince(tx *sqlx.Tx, userID uuid.UUID, since time.Time) (float64, error) {
	var total float64
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM wallet_transactions
		WHERE user_id = $1
		  AND type IN ('payment', 'withdrawal')
		  AND status IN ('pending', 'completed')
		  AND created_at >= $2`
	if err := tx.Get(&total, query, userID, since); err != nil {
		return 0, fmt.Errorf("failed to sum spend: %w", err)
	}
	return total, nil
}

// CreatePendingTopup records a gateway-mediated top-up awaiting confirmation.
// The balance is not credited until the top-up settles.
func (r *WalletRepository) CreatePendingTopup(userID uuid.UUID, amount float64, method, gatewayRef string) (*models.WalletTransaction, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txn := &models.WalletTransaction{
		UserID:           userID,
		Type:             models.WalletTxnTopup,
		Amount:           amount,
		Description:      fmt.Sprintf("Wallet top-up via %s", method),
		Status:           models.WalletTxnPending,
		GatewayReference: &gatewayRef,
	}
	if err := r.insertTxn(tx, txn); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return txn, nil
}

// SettleTopup transitions the pending top-up matching the gateway reference
// to completed and credits the balance. Idempotent: settling an already
// completed reference returns the existing entry unchanged, never
// double-crediting.
func (r *WalletRepository) SettleTopup(gatewayRef string) (*models.WalletTransaction, bool, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var txn models.WalletTransaction
	query := `
		SELECT ` + walletTxnColumns + `
		FROM wallet_transactions
		WHERE gateway_reference = $1 AND type = 'topup'
		FOR UPDATE`
	err = tx.Get(&txn, query, gatewayRef)
	if err == sql.ErrNoRows {
		return nil, false, models.NewNotFoundError("pending top-up")
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get top-up: %w", err)
	}

	if txn.Status == models.WalletTxnCompleted {
		return &txn, true, nil
	}
	if txn.Status != models.WalletTxnPending {
		return nil, false, models.NewStateConflictError("top-up", string(txn.Status))
	}

	user, err := r.lockUser(tx, txn.UserID)
	if err != nil {
		return nil, false, err
	}

	balanceAfter := user.WalletBalance + txn.Amount
	totalToppedUp := user.TotalToppedUp + txn.Amount
	tier := models.TierForTotalTopup(totalToppedUp)

	_, err = tx.Exec(`
		UPDATE wallet_transactions
		SET status = 'completed', balance_after = $2, updated_at = NOW()
		WHERE id = $1`,
		txn.ID, balanceAfter)
	if err != nil {
		return nil, false, fmt.Errorf("failed to settle top-up: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE users
		SET wallet_balance = $2, total_topped_up = $3, wallet_tier = $4, updated_at = NOW()
		WHERE id = $1`,
		user.ID, balanceAfter, totalToppedUp, tier)
	if err != nil {
		return nil, false, fmt.Errorf("failed to update wallet balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	txn.Status = models.WalletTxnCompleted
	txn.BalanceAfter = balanceAfter
	return &txn, false, nil
}

// PayForTicket atomically debits the wallet and marks the ticket paid in a
// single transaction. The user row lock serializes concurrent spends; the
// limit checks and balance check are evaluated against the locked state,
// never a stale snapshot.
func (r *WalletRepository) PayForTicket(
	userID uuid.UUID,
	ticket *models.Ticket,
	amount float64,
	ticketRepo *TicketRepository,
) (*models.WalletTransaction, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := r.lockUser(tx, userID)
	if err != nil {
		return nil, err
	}

	if user.WalletBalance < amount {
		return nil, models.NewConflictError(models.ConflictInsufficientBalance,
			"wallet balance is insufficient for this payment")
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	if user.DailyLimit > 0 {
		spentToday, err := r.spentSince(tx, userID, dayStart)
		if err != nil {
			return nil, err
		}
		if spentToday+amount > user.DailyLimit {
			return nil, models.NewConflictError(models.ConflictLimitExceeded,
				"daily spend limit exceeded")
		}
	}
	if user.MonthlyLimit > 0 {
		spentThisMonth, err := r.spentSince(tx, userID, monthStart)
		if err != nil {
			return nil, err
		}
		if spentThisMonth+amount > user.MonthlyLimit {
			return nil, models.NewConflictError(models.ConflictLimitExceeded,
				"monthly spend limit exceeded")
		}
	}

	balanceAfter := user.WalletBalance - amount
	txn := &models.WalletTransaction{
		UserID:       userID,
		Type:         models.WalletTxnPayment,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Description:  fmt.Sprintf("Payment for ticket %s", ticket.TicketCode),
		Status:       models.WalletTxnCompleted,
		TicketID:     &ticket.ID,
	}
	if err := r.insertTxn(tx, txn); err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		UPDATE users
		SET wallet_balance = $2, total_spent = total_spent + $3, updated_at = NOW()
		WHERE id = $1`,
		user.ID, balanceAfter, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to update wallet balance: %w", err)
	}

	transitioned, err := ticketRepo.MarkPaidTx(tx, ticket.ID, models.PaymentMethodWallet, &txn.ID)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		return nil, models.NewStateConflictError("ticket", string(ticket.PaymentStatus))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return txn, nil
}

// Credit appends a completed credit entry (refund) and writes the updated
// balance. Credits need no balance check.
func (r *WalletRepository) Credit(userID uuid.UUID, amount float64, txnType models.WalletTxnType, description string, ticketID *uuid.UUID) (*models.WalletTransaction, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := r.lockUser(tx, userID)
	if err != nil {
		return nil, err
	}

	balanceAfter := user.WalletBalance + amount
	txn := &models.WalletTransaction{
		UserID:       userID,
		Type:         txnType,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Description:  description,
		Status:       models.WalletTxnCompleted,
		TicketID:     ticketID,
	}
	if err := r.insertTxn(tx, txn); err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		UPDATE users
		SET wallet_balance = $2, updated_at = NOW()
		WHERE id = $1`,
		user.ID, balanceAfter)
	if err != nil {
		return nil, fmt.Errorf("failed to update wallet balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return txn, nil
}

// Withdraw debits the balance immediately into a pending withdrawal entry
// awaiting external settlement. The debit is optimistic: the funds leave the
// balance now so they cannot be double-spent while the transfer is in flight.
func (r *WalletRepository) Withdraw(userID uuid.UUID, amount float64, bankAccount string) (*models.WalletTransaction, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user, err := r.lockUser(tx, userID)
	if err != nil {
		return nil, err
	}

	if user.WalletBalance < amount {
		return nil, models.NewConflictError(models.ConflictInsufficientBalance,
			"wallet balance is insufficient for this withdrawal")
	}

	balanceAfter := user.WalletBalance - amount
	txn := &models.WalletTransaction{
		UserID:       userID,
		Type:         models.WalletTxnWithdrawal,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Description:  "Withdrawal to bank account",
		Status:       models.WalletTxnPending,
		BankAccount:  &bankAccount,
	}
	if err := r.insertTxn(tx, txn); err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		UPDATE users
		SET wallet_balance = $2, updated_at = NOW()
		WHERE id = $1`,
		user.ID, balanceAfter)
	if err != nil {
		return nil, fmt.Errorf("failed to update wallet balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return txn, nil
}

// ListTransactions returns a user's ledger entries newest first, paginated
func (r *WalletRepository) ListTransactions(userID uuid.UUID, limit, offset int) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	query := `
		SELECT ` + walletTxnColumns + `
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	err := r.db.Select(&txns, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	return txns, nil
}

// GetByTicketAndType returns the completed ledger entry that settled a
// ticket, if any. Used to route refunds back to the original channel.
func (r *WalletRepository) GetByTicketAndType(ticketID uuid.UUID, txnType models.WalletTxnType) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	query := `
		SELECT ` + walletTxnColumns + `
		FROM wallet_transactions
		WHERE ticket_id = $1 AND type = $2 AND status = 'completed'
		ORDER BY created_at DESC
		LIMIT 1`
	err := r.db.Get(&txn, query, ticketID, txnType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet transaction: %w", err)
	}
	return &txn, nil
}
