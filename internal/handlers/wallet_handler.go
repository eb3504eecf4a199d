package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/skyreserve/flight-booking-backend/internal/middleware"
	"github.com/skyreserve/flight-booking-backend/internal/models"
	"github.com/skyreserve/flight-booking-backend/internal/services"
	"github.com/skyreserve/flight-booking-backend/internal/utils"
)

// WalletHandler serves the wallet endpoints
type WalletHandler struct {
	walletService *services.WalletService
	auditService  *services.AuditService
	logger        *logrus.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(walletService *services.WalletService, auditService *services.AuditService, logger *logrus.Logger) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		auditService:  auditService,
		logger:        logger,
	}
}

// GetBalance handles GET /api/v1/wallet
func (h *WalletHandler) GetBalance(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	balance, err := h.walletService.GetBalance(user.UserID)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"user_id": user.UserID,
		}).WithError(err).Error("Failed to get wallet balance")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"wallet": balance,
	})
}

// SetPin handles PUT /api/v1/wallet/pin
func (h *WalletHandler) SetPin(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	var req models.SetPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.walletService.SetPin(user.UserID, &req); err != nil {
		if errors.Is(err, models.ErrInvalidPin) {
			h.auditService.LogWalletPinFailure(user.UserID, utils.GetRealIP(c), utils.GetUserAgent(c))
		}
		h.logger.WithFields(logrus.Fields{
			"user_id": user.UserID,
		}).WithError(err).Warn("Failed to set wallet PIN")
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": user.UserID,
	}).Info("Wallet PIN updated")

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "PIN updated",
	})
}

// Topup handles POST /api/v1/wallet/topup
func (h *WalletHandler) Topup(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	var req models.TopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	txn, intent, err := h.walletService.Topup(c.Request.Context(), user.UserID, &req)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"user_id": user.UserID,
			"amount":  req.Amount,
		}).WithError(err).Error("Failed to initiate top-up")
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":   user.UserID,
		"txn_id":    txn.ID,
		"amount":    req.Amount,
		"intent_id": intent.IntentID,
	}).Info("Top-up initiated")

	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"transaction":  txn,
		"intent_id":    intent.IntentID,
		"client_token": intent.ClientToken,
		"payment_page": intent.PaymentPage,
	})
}

// ConfirmTopup handles POST /api/v1/wallet/topup/confirm
func (h *WalletHandler) ConfirmTopup(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	var req models.ConfirmTopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	txn, err := h.walletService.ConfirmTopup(c.Request.Context(), user.UserID, req.GatewayReference)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"user_id":     user.UserID,
			"gateway_ref": req.GatewayReference,
		}).WithError(err).Error("Failed to confirm top-up")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"transaction": txn,
	})
}

// Pay handles POST /api/v1/wallet/pay
func (h *WalletHandler) Pay(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	var req models.PayWithWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	txn, err := h.walletService.PayWithWallet(c.Request.Context(), user.UserID, &req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidPin) {
			h.auditService.LogWalletPinFailure(user.UserID, utils.GetRealIP(c), utils.GetUserAgent(c))
		}
		h.logger.WithFields(logrus.Fields{
			"user_id":   user.UserID,
			"ticket_id": req.TicketID,
		}).WithError(err).Error("Wallet payment failed")
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":   user.UserID,
		"ticket_id": req.TicketID,
		"txn_id":    txn.ID,
		"amount":    txn.Amount,
	}).Info("Ticket paid from wallet")

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"transaction": txn,
	})
}

// Withdraw handles POST /api/v1/wallet/withdraw
func (h *WalletHandler) Withdraw(c *gin.Context) {
	user := middleware.MustGetUserContext(c)

	var req models.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	txn, err := h.walletService.Withdraw(c.Request.Context(), user.UserID, &req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidPin) {
			h.auditService.LogWalletPinFailure(user.UserID, utils.GetRealIP(c), utils.GetUserAgent(c))
		}
		h.logger.WithFields(logrus.Fields{
			"user_id": user.UserID,
			"amount":  req.Amount,
		}).WithError(err).Error("Withdrawal failed")
		respondError(c, err)
		return
	}

	h.auditService.LogWithdrawal(user.UserID, txn.ID, req.Amount, utils.GetRealIP(c), utils.GetUserAgent(c))

	h.logger.WithFields(logrus.Fields{
		"user_id": user.UserID,
		"txn_id":  txn.ID,
		"amount":  req.Amount,
	}).Info("Withdrawal requested")

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"transaction": txn,
	})
}

// ListTransactions handles GET /api/v1/wallet/transactions
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	user := middleware.MustGetUserContext(c)
	limit, offset := pagination(c)

	txns, err := h.walletService.ListTransactions(user.UserID, limit, offset)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"user_id": user.UserID,
		}).WithError(err).Error("Failed to list wallet transactions")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"transactions": txns,
		"count":        len(txns),
	})
}
