package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/services/withdrawal"
	"vaultledger/internal/utils"
)

type WithdrawalHandler struct {
	withdrawals withdrawal.Service
	log         *zap.Logger
}

func NewWithdrawalHandler(withdrawals withdrawal.Service, log *zap.Logger) *WithdrawalHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WithdrawalHandler{withdrawals: withdrawals, log: log}
}

// RequestWithdrawal stages a withdrawal on the :channel route and mails the code.
func (h *WithdrawalHandler) RequestWithdrawal(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input withdrawal.Request
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	input.Channel = c.Params("channel")

	issued, err := h.withdrawals.Issue(c.UserContext(), claims.UserID, input)
	if err != nil {
		return utils.HandleError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message":   "OTP sent to your email",
		"channel":   issued.Channel,
		"expiresAt": issued.ExpiresAt,
	})
}

// VerifyWithdrawal consumes the code. Every code problem reads the same to the client.
func (h *WithdrawalHandler) VerifyWithdrawal(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		OTP string `json:"otp"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	outcome, err := h.withdrawals.Verify(c.UserContext(), claims.UserID, c.Params("channel"), input.OTP)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidOrExpiredCode) || errors.Is(err, apperrors.ErrVerificationFailed) {
			return utils.BadRequest(c, apperrors.ErrInvalidOrExpiredCode.Message)
		}
		return utils.HandleError(c, err)
	}

	message := "Withdrawal is being processed"
	if outcome.Entry == nil {
		message = "Withdrawal failed: card is not active"
	}
	return utils.Success(c, fiber.Map{
		"message":    message,
		"withdrawal": outcome,
	})
}
