package handlers

import (
	"github.com/gofiber/fiber/v2"

	"vaultledger/internal/services/reward"
	"vaultledger/internal/utils"
)

type RewardHandler struct {
	rewards reward.Service
}

func NewRewardHandler(rewards reward.Service) *RewardHandler {
	return &RewardHandler{rewards: rewards}
}

func (h *RewardHandler) SpinAvailability(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	availability, err := h.rewards.CheckSpinCooldown(c.UserContext(), claims.UserID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, availability)
}

func (h *RewardHandler) Spin(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		USDAmount  string `json:"usdAmount"`
		PrizeLabel string `json:"prizeLabel"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	result, err := h.rewards.CreditSpinReward(c.UserContext(), reward.SpinRequest{
		AccountID:  claims.UserID,
		USDAmount:  input.USDAmount,
		PrizeLabel: input.PrizeLabel,
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, result)
}
