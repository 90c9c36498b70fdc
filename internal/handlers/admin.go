package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"vaultledger/internal/models"
	"vaultledger/internal/repositories"
	"vaultledger/internal/services/eligibility"
	"vaultledger/internal/services/resolution"
	"vaultledger/internal/services/wallet"
	"vaultledger/internal/utils"
)

type AdminHandler struct {
	walletService wallet.Service
	resolutions   resolution.Service
	cards         repositories.CardApplicationRepository
}

func NewAdminHandler(walletService wallet.Service, resolutions resolution.Service, cards repositories.CardApplicationRepository) *AdminHandler {
	return &AdminHandler{
		walletService: walletService,
		resolutions:   resolutions,
		cards:         cards,
	}
}

// AdjustBalance sets a user's balance for one asset.
func (h *AdminHandler) AdjustBalance(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var input struct {
		Asset  string `json:"asset"`
		Amount string `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	res, err := h.walletService.AdjustBalance(c.UserContext(), wallet.AdjustRequest{
		AccountID: userID,
		Asset:     input.Asset,
		Amount:    input.Amount,
	})
	if err != nil {
		return utils.HandleError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message":  "Balance updated successfully",
		"balances": res.Account.Balances,
		"transfer": res.Entry,
	})
}

func (h *AdminHandler) GetPendingTransactions(c *fiber.Ctx) error {
	p := utils.GetPagination(c, 1, 20)

	items, total, err := h.resolutions.ListPending(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return utils.HandleError(c, err)
	}

	p.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(items, p))
}

// ResolveTransaction moves an entry to reviewing, completed or failed.
func (h *AdminHandler) ResolveTransaction(c *fiber.Ctx) error {
	entryID, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid transaction ID")
	}

	var input struct {
		Status        string `json:"status"`
		Confirmations []bool `json:"confirmations"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	action, err := resolution.ParseAction(input.Status)
	if err != nil {
		return utils.HandleError(c, err)
	}

	res, err := h.resolutions.Resolve(c.UserContext(), entryID, action, input.Confirmations)
	if err != nil {
		return utils.HandleError(c, err)
	}

	body := fiber.Map{
		"message":     "Transaction updated",
		"transaction": res.Entry,
	}
	if res.Refund != nil {
		body["refund"] = res.Refund
	}
	return utils.Success(c, body)
}

// SetCardStatus records the card application consulted by withdrawal verification.
func (h *AdminHandler) SetCardStatus(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var input struct {
		Status       string `json:"status"`
		StripeCardID string `json:"stripeCardId"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(input.Status) == "" {
		return utils.BadRequest(c, "Status is required")
	}

	app, err := h.cards.GetByAccountID(c.UserContext(), userID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if app == nil {
		app = &models.CardApplication{AccountID: userID}
	}
	app.Status = string(eligibility.Normalize(input.Status))
	if input.StripeCardID != "" {
		app.StripeCardID = input.StripeCardID
	}

	if err := h.cards.Upsert(c.UserContext(), app); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"message":     "Card status updated",
		"application": app,
	})
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}
