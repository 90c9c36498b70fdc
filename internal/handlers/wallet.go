package handlers

import (
	"github.com/gofiber/fiber/v2"

	"vaultledger/internal/services/wallet"
	"vaultledger/internal/utils"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	overview, err := h.walletService.GetOverview(c.UserContext(), claims.UserID)
	if err != nil {
		return utils.HandleError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"wallet": overview,
	})
}

// GetTransactions lists the caller's entries, newest first.
// Query: asset, type (sent|received|pending), page, limit.
func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	p := utils.GetPagination(c, 1, wallet.DefaultHistoryLimit)
	page, err := h.walletService.History(c.UserContext(), wallet.HistoryQuery{
		AccountID: claims.UserID,
		Asset:     c.Query("asset"),
		Type:      c.Query("type"),
		Limit:     p.Limit,
		Offset:    p.Offset,
	})
	if err != nil {
		return utils.HandleError(c, err)
	}

	p.SetTotal(page.Total)
	return utils.Success(c, utils.NewPaginatedResponse(page.Entries, p))
}

// GetTransaction returns one of the caller's entries.
func (h *WalletHandler) GetTransaction(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return utils.BadRequest(c, "invalid transaction id")
	}

	entry, err := h.walletService.GetEntry(c.UserContext(), claims.UserID, uint(id))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, entry)
}

// GetRecentTransactions returns the newest entries for a dashboard.
func (h *WalletHandler) GetRecentTransactions(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	page, err := h.walletService.History(c.UserContext(), wallet.HistoryQuery{
		AccountID: claims.UserID,
		Limit:     c.QueryInt("limit", wallet.RecentLimit),
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, page.Entries)
}

func (h *WalletHandler) GetTransactionStats(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	stats, err := h.walletService.Stats(c.UserContext(), claims.UserID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, stats)
}
