// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vaultledger/internal/handlers"
	"vaultledger/internal/middleware"
	"vaultledger/internal/models"
	"vaultledger/internal/repositories"
	"vaultledger/internal/services/auth"
	"vaultledger/internal/services/resolution"
	"vaultledger/internal/services/reward"
	"vaultledger/internal/services/wallet"
	"vaultledger/internal/services/withdrawal"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Auth        auth.Service
	Wallet      wallet.Service
	Withdrawals withdrawal.Service
	Resolutions resolution.Service
	Rewards     reward.Service
	Cards       repositories.CardApplicationRepository
	JWTSecret   string
	Gatherer    prometheus.Gatherer
	Health      map[string]handlers.Pinger
	Log         *zap.Logger
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Log)
	walletHandler := handlers.NewWalletHandler(deps.Wallet)
	withdrawalHandler := handlers.NewWithdrawalHandler(deps.Withdrawals, deps.Log)
	rewardHandler := handlers.NewRewardHandler(deps.Rewards)
	adminHandler := handlers.NewAdminHandler(deps.Wallet, deps.Resolutions, deps.Cards)

	app.Get("/health", handlers.HealthCheck(deps.Health))
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Public endpoints
	api.Post("/register", rateLimit(5), authHandler.RegisterUser)
	api.Post("/login", rateLimit(5), authHandler.LoginUser)
	api.Post("/refresh", authHandler.RefreshToken)

	authMiddleware := middleware.NewAuthMiddleware(deps.Auth, deps.JWTSecret, deps.Log)
	protected := api.Group("", authMiddleware.Handler)

	setupUserRoutes(protected, authHandler, walletHandler, withdrawalHandler, rewardHandler)
	setupAdminRoutes(protected, adminHandler)
}

func setupUserRoutes(router fiber.Router, authHandler *handlers.AuthHandler, walletHandler *handlers.WalletHandler,
	withdrawalHandler *handlers.WithdrawalHandler, rewardHandler *handlers.RewardHandler) {
	router.Post("/logout", authHandler.LogoutUser)
	router.Post("/change-password", authHandler.ChangePassword)

	// Wallet routes
	walletGroup := router.Group("/wallet", middleware.HasPermission(models.PermissionWalletRead))
	walletGroup.Get("/", walletHandler.GetWallet)
	walletGroup.Get("/transactions", walletHandler.GetTransactions)
	walletGroup.Get("/transactions/recent", walletHandler.GetRecentTransactions)
	walletGroup.Get("/transactions/stats", walletHandler.GetTransactionStats)
	walletGroup.Get("/transactions/:id<int>", walletHandler.GetTransaction)

	// Withdrawals: /api/withdrawals/paypal/request, /api/withdrawals/bank/verify
	withdrawals := router.Group("/withdrawals/:channel", middleware.HasPermission(models.PermissionWithdrawalWrite))
	withdrawals.Post("/request", rateLimit(5), withdrawalHandler.RequestWithdrawal)
	withdrawals.Post("/verify", rateLimit(10), withdrawalHandler.VerifyWithdrawal)

	// Spin wheel
	spin := router.Group("/spin", middleware.HasPermission(models.PermissionRewardClaim))
	spin.Get("/availability", rewardHandler.SpinAvailability)
	spin.Post("/", rewardHandler.Spin)
}

func setupAdminRoutes(router fiber.Router, h *handlers.AdminHandler) {
	admin := router.Group("/admin", middleware.AdminAuthMiddleware)

	admin.Get("/transactions/pending", middleware.HasPermission(models.PermissionReadAdmin), h.GetPendingTransactions)
	admin.Patch("/transactions/:id", middleware.HasPermission(models.PermissionWriteAdmin), h.ResolveTransaction)
	admin.Put("/users/:id/balance", middleware.HasPermission(models.PermissionWriteAdmin), h.AdjustBalance)
	admin.Put("/users/:id/card", middleware.HasPermission(models.PermissionWriteAdmin), h.SetCardStatus)
}

// rateLimit allows max requests per minute per client IP.
func rateLimit(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	})
}
