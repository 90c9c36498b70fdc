package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"vaultledger/internal/config"
	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/logger"
	"vaultledger/internal/models"
	"vaultledger/internal/repositories"
)

// Creates the admin account, or promotes an existing account with the same email.
func main() {
	config.LoadEnv()

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	adminName := config.GetEnv("ADMIN_NAME", "Administrator")

	if adminEmail == "" || adminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set in environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zl, err := logger.New(logger.Config{Service: "vaultledger-admin-seed", Env: cfg.Env, Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := repositories.InitDB(cfg.Database, zl)
	if err != nil {
		zl.Fatal("database unavailable", zap.Error(err))
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	ctx := context.Background()
	repo := repositories.NewLedgerRepository(db, nil, zl)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		zl.Fatal("failed to hash password", zap.Error(err))
	}

	existing, err := repo.GetAccountByEmail(ctx, adminEmail)
	switch {
	case err == nil:
		err = repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
			account, err := tx.LockAccount(ctx, existing.ID)
			if err != nil {
				return err
			}
			account.Role = models.RoleAdmin
			account.PasswordHash = string(hashedPassword)
			account.TokenVersion++
			return tx.SaveAccount(ctx, account)
		})
		if err != nil {
			zl.Fatal("failed to promote admin", zap.Error(err))
		}
		zl.Info("existing account promoted to admin", zap.Uint("account_id", existing.ID))
		return
	case !errors.Is(err, apperrors.ErrAccountNotFound):
		zl.Fatal("failed to look up admin", zap.Error(err))
	}

	admin := &models.Account{
		Email:            adminEmail,
		Name:             adminName,
		PasswordHash:     string(hashedPassword),
		Role:             models.RoleAdmin,
		ReferralCode:     strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8]),
		ReferralRewarded: true,
		TokenVersion:     1,
	}
	if err := repo.CreateAccount(ctx, admin); err != nil {
		zl.Fatal("failed to create admin", zap.Error(err))
	}

	zl.Info("admin account created", zap.Uint("account_id", admin.ID), zap.String("email", admin.Email))
}
