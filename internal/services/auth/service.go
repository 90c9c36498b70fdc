package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apperrors "vaultledger/internal/errors"
	"vaultledger/internal/models"
	"vaultledger/internal/repositories"
	"vaultledger/internal/services/reward"
	"vaultledger/internal/utils"
	"vaultledger/internal/validation"
)

type RegisterRequest struct {
	Name         string `json:"name" validate:"required,min=2"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	ReferralCode string `json:"referralCode"`
}

type Session struct {
	Account      *models.Account `json:"user"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	RefreshTokens(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, accountID uint) error
	ChangePassword(ctx context.Context, accountID uint, oldPassword, newPassword string) error
	GetTokenVersion(ctx context.Context, accountID uint) (int, error)
}

type service struct {
	repo    repositories.LedgerRepository
	rewards reward.Service
	secret  string
	log     *zap.Logger
}

func NewService(repo repositories.LedgerRepository, rewards reward.Service, secret string, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		repo:    repo,
		rewards: rewards,
		secret:  secret,
		log:     log,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := validation.Password(req.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.ErrPersistence.Wrap(err)
	}

	account := &models.Account{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		ReferralCode: newReferralCode(),
		ReferredBy:   strings.TrimSpace(req.ReferralCode),
		TokenVersion: 1,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	// a failed bonus never blocks signup; the flag stays false so it can be retried
	if s.rewards != nil {
		if _, err := s.rewards.CreditReferralReward(ctx, account.ID); err != nil {
			s.log.Warn("signup reward failed",
				zap.Uint("account_id", account.ID),
				zap.Error(err),
			)
		}
	}

	fresh, err := s.repo.GetAccount(ctx, account.ID)
	if err == nil {
		account = fresh
	}
	return s.session(account)
}

func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		s.log.Info("login failed: unknown email", zap.String("email", email))
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.log.Info("login failed: incorrect password", zap.Uint("account_id", account.ID))
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.session(account)
}

func (s *service) RefreshTokens(ctx context.Context, refreshToken string) (string, string, error) {
	_, claims, err := utils.ParseToken(s.secret, refreshToken)
	if err != nil {
		return "", "", apperrors.ErrInvalidToken
	}

	account, err := s.repo.GetAccount(ctx, claims.UserID)
	if err != nil {
		return "", "", apperrors.ErrInvalidToken
	}

	if account.TokenVersion != claims.TokenVersion {
		return "", "", apperrors.ErrInvalidToken.Withf("token version mismatch")
	}

	return utils.GenerateTokens(s.secret, claimsFor(account))
}

// Logout invalidates every token issued so far by bumping the version.
func (s *service) Logout(ctx context.Context, accountID uint) error {
	return s.repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		account, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		account.TokenVersion++
		return tx.SaveAccount(ctx, account)
	})
}

func (s *service) ChangePassword(ctx context.Context, accountID uint, oldPassword, newPassword string) error {
	if err := validation.Password(newPassword); err != nil {
		return err
	}

	return s.repo.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		account, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}

		if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(oldPassword)); err != nil {
			return apperrors.ErrInvalidCredentials.Withf("incorrect old password")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return apperrors.ErrPersistence.Wrap(err)
		}

		account.PasswordHash = string(hash)
		account.TokenVersion++
		return tx.SaveAccount(ctx, account)
	})
}

func (s *service) GetTokenVersion(ctx context.Context, accountID uint) (int, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.TokenVersion, nil
}

func (s *service) session(account *models.Account) (*Session, error) {
	access, refresh, err := utils.GenerateTokens(s.secret, claimsFor(account))
	if err != nil {
		s.log.Error("error generating tokens", zap.Error(err))
		return nil, err
	}
	return &Session{Account: account, AccessToken: access, RefreshToken: refresh}, nil
}

func claimsFor(account *models.Account) *models.UserClaims {
	return &models.UserClaims{
		UserID:       account.ID,
		Email:        account.Email,
		Role:         account.Role,
		TokenVersion: account.TokenVersion,
		Permissions:  models.GetDefaultPermissions(account.Role),
	}
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
