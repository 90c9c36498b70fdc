package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetBoolEnv returns a bool environment variable or a default value.
func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// GetDurationEnv parses values such as "10m" or "84h".
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// GetDecimalEnv returns a decimal environment variable or a default value.
func GetDecimalEnv(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxIdleConns int
	MaxOpenConns int
	ConnMaxLife  time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RewardConfig struct {
	Asset                string
	WelcomeBonus         decimal.Decimal
	ReferralBonus        decimal.Decimal
	SpinCooldown         time.Duration
	LossRestartsCooldown bool
}

type PricingConfig struct {
	Source   string
	BaseURL  string
	CacheTTL time.Duration
	// Static holds fixed quotes keyed by asset, used when Source is "static".
	Static map[string]decimal.Decimal
}

type MailConfig struct {
	APIURL    string
	APIKey    string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

type NotificationConfig struct {
	Transport string
	Timeout   time.Duration
	Brokers   string
	Topic     string
	GroupID   string
	Mail      MailConfig
	Templates Templates
}

// Templates maps notification events to mail template keys.
type Templates struct {
	AdminTxPending          string
	AdminTxSuccess          string
	AdminTxReject           string
	AdminBalanceCredit      string
	AdminBalanceDebit       string
	PaypalWithdrawalOTP     string
	PaypalWithdrawalPending string
	PaypalWithdrawalFailed  string
	BankWithdrawalOTP       string
	BankWithdrawalPending   string
	BankWithdrawalFailed    string
	WelcomeBonus            string
	ReferralReward          string
	SpinReward              string
}

type Config struct {
	Env          string
	Port         string
	StoreDriver  string
	JWTSecret    string
	OTPSecret    string
	OTPTTL       time.Duration
	StripeKey    string
	LogLevel     string
	LogFile      string
	Database     DatabaseConfig
	Redis        RedisConfig
	Reward       RewardConfig
	Pricing      PricingConfig
	Notification NotificationConfig
}

// Load reads the whole configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Env:         GetEnv("ENV", "development"),
		Port:        GetEnv("PORT", "3000"),
		StoreDriver: GetEnv("STORE_DRIVER", "postgres"),
		JWTSecret:   GetEnv("JWT_SECRET", ""),
		OTPSecret:   GetEnv("OTP_SECRET", ""),
		OTPTTL:      GetDurationEnv("OTP_TTL", 10*time.Minute),
		StripeKey:   GetEnv("STRIPE_SECRET_KEY", ""),
		LogLevel:    GetEnv("LOG_LEVEL", "info"),
		LogFile:     GetEnv("LOG_FILE", ""),
		Database: DatabaseConfig{
			Host:         GetEnv("DB_HOST", "localhost"),
			Port:         GetEnv("DB_PORT", "5432"),
			User:         GetEnv("DB_USER", "postgres"),
			Password:     GetEnv("DB_PASSWORD", ""),
			Name:         GetEnv("DB_NAME", "vaultledger"),
			SSLMode:      GetEnv("DB_SSLMODE", "disable"),
			MaxIdleConns: GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns: GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLife:  GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},
		Reward: RewardConfig{
			Asset:                GetEnv("REWARD_ASSET", "usdtBnb"),
			WelcomeBonus:         GetDecimalEnv("WELCOME_BONUS", decimal.NewFromInt(25)),
			ReferralBonus:        GetDecimalEnv("REFERRAL_BONUS", decimal.NewFromInt(50)),
			SpinCooldown:         GetDurationEnv("SPIN_COOLDOWN", 84*time.Hour),
			LossRestartsCooldown: GetBoolEnv("SPIN_LOSS_RESTARTS_COOLDOWN", true),
		},
		Pricing: PricingConfig{
			Source:   GetEnv("PRICE_SOURCE", "coingecko"),
			BaseURL:  GetEnv("PRICE_API_URL", "https://api.coingecko.com/api/v3"),
			CacheTTL: GetDurationEnv("PRICE_CACHE_TTL", time.Minute),
			Static:   parseStaticPrices(GetEnv("STATIC_PRICES", "")),
		},
		Notification: NotificationConfig{
			Transport: GetEnv("NOTIFY_TRANSPORT", "log"),
			Timeout:   GetDurationEnv("NOTIFY_TIMEOUT", 10*time.Second),
			Brokers:   GetEnv("KAFKA_BROKERS", "localhost:9092"),
			Topic:     GetEnv("KAFKA_NOTIFICATION_TOPIC", "wallet_notifications"),
			GroupID:   GetEnv("KAFKA_GROUP_ID", "notification-worker"),
			Mail: MailConfig{
				APIURL:    GetEnv("ZEPTOMAIL_API_URL", "https://api.zeptomail.in/v1.1"),
				APIKey:    GetEnv("ZEPTOMAIL_API_KEY", ""),
				FromEmail: GetEnv("ZEPTOMAIL_FROM", ""),
				FromName:  GetEnv("ZEPTOMAIL_FROM_NAME", "Wallet Team"),
				Timeout:   GetDurationEnv("ZEPTOMAIL_TIMEOUT", 10*time.Second),
			},
			Templates: Templates{
				AdminTxPending:          GetEnv("TPL_ADMIN_TX_PENDING", ""),
				AdminTxSuccess:          GetEnv("TPL_ADMIN_TX_SUCCESS", ""),
				AdminTxReject:           GetEnv("TPL_ADMIN_TX_REJECT", ""),
				AdminBalanceCredit:      GetEnv("TPL_ADMIN_BALANCE_UPDATE", ""),
				AdminBalanceDebit:       GetEnv("TPL_ADMIN_BALANCE_DEBIT", ""),
				PaypalWithdrawalOTP:     GetEnv("TPL_PAYPAL_WITHDRAWAL_OTP", ""),
				PaypalWithdrawalPending: GetEnv("TPL_PAYPAL_WITHDRAWAL_PENDING", ""),
				PaypalWithdrawalFailed:  GetEnv("TPL_PAYPAL_WITHDRAWAL_FAILED", ""),
				BankWithdrawalOTP:       GetEnv("TPL_BANK_WITHDRAWAL_OTP", ""),
				BankWithdrawalPending:   GetEnv("TPL_BANK_WITHDRAWAL_PENDING", ""),
				BankWithdrawalFailed:    GetEnv("TPL_BANK_WITHDRAWAL_FAILED", ""),
				WelcomeBonus:            GetEnv("TPL_WELCOME_BONUS", ""),
				ReferralReward:          GetEnv("TPL_REFERRAL_REWARD", ""),
				SpinReward:              GetEnv("TPL_SPIN_REWARD", ""),
			},
		},
	}

	if cfg.Env == "production" {
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET not configured")
		}
		if cfg.OTPSecret == "" {
			return nil, fmt.Errorf("OTP_SECRET not configured")
		}
	}
	if cfg.OTPSecret == "" {
		cfg.OTPSecret = cfg.JWTSecret
	}
	return cfg, nil
}

// parseStaticPrices reads "btc=65000,eth=3000" style lists. Malformed pairs are skipped.
func parseStaticPrices(raw string) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		prices[strings.TrimSpace(k)] = d
	}
	return prices
}
