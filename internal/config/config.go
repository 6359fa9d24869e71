package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EmailTransportLog      = "log"
	EmailTransportSMTP     = "smtp"
	EmailTransportRabbitMQ = "rabbitmq"
)

type Config struct {
	// App
	Env string // dev / staging / prod

	// HTTP
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	CORSAllowedOrigins []string

	// Honour X-Forwarded-For / X-Real-IP. Only safe behind a proxy that
	// overwrites them.
	TrustProxyHeaders bool

	// Storage / security
	UsersDir             string
	BcryptCost           int
	EchoVerificationCode bool
	HashPendingPasswords bool

	// Human verification (Cloudflare Turnstile)
	TurnstileSecret    string
	TurnstileVerifyURL string
	TurnstileTimeout   time.Duration

	// Email dispatch
	EmailTransport       string
	EmailDispatchTimeout time.Duration
	SMTPHost             string
	SMTPPort             int
	SMTPUsername         string
	SMTPPassword         string
	SMTPFrom             string
	SMTPInsecure         bool
	RabbitURL            string
	RabbitExchange       string

	// Optional Redis for shared rate limiting
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func (c *Config) IsDev() bool { return c.Env == "dev" }

// Load reads the environment. A .env file in the working directory is
// loaded first if present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      strings.ToLower(getEnv("ENV", "dev")),
		HTTPAddr: getEnv("HTTP_ADDR", ":3001"),
		UsersDir: getEnv("USERS_DIR", "./users_info"),

		TurnstileSecret:    os.Getenv("TURNSTILE_SECRET"),
		TurnstileVerifyURL: getEnv("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),

		RabbitURL:      os.Getenv("RABBIT_URL"),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "account.events"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	var err error

	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}
	if cfg.TurnstileTimeout, err = getDuration("TURNSTILE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.EmailDispatchTimeout, err = getDuration("EMAIL_DISPATCH_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 10); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	// the code is only echoed to clients in dev unless explicitly enabled
	if cfg.EchoVerificationCode, err = getBool("ECHO_VERIFICATION_CODE", cfg.IsDev()); err != nil {
		return nil, err
	}
	if cfg.HashPendingPasswords, err = getBool("HASH_PENDING_PASSWORDS", false); err != nil {
		return nil, err
	}
	if cfg.SMTPInsecure, err = getBool("SMTP_INSECURE", false); err != nil {
		return nil, err
	}
	if cfg.TrustProxyHeaders, err = getBool("TRUST_PROXY_HEADERS", false); err != nil {
		return nil, err
	}

	defTransport := EmailTransportSMTP
	if cfg.IsDev() {
		defTransport = EmailTransportLog
	}
	cfg.EmailTransport = strings.ToLower(getEnv("EMAIL_TRANSPORT", defTransport))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.UsersDir == "" {
		return fmt.Errorf("USERS_DIR must not be empty")
	}
	// dev may run without Turnstile (always-pass verifier)
	if c.TurnstileSecret == "" && !c.IsDev() {
		return fmt.Errorf("missing required env var: TURNSTILE_SECRET")
	}

	switch c.EmailTransport {
	case EmailTransportLog:
		if !c.IsDev() {
			return fmt.Errorf("EMAIL_TRANSPORT=log is only allowed when ENV=dev")
		}
	case EmailTransportSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("missing required env var: SMTP_HOST")
		}
		if c.SMTPFrom == "" {
			return fmt.Errorf("missing required env var: SMTP_FROM")
		}
	case EmailTransportRabbitMQ:
		if c.RabbitURL == "" {
			return fmt.Errorf("missing required env var: RABBIT_URL")
		}
	default:
		return fmt.Errorf("invalid EMAIL_TRANSPORT %q (want log, smtp or rabbitmq)", c.EmailTransport)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
