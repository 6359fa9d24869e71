package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/baechuer/account-service/internal/application/account"
	"github.com/baechuer/account-service/internal/audit"
	"github.com/baechuer/account-service/internal/config"
	"github.com/baechuer/account-service/internal/infrastructure/email"
	"github.com/baechuer/account-service/internal/infrastructure/filestore"
	"github.com/baechuer/account-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/baechuer/account-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/account-service/internal/infrastructure/redis"
	"github.com/baechuer/account-service/internal/infrastructure/security"
	"github.com/baechuer/account-service/internal/infrastructure/turnstile"
	"github.com/baechuer/account-service/internal/logger"
	"github.com/baechuer/account-service/internal/metrics"
	http_handlers "github.com/baechuer/account-service/internal/transport/http/handlers"
	"github.com/baechuer/account-service/internal/transport/http/middleware"
	"github.com/baechuer/account-service/internal/transport/http/response"
	"github.com/baechuer/account-service/internal/transport/http/router"
)

const maxRequestBodyBytes = 64 << 10

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewStore func(dir string) (RecordStore, error)

	// NewRedis is optional; without it rate limits stay in-process.
	NewRedis func(addr, password string, db int) RedisClient

	NewPublisher func(rabbitURL, exchange string) (Publisher, error)

	// NewVerifier overrides the Turnstile/static selection.
	NewVerifier func(cfg *config.Config) account.HumanVerifier

	NewRouter func(router.Deps) (http.Handler, error)
}

type RecordStore interface {
	account.RecordStore
	Ping(ctx context.Context) error
}

type RedisClient interface {
	Ping(ctx context.Context) error
	Close() error
}

type Publisher interface {
	account.EmailDispatcher
	Close() error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	// 1) record store
	store, err := deps.NewStore(cfg.UsersDir)
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()

	// 2) redis (best-effort, only used for rate limiting)
	var redisCli RedisClient
	if deps.NewRedis != nil && cfg.RedisAddr != "" {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := c.Ping(ctx); err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; using in-process rate limits")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}

	// 3) email dispatch
	mailer, closeMailer, err := newMailer(cfg, deps)
	if err != nil {
		runCleanup(cleanupFns)
		return nil, nil, err
	}
	if closeMailer != nil {
		cleanupFns = append(cleanupFns, closeMailer)
	}

	// 4) human verification
	var human account.HumanVerifier
	if deps.NewVerifier != nil {
		human = deps.NewVerifier(cfg)
	} else {
		human = newVerifier(cfg)
	}

	// 5) service
	svc := account.NewService(
		store,
		security.NewBcryptHasher(cfg.BcryptCost),
		security.NewCodeIssuer(6),
		human,
		mailer,
		account.Config{
			EchoCode:             cfg.EchoVerificationCode,
			HashPendingPasswords: cfg.HashPendingPasswords,
			HumanVerifyTimeout:   cfg.TurnstileTimeout,
			DispatchTimeout:      cfg.EmailDispatchTimeout,
		},
	)

	auditLog := audit.New(logger.Logger)
	svc = svc.WithAudit(func(ctx context.Context, action string, fields map[string]string) {
		auditLog.Record(ctx, action, fields)
		metrics.Observe(action, fields)
	})

	// 6) handlers
	accountH := http_handlers.NewAccountHandler(svc)
	checks := map[string]http_handlers.Pinger{"records": store}
	if redisCli != nil {
		checks["redis"] = redisCli
	}
	healthH := http_handlers.NewHealthHandler(checks)

	// 7) rate limits (redis when available, in-process otherwise)
	var limiter middleware.RateLimiter
	if rc, ok := redisCli.(*redis.Client); ok {
		limiter = redis.NewFixedWindowLimiter(rc)
	}

	rl := func(key string, limit int, window time.Duration) func(http.Handler) http.Handler {
		return middleware.RateLimit(
			limiter,
			middleware.FixedWindowConfig{
				RouteKey: key,
				Limit:    limit,
				Window:   window,
			},
			response.WriteError,
		)
	}

	// 8) router
	mux, err := deps.NewRouter(router.Deps{
		Health:  healthH,
		Account: accountH,
		Middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.ClientIP(cfg.TrustProxyHeaders),
			middleware.AccessLog,
			middleware.Metrics,
			middleware.CORS(cfg.CORSAllowedOrigins),
			middleware.BodyLimit(maxRequestBodyBytes),
		},

		RLRegister: rl("account.register", 5, time.Minute),
		RLVerify:   rl("account.verify", 10, time.Minute),
		RLLogin:    rl("account.login", 10, time.Minute),
		RLDemo:     rl("account.demo", 10, time.Minute),

		Metrics: router.MetricsHandler(),
	})
	if err != nil {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 9) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

// newMailer picks the transport named by EMAIL_TRANSPORT. The returned
// cleanup may be nil.
func newMailer(cfg *config.Config, deps Deps) (account.EmailDispatcher, func(), error) {
	switch cfg.EmailTransport {
	case config.EmailTransportSMTP:
		smtp := email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Timeout:  cfg.EmailDispatchTimeout,
			Insecure: cfg.SMTPInsecure,
		}, logger.Logger)
		return email.NewBreakerSender(smtp, 5, 30*time.Second, 1), nil, nil

	case config.EmailTransportRabbitMQ:
		pub, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			if cfg.IsDev() {
				logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; logging verification emails instead")
				return email.NewLogSender(logger.Logger), nil, nil
			}
			return nil, nil, fmt.Errorf("rabbitmq publisher: %w", err)
		}
		return pub, func() { _ = pub.Close() }, nil

	default:
		return email.NewLogSender(logger.Logger), nil, nil
	}
}

func newVerifier(cfg *config.Config) account.HumanVerifier {
	if cfg.TurnstileSecret == "" {
		// config.validate only allows this in dev
		logger.Logger.Warn().Msg("TURNSTILE_SECRET not set; human verification always passes")
		return memory.NewStaticVerifier(true)
	}
	return turnstile.NewClient(cfg.TurnstileSecret, cfg.TurnstileVerifyURL, cfg.TurnstileTimeout)
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewStore: func(dir string) (RecordStore, error) {
			return filestore.New(dir)
		},
		NewRedis: func(addr, password string, db int) RedisClient {
			return redis.New(addr, password, db)
		},
		NewPublisher: func(url, exchange string) (Publisher, error) {
			return rabbitmq_pub.NewPublisher(url, exchange)
		},
		NewRouter: func(d router.Deps) (http.Handler, error) {
			return router.New(d)
		},
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
