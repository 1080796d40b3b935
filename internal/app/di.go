// Package app provides the dependency injection container assembling the
// authorization kernel: key material, signer, minter, attenuator, thread
// registry, chain resolver, audit pipeline, metrics, and the gateway.
package app

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/allisson/warden/internal/audit"
	capservice "github.com/allisson/warden/internal/capability/service"
	capusecase "github.com/allisson/warden/internal/capability/usecase"
	"github.com/allisson/warden/internal/config"
	apperrors "github.com/allisson/warden/internal/errors"
	"github.com/allisson/warden/internal/gateway"
	"github.com/allisson/warden/internal/metrics"
	"github.com/allisson/warden/internal/primitive"
	tooldomain "github.com/allisson/warden/internal/tool/domain"
	toolservice "github.com/allisson/warden/internal/tool/service"
)

// ErrNoToolLookup indicates the container was asked for a gateway before a
// tool lookup was attached.
var ErrNoToolLookup = apperrors.Wrap(apperrors.ErrInvalidInput, "no tool lookup configured")

// Container holds all application dependencies and provides methods to access
// them. Components are created lazily on first access.
type Container struct {
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	keySource       capservice.KeySource
	signer          capservice.Signer
	metricsProvider *metrics.Provider
	authzMetrics    metrics.AuthzMetrics
	auditSink       *audit.AsyncSink

	// Services
	minter     capservice.Minter
	attenuator capservice.Attenuator
	resolver   *toolservice.Resolver

	// Use cases
	threadUseCase capusecase.ThreadUseCase

	// Gateway
	gw *gateway.Gateway

	// External wiring
	toolLookup tooldomain.ToolLookup

	loggerInit        sync.Once
	keySourceInit     sync.Once
	signerInit        sync.Once
	metricsInit       sync.Once
	auditSinkInit     sync.Once
	minterInit        sync.Once
	attenuatorInit    sync.Once
	resolverInit      sync.Once
	threadUseCaseInit sync.Once
	gatewayInit       sync.Once
	initErrors        map[string]error
	mu                sync.Mutex
}

// NewContainer creates a new dependency injection container with the provided
// configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// SetToolLookup attaches the tool registry the gateway resolves chains
// against. Must be called before Gateway().
func (c *Container) SetToolLookup(lookup tooldomain.ToolLookup) {
	c.toolLookup = lookup
}

// Logger returns the configured logger instance, creating a JSON slog logger
// at first access with the configured level.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		level := slog.LevelInfo
		switch c.config.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
		c.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	})
	return c.logger
}

// KeySource returns the signing-key source: a static base64 key when
// SIGNING_KEY is set, otherwise a KMS-wrapped key unwrapped through the
// configured keeper.
func (c *Container) KeySource() (capservice.KeySource, error) {
	c.keySourceInit.Do(func() {
		var err error
		if c.config.SigningKey != "" {
			c.keySource, err = capservice.NewStaticKeySource(c.config.SigningKey)
		} else {
			c.keySource, err = capservice.NewKMSKeySource(
				c.config.KMSKeyURI,
				c.config.KMSWrappedKey,
				c.config.KMSTimeout,
			)
		}
		if err != nil {
			c.storeError("keySource", err)
		}
	})
	if err := c.loadError("keySource"); err != nil {
		return nil, err
	}
	return c.keySource, nil
}

// Signer returns the HMAC token signer.
func (c *Container) Signer() (capservice.Signer, error) {
	var initErr error
	c.signerInit.Do(func() {
		keySource, err := c.KeySource()
		if err != nil {
			initErr = err
			c.storeError("signer", err)
			return
		}
		c.signer = capservice.NewHMACSigner(keySource)
	})
	if initErr != nil {
		return nil, initErr
	}
	if err := c.loadError("signer"); err != nil {
		return nil, err
	}
	return c.signer, nil
}

// MetricsProvider returns the otel/Prometheus metrics provider, or nil when
// metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	if err := c.initMetrics(); err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// AuthzMetrics returns the authorization business metrics. A no-op recorder
// is returned when metrics are disabled.
func (c *Container) AuthzMetrics() (metrics.AuthzMetrics, error) {
	if err := c.initMetrics(); err != nil {
		return nil, err
	}
	return c.authzMetrics, nil
}

func (c *Container) initMetrics() error {
	c.metricsInit.Do(func() {
		if !c.config.MetricsEnabled {
			c.authzMetrics = metrics.NopAuthzMetrics()
			return
		}
		provider, err := metrics.NewProvider()
		if err != nil {
			c.storeError("metrics", err)
			return
		}
		authz, err := metrics.NewAuthzMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.storeError("metrics", err)
			return
		}
		c.metricsProvider = provider
		c.authzMetrics = authz
	})
	return c.loadError("metrics")
}

// AuditSink returns the asynchronous audit sink writing to the structured log.
func (c *Container) AuditSink() *audit.AsyncSink {
	c.auditSinkInit.Do(func() {
		c.auditSink = audit.NewAsyncSink(
			audit.NewSlogSink(c.Logger()),
			c.config.AuditBufferSize,
			c.Logger(),
		)
	})
	return c.auditSink
}

// Minter returns the token minter.
func (c *Container) Minter() (capservice.Minter, error) {
	var initErr error
	c.minterInit.Do(func() {
		signer, err := c.Signer()
		if err != nil {
			initErr = err
			c.storeError("minter", err)
			return
		}
		c.minter = capservice.NewMinter(capservice.MinterConfig{
			Audience:   c.config.TokenAudience,
			DefaultTTL: c.config.TokenTTL,
			MaxTTL:     c.config.TokenMaxTTL,
		}, signer)
	})
	if initErr != nil {
		return nil, initErr
	}
	if err := c.loadError("minter"); err != nil {
		return nil, err
	}
	return c.minter, nil
}

// Attenuator returns the token attenuator.
func (c *Container) Attenuator() (capservice.Attenuator, error) {
	var initErr error
	c.attenuatorInit.Do(func() {
		signer, err := c.Signer()
		if err != nil {
			initErr = err
			c.storeError("attenuator", err)
			return
		}
		c.attenuator = capservice.NewAttenuator(signer)
	})
	if initErr != nil {
		return nil, initErr
	}
	if err := c.loadError("attenuator"); err != nil {
		return nil, err
	}
	return c.attenuator, nil
}

// Resolver returns the executor-chain resolver. Requires a tool lookup.
func (c *Container) Resolver() (*toolservice.Resolver, error) {
	var initErr error
	c.resolverInit.Do(func() {
		if c.toolLookup == nil {
			initErr = ErrNoToolLookup
			c.storeError("resolver", initErr)
			return
		}
		c.resolver = toolservice.NewResolver(c.toolLookup, c.config.ChainMaxDepth)
	})
	if initErr != nil {
		return nil, initErr
	}
	if err := c.loadError("resolver"); err != nil {
		return nil, err
	}
	return c.resolver, nil
}

// ThreadUseCase returns the thread lifecycle use case, decorated with metrics.
func (c *Container) ThreadUseCase() (capusecase.ThreadUseCase, error) {
	var initErr error
	c.threadUseCaseInit.Do(func() {
		minter, err := c.Minter()
		if err != nil {
			initErr = err
			c.storeError("threadUseCase", err)
			return
		}
		attenuator, err := c.Attenuator()
		if err != nil {
			initErr = err
			c.storeError("threadUseCase", err)
			return
		}
		authz, err := c.AuthzMetrics()
		if err != nil {
			initErr = err
			c.storeError("threadUseCase", err)
			return
		}
		c.threadUseCase = capusecase.NewThreadUseCaseWithMetrics(
			capusecase.NewThreadUseCase(minter, attenuator),
			authz,
		)
	})
	if initErr != nil {
		return nil, initErr
	}
	if err := c.loadError("threadUseCase"); err != nil {
		return nil, err
	}
	return c.threadUseCase, nil
}

// Gateway returns the capability gateway with the subprocess and HTTP client
// primitives registered.
func (c *Container) Gateway() (*gateway.Gateway, error) {
	var initErr error
	c.gatewayInit.Do(func() {
		signer, err := c.Signer()
		if err != nil {
			initErr = err
			c.storeError("gateway", err)
			return
		}
		resolver, err := c.Resolver()
		if err != nil {
			initErr = err
			c.storeError("gateway", err)
			return
		}
		authz, err := c.AuthzMetrics()
		if err != nil {
			initErr = err
			c.storeError("gateway", err)
			return
		}

		gatewayConfig := gateway.Config{ProjectRoot: c.config.ProjectRoot}
		if c.config.RateLimitEnabled {
			gatewayConfig.RateLimit = c.config.RateLimitRequestsPerSec
			gatewayConfig.RateBurst = c.config.RateLimitBurst
		}

		c.gw = gateway.New(
			gatewayConfig,
			signer,
			resolver,
			c.AuditSink(),
			authz,
			c.Logger(),
			primitive.NewSubprocess(c.config.ProjectRoot, c.Logger()),
			primitive.NewHTTPClient(nil, c.config.ProjectRoot, c.Logger()),
		)
	})
	if initErr != nil {
		return nil, initErr
	}
	if err := c.loadError("gateway"); err != nil {
		return nil, err
	}
	return c.gw, nil
}

// Shutdown drains the audit sink and flushes metrics.
func (c *Container) Shutdown(ctx context.Context) error {
	if c.auditSink != nil {
		c.auditSink.Close()
	}
	if c.metricsProvider != nil {
		return c.metricsProvider.Shutdown(ctx)
	}
	return nil
}

func (c *Container) storeError(component string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initErrors[component] = err
}

func (c *Container) loadError(component string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[component]
}
