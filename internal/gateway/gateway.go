// Package gateway implements the single call-through surface for tool
// invocation. Every tool call, regardless of tool type, passes the same
// checks: token signature and expiry, executor-chain resolution, required
// capabilities, and path-scope containment. There is no bypass path and no
// tool-type-specific exemption.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/allisson/warden/internal/audit"
	"github.com/allisson/warden/internal/capability/domain"
	capservice "github.com/allisson/warden/internal/capability/service"
	apperrors "github.com/allisson/warden/internal/errors"
	"github.com/allisson/warden/internal/metrics"
	tooldomain "github.com/allisson/warden/internal/tool/domain"
	toolservice "github.com/allisson/warden/internal/tool/service"
)

// Gateway errors.
var (
	// ErrInvalidToken indicates a token whose signature does not verify.
	ErrInvalidToken = apperrors.Wrap(apperrors.ErrUnauthorized, "invalid token")

	// ErrNoPrimitive indicates a resolved chain whose terminal primitive has
	// no registered executor. A configuration bug, not a caller error.
	ErrNoPrimitive = apperrors.Wrap(apperrors.ErrNotFound, "no executor registered for terminal primitive")

	// ErrRateLimited indicates the gateway's invocation rate limit was hit.
	ErrRateLimited = apperrors.Wrap(apperrors.ErrLocked, "invocation rate limit exceeded")
)

// CallParams carries the parameters of one tool call. Path is the filesystem
// target for path-addressed calls; Command, Method, URL and Body feed the
// terminal primitives; Metadata is passed through untouched.
type CallParams struct {
	Path     string            `json:"path,omitempty"`
	Command  []string          `json:"command,omitempty"`
	Method   string            `json:"method,omitempty"`
	URL      string            `json:"url,omitempty"`
	Body     []byte            `json:"body,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CallResult is the outcome of a dispatched call.
type CallResult struct {
	Output   []byte            `json:"output,omitempty"`
	ExitCode int               `json:"exit_code"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Primitive is a terminal executor (process spawn, HTTP call). Primitives
// re-validate token capability and scope before acting, using the same
// library checks the gateway runs — defense in depth against a bypass.
type Primitive interface {
	// Name returns the primitive's tool id (e.g. "subprocess").
	Name() string

	// Execute performs the I/O for the resolved chain.
	Execute(ctx context.Context, token *domain.CapabilityToken, chain []tooldomain.ToolDefinition, params *CallParams) (*CallResult, error)
}

// Config holds gateway construction knobs.
type Config struct {
	// ProjectRoot is the directory path-scoped capabilities resolve against.
	ProjectRoot string

	// RateLimit enables invocation rate limiting when positive.
	RateLimit float64
	// RateBurst is the limiter burst size; ignored when RateLimit is zero.
	RateBurst int
}

// Gateway validates and dispatches tool invocations.
type Gateway struct {
	signer     capservice.Signer
	resolver   *toolservice.Resolver
	primitives map[string]Primitive
	auditSink  audit.Sink
	metrics    metrics.AuthzMetrics
	logger     *slog.Logger
	limiter    *rate.Limiter
	root       string
	now        func() time.Time
}

// New creates a Gateway. The tool lookup and audit sink are injected
// explicitly; there are no process-wide registries.
func New(
	config Config,
	signer capservice.Signer,
	resolver *toolservice.Resolver,
	auditSink audit.Sink,
	authzMetrics metrics.AuthzMetrics,
	logger *slog.Logger,
	primitives ...Primitive,
) *Gateway {
	g := &Gateway{
		signer:     signer,
		resolver:   resolver,
		primitives: make(map[string]Primitive, len(primitives)),
		auditSink:  auditSink,
		metrics:    authzMetrics,
		logger:     logger,
		root:       config.ProjectRoot,
		now:        func() time.Time { return time.Now().UTC() },
	}
	if g.auditSink == nil {
		g.auditSink = audit.NopSink{}
	}
	if g.metrics == nil {
		g.metrics = metrics.NopAuthzMetrics()
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}
	for _, p := range primitives {
		g.primitives[p.Name()] = p
	}
	return g
}

// WithClock replaces the gateway clock, for tests.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.now = now
	return g
}

// Invoke checks the token against the tool's requirements and dispatches the
// call to the terminal primitive of the tool's executor chain.
//
// Check order: rate limit, signature, expiry, chain resolution, required
// capabilities, path scopes. Each failure is returned as a typed error and
// audited as a deny; a success is audited as an allow after dispatch is
// attempted. A nested directive call on the same thread reuses the same token
// unchanged — only spawning a new thread attenuates.
func (g *Gateway) Invoke(ctx context.Context, token *domain.CapabilityToken, toolID string, params *CallParams) (*CallResult, error) {
	if params == nil {
		params = &CallParams{}
	}

	if g.limiter != nil && !g.limiter.Allow() {
		return nil, g.deny(ctx, token, toolID, ErrRateLimited)
	}

	// (1) signature and expiry
	if err := capservice.VerifyToken(g.signer, token); err != nil {
		return nil, g.deny(ctx, token, toolID, apperrors.Wrap(ErrInvalidToken, err.Error()))
	}
	if token.Expired(g.now()) {
		return nil, g.deny(ctx, token, toolID, domain.ErrTokenExpired)
	}

	// (2) executor chain
	chain, err := g.resolver.ResolveChain(ctx, toolID)
	if err != nil {
		return nil, g.deny(ctx, token, toolID, err)
	}

	// (3) required capabilities and (4) scopes, for the requested tool
	requested := chain[0]
	target := domain.CallTarget{ToolID: toolID, Path: params.Path}
	if err := domain.CheckCall(token, requested.RequiredCapabilities, target, g.root, g.now()); err != nil {
		return nil, g.deny(ctx, token, toolID, err)
	}

	// (5) dispatch to the terminal primitive, bounded by the caller deadline
	// and the token expiry, whichever is sooner
	terminal := chain[len(chain)-1]
	primitive, ok := g.primitives[terminal.ToolID]
	if !ok {
		return nil, g.deny(ctx, token, toolID, apperrors.Wrapf(ErrNoPrimitive, "primitive %q", terminal.ToolID))
	}

	dispatchCtx, cancel := context.WithDeadline(ctx, token.ExpiresAt)
	defer cancel()

	result, err := g.dispatch(dispatchCtx, primitive, token, chain, params)
	if err != nil {
		// The call was authorized; the failure is the primitive's. Expiry
		// mid-call is reported as such so the caller can distinguish it.
		if dispatchCtx.Err() != nil && token.Expired(g.now()) {
			err = domain.ErrTokenExpired
		}
		g.emit(ctx, token, toolID, audit.DecisionDeny, err.Error())
		return nil, err
	}

	g.emit(ctx, token, toolID, audit.DecisionAllow, "")
	return result, nil
}

// dispatch runs the primitive, converting a panic into an error: a primitive
// crashing must not corrupt the token or tear down the gateway.
func (g *Gateway) dispatch(
	ctx context.Context,
	primitive Primitive,
	token *domain.CapabilityToken,
	chain []tooldomain.ToolDefinition,
	params *CallParams,
) (result *CallResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = apperrors.New(fmt.Sprintf("primitive %q panicked: %v", primitive.Name(), r))
			g.logger.Error("primitive panic recovered",
				slog.String("primitive", primitive.Name()),
				slog.Any("panic", r))
		}
	}()
	return primitive.Execute(ctx, token, chain, params)
}

func (g *Gateway) deny(ctx context.Context, token *domain.CapabilityToken, toolID string, err error) error {
	g.emit(ctx, token, toolID, audit.DecisionDeny, err.Error())
	return err
}

// emit publishes the decision to the audit sink and metrics. Fire-and-forget:
// sink failures never affect the call.
func (g *Gateway) emit(ctx context.Context, token *domain.CapabilityToken, toolID string, decision audit.Decision, reason string) {
	g.auditSink.Emit(audit.NewEvent(token.ThreadID, toolID, decision, reason))
	g.metrics.RecordDecision(ctx, toolID, string(decision))
}
