// Package primitive implements the terminal executors tool chains bottom out
// in. Each primitive re-runs the capability check before performing I/O, so a
// caller that somehow reaches a primitive without going through the gateway
// still cannot act beyond its token.
package primitive

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"

	"github.com/allisson/warden/internal/capability/domain"
	apperrors "github.com/allisson/warden/internal/errors"
	"github.com/allisson/warden/internal/gateway"
	tooldomain "github.com/allisson/warden/internal/tool/domain"
)

// ErrNoCommand indicates a subprocess call without a command.
var ErrNoCommand = apperrors.Wrap(apperrors.ErrInvalidInput, "subprocess call requires a command")

// Subprocess executes external commands inside the project root.
type Subprocess struct {
	projectRoot string
	logger      *slog.Logger
	now         func() time.Time
}

// NewSubprocess creates a Subprocess primitive rooted at projectRoot.
func NewSubprocess(projectRoot string, logger *slog.Logger) *Subprocess {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subprocess{
		projectRoot: projectRoot,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the primitive clock, for tests.
func (s *Subprocess) WithClock(now func() time.Time) *Subprocess {
	s.now = now
	return s
}

// Name implements gateway.Primitive.
func (s *Subprocess) Name() string {
	return tooldomain.PrimitiveSubprocess
}

// Execute re-validates the token against the chain's requirements, then runs
// the command with the project root as working directory. A non-zero exit is
// reported through CallResult.ExitCode, not as an error; only spawn failures
// and capability denials are errors.
func (s *Subprocess) Execute(
	ctx context.Context,
	token *domain.CapabilityToken,
	chain []tooldomain.ToolDefinition,
	params *gateway.CallParams,
) (*gateway.CallResult, error) {
	if len(params.Command) == 0 {
		return nil, ErrNoCommand
	}

	required := requiredCapabilities(chain, domain.ProcSpawn)
	target := domain.CallTarget{Path: params.Path}
	if len(chain) > 0 {
		target.ToolID = chain[0].ToolID
	}
	if err := domain.CheckCall(token, required, target, s.projectRoot, s.now()); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, params.Command[0], params.Command[1:]...)
	cmd.Dir = s.projectRoot
	if len(params.Body) > 0 {
		cmd.Stdin = bytes.NewReader(params.Body)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			s.logger.WarnContext(ctx, "subprocess exited non-zero",
				slog.String("command", params.Command[0]),
				slog.Int("exit_code", exitErr.ExitCode()),
			)
			return &gateway.CallResult{Output: output, ExitCode: exitErr.ExitCode()}, nil
		}
		return nil, apperrors.Wrapf(err, "failed to run command %q", params.Command[0])
	}

	return &gateway.CallResult{Output: output}, nil
}

// requiredCapabilities collects the capability names required anywhere along
// the chain, deduplicated, always including the primitive's own requirement.
func requiredCapabilities(chain []tooldomain.ToolDefinition, own string) []string {
	seen := map[string]bool{own: true}
	required := []string{own}
	for _, definition := range chain {
		for _, capability := range definition.RequiredCapabilities {
			if !seen[capability] {
				seen[capability] = true
				required = append(required, capability)
			}
		}
	}
	return required
}
