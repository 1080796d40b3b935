package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/allisson/warden/internal/app"
	"github.com/allisson/warden/internal/capability/domain"
	capservice "github.com/allisson/warden/internal/capability/service"
	"github.com/allisson/warden/internal/config"
	apperrors "github.com/allisson/warden/internal/errors"
	tooldomain "github.com/allisson/warden/internal/tool/domain"
	toolservice "github.com/allisson/warden/internal/tool/service"
)

// fileLookup serves tool definitions from a JSON registry file loaded once.
type fileLookup struct {
	definitions map[string]tooldomain.ToolDefinition
}

func newFileLookup(path string) (*fileLookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read registry file %q", path)
	}
	var definitions []tooldomain.ToolDefinition
	if err := json.Unmarshal(data, &definitions); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}

	lookup := &fileLookup{definitions: make(map[string]tooldomain.ToolDefinition, len(definitions))}
	for _, definition := range definitions {
		lookup.definitions[definition.ToolID] = definition
	}
	return lookup, nil
}

func (f *fileLookup) Get(_ context.Context, toolID string) (*tooldomain.ToolDefinition, error) {
	definition, ok := f.definitions[toolID]
	if !ok {
		return nil, nil
	}
	return &definition, nil
}

// RunSimulate dry-runs the gateway decision for a tool call without executing
// anything: it verifies the token, resolves the executor chain against a
// static registry file, and runs the capability and path-scope checks,
// printing the decision and the resolved chain.
func RunSimulate(ctx context.Context, io IOTuple, cfg *config.Config, tokenFile, registryFile, toolID, path string) error {
	token, err := readTokenFile(tokenFile)
	if err != nil {
		return err
	}
	lookup, err := newFileLookup(registryFile)
	if err != nil {
		return err
	}

	container := app.NewContainer(cfg)
	signer, err := container.Signer()
	if err != nil {
		return err
	}

	if err := capservice.VerifyToken(signer, token); err != nil {
		fmt.Fprintf(io.Writer, "decision: deny (%v)\n", err)
		return err
	}

	resolver := toolservice.NewResolver(lookup, cfg.ChainMaxDepth)
	chain, err := resolver.ResolveChain(ctx, toolID)
	if err != nil {
		fmt.Fprintf(io.Writer, "decision: deny (%v)\n", err)
		return err
	}

	fmt.Fprintln(io.Writer, "chain:")
	for _, definition := range chain {
		fmt.Fprintf(io.Writer, "  %s (%s)\n", definition.ToolID, definition.ToolType)
	}

	target := domain.CallTarget{ToolID: toolID, Path: path}
	if err := domain.CheckCall(token, chain[0].RequiredCapabilities, target, cfg.ProjectRoot, time.Now().UTC()); err != nil {
		fmt.Fprintf(io.Writer, "decision: deny (%v)\n", err)
		return err
	}

	fmt.Fprintln(io.Writer, "decision: allow")
	return nil
}
