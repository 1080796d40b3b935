package commands

import (
	"fmt"
	"time"

	"github.com/allisson/warden/internal/app"
	capservice "github.com/allisson/warden/internal/capability/service"
	"github.com/allisson/warden/internal/config"
)

// RunInspect decodes a serialized token file, verifies its signature against
// the configured signing key, and prints the token's identity, grants, and
// validity window.
func RunInspect(io IOTuple, cfg *config.Config, tokenFile string) error {
	token, err := readTokenFile(tokenFile)
	if err != nil {
		return err
	}

	container := app.NewContainer(cfg)
	signer, err := container.Signer()
	if err != nil {
		return err
	}

	fmt.Fprintf(io.Writer, "token id:     %s\n", token.ID)
	fmt.Fprintf(io.Writer, "thread id:    %s\n", token.ThreadID)
	fmt.Fprintf(io.Writer, "directive id: %s\n", token.DirectiveID)
	if token.ParentTokenID != nil {
		fmt.Fprintf(io.Writer, "parent token: %s\n", token.ParentTokenID)
	}
	fmt.Fprintf(io.Writer, "audience:     %s\n", token.Audience)
	fmt.Fprintf(io.Writer, "issued at:    %s\n", token.IssuedAt.Format(time.RFC3339))
	fmt.Fprintf(io.Writer, "expires at:   %s\n", token.ExpiresAt.Format(time.RFC3339))
	fmt.Fprintln(io.Writer, "grants:")
	for _, grant := range token.Caps {
		fmt.Fprintf(io.Writer, "  %s\n", grant.String())
	}

	if err := capservice.VerifyToken(signer, token); err != nil {
		fmt.Fprintln(io.Writer, "signature:    INVALID")
		return err
	}
	fmt.Fprintln(io.Writer, "signature:    valid")

	if token.Expired(time.Now().UTC()) {
		fmt.Fprintln(io.Writer, "status:       expired")
	} else {
		fmt.Fprintln(io.Writer, "status:       active")
	}
	return nil
}
