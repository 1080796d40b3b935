package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/warden/internal/app"
	"github.com/allisson/warden/internal/config"
	apperrors "github.com/allisson/warden/internal/errors"
)

// RunMint mints a capability token from a JSON permission-set file and writes
// the serialized token to the command output. The permission file holds
// `{"category": "...", "entries": [{"resource", "action", "attrs"}]}`;
// unknown permissions and system-only capabilities on non-core categories
// fail the mint.
func RunMint(ctx context.Context, io IOTuple, cfg *config.Config, permissionFile, directiveID string, ttl time.Duration) error {
	set, err := readPermissionFile(permissionFile)
	if err != nil {
		return err
	}

	directive := uuid.Must(uuid.NewV7())
	if directiveID != "" {
		directive, err = uuid.Parse(directiveID)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "invalid directive id")
		}
	}

	container := app.NewContainer(cfg)
	defer func() {
		if shutdownErr := container.Shutdown(context.Background()); shutdownErr != nil {
			container.Logger().Error("failed to shutdown container", "error", shutdownErr)
		}
	}()

	useCase, err := container.ThreadUseCase()
	if err != nil {
		return err
	}

	thread, err := useCase.MintThreadToken(ctx, set, directive, ttl)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(thread.Token, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, "failed to encode token")
	}
	fmt.Fprintln(io.Writer, string(encoded))
	return nil
}
