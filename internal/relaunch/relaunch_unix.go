//go:build !windows

package relaunch

import (
	"context"
	"fmt"
	"syscall"

	"github.com/oshokin/selfupdate/internal/logger"
)

// relaunch replaces the current process image; it only returns on failure.
func relaunch(ctx context.Context, target *Target, _ func(int)) error {
	logger.DebugKV(ctx, "Relaunching", "executable", target.Executable, "args", target.Args[1:])

	//nolint:gosec // The target is this very program with its own arguments.
	if err := syscall.Exec(target.Executable, target.Args, target.Env); err != nil {
		return fmt.Errorf("exec %s: %w", target.Executable, err)
	}

	return nil
}
