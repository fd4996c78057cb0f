//go:build windows

package relaunch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/selfupdate/internal/logger"
)

var errChildVanished = errors.New("restarted process is not running")

// relaunch spawns a detached copy of the program, confirms it is alive and exits the parent.
func relaunch(ctx context.Context, target *Target, exit func(int)) error {
	logger.DebugKV(ctx, "Relaunching", "executable", target.Executable, "args", target.Args[1:])

	//nolint:gosec // The target is this very program with its own arguments.
	cmd := exec.Command(target.Executable, target.Args[1:]...)
	cmd.Env = target.Env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", target.Executable, err)
	}

	child, err := ps.FindProcess(cmd.Process.Pid)
	if err != nil {
		return fmt.Errorf("look up restarted process: %w", err)
	}

	if child == nil {
		return fmt.Errorf("pid %d: %w", cmd.Process.Pid, errChildVanished)
	}

	_ = cmd.Process.Release()

	exit(0)

	return nil
}
