package relaunch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Relauncher restarts the current program. On success the call normally does not return.
type Relauncher interface {
	Relaunch(ctx context.Context) error
}

// Func adapts a function to the Relauncher interface.
type Func func(ctx context.Context) error

// Relaunch calls f.
func (f Func) Relaunch(ctx context.Context) error {
	return f(ctx)
}

// Target describes the program to start again.
type Target struct {
	// Executable is the absolute path of the binary.
	Executable string
	// Args are the full command line, including argv[0].
	Args []string
	// Env is the environment in "key=value" form.
	Env []string
}

// errNoArgs is returned for a target without argv[0].
var errNoArgs = errors.New("relaunch target has no arguments")

// CurrentProcess describes the running program with its original arguments and environment.
func CurrentProcess() (*Target, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}

	if resolved, evalErr := filepath.EvalSymlinks(exe); evalErr == nil {
		exe = resolved
	}

	return &Target{
		Executable: exe,
		Args:       append([]string(nil), os.Args...),
		Env:        os.Environ(),
	}, nil
}

// Exec relaunches the current process using the platform strategy.
type Exec struct {
	// target overrides the current process, used by tests.
	target *Target
	// exit terminates the parent after spawning on platforms without exec.
	exit func(code int)
}

// New returns the platform relauncher for the current process.
func New() *Exec {
	return &Exec{exit: os.Exit}
}

// Relaunch restarts the program.
func (e *Exec) Relaunch(ctx context.Context) error {
	target := e.target
	if target == nil {
		var err error

		target, err = CurrentProcess()
		if err != nil {
			return err
		}
	}

	if len(target.Args) == 0 {
		return errNoArgs
	}

	return relaunch(ctx, target, e.exit)
}
