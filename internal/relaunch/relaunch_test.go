package relaunch

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFunc adapts a plain function.
func TestFunc(t *testing.T) {
	t.Parallel()

	calls := 0
	boom := errors.New("boom")

	var r Relauncher = Func(func(context.Context) error {
		calls++

		return boom
	})

	require.ErrorIs(t, r.Relaunch(context.Background()), boom)
	require.Equal(t, 1, calls)
}

// TestCurrentProcess mirrors the running program.
func TestCurrentProcess(t *testing.T) {
	t.Parallel()

	target, err := CurrentProcess()
	require.NoError(t, err)
	require.NotEmpty(t, target.Executable)
	require.Equal(t, os.Args, target.Args)
	require.NotEmpty(t, target.Env)
}

// TestExec_RequiresArgs refuses a target without argv[0].
func TestExec_RequiresArgs(t *testing.T) {
	t.Parallel()

	e := &Exec{target: &Target{Executable: "/bin/true"}, exit: func(int) {}}
	require.ErrorIs(t, e.Relaunch(context.Background()), errNoArgs)
}

// TestExec_MissingExecutable surfaces the platform error instead of exiting.
func TestExec_MissingExecutable(t *testing.T) {
	t.Parallel()

	exited := false
	e := &Exec{
		target: &Target{Executable: "/definitely/not/here", Args: []string{"here"}},
		exit:   func(int) { exited = true },
	}

	require.Error(t, e.Relaunch(context.Background()))
	require.False(t, exited)
}
