package runner

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner(t *testing.T) {
	t.Run("captures output and duration", func(t *testing.T) {
		r := NewExecRunner(2)
		res, err := r.Run(context.Background(), Command{
			Args:  []string{"echo", "hello"},
			Label: "say hello",
		})
		require.NoError(t, err)
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "hello\n", res.Output)
		assert.Greater(t, res.Duration.Nanoseconds(), int64(0))
	})

	t.Run("non-zero exit surfaces as ProcessError", func(t *testing.T) {
		r := NewExecRunner(2)
		res, err := r.Run(context.Background(), Command{
			Args:  []string{"sh", "-c", "echo oops >&2; exit 3"},
			Label: "doomed",
		})
		require.Error(t, err)

		var procErr *ProcessError
		require.ErrorAs(t, err, &procErr)
		assert.Equal(t, 3, procErr.ExitCode)
		assert.Contains(t, procErr.Output, "oops")
		assert.Equal(t, 3, res.ExitCode)
		assert.Contains(t, procErr.Error(), "doomed")
	})

	t.Run("missing binary is not a ProcessError", func(t *testing.T) {
		r := NewExecRunner(1)
		_, err := r.Run(context.Background(), Command{
			Args: []string{"definitely-not-a-real-binary-mcuforge"},
		})
		require.Error(t, err)
		var procErr *ProcessError
		assert.False(t, strings.Contains(err.Error(), "exited with status"))
		assert.NotErrorAs(t, err, &procErr)
	})

	t.Run("environment overrides are applied", func(t *testing.T) {
		r := NewExecRunner(1)
		res, err := r.Run(context.Background(), Command{
			Args: []string{"sh", "-c", "echo $MCUFORGE_TEST_VAR"},
			Env:  map[string]string{"MCUFORGE_TEST_VAR": "42"},
		})
		require.NoError(t, err)
		assert.Equal(t, "42\n", res.Output)
	})

	t.Run("oversized job request is clamped to the budget", func(t *testing.T) {
		r := NewExecRunner(1)
		// A weight above the semaphore capacity would deadlock without
		// clamping; success here is the assertion.
		_, err := r.Run(context.Background(), Command{
			Args: []string{"true"},
			Jobs: 64,
		})
		require.NoError(t, err)
	})
}

func TestProcessErrorMessage(t *testing.T) {
	withLabel := &ProcessError{Label: "Build musl", ExitCode: 2}
	assert.Equal(t, "Build musl: exited with status 2", withLabel.Error())

	noLabel := &ProcessError{Args: []string{"make", "all"}, ExitCode: 1}
	assert.Equal(t, "make all: exited with status 1", noLabel.Error())
}

func TestTail(t *testing.T) {
	short := "short output"
	assert.Equal(t, short, tail(short))

	long := strings.Repeat("x", outputTail+100)
	assert.Len(t, tail(long), outputTail)
}

func TestRecorder(t *testing.T) {
	t.Run("records commands in dispatch order", func(t *testing.T) {
		rec := &Recorder{}
		_, err := rec.Run(context.Background(), Command{Label: "first"})
		require.NoError(t, err)
		_, err = rec.Run(context.Background(), Command{Label: "second"})
		require.NoError(t, err)

		assert.Equal(t, []string{"first", "second"}, rec.Labels())
	})

	t.Run("scripted failures", func(t *testing.T) {
		rec := &Recorder{FailLabels: map[string]string{"bad": "kaboom"}}
		_, err := rec.Run(context.Background(), Command{Label: "bad"})
		var procErr *ProcessError
		require.ErrorAs(t, err, &procErr)
		assert.Equal(t, "kaboom", procErr.Output)
	})
}
