package testrunner

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/errtypes"
	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/kubeutils"
)

func resolvedTarget() kubeutils.PodTarget {
	return kubeutils.PodTarget{
		Namespace: "ska-mid-cbf",
		Selector:  "app=test-runner",
		Name:      "test-runner-0",
	}
}

func runOptions(t *testing.T) RunOptions {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "devices.json")
	require.NoError(t, os.WriteFile(artifact, []byte(`{"devices": []}`), 0644))
	return RunOptions{
		Command:    []string{"python3", "-m", "pytest", "./tests"},
		Artifact:   artifact,
		RemoteDir:  "/app/tests/data",
		OutputPath: filepath.Join(dir, "build", "test-output.log"),
	}
}

func TestRunPodNotFound(t *testing.T) {
	req := require.New(t)

	executor := &MockPodExecutor{}
	runner := New(executor)

	target := kubeutils.PodTarget{Namespace: "ska-mid-cbf", Selector: "app=test-runner"}
	result, err := runner.Run(context.Background(), target, runOptions(t))
	req.Nil(result)

	var podErr *errtypes.PodNotFoundError
	req.True(errors.As(err, &podErr))
	req.Equal("app=test-runner", podErr.Selector)

	// no copy or exec side effect may be observed
	executor.AssertNotCalled(t, "EnsureDir", mock.Anything, mock.Anything, mock.Anything)
	executor.AssertNotCalled(t, "CopyFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	executor.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunEnsureDirFails(t *testing.T) {
	req := require.New(t)

	executor := &MockPodExecutor{}
	executor.On("EnsureDir", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("permission denied"))
	runner := New(executor)

	opts := runOptions(t)
	result, err := runner.Run(context.Background(), resolvedTarget(), opts)
	req.Nil(result)

	var stageErr *errtypes.StagingError
	req.True(errors.As(err, &stageErr))
	// a mkdir failure names the remote directory, not the artifact
	req.Equal(opts.RemoteDir, stageErr.Path)
	req.Contains(err.Error(), "create remote dir /app/tests/data")

	executor.AssertNotCalled(t, "CopyFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	executor.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunCopyFails(t *testing.T) {
	req := require.New(t)

	executor := &MockPodExecutor{}
	executor.On("EnsureDir", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	executor.On("CopyFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection reset"))
	runner := New(executor)

	opts := runOptions(t)
	result, err := runner.Run(context.Background(), resolvedTarget(), opts)
	req.Nil(result)

	var stageErr *errtypes.StagingError
	req.True(errors.As(err, &stageErr))
	req.Equal(opts.Artifact, stageErr.Path)

	executor.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	// the sink is only opened once staging succeeded
	_, statErr := os.Stat(opts.OutputPath)
	req.True(os.IsNotExist(statErr))
}

func TestRunReportsExitCode(t *testing.T) {
	for _, exitCode := range []int{0, 1, 127} {
		executor := &MockPodExecutor{}
		executor.On("EnsureDir", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		executor.On("CopyFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		executor.On("Exec", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				out := args.Get(3).(io.Writer)
				io.WriteString(out, "collected 12 items\n")
			}).
			Return(exitCode, nil)
		runner := New(executor)

		opts := runOptions(t)
		result, err := runner.Run(context.Background(), resolvedTarget(), opts)
		require.NoError(t, err)
		require.NotNil(t, result)
		// the remote command's code is returned unchanged
		require.Equal(t, exitCode, result.ExitCode)
		require.Equal(t, opts.OutputPath, result.OutputLogPath)
		require.False(t, result.FinishedAt.Before(result.StartedAt))

		content, readErr := os.ReadFile(opts.OutputPath)
		require.NoError(t, readErr)
		require.NotEmpty(t, content)
		require.Contains(t, string(content), "collected 12 items")

		executor.AssertExpectations(t)
	}
}

func TestRunExecutionError(t *testing.T) {
	req := require.New(t)

	executor := &MockPodExecutor{}
	executor.On("EnsureDir", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	executor.On("CopyFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	executor.On("Exec", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(0, errors.New("error dialing backend"))
	runner := New(executor)

	opts := runOptions(t)
	result, err := runner.Run(context.Background(), resolvedTarget(), opts)
	req.Nil(result)

	var execErr *errtypes.ExecutionError
	req.True(errors.As(err, &execErr))

	// the sink was opened for the invocation and is flushed and closed on
	// the failure path too
	content, readErr := os.ReadFile(opts.OutputPath)
	req.NoError(readErr)
	req.NotEmpty(content)
}

func TestRunCancelledMidExecution(t *testing.T) {
	req := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())

	executor := &MockPodExecutor{}
	executor.On("EnsureDir", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	executor.On("CopyFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	executor.On("Exec", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			out := args.Get(3).(io.Writer)
			io.WriteString(out, "test session starts\n")
			cancel()
		}).
		Return(0, context.Canceled)
	runner := New(executor)

	opts := runOptions(t)
	result, err := runner.Run(ctx, resolvedTarget(), opts)
	req.Nil(result)

	var execErr *errtypes.ExecutionError
	req.True(errors.As(err, &execErr))
	req.ErrorIs(err, context.Canceled)

	content, readErr := os.ReadFile(opts.OutputPath)
	req.NoError(readErr)
	req.Contains(string(content), "test session starts")
}
