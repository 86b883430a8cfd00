// Package testrunner stages test configuration into a running pod and
// executes the test command remotely, capturing combined output to a local
// log file. Everything before the remote command is invoked fails with a
// typed error; once invocation starts the runner always reports a result, so
// callers can tell "the tests ran and failed" apart from "the tests could not
// be run".
package testrunner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/errtypes"
	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/kubeutils"
)

// PodExecutor provides the copy and exec primitives the runner needs against
// a pod. The production implementation streams over the kubernetes API; tests
// substitute a recording double.
type PodExecutor interface {
	// EnsureDir creates dir inside the pod, succeeding if it already exists.
	EnsureDir(ctx context.Context, target kubeutils.PodTarget, dir string) error
	// CopyFile transfers a local file into remoteDir inside the pod.
	CopyFile(ctx context.Context, target kubeutils.PodTarget, localPath, remoteDir string) error
	// Exec runs command inside the pod, writing combined stdout and stderr
	// to output. It returns the command's exit code; the error is non-nil
	// only when the invocation mechanism itself failed.
	Exec(ctx context.Context, target kubeutils.PodTarget, command []string, output io.Writer) (int, error)
}

// RunOptions parameterizes a single test run.
type RunOptions struct {
	// Command is the test command executed inside the pod.
	Command []string
	// Artifact is the local configuration file staged into the pod before
	// the command runs.
	Artifact string
	// RemoteDir is the directory inside the pod the artifact is staged to.
	RemoteDir string
	// OutputPath is the local file capturing the command's combined output.
	OutputPath string
}

// TestRunResult records a completed test run. It is only ever constructed
// whole: if execution could not start there is no result, only an error.
type TestRunResult struct {
	ExitCode      int
	OutputLogPath string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Runner orchestrates staging and remote execution against one pod. It never
// retries: pod-lookup, staging and execution failures surface immediately and
// the caller owns any retry policy. Only one run per pod is safe at a time;
// the pod is a shared external resource with no locking here.
type Runner struct {
	executor PodExecutor
}

func New(executor PodExecutor) *Runner {
	return &Runner{executor: executor}
}

// Run stages the artifact into the target pod and executes the test command,
// streaming combined output to the local sink. Steps are strictly sequential
// and short-circuit on first failure; the command is only invoked after
// staging succeeded in full.
func (r *Runner) Run(ctx context.Context, target kubeutils.PodTarget, opts RunOptions) (*TestRunResult, error) {
	if !target.Resolved() {
		return nil, &errtypes.PodNotFoundError{Namespace: target.Namespace, Selector: target.Selector}
	}

	logrus.Debugf("staging %s into %s:%s", opts.Artifact, target.Name, opts.RemoteDir)
	if err := r.executor.EnsureDir(ctx, target, opts.RemoteDir); err != nil {
		return nil, &errtypes.StagingError{Step: "create remote dir", Path: opts.RemoteDir, Err: err}
	}
	if err := r.executor.CopyFile(ctx, target, opts.Artifact, opts.RemoteDir); err != nil {
		return nil, &errtypes.StagingError{Step: "stage artifact", Path: opts.Artifact, Err: err}
	}

	if dir := filepath.Dir(opts.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &errtypes.ExecutionError{Err: err}
		}
	}
	sink, err := os.Create(opts.OutputPath)
	if err != nil {
		return nil, &errtypes.ExecutionError{Err: err}
	}
	// the sink must be flushed and closed on every exit path, including
	// cancellation of the remote call
	defer func() {
		sink.Sync()
		sink.Close()
	}()

	started := time.Now()
	fmt.Fprintf(sink, "# %s %s\n", started.Format(time.RFC3339), strings.Join(opts.Command, " "))

	logrus.Debugf("executing %v in pod %s", opts.Command, target.Name)
	exitCode, execErr := r.executor.Exec(ctx, target, opts.Command, sink)
	finished := time.Now()
	if execErr != nil {
		return nil, &errtypes.ExecutionError{Err: execErr}
	}

	logrus.Debugf("remote command finished with exit code %d after %s", exitCode, finished.Sub(started))
	return &TestRunResult{
		ExitCode:      exitCode,
		OutputLogPath: opts.OutputPath,
		StartedAt:     started,
		FinishedAt:    finished,
	}, nil
}
