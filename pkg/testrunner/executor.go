package testrunner

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	restclient "k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
	utilexec "k8s.io/client-go/util/exec"

	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/kubeutils"
)

var _ PodExecutor = (*SPDYExecutor)(nil)

// SPDYExecutor implements PodExecutor over the kubernetes exec subresource.
type SPDYExecutor struct {
	cfg       *restclient.Config
	clientset kubernetes.Interface
}

func NewSPDYExecutor(cfg *restclient.Config, clientset kubernetes.Interface) *SPDYExecutor {
	return &SPDYExecutor{cfg: cfg, clientset: clientset}
}

// EnsureDir creates the directory inside the pod. mkdir -p makes this
// idempotent.
func (e *SPDYExecutor) EnsureDir(ctx context.Context, target kubeutils.PodTarget, dir string) error {
	var out bytes.Buffer
	exitCode, err := e.stream(ctx, target, []string{"mkdir", "-p", dir}, nil, &out)
	if err != nil {
		return pkgerrors.Wrapf(err, "mkdir %s", dir)
	}
	if exitCode != 0 {
		return fmt.Errorf("mkdir %s exited %d: %s", dir, exitCode, out.String())
	}
	return nil
}

// CopyFile streams the local file as a tar archive into the pod, unpacked
// into remoteDir. Same transport kubectl cp uses.
func (e *SPDYExecutor) CopyFile(ctx context.Context, target kubeutils.PodTarget, localPath, remoteDir string) error {
	archive, err := tarFile(localPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "archive %s", localPath)
	}

	var out bytes.Buffer
	command := []string{"tar", "-xmf", "-", "-C", remoteDir}
	exitCode, err := e.stream(ctx, target, command, archive, &out)
	if err != nil {
		return pkgerrors.Wrapf(err, "untar into %s", remoteDir)
	}
	if exitCode != 0 {
		return fmt.Errorf("untar into %s exited %d: %s", remoteDir, exitCode, out.String())
	}
	return nil
}

// Exec runs the command inside the pod with combined output directed at the
// writer. A command that ran to completion yields its exit code and a nil
// error; only transport-level failures return an error.
func (e *SPDYExecutor) Exec(ctx context.Context, target kubeutils.PodTarget, command []string, output io.Writer) (int, error) {
	exitCode, err := e.stream(ctx, target, command, nil, output)
	if err != nil {
		return 0, err
	}
	return exitCode, nil
}

// stream performs one exec call. The returned int is the remote exit code; a
// non-zero code is not an error. Errors indicate the call itself failed.
func (e *SPDYExecutor) stream(ctx context.Context, target kubeutils.PodTarget, command []string, stdin io.Reader, output io.Writer) (int, error) {
	req := e.clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(target.Name).
		Namespace(target.Namespace).
		SubResource("exec")

	req.VersionedParams(&corev1.PodExecOptions{
		Command: command,
		Stdin:   stdin != nil,
		Stdout:  true,
		Stderr:  true,
	}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(e.cfg, "POST", req.URL())
	if err != nil {
		return 0, pkgerrors.Wrap(err, "create exec")
	}

	err = executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdin:  stdin,
		Stdout: output,
		Stderr: output,
	})
	if err != nil {
		// a non-zero remote exit status arrives as a CodeExitError; the
		// command ran, so report the code rather than failing the call
		var exitErr utilexec.CodeExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code, nil
		}
		return 0, fmt.Errorf("stream exec: %w", err)
	}
	return 0, nil
}

// tarFile wraps a single file into an in-memory tar archive, preserving only
// its base name.
func tarFile(path string) (io.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{
		Name:    filepath.Base(path),
		Mode:    0644,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, err
	}
	if _, err := io.Copy(tw, f); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}
