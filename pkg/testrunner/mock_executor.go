package testrunner

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/kubeutils"
)

var _ PodExecutor = (*MockPodExecutor)(nil)

type MockPodExecutor struct {
	mock.Mock
}

func (m *MockPodExecutor) EnsureDir(ctx context.Context, target kubeutils.PodTarget, dir string) error {
	args := m.Called(ctx, target, dir)
	return args.Error(0)
}

func (m *MockPodExecutor) CopyFile(ctx context.Context, target kubeutils.PodTarget, localPath, remoteDir string) error {
	args := m.Called(ctx, target, localPath, remoteDir)
	return args.Error(0)
}

func (m *MockPodExecutor) Exec(ctx context.Context, target kubeutils.PodTarget, command []string, output io.Writer) (int, error) {
	args := m.Called(ctx, target, command, output)
	return args.Int(0), args.Error(1)
}
