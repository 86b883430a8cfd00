package helm

import (
	"context"

	"github.com/stretchr/testify/mock"
	"helm.sh/helm/v3/pkg/release"
)

var _ Client = (*MockClient)(nil)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockClient) ReleaseExists(ctx context.Context, namespace string, releaseName string) (bool, error) {
	args := m.Called(ctx, namespace, releaseName)
	return args.Bool(0), args.Error(1)
}

func (m *MockClient) Install(ctx context.Context, opts InstallOptions) (*release.Release, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*release.Release), args.Error(1)
}

func (m *MockClient) Upgrade(ctx context.Context, opts UpgradeOptions) (*release.Release, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*release.Release), args.Error(1)
}

func (m *MockClient) Uninstall(ctx context.Context, opts UninstallOptions) error {
	args := m.Called(ctx, opts)
	return args.Error(0)
}

func (m *MockClient) Render(opts InstallOptions) ([]byte, error) {
	args := m.Called(opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
