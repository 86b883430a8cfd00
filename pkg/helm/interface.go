package helm

import (
	"context"

	"helm.sh/helm/v3/pkg/release"
)

var (
	_clientFactory ClientFactory
)

// Client drives the helm actions this orchestrator performs against the MCS
// umbrella chart. The chart itself is an external collaborator: it is loaded
// from a path, never authored here.
type Client interface {
	Close() error
	ReleaseExists(ctx context.Context, namespace string, releaseName string) (bool, error)
	Install(ctx context.Context, opts InstallOptions) (*release.Release, error)
	Upgrade(ctx context.Context, opts UpgradeOptions) (*release.Release, error)
	Uninstall(ctx context.Context, opts UninstallOptions) error
	Render(opts InstallOptions) ([]byte, error)
}

type ClientFactory func(opts HelmOptions) (Client, error)

// SetClientFactory overrides the client constructor, used by tests to inject
// a mock client.
func SetClientFactory(fn ClientFactory) {
	_clientFactory = fn
}

func NewClient(opts HelmOptions) (Client, error) {
	if _clientFactory != nil {
		return _clientFactory(opts)
	}
	return newClient(opts)
}
