// Package envcontext builds the immutable execution context of a pipeline
// run. All environment variables are read exactly once, here, at process
// start; nothing else in the orchestrator consults the environment for
// deployment configuration.
package envcontext

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/errtypes"
	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/netutils"
	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/versions"
)

const (
	// DefaultKubeNamespace is where the MCS charts are installed when
	// KUBE_NAMESPACE is not set.
	DefaultKubeNamespace = "ska-mid-cbf"
	// DefaultHelmRelease is the release name used when HELM_RELEASE is not set.
	DefaultHelmRelease = "test"
	// DefaultTangoHost is the in-cluster Tango database device server address.
	DefaultTangoHost = "databaseds-tango-base-test:10000"
	// DefaultTestTimeout bounds the remote test command.
	DefaultTestTimeout = 30 * time.Minute
)

// ExecutionContext captures everything about the surrounding environment a
// pipeline run depends on. It is constructed once per invocation and passed
// by read-only reference; treat every field as immutable after FromEnv
// returns.
type ExecutionContext struct {
	// IsCI is true when the process runs inside a CI job, detected by the
	// presence of CI_JOB_ID.
	IsCI             bool
	CIJobID          string
	CICommitShortSHA string
	CIRegistry       string

	KubeNamespace string
	HelmRelease   string
	TangoHost     string

	// HostIP is the address the deployed devices use to reach back to the
	// invoking machine on local runs. Empty when discovery failed; only
	// local runs consume it.
	HostIP string

	// Kubeconfig records KUBECONFIG for diagnostics. Cluster clients read
	// the variable themselves through the standard loading rules.
	Kubeconfig string

	// Version is the release version of the system under deployment,
	// injected at build time. Opaque beyond non-emptiness.
	Version string

	// TestTimeout bounds the remote test command execution.
	TestTimeout time.Duration
}

// FromEnv reads the process environment into an ExecutionContext and
// validates it. CI runs require CI_JOB_ID, CI_COMMIT_SHORT_SHA and
// CI_REGISTRY: deriving a dev image tag without a commit hash would produce
// an ambiguous, non-reproducible artifact reference, so absence is an error
// rather than a degraded default.
func FromEnv() (*ExecutionContext, error) {
	ctx := &ExecutionContext{
		CIJobID:          os.Getenv("CI_JOB_ID"),
		CICommitShortSHA: os.Getenv("CI_COMMIT_SHORT_SHA"),
		CIRegistry:       os.Getenv("CI_REGISTRY"),
		KubeNamespace:    envOrDefault("KUBE_NAMESPACE", DefaultKubeNamespace),
		HelmRelease:      envOrDefault("HELM_RELEASE", DefaultHelmRelease),
		TangoHost:        envOrDefault("TANGO_HOST", DefaultTangoHost),
		HostIP:           os.Getenv("HOST_IP"),
		Kubeconfig:       os.Getenv("KUBECONFIG"),
		Version:          versions.Version,
		TestTimeout:      DefaultTestTimeout,
	}
	ctx.IsCI = ctx.CIJobID != ""

	if raw := os.Getenv("CBF_TEST_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, errtypes.NewConfigurationError("CBF_TEST_TIMEOUT", "not a valid duration: "+raw)
		}
		ctx.TestTimeout = d
	}

	if ctx.HostIP == "" && !ctx.IsCI {
		addr, err := netutils.FirstValidAddress("")
		if err != nil {
			logrus.Debugf("unable to discover host ip: %v", err)
		} else {
			ctx.HostIP = addr
		}
	}

	if err := ctx.validate(); err != nil {
		return nil, err
	}
	return ctx, nil
}

func (c *ExecutionContext) validate() error {
	if c.Version == "" {
		return errtypes.NewConfigurationError("VERSION", "release version is empty")
	}
	if !c.IsCI {
		return nil
	}
	if c.CICommitShortSHA == "" {
		return errtypes.NewConfigurationError("CI_COMMIT_SHORT_SHA", "required when running inside a CI job")
	}
	if c.CIRegistry == "" {
		return errtypes.NewConfigurationError("CI_REGISTRY", "required when running inside a CI job")
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
