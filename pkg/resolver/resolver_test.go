package resolver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/envcontext"
	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/errtypes"
)

func localContext() *envcontext.ExecutionContext {
	return &envcontext.ExecutionContext{
		KubeNamespace: "ska-mid-cbf",
		HelmRelease:   "test",
		TangoHost:     "databaseds-tango-base-test:10000",
		HostIP:        "192.168.49.1",
		Version:       "1.2.3",
	}
}

func ciContext() *envcontext.ExecutionContext {
	return &envcontext.ExecutionContext{
		IsCI:             true,
		CIJobID:          "987654",
		CICommitShortSHA: "abc1234",
		CIRegistry:       "registry.gitlab.com",
		KubeNamespace:    "ci-ska-mid-cbf-987654",
		HelmRelease:      "test",
		TangoHost:        "databaseds-tango-base-test:10000",
		Version:          "1.2.3",
	}
}

func TestResolveLocal(t *testing.T) {
	req := require.New(t)

	image, params, err := Resolve(localContext())
	req.NoError(err)

	req.Equal("artefact.skao.int", image.Registry)
	req.Equal("ska-mid-cbf-mcs", image.Repository)
	req.Equal("1.2.3", image.Tag)
	req.Equal("artefact.skao.int/ska-mid-cbf-mcs:1.2.3", image.String())

	v, ok := params.Get("global.minikube")
	req.True(ok)
	req.Equal("true", v)

	v, ok = params.Get("global.tango_host")
	req.True(ok)
	req.Equal("databaseds-tango-base-test:10000", v)

	v, ok = params.Get("hostInfo.hostIP")
	req.True(ok)
	req.Equal("192.168.49.1", v)

	req.Equal([]string{"values-local.yaml"}, params.ValuesFiles())
}

func TestResolveLocalWithoutHostIP(t *testing.T) {
	req := require.New(t)

	ctx := localContext()
	ctx.HostIP = ""
	_, params, err := Resolve(ctx)
	req.NoError(err)

	_, ok := params.Get("hostInfo.hostIP")
	req.False(ok)
}

func TestResolveCI(t *testing.T) {
	req := require.New(t)

	image, params, err := Resolve(ciContext())
	req.NoError(err)

	req.Equal("registry.gitlab.com/ska-telescope", image.Registry)
	req.Equal("1.2.3-dev.cabc1234", image.Tag)

	v, ok := params.Get("global.minikube")
	req.True(ok)
	req.Equal("false", v)

	for _, path := range []string{"midcbf.image.registry", "leafnode.image.registry"} {
		v, ok = params.Get(path)
		req.True(ok, path)
		req.Equal("registry.gitlab.com/ska-telescope", v)
	}
	for _, path := range []string{"midcbf.image.tag", "leafnode.image.tag"} {
		v, ok = params.Get(path)
		req.True(ok, path)
		req.Equal("1.2.3-dev.cabc1234", v)
	}

	// CI runs never attach the local values file
	req.Empty(params.ValuesFiles())
}

func TestResolveDeterministic(t *testing.T) {
	req := require.New(t)

	img1, params1, err := Resolve(ciContext())
	req.NoError(err)
	img2, params2, err := Resolve(ciContext())
	req.NoError(err)

	req.Equal(img1, img2)
	req.Equal(params1.Params(), params2.Params())
}

func TestResolveMissingInputs(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*envcontext.ExecutionContext)
		variable string
	}{
		{
			name:     "missing commit sha",
			mutate:   func(c *envcontext.ExecutionContext) { c.CICommitShortSHA = "" },
			variable: "CI_COMMIT_SHORT_SHA",
		},
		{
			name:     "missing job id",
			mutate:   func(c *envcontext.ExecutionContext) { c.CIJobID = "" },
			variable: "CI_JOB_ID",
		},
		{
			name:     "missing registry",
			mutate:   func(c *envcontext.ExecutionContext) { c.CIRegistry = "" },
			variable: "CI_REGISTRY",
		},
		{
			name:     "missing version",
			mutate:   func(c *envcontext.ExecutionContext) { c.Version = "" },
			variable: "VERSION",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			ctx := ciContext()
			tt.mutate(ctx)
			_, _, err := Resolve(ctx)
			req.Error(err)
			var confErr *errtypes.ConfigurationError
			req.True(errors.As(err, &confErr))
			req.Equal(tt.variable, confErr.Variable)
		})
	}
}
