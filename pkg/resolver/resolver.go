// Package resolver derives the deployment configuration of a pipeline run:
// which image reference the chart should point at and which chart parameter
// overrides to apply. Resolution is a pure function of the execution context,
// so identical contexts always resolve to identical configurations.
package resolver

import (
	"fmt"
	"strconv"

	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/envcontext"
	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/errtypes"
)

const (
	// PublicRegistry hosts released MCS images.
	PublicRegistry = "artefact.skao.int"
	// ImageRepository is the MCS image name within either registry.
	ImageRepository = "ska-mid-cbf-mcs"
	// ciRegistryGroup is the project group under the CI registry.
	ciRegistryGroup = "ska-telescope"
	// localValuesFile carries developer overrides on manual runs. It is
	// passed through to helm untouched; this package never reads it.
	localValuesFile = "values-local.yaml"
)

// ImageReference identifies the exact container image a deployment targets.
// Derived deterministically from the execution context and never mutated.
type ImageReference struct {
	Registry   string
	Repository string
	Tag        string
}

// String renders the reference in registry/repository:tag form.
func (r ImageReference) String() string {
	return fmt.Sprintf("%s/%s:%s", r.Registry, r.Repository, r.Tag)
}

// Resolve derives the image reference and chart parameter set for the given
// context. CI jobs target the CI registry with a <version>-dev.c<sha> tag and
// pin both sub-charts to that image; manual runs target the public artefact
// registry with the released version and route the devices back to the
// invoking host.
func Resolve(ctx *envcontext.ExecutionContext) (ImageReference, *ChartParameterSet, error) {
	if ctx.Version == "" {
		return ImageReference{}, nil, errtypes.NewConfigurationError("VERSION", "release version is empty")
	}
	if ctx.IsCI {
		return resolveCI(ctx)
	}
	return resolveLocal(ctx)
}

func resolveCI(ctx *envcontext.ExecutionContext) (ImageReference, *ChartParameterSet, error) {
	// a dev tag without a commit hash would be ambiguous and
	// non-reproducible, so reject instead of degrading
	if ctx.CIJobID == "" {
		return ImageReference{}, nil, errtypes.NewConfigurationError("CI_JOB_ID", "required when running inside a CI job")
	}
	if ctx.CICommitShortSHA == "" {
		return ImageReference{}, nil, errtypes.NewConfigurationError("CI_COMMIT_SHORT_SHA", "required when running inside a CI job")
	}
	if ctx.CIRegistry == "" {
		return ImageReference{}, nil, errtypes.NewConfigurationError("CI_REGISTRY", "required when running inside a CI job")
	}

	image := ImageReference{
		Registry:   fmt.Sprintf("%s/%s", ctx.CIRegistry, ciRegistryGroup),
		Repository: ImageRepository,
		Tag:        fmt.Sprintf("%s-dev.c%s", ctx.Version, ctx.CICommitShortSHA),
	}

	params := NewChartParameterSet()
	for _, kv := range []struct{ path, value string }{
		{"global.minikube", strconv.FormatBool(false)},
		{"global.tango_host", ctx.TangoHost},
		{"midcbf.image.registry", image.Registry},
		{"midcbf.image.tag", image.Tag},
		{"leafnode.image.registry", image.Registry},
		{"leafnode.image.tag", image.Tag},
	} {
		if err := params.Set(kv.path, kv.value); err != nil {
			return ImageReference{}, nil, err
		}
	}
	return image, params, nil
}

func resolveLocal(ctx *envcontext.ExecutionContext) (ImageReference, *ChartParameterSet, error) {
	image := ImageReference{
		Registry:   PublicRegistry,
		Repository: ImageRepository,
		Tag:        ctx.Version,
	}

	params := NewChartParameterSet()
	overrides := []struct{ path, value string }{
		{"global.minikube", strconv.FormatBool(true)},
		{"global.tango_host", ctx.TangoHost},
	}
	if ctx.HostIP != "" {
		overrides = append(overrides, struct{ path, value string }{"hostInfo.hostIP", ctx.HostIP})
	}
	for _, kv := range overrides {
		if err := params.Set(kv.path, kv.value); err != nil {
			return ImageReference{}, nil, err
		}
	}
	params.AddValuesFile(localValuesFile)
	return image, params, nil
}
