package helm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/chartutil"
	helmcli "helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/storage/driver"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	restclient "k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	k8syaml "sigs.k8s.io/yaml"
)

var _ Client = (*HelmClient)(nil)

type HelmOptions struct {
	KubernetesEnvSettings *helmcli.EnvSettings
	K8sVersion            string
}

type LogFn func(format string, args ...interface{})

type InstallOptions struct {
	ReleaseName string
	ChartPath   string
	Values      map[string]interface{}
	// ValuesFiles are merged below Values, mirroring helm's -f semantics.
	ValuesFiles []string
	Namespace   string
	Timeout     time.Duration
	LogFn       LogFn
}

type UpgradeOptions struct {
	ReleaseName string
	ChartPath   string
	Values      map[string]interface{}
	ValuesFiles []string
	Namespace   string
	Timeout     time.Duration
	Force       bool
	LogFn       LogFn
}

type UninstallOptions struct {
	ReleaseName    string
	Namespace      string
	Wait           bool
	IgnoreNotFound bool
	LogFn          LogFn
}

type HelmClient struct {
	tmpdir                string
	kversion              *semver.Version
	kubernetesEnvSettings *helmcli.EnvSettings
}

func newClient(opts HelmOptions) (*HelmClient, error) {
	tmpdir, err := os.MkdirTemp(os.TempDir(), "helm-*")
	if err != nil {
		return nil, err
	}

	var kversion *semver.Version
	if opts.K8sVersion != "" {
		sv, err := semver.NewVersion(opts.K8sVersion)
		if err != nil {
			return nil, fmt.Errorf("parse kubernetes version: %w", err)
		}
		kversion = sv
	}

	return &HelmClient{
		tmpdir:                tmpdir,
		kversion:              kversion,
		kubernetesEnvSettings: opts.KubernetesEnvSettings,
	}, nil
}

func (h *HelmClient) Close() error {
	return os.RemoveAll(h.tmpdir)
}

func (h *HelmClient) ReleaseExists(ctx context.Context, namespace string, releaseName string) (bool, error) {
	cfg, err := h.getActionCfg(namespace, nil)
	if err != nil {
		return false, fmt.Errorf("get action configuration: %w", err)
	}

	client := action.NewHistory(cfg)
	client.Max = 1

	versions, err := client.Run(releaseName)
	if errors.Is(err, driver.ErrReleaseNotFound) || isReleaseUninstalled(versions) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get release history: %w", err)
	}

	return true, nil
}

func (h *HelmClient) Install(ctx context.Context, opts InstallOptions) (*release.Release, error) {
	cfg, err := h.getActionCfg(opts.Namespace, opts.LogFn)
	if err != nil {
		return nil, fmt.Errorf("get action configuration: %w", err)
	}

	client := action.NewInstall(cfg)
	client.ReleaseName = opts.ReleaseName
	client.Namespace = opts.Namespace
	client.Replace = true
	client.CreateNamespace = true
	client.WaitForJobs = true
	client.Wait = true
	// we don't set client.Atomic = true on install as it makes installation
	// failures difficult to debug since it will rollback the release.

	if opts.Timeout != 0 {
		client.Timeout = opts.Timeout
	} else {
		client.Timeout = 5 * time.Minute
	}

	chartRequested, err := h.loadChart(opts.ChartPath)
	if err != nil {
		return nil, fmt.Errorf("load chart: %w", err)
	}

	if req := chartRequested.Metadata.Dependencies; req != nil {
		if err := action.CheckDependencies(chartRequested, req); err != nil {
			return nil, fmt.Errorf("check chart dependencies: %w", err)
		}
	}

	cleanVals, err := mergeValues(opts.ValuesFiles, opts.Values)
	if err != nil {
		return nil, fmt.Errorf("merge values: %w", err)
	}

	release, err := client.RunWithContext(ctx, chartRequested, cleanVals)
	if err != nil {
		return nil, fmt.Errorf("helm install: %w", err)
	}

	return release, nil
}

func (h *HelmClient) Upgrade(ctx context.Context, opts UpgradeOptions) (*release.Release, error) {
	cfg, err := h.getActionCfg(opts.Namespace, opts.LogFn)
	if err != nil {
		return nil, fmt.Errorf("get action configuration: %w", err)
	}

	client := action.NewUpgrade(cfg)
	client.Namespace = opts.Namespace
	client.WaitForJobs = true
	client.Wait = true
	client.Atomic = true
	client.Force = opts.Force

	if opts.Timeout != 0 {
		client.Timeout = opts.Timeout
	} else {
		client.Timeout = 5 * time.Minute
	}

	chartRequested, err := h.loadChart(opts.ChartPath)
	if err != nil {
		return nil, fmt.Errorf("load chart: %w", err)
	}

	cleanVals, err := mergeValues(opts.ValuesFiles, opts.Values)
	if err != nil {
		return nil, fmt.Errorf("merge values: %w", err)
	}

	release, err := client.RunWithContext(ctx, opts.ReleaseName, chartRequested, cleanVals)
	if err != nil {
		return nil, fmt.Errorf("helm upgrade: %w", err)
	}

	return release, nil
}

func (h *HelmClient) Uninstall(ctx context.Context, opts UninstallOptions) error {
	cfg, err := h.getActionCfg(opts.Namespace, opts.LogFn)
	if err != nil {
		return fmt.Errorf("get action configuration: %w", err)
	}

	client := action.NewUninstall(cfg)
	client.Wait = opts.Wait
	client.IgnoreNotFound = opts.IgnoreNotFound

	if deadline, ok := ctx.Deadline(); ok {
		client.Timeout = time.Until(deadline)
	}

	if _, err := client.Run(opts.ReleaseName); err != nil {
		return fmt.Errorf("uninstall release: %w", err)
	}

	return nil
}

// Render renders the chart locally without contacting the cluster and
// returns the manifests that an install with the same options would apply.
func (h *HelmClient) Render(opts InstallOptions) ([]byte, error) {
	cfg := &action.Configuration{}

	client := action.NewInstall(cfg)
	client.DryRun = true
	client.ReleaseName = opts.ReleaseName
	client.Replace = true
	client.ClientOnly = true
	client.IncludeCRDs = true
	client.Namespace = opts.Namespace

	if h.kversion != nil {
		// since ClientOnly is true we need to initialize KubeVersion
		// otherwise rendering resorts to defaults
		client.KubeVersion = &chartutil.KubeVersion{
			Version: fmt.Sprintf("v%d.%d.0", h.kversion.Major(), h.kversion.Minor()),
			Major:   fmt.Sprintf("%d", h.kversion.Major()),
			Minor:   fmt.Sprintf("%d", h.kversion.Minor()),
		}
	}

	chartRequested, err := h.loadChart(opts.ChartPath)
	if err != nil {
		return nil, fmt.Errorf("load chart: %w", err)
	}

	cleanVals, err := mergeValues(opts.ValuesFiles, opts.Values)
	if err != nil {
		return nil, fmt.Errorf("merge values: %w", err)
	}

	rel, err := client.Run(chartRequested, cleanVals)
	if err != nil {
		return nil, fmt.Errorf("run render: %w", err)
	}

	return []byte(rel.Manifest), nil
}

func isReleaseUninstalled(versions []*release.Release) bool {
	return len(versions) > 0 && versions[len(versions)-1].Info.Status == release.StatusUninstalled
}

func (h *HelmClient) getActionCfg(namespace string, logFn LogFn) (*action.Configuration, error) {
	cfg := &action.Configuration{}
	if logFn == nil {
		logFn = _logFn
	}
	var restClientGetter genericclioptions.RESTClientGetter
	if h.kubernetesEnvSettings != nil {
		restClientGetter = h.kubernetesEnvSettings.RESTClientGetter()
	} else {
		restClientGetter = helmcli.New().RESTClientGetter() // use the default env settings from helm
	}
	restClientGetter = &namespacedRESTClientGetter{
		RESTClientGetter: restClientGetter,
		namespace:        namespace,
	}
	if err := cfg.Init(restClientGetter, namespace, "secret", action.DebugLog(logFn)); err != nil {
		return nil, fmt.Errorf("init helm configuration: %w", err)
	}
	return cfg, nil
}

// loadChart loads a packaged chart archive or an unpacked chart directory
// from the local filesystem.
func (h *HelmClient) loadChart(chartPath string) (*chart.Chart, error) {
	if chartPath == "" {
		return nil, fmt.Errorf("chart path is empty")
	}
	chartRequested, err := loader.Load(chartPath)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return chartRequested, nil
}

// mergeValues layers the override values on top of the external values files,
// in file order, then launders the result through yaml so helm only ever sees
// plain map[string]interface{} values.
func mergeValues(valuesFiles []string, overrides map[string]interface{}) (map[string]interface{}, error) {
	merged := map[string]interface{}{}
	for _, f := range valuesFiles {
		raw, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read values file %s: %w", f, err)
		}
		fileVals, err := UnmarshalValues(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse values file %s: %w", f, err)
		}
		// yaml.v2 produces map[interface{}]interface{} for nested maps,
		// which coalescing cannot see into
		fileVals, err = cleanUpGenericMap(fileVals)
		if err != nil {
			return nil, fmt.Errorf("clean up values file %s: %w", f, err)
		}
		merged = chartutil.CoalesceTables(fileVals, merged)
	}
	overrideVals, err := cleanUpGenericMap(overrides)
	if err != nil {
		return nil, fmt.Errorf("clean up override values: %w", err)
	}
	merged = chartutil.CoalesceTables(overrideVals, merged)
	return merged, nil
}

func cleanUpGenericMap(m map[string]interface{}) (map[string]interface{}, error) {
	// we must first use yaml marshal to convert the map[interface{}]interface{} to a []byte
	// otherwise we will get an error "unsupported type: map[interface {}]interface {}"
	b, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("yaml marshal: %w", err)
	}
	next := map[string]interface{}{}
	err = k8syaml.Unmarshal(b, &next)
	if err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	return next, nil
}

func _logFn(format string, args ...interface{}) {
	log := logrus.WithField("component", "helm")
	log.Debugf(format, args...)
}

type namespacedRESTClientGetter struct {
	genericclioptions.RESTClientGetter
	namespace string
}

func (n *namespacedRESTClientGetter) ToRawKubeConfigLoader() clientcmd.ClientConfig {
	cfg := n.RESTClientGetter.ToRawKubeConfigLoader()
	return &namespacedClientConfig{
		cfg:       cfg,
		namespace: n.namespace,
	}
}

type namespacedClientConfig struct {
	cfg       clientcmd.ClientConfig
	namespace string
}

func (n *namespacedClientConfig) RawConfig() (clientcmdapi.Config, error) {
	return n.cfg.RawConfig()
}

func (n *namespacedClientConfig) ClientConfig() (*restclient.Config, error) {
	return n.cfg.ClientConfig()
}

func (n *namespacedClientConfig) Namespace() (string, bool, error) {
	if n.namespace == "" {
		return n.cfg.Namespace()
	}
	return n.namespace, true, nil
}

func (n *namespacedClientConfig) ConfigAccess() clientcmd.ConfigAccess {
	return n.cfg.ConfigAccess()
}
