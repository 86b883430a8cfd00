package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/envcontext"
	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/helm"
	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/resolver"
)

func DeployCmd(ctx context.Context, name string) *cobra.Command {
	var (
		chartPath   string
		dryRun      bool
		kubeVersion string
		setValues   []string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Resolve the deployment configuration and install or upgrade the MCS charts",
		Long: `Resolve the image reference and chart overrides for this run and apply them
to the cluster. CI jobs target the image built for the current pipeline;
manual runs target the released image from the artefact registry and pick up
the local values file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ectx, err := envcontext.FromEnv()
			if err != nil {
				return err
			}

			image, params, err := resolver.Resolve(ectx)
			if err != nil {
				return err
			}

			logrus.Infof("Deploying %s to namespace %s as release %s", image, ectx.KubeNamespace, ectx.HelmRelease)
			for _, p := range params.Params() {
				logrus.Debugf("chart override %s=%s", p.Path, p.Value)
			}
			for _, f := range params.ValuesFiles() {
				logrus.Debugf("values file %s", f)
			}

			values, err := applySetValues(params.Values(), setValues)
			if err != nil {
				return err
			}

			hcli, err := helm.NewClient(helm.HelmOptions{K8sVersion: kubeVersion})
			if err != nil {
				return fmt.Errorf("create helm client: %w", err)
			}
			defer hcli.Close()

			if dryRun {
				return renderDryRun(cmd.OutOrStdout(), hcli, ectx, chartPath, values, params.ValuesFiles())
			}

			return deploy(ctx, hcli, ectx, chartPath, values, params.ValuesFiles())
		},
	}

	cmd.Flags().StringVar(&chartPath, "chart", "charts/ska-mid-cbf-umbrella", "path to the packaged chart or unpacked chart directory")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "render the chart locally with the resolved configuration instead of deploying")
	cmd.Flags().StringVar(&kubeVersion, "kube-version", "", "kubernetes version to render against with --dry-run")
	cmd.Flags().StringArrayVar(&setValues, "set", nil, "override a resolved chart value, path=value (repeatable)")

	return cmd
}

// applySetValues layers path=value overrides from the command line on top of
// the resolved chart values. Only paths the resolver produced can be
// overridden; the resolved configuration stays the single source of structure.
func applySetValues(values map[string]interface{}, overrides []string) (map[string]interface{}, error) {
	for _, override := range overrides {
		path, value, ok := strings.Cut(override, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("invalid --set %q, expected path=value", override)
		}
		next, err := helm.SetValue(values, path, value)
		if err != nil {
			return nil, fmt.Errorf("apply --set %s: %w", path, err)
		}
		logrus.Debugf("command line override %s=%s", path, value)
		values = next
	}
	return values, nil
}

// renderDryRun renders the chart client-side with the resolved overrides and
// writes the manifests to out, never contacting the cluster.
func renderDryRun(out io.Writer, hcli helm.Client, ectx *envcontext.ExecutionContext, chartPath string, values map[string]interface{}, valuesFiles []string) error {
	manifests, err := hcli.Render(helm.InstallOptions{
		ReleaseName: ectx.HelmRelease,
		ChartPath:   chartPath,
		Values:      values,
		ValuesFiles: valuesFiles,
		Namespace:   ectx.KubeNamespace,
	})
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	fmt.Fprintln(out, string(manifests))
	return nil
}

// deploy upgrades the release when it already exists, otherwise installs it.
func deploy(ctx context.Context, hcli helm.Client, ectx *envcontext.ExecutionContext, chartPath string, values map[string]interface{}, valuesFiles []string) error {
	exists, err := hcli.ReleaseExists(ctx, ectx.KubeNamespace, ectx.HelmRelease)
	if err != nil {
		return fmt.Errorf("check release %s: %w", ectx.HelmRelease, err)
	}

	if exists {
		logrus.Infof("Release %s exists, upgrading", ectx.HelmRelease)
		_, err = hcli.Upgrade(ctx, helm.UpgradeOptions{
			ReleaseName: ectx.HelmRelease,
			ChartPath:   chartPath,
			Values:      values,
			ValuesFiles: valuesFiles,
			Namespace:   ectx.KubeNamespace,
		})
		if err != nil {
			return fmt.Errorf("upgrade release %s: %w", ectx.HelmRelease, err)
		}
	} else {
		_, err = hcli.Install(ctx, helm.InstallOptions{
			ReleaseName: ectx.HelmRelease,
			ChartPath:   chartPath,
			Values:      values,
			ValuesFiles: valuesFiles,
			Namespace:   ectx.KubeNamespace,
		})
		if err != nil {
			return fmt.Errorf("install release %s: %w", ectx.HelmRelease, err)
		}
	}

	logrus.Infof("Release %s deployed", ectx.HelmRelease)
	return nil
}
