package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/envcontext"
	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/helm"
)

func UninstallCmd(ctx context.Context, name string) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the MCS release from the cluster",
		Long: `Tear down the helm release this environment deploys to, leaving the
namespace in place. Removing a release that does not exist is not an error, so
pipelines can uninstall unconditionally before a fresh deploy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ectx, err := envcontext.FromEnv()
			if err != nil {
				return err
			}

			hcli, err := helm.NewClient(helm.HelmOptions{})
			if err != nil {
				return fmt.Errorf("create helm client: %w", err)
			}
			defer hcli.Close()

			return uninstall(ctx, hcli, ectx, wait)
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", true, "wait until the release resources are deleted")

	return cmd
}

func uninstall(ctx context.Context, hcli helm.Client, ectx *envcontext.ExecutionContext, wait bool) error {
	logrus.Infof("Uninstalling release %s from namespace %s", ectx.HelmRelease, ectx.KubeNamespace)

	err := hcli.Uninstall(ctx, helm.UninstallOptions{
		ReleaseName:    ectx.HelmRelease,
		Namespace:      ectx.KubeNamespace,
		Wait:           wait,
		IgnoreNotFound: true,
	})
	if err != nil {
		return fmt.Errorf("uninstall release %s: %w", ectx.HelmRelease, err)
	}

	logrus.Infof("Release %s removed", ectx.HelmRelease)
	return nil
}
