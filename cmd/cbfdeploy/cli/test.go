package cli

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/envcontext"
	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/errtypes"
	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/kubeutils"
	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/testrunner"
)

func TestCmd(ctx context.Context, name string) *cobra.Command {
	var (
		selector   string
		artifact   string
		remoteDir  string
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "test [flags] [-- command...]",
		Short: "Stage the test configuration into the test-runner pod and run the test suite",
		Long: `Stage the device configuration into the test-runner pod and execute the test
command inside it, capturing combined output to a local log file.

Exits 0 when the tests pass, with the remote command's own exit code when the
tests ran and failed, and with exit code 2 for configuration, pod-lookup,
staging or execution failures. A test suite that itself exits 2 is therefore
indistinguishable from an infrastructure failure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ectx, err := envcontext.FromEnv()
			if err != nil {
				return err
			}

			command := []string{"python3", "-m", "pytest", "./tests"}
			if len(args) > 0 {
				command = args
			}

			runCtx, cancel := context.WithTimeout(ctx, ectx.TestTimeout)
			defer cancel()

			kcli, err := kubeutils.KubeClient()
			if err != nil {
				return &errtypes.ExecutionError{Err: err}
			}

			target, err := kubeutils.FindPod(runCtx, kcli, ectx.KubeNamespace, selector)
			if err != nil {
				return &errtypes.ExecutionError{Err: err}
			}

			cfg, err := kubeutils.RESTConfig()
			if err != nil {
				return &errtypes.ExecutionError{Err: err}
			}
			clientset, err := kubeutils.GetClientset()
			if err != nil {
				return &errtypes.ExecutionError{Err: err}
			}

			runner := testrunner.New(testrunner.NewSPDYExecutor(cfg, clientset))

			logrus.Infof("Running %v in pod %s (namespace %s)", command, target.Name, target.Namespace)
			result, err := runner.Run(runCtx, target, testrunner.RunOptions{
				Command:    command,
				Artifact:   artifact,
				RemoteDir:  remoteDir,
				OutputPath: outputPath,
			})
			if err != nil {
				return err
			}

			logrus.Infof("Test output captured to %s", result.OutputLogPath)
			if result.ExitCode != 0 {
				return &errtypes.TestFailure{ExitCode: result.ExitCode}
			}

			logrus.Infof("Tests passed in %s", result.FinishedAt.Sub(result.StartedAt))
			return nil
		},
	}

	cmd.Flags().StringVar(&selector, "selector", "app=test-runner", "label selector identifying the test-runner pod")
	cmd.Flags().StringVar(&artifact, "artifact", "tests/data/devices.json", "local configuration file staged into the pod")
	cmd.Flags().StringVar(&remoteDir, "remote-dir", "/app/tests/data", "directory inside the pod the artifact is staged to")
	cmd.Flags().StringVar(&outputPath, "output", "build/test-output.log", "local file capturing the remote command's combined output")

	return cmd
}
