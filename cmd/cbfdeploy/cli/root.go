// Package cli implements the cbfdeploy command line: resolving the
// deployment configuration of a CI or local run, driving helm against the
// cluster, and executing the test suite inside the deployed test-runner pod.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/ska-telescope/ska-mid-cbf-deploy/pkg/errtypes"
)

// InfraExitCode is the process exit code for configuration, pod-lookup,
// staging and execution failures. It is distinct from a plain test failure,
// which exits with the remote command's own code, so CI can branch on
// infrastructure issues versus genuine test regressions.
const InfraExitCode = 2

func RootCmd(ctx context.Context, name string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           name,
		Short:         "Deploy and test the Mid CBF MCS on a kubernetes cluster",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Help()
			os.Exit(1)
			return nil
		},
	}

	cmd.AddCommand(DeployCmd(ctx, name))
	cmd.AddCommand(UninstallCmd(ctx, name))
	cmd.AddCommand(TestCmd(ctx, name))
	cmd.AddCommand(VersionCmd(ctx, name))

	return cmd
}

// ExitCodeFor maps a command error to the process exit code. A completed test
// run that failed propagates the remote command's code unchanged; everything
// in the infrastructure taxonomy maps to InfraExitCode.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := errtypes.TestExitCode(err); ok {
		return code
	}
	if errtypes.IsInfrastructure(err) {
		return InfraExitCode
	}
	return 1
}
