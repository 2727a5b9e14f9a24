// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers
// package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/openshift-eng/rhcos-ami-import/cmd/rhcos-ami-import/handlers"
)

// Root returns the root command for the rhcos-ami-import CLI.
//
// Positional arguments are channel prefixes ("4.7", "4.8"); every
// release in the stable channel of each prefix is published as a
// public AMI.
//
// Flags:
//
//	--bucket: S3 staging bucket (default from configuration)
//	--config: optional YAML configuration file
//
// Environment variables:
//
//	IMPORT_RHCOS_LOGLEVEL: log verbosity (DEBUG, INFO, WARN, ERROR)
//	AWS credentials and region come from the standard AWS chain.
func Root() *cobra.Command {
	var (
		bucket     string
		configPath string
	)

	cmd := &cobra.Command{
		Use:          "rhcos-ami-import <channel-prefix>...",
		Short:        "Publish RHCOS disk images as public AWS AMIs",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Publish(cmd.Context(), args, bucket, configPath)
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 staging bucket (overrides configuration)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML configuration file")

	return cmd
}
