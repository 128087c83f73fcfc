package cli

import (
	"github.com/spf13/cobra"
)

// newDoctorCommand creates the "doctor" subcommand that checks a workspace before generation.
func newDoctorCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the configuration, templates and rules of a workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			ws, err := loadWorkspace(cmd, opts)
			if err != nil {
				return err
			}

			if err := runDoctorChecks(logger, ws); err != nil {
				return err
			}

			logger.Info("doctor checks completed successfully", "config", ws.configPath)
			return nil
		},
	}

	return cmd
}
