package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/atframework/genconf/internal/logging"
)

// newRenderCommand creates the "render" subcommand that renders one template for one
// instance without touching the install tree.
func newRenderCommand(opts *Options) *cobra.Command {
	var (
		service string
		index   int
		output  string
	)

	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Render a template for one service instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := LoggerFromContext(cmd.Context())

			console := logging.NewConsole(cmd.ErrOrStderr(), cmd.ErrOrStderr())
			eng, err := buildEngine(cmd, opts, console)
			if err != nil {
				return err
			}

			if output == "" {
				output = filepath.Join("etc", filepath.Base(args[0]))
			}
			rendered, err := eng.Preview(service, index, args[0], output)
			if err != nil {
				return err
			}

			outPath := cmd.Flag("out").Value.String()
			if outPath == "" {
				_, writeErr := cmd.OutOrStdout().Write(rendered)
				return writeErr
			}

			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return fmt.Errorf("create output directory for %q: %w", outPath, err)
			}
			if err := os.WriteFile(outPath, rendered, 0o644); err != nil {
				return fmt.Errorf("write rendered template to %q: %w", outPath, err)
			}

			logger.Info("rendered template", "template", args[0], "service", service, "index", index, "path", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Service whose instance variables are used")
	cmd.Flags().IntVar(&index, "index", 0, "Instance index, offset included")
	cmd.Flags().StringVar(&output, "output", "", "Output path under the install prefix used for project_install_prefix (default: etc/<template name>)")
	cmd.Flags().StringP("out", "o", "", "Write the result to this file instead of stdout")
	_ = cmd.MarkFlagRequired("service")

	return cmd
}
