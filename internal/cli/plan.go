package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/atframework/genconf/internal/ident"
	"github.com/atframework/genconf/internal/logging"
)

// newPlanCommand creates "plan", which lists the instances a generation pass would
// produce without rendering or writing anything.
func newPlanCommand(opts *Options) *cobra.Command {
	var onlyServices string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "List the instances a generation pass would produce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			console := logging.NewConsole(cmd.ErrOrStderr(), cmd.ErrOrStderr())
			eng, err := buildEngine(cmd, opts, console)
			if err != nil {
				return err
			}
			planned, err := eng.Plan()
			if err != nil {
				return err
			}

			only := parseNameFilter(onlyServices)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tKIND\tTYPE\tBUS ID\tINSTALL PREFIX\tLISTEN\tFOR")
			for _, p := range planned {
				if !only.Allows(p.Service) {
					continue
				}
				forName := "-"
				if p.For != nil {
					forName = p.For.FullName()
				}
				listen := "-"
				if len(p.Listen) > 0 {
					listen = strings.Join(p.Listen, ",")
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
					p.FullName(), p.Kind, p.TypeID, ident.FormatProcID(p.ProcID), p.InstallPrefix, listen, forName)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&onlyServices, "only-services", "", "List only selected services (comma-separated names)")

	return cmd
}
