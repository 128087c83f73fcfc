package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atframework/genconf/internal/ident"
)

// newServerIDCommand creates "server-id", which prints the identifier derived from a
// group id, an IPv4 address and a port.
func newServerIDCommand() *cobra.Command {
	var (
		groupID uint64
		ipv4    string
		port    uint64
	)

	cmd := &cobra.Command{
		Use:   "server-id",
		Short: "Print the server id of a group, IPv4 address and port",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := ident.ServerID(groupID, ipv4, port)
			if err != nil {
				return err
			}
			LoggerFromContext(cmd.Context()).Debug("server id computed", "group", groupID, "ip", ipv4, "port", port, "id", id)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d 0x%x\n", id, id)
			return err
		},
	}

	cmd.Flags().Uint64VarP(&groupID, "group", "g", 0, "Group id")
	cmd.Flags().StringVar(&ipv4, "ip", "", "Dotted IPv4 address")
	cmd.Flags().Uint64VarP(&port, "port", "p", 0, "Port")
	_ = cmd.MarkFlagRequired("ip")
	_ = cmd.MarkFlagRequired("port")

	return cmd
}
