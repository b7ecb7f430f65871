package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sendwave-dev/sendwave/internal/cli/client"
	"github.com/sendwave-dev/sendwave/internal/cli/serverselect"
)

// NewRoutesCmd creates the routes command
func NewRoutesCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the gateway's pages and their access policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutes(cmd.Context(), server, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server URL or alias (defaults to the selected server)")

	return cmd
}

func runRoutes(ctx context.Context, server string, out io.Writer) error {
	serverURL, err := serverselect.ResolveServer(server)
	if err != nil {
		return err
	}

	table, paths, err := client.New(serverURL).Routes(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Routes on %s:\n\n", serverURL)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPATH\tPAGE\tPOLICY")
	fmt.Fprintln(w, "────\t────\t────\t──────")
	for _, route := range table.Routes() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", route.Name, route.Path, route.Page, route.Policy)
	}
	w.Flush()

	fmt.Fprintf(out, "\nSign in: %s   Landing: %s (admin), %s (user)\n", paths.SignIn, paths.AdminLanding, paths.UserLanding)
	return nil
}
