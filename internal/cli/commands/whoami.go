package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sendwave-dev/sendwave/internal/cli/auth"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd.Context(), server, auth.Default, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server URL or alias (defaults to the selected server)")

	return cmd
}

func runWhoami(ctx context.Context, server string, tokens auth.TokenStore, out io.Writer) error {
	sess, err := newSession(server, tokens)
	if err != nil {
		return err
	}

	if err := sess.restore(ctx); err != nil {
		return err
	}

	state := sess.store.State()
	if !state.IsAuthenticated {
		fmt.Fprintf(out, "Not logged in to %s\n", sess.serverURL)
		return nil
	}

	fmt.Fprintf(out, "%s (%s)\n", state.User.Name, state.User.Email)
	fmt.Fprintf(out, "  Server: %s\n", sess.serverURL)
	fmt.Fprintf(out, "  Role:   %s\n", state.User.Role)
	fmt.Fprintf(out, "  View:   %s\n", state.CurrentView)
	return nil
}
