package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sendwave-dev/sendwave/internal/cli/auth"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context(), server, auth.Default, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server URL or alias (defaults to the selected server)")

	return cmd
}

func runLogout(ctx context.Context, server string, tokens auth.TokenStore, out io.Writer) error {
	sess, err := newSession(server, tokens)
	if err != nil {
		return err
	}

	if err := sess.restore(ctx); err != nil {
		// Unreachable gateway; the local token is still removed below
		sess.log.Warn().Err(err).Msg("Could not reach gateway")
	}

	if err := sess.store.Logout(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Logged out of %s\n", sess.serverURL)
	return nil
}
