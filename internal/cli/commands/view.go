package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sendwave-dev/sendwave/internal/cli/auth"
	"github.com/sendwave-dev/sendwave/internal/guard"
)

// NewViewCmd creates the view command
func NewViewCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "view [admin|user]",
		Short: "Switch between the admin and user views (admins only)",
		Long: `Switch between the admin and user views (admins only).

If no view is provided, an interactive prompt will be shown.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(guard.ViewAdmin), string(guard.ViewUser)},
		RunE: func(cmd *cobra.Command, args []string) error {
			var view string
			if len(args) > 0 {
				view = args[0]
			}
			return runView(cmd.Context(), server, view, auth.Default, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server URL or alias (defaults to the selected server)")

	return cmd
}

func runView(ctx context.Context, server, view string, tokens auth.TokenStore, out io.Writer) error {
	sess, err := newSession(server, tokens)
	if err != nil {
		return err
	}

	if err := sess.restore(ctx); err != nil {
		return err
	}
	if !sess.store.State().IsAuthenticated {
		return auth.ErrNotAuthenticated
	}

	if view == "" {
		view, err = promptView(sess.store.State().CurrentView)
		if err != nil {
			return err
		}
	}

	if err := sess.store.SetCurrentView(ctx, guard.View(view)); err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Switched to the %s view\n", sess.store.State().CurrentView)
	return nil
}

// promptView asks for a view, starting on the current one
func promptView(current guard.View) (string, error) {
	items := []string{string(guard.ViewAdmin), string(guard.ViewUser)}
	cursor := 0
	if current == guard.ViewUser {
		cursor = 1
	}

	prompt := promptui.Select{
		Label:     "Select a view",
		Items:     items,
		CursorPos: cursor,
	}

	_, selected, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("view selection cancelled: %w", err)
	}
	return selected, nil
}
