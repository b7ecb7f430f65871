package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sendwave-dev/sendwave/internal/cli/auth"
	"github.com/sendwave-dev/sendwave/internal/guard"
)

type loginOptions struct {
	server   string
	email    string
	password string
}

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a Sendwave gateway",
		Long: `Sign in to a Sendwave gateway.

If 'sendwave open' was sent to sign in first, the page it was trying to
reach is resumed after a successful login.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), opts, auth.Default, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", "", "Server URL or alias (defaults to the selected server)")
	cmd.Flags().StringVar(&opts.email, "email", "", "Email address (or set SENDWAVE_EMAIL)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (or set SENDWAVE_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, opts loginOptions, tokens auth.TokenStore, out io.Writer) error {
	// Check for environment variables (useful for CI/CD)
	if opts.email == "" {
		opts.email = os.Getenv("SENDWAVE_EMAIL")
	}
	if opts.password == "" {
		opts.password = os.Getenv("SENDWAVE_PASSWORD")
	}

	if opts.email == "" {
		return fmt.Errorf("email is required (use --email flag or SENDWAVE_EMAIL env var)")
	}

	sess, err := newSession(opts.server, tokens)
	if err != nil {
		return err
	}

	// Prompt for password if not provided via flag or env var
	if opts.password == "" {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or SENDWAVE_PASSWORD env var)")
		}
		fmt.Fprint(out, "Password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		opts.password = string(bytePassword)
		fmt.Fprintln(out) // New line after password input
	}

	fmt.Fprintf(out, "Logging in to %s...\n", sess.serverURL)

	result, err := sess.store.Login(ctx, opts.email, opts.password)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "✓ Login successful!")
	fmt.Fprintf(out, "  User: %s (%s)\n", result.User.Name, result.User.Email)
	fmt.Fprintf(out, "  Role: %s\n", result.User.Role)

	nav, err := sess.navigator(ctx)
	if err != nil {
		// Still signed in; the return path is spent either way
		sess.log.Warn().Err(err).Msg("Could not resolve next page")
		fmt.Fprintf(out, "  Next: %s\n", guard.ResumeAfterLogin(sess.returnPaths, guard.DefaultPaths(), &result.User))
		return nil
	}

	fmt.Fprintln(out, "  Next:")
	printNavigation(out, nav.CompleteLogin())
	return nil
}
