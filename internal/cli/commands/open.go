package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sendwave-dev/sendwave/internal/cli/auth"
)

type openOptions struct {
	server  string
	from    string
	browser bool
}

// NewOpenCmd creates the open command
func NewOpenCmd() *cobra.Command {
	var opts openOptions

	cmd := &cobra.Command{
		Use:   "open <path>",
		Short: "Resolve a page the way the web app would",
		Long: `Resolve a page the way the web app would.

The stored session is checked against the page's access policy and any
redirects are followed. When the page needs a signed-in user, it is
remembered for the next 'sendwave login'.

Examples:
  $ sendwave open /campaigns/42
  $ sendwave open /login --from /campaigns
  $ sendwave open /dashboard --browser`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(cmd.Context(), args[0], opts, auth.Default, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", "", "Server URL or alias (defaults to the selected server)")
	cmd.Flags().StringVar(&opts.from, "from", "", "Page the navigation comes from")
	cmd.Flags().BoolVar(&opts.browser, "browser", false, "Open the resolved page in the default browser")

	return cmd
}

func runOpen(ctx context.Context, path string, opts openOptions, tokens auth.TokenStore, out io.Writer) error {
	sess, err := newSession(opts.server, tokens)
	if err != nil {
		return err
	}

	if err := sess.restore(ctx); err != nil {
		return err
	}

	nav, err := sess.navigator(ctx)
	if err != nil {
		return err
	}

	res := nav.Navigate(path, opts.from)
	printNavigation(out, res)

	if res.NotFound {
		return fmt.Errorf("no page at %s", res.Location)
	}
	if res.Err != nil {
		return res.Err
	}

	if pending, ok := sess.returnPaths.Peek(); ok && !sess.store.State().IsAuthenticated {
		fmt.Fprintf(out, "\nRun 'sendwave login' to continue to %s\n", pending)
	}

	if opts.browser && res.Rendered() {
		pageURL := sess.serverURL + res.Location
		if err := openBrowser(pageURL); err != nil {
			return fmt.Errorf("failed to open browser: %w\nPlease visit: %s", err, pageURL)
		}
	}

	return nil
}
