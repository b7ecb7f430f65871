package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sendwave-dev/sendwave/internal/cli/config"
	"github.com/sendwave-dev/sendwave/internal/cli/serverselect"
	"github.com/sendwave-dev/sendwave/internal/cli/userconfig"
)

// NewServerCmd creates the server command
func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server [url-or-alias]",
		Short: "Select the gateway to use for commands",
		Long: `Select the gateway to use for commands.

If no param is provided, an interactive prompt over the servers in
sendwave.json will be shown.

Examples:
  $ sendwave server                          # Interactive selection
  $ sendwave server https://app.example.com  # Select by URL
  $ sendwave server staging                  # Select by alias`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var urlOrAlias string
			if len(args) > 0 {
				urlOrAlias = args[0]
			}
			return runServer(urlOrAlias, cmd.OutOrStdout())
		},
	}

	return cmd
}

func runServer(urlOrAlias string, out io.Writer) error {
	// A bare URL works without a project config
	projectConfig, _ := config.LoadFromCurrentDir()

	var serverURL string
	if urlOrAlias != "" {
		resolved, err := serverselect.Lookup(projectConfig, urlOrAlias)
		if err != nil {
			return err
		}
		serverURL = resolved
	} else {
		server, err := serverselect.PromptServerSelection(projectConfig)
		if err != nil {
			return err
		}
		serverURL = server.URL
	}

	if err := userconfig.SetSelectedServer(serverURL); err != nil {
		return fmt.Errorf("failed to save selected server: %w", err)
	}

	fmt.Fprintf(out, "Selected server: %s\n", serverURL)
	return nil
}
