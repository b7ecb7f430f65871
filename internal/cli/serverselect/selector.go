package serverselect

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"

	"github.com/sendwave-dev/sendwave/internal/cli/config"
	"github.com/sendwave-dev/sendwave/internal/cli/userconfig"
)

// ErrNoServer is returned when no gateway can be determined
var ErrNoServer = errors.New("no server selected. Run 'sendwave server <url>' first")

// ResolveServer determines which gateway to use based on the following priority:
// 1. The --server flag (URL, or alias from sendwave.json)
// 2. The SENDWAVE_SERVER environment variable
// 3. The server selected in the user config
// 4. The only server in sendwave.json
// 5. An interactive prompt over the servers in sendwave.json
func ResolveServer(urlOrAlias string) (string, error) {
	projectConfig, _ := config.LoadFromCurrentDir()

	if urlOrAlias == "" {
		urlOrAlias = os.Getenv("SENDWAVE_SERVER")
	}
	if urlOrAlias != "" {
		return Lookup(projectConfig, urlOrAlias)
	}

	selected, err := userconfig.GetSelectedServer()
	if err != nil {
		return "", fmt.Errorf("failed to load user config: %w", err)
	}
	if selected != "" {
		return selected, nil
	}

	if projectConfig == nil || len(projectConfig.Servers) == 0 {
		return "", ErrNoServer
	}

	var server *config.Server
	if len(projectConfig.Servers) == 1 {
		server = &projectConfig.Servers[0]
	} else {
		server, err = PromptServerSelection(projectConfig)
		if err != nil {
			return "", err
		}
	}

	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		// Don't fail if we can't save, just continue
		fmt.Fprintf(os.Stderr, "Warning: failed to save selected server: %v\n", err)
	}
	return server.URL, nil
}

// Lookup resolves a URL or an alias from projectConfig (which may be nil)
func Lookup(projectConfig *config.Config, urlOrAlias string) (string, error) {
	if projectConfig != nil {
		if server, err := projectConfig.GetServer(urlOrAlias); err == nil {
			return server.URL, nil
		}
	}

	normalized, err := config.NormalizeURL(urlOrAlias)
	if err != nil {
		return "", fmt.Errorf("'%s' is neither a server URL nor a known alias", urlOrAlias)
	}
	return normalized, nil
}

// PromptServerSelection shows an interactive prompt for the user to select a server
func PromptServerSelection(projectConfig *config.Config) (*config.Server, error) {
	if projectConfig == nil || len(projectConfig.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", config.ConfigFileName)
	}

	type serverOption struct {
		Label  string
		Server *config.Server
	}

	options := make([]serverOption, len(projectConfig.Servers))
	for i := range projectConfig.Servers {
		server := &projectConfig.Servers[i]
		options[i] = serverOption{
			Label:  fmt.Sprintf("%s (%s)", server.Alias, server.URL),
			Server: server,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a server",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server selection cancelled: %w", err)
	}

	return options[index].Server, nil
}
