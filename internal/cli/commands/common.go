package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sendwave-dev/sendwave/internal/cli/auth"
	"github.com/sendwave-dev/sendwave/internal/cli/client"
	"github.com/sendwave-dev/sendwave/internal/cli/serverselect"
	"github.com/sendwave-dev/sendwave/internal/cli/userconfig"
	"github.com/sendwave-dev/sendwave/internal/guard"
	"github.com/sendwave-dev/sendwave/internal/logger"
	"github.com/sendwave-dev/sendwave/internal/navigator"
	"github.com/sendwave-dev/sendwave/internal/store"
)

// session bundles what most commands need: the resolved gateway, its API
// client and the auth store backed by the keyring
type session struct {
	serverURL   string
	client      *client.Client
	store       *store.Store
	returnPaths *userconfig.ReturnPaths
	log         zerolog.Logger
}

// newSession resolves the gateway and wires the auth store for it.
// The store starts loading; call restore before reading its state.
func newSession(serverFlag string, tokens auth.TokenStore) (*session, error) {
	serverURL, err := serverselect.ResolveServer(serverFlag)
	if err != nil {
		return nil, err
	}

	log := cliLogger()
	api := client.New(serverURL)

	return &session{
		serverURL:   serverURL,
		client:      api,
		store:       store.New(api, auth.ForServer(tokens, serverURL), log),
		returnPaths: userconfig.NewReturnPaths(log),
		log:         log,
	}, nil
}

// restore resolves the stored session. A missing or rejected token leaves the
// session signed out and is not an error.
func (s *session) restore(ctx context.Context) error {
	err := s.store.Restore(ctx)
	switch {
	case err == nil, errors.Is(err, store.ErrNoSession):
		return nil
	case errors.Is(err, client.ErrUnauthorized):
		s.log.Debug().Err(err).Msg("Stored session rejected")
		return nil
	default:
		return err
	}
}

// navigator builds a headless router over the gateway's route table
func (s *session) navigator(ctx context.Context) (*navigator.Navigator, error) {
	table, paths, err := s.client.Routes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load routes: %w", err)
	}
	return navigator.New(table, guard.New(paths), s.store, s.returnPaths, s.log), nil
}

// cliLogger writes diagnostics to stderr; SENDWAVE_LOG_LEVEL raises verbosity
func cliLogger() zerolog.Logger {
	level := os.Getenv("SENDWAVE_LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	return logger.New(os.Stderr, level, "console")
}

// printNavigation writes the redirect chain and where it ended
func printNavigation(out io.Writer, res navigator.Result) {
	for i, hop := range res.Redirects {
		next := res.Location
		if i+1 < len(res.Redirects) {
			next = res.Redirects[i+1]
		}
		fmt.Fprintf(out, "  %s ↳ %s\n", hop, next)
	}

	switch {
	case res.NotFound:
		fmt.Fprintf(out, "✗ %s: no such page\n", res.Location)
	case res.Err != nil:
		fmt.Fprintf(out, "✗ %s: %v\n", res.Location, res.Err)
	case res.Outcome == guard.Pending:
		fmt.Fprintf(out, "… %s: session still loading\n", res.Location)
	default:
		fmt.Fprintf(out, "✓ %s → %s", res.Location, res.Route.Page)
		if len(res.Params) > 0 {
			fmt.Fprintf(out, " %s", formatParams(res.Params))
		}
		fmt.Fprintln(out)
	}
}

func formatParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + params[k]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// openBrowser opens the URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
