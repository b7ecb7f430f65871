package userconfig

import (
	"time"

	"github.com/rs/zerolog"
)

// ReturnPaths keeps the CLI's "resume here after login" destination in the user
// config file. Entries expire after ReturnPathTTL.
type ReturnPaths struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewReturnPaths creates a file-backed return path store
func NewReturnPaths(logger zerolog.Logger) *ReturnPaths {
	return &ReturnPaths{logger: logger, now: time.Now}
}

func (r *ReturnPaths) SaveReturnPath(path string) {
	cfg, err := Load()
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to load user config")
		return
	}

	// An unexpired identical entry keeps its original expiry
	if cfg.ReturnPath == path && r.now().Before(cfg.ReturnPathExpires) {
		return
	}

	cfg.ReturnPath = path
	cfg.ReturnPathExpires = r.now().Add(ReturnPathTTL).UTC()
	if err := Save(cfg); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to remember return path")
	}
}

func (r *ReturnPaths) ConsumeReturnPath() (string, bool) {
	cfg, err := Load()
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to load user config")
		return "", false
	}
	if cfg.ReturnPath == "" {
		return "", false
	}

	path := cfg.ReturnPath
	expired := !r.now().Before(cfg.ReturnPathExpires)

	cfg.ReturnPath = ""
	cfg.ReturnPathExpires = time.Time{}
	if err := Save(cfg); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to clear return path")
	}

	if expired {
		return "", false
	}
	return path, true
}

// Peek returns the remembered destination without clearing it
func (r *ReturnPaths) Peek() (string, bool) {
	cfg, err := Load()
	if err != nil || cfg.ReturnPath == "" || !r.now().Before(cfg.ReturnPathExpires) {
		return "", false
	}
	return cfg.ReturnPath, true
}
