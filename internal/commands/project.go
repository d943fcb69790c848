package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/recon/internal/config"
	"github.com/cleared-dev/recon/internal/logging"
	"github.com/cleared-dev/recon/internal/store"
)

// project is the resolved configuration of one CLI invocation.
type project struct {
	cfg *config.Config
	// root is the directory relative paths in cfg resolve against. Empty when
	// no config file was found; store and audit are then opt-in via flags.
	root   string
	logger zerolog.Logger
}

// loadProject reads the config file if it exists, falling back to defaults
// plus RECON_* environment overrides.
func loadProject(g *globalFlags) (*project, error) {
	p := &project{}

	cfg, err := config.Load(g.configPath)
	switch {
	case err == nil:
		abs, err := filepath.Abs(filepath.Dir(g.configPath))
		if err != nil {
			return nil, fmt.Errorf("resolving config dir: %w", err)
		}
		p.root = abs
	case errors.Is(err, os.ErrNotExist):
		cfg = config.Default()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
		if err := cfg.Matching.Validate(); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	p.cfg = cfg

	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	p.logger = logging.New(cfg.Logging)
	return p, nil
}

// resolve makes path absolute against the project root.
func (p *project) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || p.root == "" {
		return path
	}
	return filepath.Join(p.root, path)
}

// storePath picks the run store: an explicit flag wins, then the project config.
func (p *project) storePath(flag string) string {
	if flag != "" {
		return flag
	}
	if p.root == "" {
		return ""
	}
	return p.resolve(p.cfg.Store.Path)
}

// auditPath picks the audit log the same way as storePath.
func (p *project) auditPath(flag string) string {
	if flag != "" {
		return flag
	}
	if p.root == "" {
		return ""
	}
	return p.resolve(p.cfg.Audit.Path)
}

func (p *project) openStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, errors.New("no run store configured: pass --store or run inside a recon project")
	}
	return store.Open(path, p.logger)
}
