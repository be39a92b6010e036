package commands

import (
	"fmt"
	"log/slog"

	"github.com/useblocks/emfbridge/config"
	"github.com/useblocks/emfbridge/ecore"
	"github.com/useblocks/emfbridge/hooks"
	"github.com/useblocks/emfbridge/xmi"
)

// runtime bundles everything a subcommand needs after the configuration
// and metamodel are loaded.
type runtime struct {
	cfg *config.Config
	pkg *ecore.Package
	reg *hooks.Registry
	log *slog.Logger
}

// loadRuntime reads the config, applies flag overrides, validates the
// result, loads the metamodel and runs the configured pre-load hook.
func loadRuntime(configPath string, overrides *config.Config) (*runtime, error) {
	log := slog.Default()

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	pkg, err := ecore.LoadFile(cfg.ECore)
	if err != nil {
		return nil, fmt.Errorf("load metamodel: %w", err)
	}
	log.Debug("metamodel loaded", "path", cfg.ECore, "classes", len(pkg.Classes()))

	reg := hooks.DefaultRegistry
	if cfg.PreLoadHook != "" {
		hook, err := reg.PreLoadHook(cfg.PreLoadHook)
		if err != nil {
			return nil, err
		}
		if err := hook(pkg); err != nil {
			return nil, fmt.Errorf("pre-load hook %s: %w", cfg.PreLoadHook, err)
		}
	}

	return &runtime{cfg: cfg, pkg: pkg, reg: reg, log: log}, nil
}

// loadModel reads the XMI input and runs the configured post-load hook.
func (rt *runtime) loadModel() (*xmi.Model, error) {
	m, err := xmi.LoadFile(rt.cfg.XMI, rt.pkg)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	rt.log.Debug("model loaded", "path", rt.cfg.XMI, "objects", len(m.Objects()))

	if rt.cfg.PostLoadHook != "" {
		hook, err := rt.reg.PostLoadHook(rt.cfg.PostLoadHook)
		if err != nil {
			return nil, err
		}
		roots, err := hook(m.Roots)
		if err != nil {
			return nil, fmt.Errorf("post-load hook %s: %w", rt.cfg.PostLoadHook, err)
		}
		m.Roots = roots
	}
	return m, nil
}

// isReference reports whether a mapped field is an ECore reference,
// for telling link options from scalar options.
func (rt *runtime) isReference(class, field string) bool {
	c, err := rt.pkg.Class(class)
	if err != nil {
		return false
	}
	return c.Reference(field) != nil
}
