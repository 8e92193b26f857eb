package dynplugin

import (
	"fmt"

	"github.com/Nachtalb/WhatSongIsThatBot/bot/config"
	logpkg "github.com/Nachtalb/WhatSongIsThatBot/bot/logger"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/resolve"
)

// Manager loads the configured script plugins and registers their
// provider rules with the resolver. A plugin that fails to load is
// skipped; the rest still register.
type Manager struct {
	logger *logpkg.Logger
}

func NewManager(logger *logpkg.Logger) *Manager {
	return &Manager{logger: logger}
}

func (m *Manager) Load(cfg *config.Config, resolver *resolve.Resolver) error {
	if cfg == nil {
		return fmt.Errorf("config required")
	}
	for _, name := range cfg.PluginNames() {
		if name == "" || !pluginEnabled(cfg, name) {
			continue
		}
		rules, err := loadScriptPlugin(name, cfg)
		if err != nil {
			if m.logger != nil {
				m.logger.Warn("script plugin load failed", "plugin", name, "error", err)
			}
			continue
		}
		if len(rules) == 0 {
			if m.logger != nil {
				m.logger.Warn("script plugin returned no provider rules", "plugin", name)
			}
			continue
		}
		resolver.AddRules(rules...)
		if m.logger != nil {
			m.logger.Info("script provider rules registered", "plugin", name, "rules", len(rules))
		}
	}
	return nil
}

func pluginEnabled(cfg *config.Config, name string) bool {
	pluginCfg, ok := cfg.GetPluginConfig(name)
	if !ok {
		return true
	}
	if _, hasKey := pluginCfg["enabled"]; hasKey {
		return cfg.GetPluginBool(name, "enabled")
	}
	return true
}
