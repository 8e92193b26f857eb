package dynplugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/Nachtalb/WhatSongIsThatBot/bot/config"
	"github.com/Nachtalb/WhatSongIsThatBot/bot/resolve"
)

const defaultScriptDir = "./plugins/scripts"

// Script plugins extend the provider rule table without a rebuild.
// Each plugin is a directory of Go scripts declaring
//
//	func Providers() []map[string]any
//
// where each map carries "type", "label", "priority" and optionally
// "trim_prefix" / "add_prefix".
func loadScriptPlugin(name string, cfg *config.Config) ([]resolve.Rule, error) {
	if name == "" {
		return nil, fmt.Errorf("plugin name required")
	}
	scriptDir := strings.TrimSpace(cfg.GetString("PluginScriptDir"))
	if scriptDir == "" {
		scriptDir = defaultScriptDir
	}
	plugPath := filepath.Join(scriptDir, name)
	files, err := listScriptFiles(plugPath)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("script plugin %s not found", name)
	}

	interpreter := interp.New(interp.Options{GoPath: os.Getenv("GOPATH")})
	if err := interpreter.Use(stdlib.Symbols); err != nil {
		return nil, err
	}

	for _, file := range files {
		if _, err := interpreter.EvalPath(file); err != nil {
			return nil, fmt.Errorf("script %s: %w", file, err)
		}
	}

	value, err := interpreter.Eval("main.Providers")
	if err != nil {
		return nil, fmt.Errorf("plugin %s: Providers not declared: %w", name, err)
	}
	providers, ok := value.Interface().(func() []map[string]any)
	if !ok {
		return nil, fmt.Errorf("plugin %s: Providers has the wrong signature", name)
	}

	return parseRules(providers())
}

func listScriptFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

func parseRules(raw []map[string]any) ([]resolve.Rule, error) {
	rules := make([]resolve.Rule, 0, len(raw))
	for i, entry := range raw {
		rule := resolve.Rule{
			Type:       asString(entry["type"]),
			Label:      asString(entry["label"]),
			TrimPrefix: asString(entry["trim_prefix"]),
			AddPrefix:  asString(entry["add_prefix"]),
		}
		priority, ok := asInt(entry["priority"])
		if !ok || rule.Type == "" || rule.Label == "" {
			return nil, fmt.Errorf("provider rule %d is incomplete: %v", i, entry)
		}
		rule.Priority = priority
		rules = append(rules, rule)
	}
	return rules, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(t)
		return n, err == nil
	default:
		return 0, false
	}
}
