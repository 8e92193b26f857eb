package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the parsed configuration file. Top-level keys are
// accessed with the typed getters; the Plugins subtree maps plugin
// names to their own key-value sections.
type Config struct {
	values  map[string]any
	plugins map[string]map[string]any
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse parses configuration bytes.
func Parse(raw []byte) (*Config, error) {
	values := make(map[string]any)
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	plugins := make(map[string]map[string]any)
	if sub, ok := values["Plugins"].(map[string]any); ok {
		for name, v := range sub {
			section, ok := v.(map[string]any)
			if !ok {
				section = map[string]any{}
			}
			plugins[strings.ToLower(name)] = section
		}
	}

	return &Config{values: values, plugins: plugins}, nil
}

func (c *Config) get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetString returns the string value for key, or "" when absent.
func (c *Config) GetString(key string) string {
	v, ok := c.get(key)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

// GetInt returns the integer value for key, or 0 when absent or not
// a number.
func (c *Config) GetInt(key string) int {
	v, ok := c.get(key)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// GetFloat64 returns the float value for key, or 0 when absent.
func (c *Config) GetFloat64(key string) float64 {
	v, ok := c.get(key)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// GetBool returns the boolean value for key, or false when absent.
func (c *Config) GetBool(key string) bool {
	v, ok := c.get(key)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false
		}
		return b
	default:
		return false
	}
}

// GetSection returns a nested map section, e.g. the Webhook block.
func (c *Config) GetSection(key string) (map[string]any, bool) {
	sub, ok := c.values[key].(map[string]any)
	return sub, ok
}

// PluginNames lists configured plugin sections in stable order.
func (c *Config) PluginNames() []string {
	names := make([]string, 0, len(c.plugins))
	for name := range c.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPluginConfig returns the raw section for a plugin.
func (c *Config) GetPluginConfig(name string) (map[string]any, bool) {
	section, ok := c.plugins[strings.ToLower(name)]
	return section, ok
}

// GetPluginString returns a plugin section value as a string.
func (c *Config) GetPluginString(name, key string) string {
	section, ok := c.plugins[strings.ToLower(name)]
	if !ok {
		return ""
	}
	v, ok := section[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// GetPluginBool returns a plugin section value as a bool.
func (c *Config) GetPluginBool(name, key string) bool {
	section, ok := c.plugins[strings.ToLower(name)]
	if !ok {
		return false
	}
	switch t := section[key].(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false
		}
		return b
	default:
		return false
	}
}
