package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"inspectline/internal/domain"
)

// Config models inspectline.yml.
type Config struct {
	Site struct {
		Name     string `yaml:"name"`
		Timezone string `yaml:"timezone"`
	} `yaml:"site"`
	Units struct {
		Categories []UnitCategory `yaml:"categories"`
	} `yaml:"units"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type UnitCategory struct {
	Name  string      `yaml:"name"`
	Units []UnitEntry `yaml:"units"`
}

type UnitEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	Enabled        *bool    `yaml:"enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run inspectline serve once to write the default", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Site.Timezone) == "" {
		return fmt.Errorf("config.site.timezone is required")
	}
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		return fmt.Errorf("config.site.timezone %q: %w", c.Site.Timezone, err)
	}
	if len(c.Units.Categories) == 0 {
		return fmt.Errorf("config.units.categories is required")
	}
	seen := map[string]string{}
	for _, cat := range c.Units.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("config.units.categories contains a category without name")
		}
		for _, u := range cat.Units {
			if strings.TrimSpace(u.ID) == "" {
				return fmt.Errorf("unit %q in category %s has empty id", u.Name, cat.Name)
			}
			if prev, ok := seen[u.ID]; ok {
				return fmt.Errorf("unit id %s used in both %s and %s", u.ID, prev, cat.Name)
			}
			seen[u.ID] = cat.Name
		}
	}
	if bp := c.Server.BasePath; bp != "" && !strings.HasPrefix(bp, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("webhook %s has negative timeout", hook.URL)
		}
	}
	return nil
}

// Location returns the site time zone used for day comparisons.
func (c *Config) Location() *time.Location {
	if c == nil {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// UnitList flattens the catalog in configuration order.
func (c *Config) UnitList() []domain.Unit {
	var out []domain.Unit
	for _, cat := range c.Units.Categories {
		for _, u := range cat.Units {
			name := u.Name
			if name == "" {
				name = u.ID
			}
			out = append(out, domain.Unit{ID: u.ID, Name: name, Category: cat.Name})
		}
	}
	return out
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "inspectline.yml")
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOrDefault loads the workspace config, falling back to Default.
func LoadOrDefault(workspace string) (*Config, error) {
	cfg, err := LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return Default(), nil
	}
	return cfg, nil
}

// WriteDefault writes the default config unless one already exists.
func WriteDefault(workspace string) (string, error) {
	path := Path(workspace)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, []byte(defaultTemplate), 0o644)
}

// Default returns the built-in site configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `site:
  name: כלנית ריזורט
  timezone: Asia/Jerusalem

server:
  addr: 127.0.0.1:8080
  base_path: /api

units:
  categories:
    - name: מתחמים מושב כלנית
      units:
        - {id: "1", name: צימרים כלנית ריזורט}
        - {id: "2", name: וילה ויקטוריה}
        - {id: "3", name: וילה כלנית}
        - {id: "4", name: וילה ממלכת אהרון}
        - {id: "5", name: וילה בוטיק אהרון}
        - {id: "6", name: וילה אירופה}
    - name: מושב מגדל
      units:
        - {id: "7", name: וילאה 1}
        - {id: "8", name: וילאה 2}
        - {id: "9", name: לה כינרה}
    - name: גבעת יואב
      units:
        - {id: "10", name: הודולה 1}
        - {id: "11", name: הודולה 2}
        - {id: "12", name: הודולה 3}
        - {id: "13", name: הודולה 4}
        - {id: "14", name: הודולה 5}
    - name: צפת
      units:
        - {id: "15", name: בית קונפיטה}

webhooks: []
`
