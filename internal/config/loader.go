package config

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Names of the catalog entries inside a config directory.
const (
	balanceFile   = "balance.yaml"
	archetypesDir = "archetypes"
	modulesDir    = "modules"
	rulesDir      = "rules"
)

// LoadCatalog loads the bomb generator catalog.
// Search order: customDir -> ~/.defuse/configs -> ./configs -> embedded default
func LoadCatalog(customDir string) (*Catalog, error) {
	// Try custom directory first
	if customDir != "" {
		cat, err := ReadCatalog(os.DirFS(customDir))
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog %s: %w", customDir, err)
		}
		return cat, nil
	}

	// Try user config directory, then local configs directory
	for _, dir := range []string{userConfigPath(""), "configs"} {
		if dir == "" || !hasBalance(dir) {
			continue
		}
		if cat, err := ReadCatalog(os.DirFS(dir)); err == nil {
			return cat, nil
		}
	}

	return DefaultCatalog()
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	sub, err := fs.Sub(defaultFS, "defaults")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded defaults: %w", err)
	}
	return ReadCatalog(sub)
}

// ReadCatalog reads and validates a catalog rooted at fsys.
func ReadCatalog(fsys fs.FS) (*Catalog, error) {
	cat := &Catalog{Modules: make(map[string]ModuleDef)}

	data, err := readBalance(fsys)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cat.Balance); err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}

	err = eachFile(fsys, archetypesDir, func(name string, data []byte) error {
		var a Archetype
		if err := yaml.Unmarshal(data, &a); err != nil {
			return fmt.Errorf("failed to parse archetype %s: %w", name, err)
		}
		cat.Archetypes = append(cat.Archetypes, a)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachFile(fsys, modulesDir, func(name string, data []byte) error {
		var m ModuleDef
		if err := yaml.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("failed to parse module %s: %w", name, err)
		}
		cat.Modules[m.ID] = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachFile(fsys, rulesDir, func(name string, data []byte) error {
		rules, err := parseRules(data)
		if err != nil {
			return fmt.Errorf("failed to parse rules %s: %w", name, err)
		}
		cat.Rules = append(cat.Rules, rules...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	cat.sortEntries()
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// parseRules accepts a single rule document or a list of rules.
func parseRules(data []byte) ([]RuleDef, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var rules []RuleDef
		if err := root.Decode(&rules); err != nil {
			return nil, err
		}
		return rules, nil
	}
	var rule RuleDef
	if err := root.Decode(&rule); err != nil {
		return nil, err
	}
	return []RuleDef{rule}, nil
}

func readBalance(fsys fs.FS) ([]byte, error) {
	for _, name := range []string{balanceFile, "game.balance.json"} {
		if data, err := fs.ReadFile(fsys, name); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("failed to read %s: %w", balanceFile, fs.ErrNotExist)
}

// eachFile calls fn for every YAML or JSON file of dir in name order.
func eachFile(fsys fs.FS, dir string, fn func(name string, data []byte) error) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isConfigFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if err := fn(name, data); err != nil {
			return err
		}
	}
	return nil
}

func isConfigFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func hasBalance(dir string) bool {
	_, err := readBalance(os.DirFS(dir))
	return err == nil
}

// LoadRogue loads the roguelite tuning table.
// Search order: customPath -> ~/.defuse/configs/rogue.yaml -> ./configs/rogue.yaml -> embedded default
func LoadRogue(customPath string) (RogueConfig, error) {
	cfg := DefaultRogueConfig()
	if err := loadFile(customPath, "rogue.yaml", defaultRogueYAML, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadServer loads the server settings and applies environment overrides.
// Search order: customPath -> ~/.defuse/configs/server.yaml -> ./configs/server.yaml -> embedded default
func LoadServer(customPath string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if err := loadFile(customPath, "server.yaml", defaultServerYAML, &cfg); err != nil {
		return cfg, err
	}
	ApplyEnv(&cfg, os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides secrets from the environment.
func ApplyEnv(cfg *ServerConfig, getenv func(string) string) {
	if v := getenv("DEFUSE_ADMIN_TOKEN"); v != "" {
		cfg.AdminToken = v
	}
	if v := getenv("DEFUSE_VOICE_TOKEN"); v != "" {
		cfg.VoiceSourceToken = v
	}
	if v := getenv("DEFUSE_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
}

// loadFile decodes the first readable candidate into out. Fields missing from
// the file keep the values already in out.
func loadFile(customPath, filename string, embedded []byte, out any) error {
	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return fmt.Errorf("failed to read config %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse config %s: %w", customPath, err)
		}
		return nil
	}

	// Try user config directory
	if userCfgPath := userConfigPath(filename); userCfgPath != "" {
		if data, err := os.ReadFile(userCfgPath); err == nil {
			if err := yaml.Unmarshal(data, out); err == nil {
				return nil
			}
		}
	}

	// Try local configs directory
	if data, err := os.ReadFile(filepath.Join("configs", filename)); err == nil {
		if err := yaml.Unmarshal(data, out); err == nil {
			return nil
		}
	}

	// Use embedded default YAML
	if err := yaml.Unmarshal(embedded, out); err != nil {
		return fmt.Errorf("failed to parse embedded %s: %w", filename, err)
	}
	return nil
}

// userConfigPath returns the path to a user config file.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".defuse", "configs", filename)
}
