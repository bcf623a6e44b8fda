// Package config loads the optional per-project policy file that tunes
// which packages the reconciler may touch.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	readConfigFileErrFmt  = "read config file %s: %w"
	parseConfigFileErrFmt = "parse config file %s: %w"
)

// BuiltinEssential are packages protected from removal even without a
// config file. They are foundational enough that transient non-detection,
// like usage living only in macro expansions, must not drop them.
var BuiltinEssential = []string{
	"serde", "tokio", "anyhow", "thiserror", "async-trait", "futures",
}

// Config is the decoded policy file. The zero value is a usable default:
// nothing excluded, builtin essentials only, test directories skipped.
type Config struct {
	Exclude   []string `yaml:"exclude" toml:"exclude"`
	Essential []string `yaml:"essential" toml:"essential"`
	DevOnly   []string `yaml:"dev_only" toml:"dev_only"`
	SkipTests *bool    `yaml:"skip_tests" toml:"skip_tests"`

	Path string `yaml:"-" toml:"-"`
}

// Load resolves and decodes the policy file for projectRoot. explicitPath
// overrides discovery; otherwise the first of .autodd.yml, .autodd.yaml,
// .autodd.toml found at the project root wins. No file at all is not an
// error: the zero config is returned.
func Load(projectRoot, explicitPath string) (Config, error) {
	configPath, found, err := resolveConfigPath(projectRoot, strings.TrimSpace(explicitPath))
	if err != nil {
		return Config{}, err
	}
	if !found {
		return Config{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf(readConfigFileErrFmt, configPath, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf(parseConfigFileErrFmt, configPath, err)
	}

	cfg.Path = configPath
	return cfg, nil
}

func resolveConfigPath(projectRoot, explicitPath string) (string, bool, error) {
	if explicitPath != "" {
		candidate := explicitPath
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(projectRoot, candidate)
		}
		candidate = filepath.Clean(candidate)
		if _, err := os.Stat(candidate); err != nil {
			if os.IsNotExist(err) {
				return "", false, fmt.Errorf("config file not found: %s", candidate)
			}
			return "", false, fmt.Errorf(readConfigFileErrFmt, candidate, err)
		}
		return candidate, true, nil
	}

	for _, name := range []string{".autodd.yml", ".autodd.yaml", ".autodd.toml"} {
		candidate := filepath.Join(projectRoot, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !os.IsNotExist(err) {
			return "", false, fmt.Errorf(readConfigFileErrFmt, candidate, err)
		}
	}

	return "", false, nil
}

// ShouldExclude reports whether name is barred from all reconciliation.
func (c Config) ShouldExclude(name string) bool {
	for _, excluded := range c.Exclude {
		if name == excluded {
			return true
		}
	}
	return false
}

// IsEssential reports whether name is protected from removal. A name
// matches when it equals a protected entry or textually ends with one, so
// "mini-tokio" stays protected by the "tokio" entry.
func (c Config) IsEssential(name string) bool {
	for _, essential := range BuiltinEssential {
		if matchesEssential(name, essential) {
			return true
		}
	}
	for _, essential := range c.Essential {
		if matchesEssential(name, essential) {
			return true
		}
	}
	return false
}

func matchesEssential(name, essential string) bool {
	return name == essential || strings.HasSuffix(name, essential)
}

// IsDevOnly reports whether name belongs in the dev-dependencies table.
func (c Config) IsDevOnly(name string) bool {
	for _, dev := range c.DevOnly {
		if name == dev {
			return true
		}
	}
	return false
}

// SkipTestDirs reports whether tests directories stay out of the scan.
// Unset means skip.
func (c Config) SkipTestDirs() bool {
	return c.SkipTests == nil || *c.SkipTests
}
