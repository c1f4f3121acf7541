// Copyright 2024 LatentFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"vmount/internal/artifacts"
	"vmount/internal/common"
	"vmount/internal/mounts"
)

// getConfigDir returns the config directory path.
// Uses VMOUNT_CONFIG_DIR env var if set, otherwise defaults to ~/.vmount.
// This is computed dynamically to support test isolation.
func getConfigDir() string {
	if dir := os.Getenv("VMOUNT_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".vmount")
}

// ConfigDir returns the configuration directory path
func ConfigDir() string {
	return getConfigDir()
}

// DeclarationPath returns the default table declaration file path
func DeclarationPath() string {
	return filepath.Join(getConfigDir(), "mounts.yaml")
}

// MountDecl declares a single mount
type MountDecl struct {
	Virtual string `yaml:"virtual"`
	Target  string `yaml:"target"`
}

// String formats the declaration as VIRTUAL=TARGET, the --mount flag syntax
func (d MountDecl) String() string {
	return d.Virtual + "=" + d.Target
}

// ParseMountDecl parses VIRTUAL=TARGET. The first '=' separates the two,
// so targets may contain '='.
func ParseMountDecl(s string) (MountDecl, error) {
	virtual, target, ok := strings.Cut(s, "=")
	if !ok {
		return MountDecl{}, fmt.Errorf("mount %q: expected VIRTUAL=TARGET: %w", s, common.ErrInvalidPath)
	}
	return MountDecl{Virtual: virtual, Target: target}, nil
}

// TableConfig is a mount table declaration, usually read from mounts.yaml
type TableConfig struct {
	Base      string      `yaml:"base"`       // target mounted at the virtual root
	LogLevel  string      `yaml:"log_level"`  // trace, debug, info, warn, off (case insensitive)
	CacheSize int         `yaml:"cache_size"` // resolve cache entries, default: 1024
	Mounts    []MountDecl `yaml:"mounts"`     // applied in order
}

// DefaultCacheSize is used when cache_size is missing or not positive
const DefaultCacheSize = 1024

// ApplyDefaults fills zero-value fields with their defaults.
func (cfg *TableConfig) ApplyDefaults() {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "off"
	}
}

// Validate checks path syntax of the base and every declared mount.
// Nesting is not checked here; that needs a table (see Apply).
func (cfg *TableConfig) Validate() error {
	var errs []error
	if !common.IsValidTargetPath(cfg.Base) {
		errs = append(errs, fmt.Errorf("base %q: %w", cfg.Base, common.ErrInvalidPath))
	}
	for i, m := range cfg.Mounts {
		if !common.IsValidMountPath(m.Virtual) || m.Virtual == "" {
			errs = append(errs, fmt.Errorf("mounts[%d]: virtual %q: %w", i, m.Virtual, common.ErrInvalidPath))
		}
		if !common.IsValidTargetPath(m.Target) {
			errs = append(errs, fmt.Errorf("mounts[%d]: target %q: %w", i, m.Target, common.ErrInvalidPath))
		}
	}
	return errors.Join(errs...)
}

// Apply mounts every declaration on table in order. fn, if not nil, is
// called with the outcome of each mount. Returns all failures joined.
func (cfg *TableConfig) Apply(table *mounts.Table, fn func(decl MountDecl, err error)) error {
	var errs []error
	for i, m := range cfg.Mounts {
		err := table.Mount(m.Virtual, m.Target)
		if err != nil {
			log.Warnf("[Config] mounts[%d] rejected: %v", i, err)
			errs = append(errs, fmt.Errorf("mounts[%d]: %w", i, err))
		}
		if fn != nil {
			fn(m, err)
		}
	}
	return errors.Join(errs...)
}

// BuildTable creates a table on Base and applies every declaration.
// Rejected mounts are reported in the returned error; the table still
// carries every mount that succeeded.
func (cfg *TableConfig) BuildTable() (*mounts.Table, error) {
	table := mounts.New(cfg.Base)
	return table, cfg.Apply(table, nil)
}

// ParseTableConfig parses a declaration and applies defaults
func ParseTableConfig(data []byte) (*TableConfig, error) {
	var cfg TableConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse table declaration: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// LoadTableConfigFromPath loads a declaration from a specific file path.
// Returns nil if the file does not exist.
func LoadTableConfigFromPath(configPath string) (*TableConfig, error) {
	if configPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return ParseTableConfig(data)
}

// loadDefaultTableConfig parses the declaration embedded in the binary.
func loadDefaultTableConfig() *TableConfig {
	cfg, err := ParseTableConfig(artifacts.DefaultDeclaration)
	if err != nil {
		panic("failed to parse embedded table declaration: " + err.Error())
	}
	return cfg
}

// LoadTableConfig loads the declaration from ~/.vmount/mounts.yaml.
// Falls back to embedded defaults if the file doesn't exist.
func LoadTableConfig() (*TableConfig, error) {
	cfg, err := LoadTableConfigFromPath(DeclarationPath())
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return loadDefaultTableConfig(), nil
	}
	return cfg, nil
}

// SaveTableConfig writes a declaration file. The table itself is never
// saved; this only records the declarations that build it.
func SaveTableConfig(path string, cfg *TableConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	header := []byte("# vmount table declaration\n# See: vmount --help\n\n")
	return os.WriteFile(path, append(header, data...), 0600)
}
