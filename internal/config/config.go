// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the llbuild configuration file and the option and
// platform files accepted on the command line. All of them are TOML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/goplus/llbuild/recipe"
)

// Config is the user configuration.
type Config struct {
	// Workspace holds sources, builds and packages.
	Workspace string
	// Git and CMake are the executables used; empty means PATH lookup.
	Git       string
	CMake     string
	Generator string
	Jobs      int
	TailLines int
	LogLevel  string
	// Prefixes are install trees of prebuilt dependencies.
	Prefixes []string
}

// fileConfig is the on-disk form of Config.
type fileConfig struct {
	Workspace string   `toml:"workspace"`
	Git       string   `toml:"git"`
	CMake     string   `toml:"cmake"`
	Generator string   `toml:"generator"`
	Jobs      int      `toml:"jobs"`
	TailLines int      `toml:"tail_lines"`
	LogLevel  string   `toml:"log_level"`
	Prefixes  []string `toml:"prefixes"`
}

// WorkDir returns the default workspace directory.
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".llbuild"), nil
}

// DefaultPath returns the default location of the configuration file.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "llbuild", "config.toml"), nil
}

// Default returns the configuration used when no file is present.
func Default() (Config, error) {
	ws, err := WorkDir()
	if err != nil {
		return Config{}, err
	}
	return Config{Workspace: ws, TailLines: 50, LogLevel: "info"}, nil
}

// Load overlays the file at path on the defaults. A missing file yields
// the defaults unless mustExist is set. Unknown keys are an error.
func Load(path string, mustExist bool) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !mustExist {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := undecoded(meta); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	if meta.IsDefined("workspace") {
		cfg.Workspace = expandHome(strings.TrimSpace(raw.Workspace))
	}
	if meta.IsDefined("git") {
		cfg.Git = strings.TrimSpace(raw.Git)
	}
	if meta.IsDefined("cmake") {
		cfg.CMake = strings.TrimSpace(raw.CMake)
	}
	if meta.IsDefined("generator") {
		cfg.Generator = strings.TrimSpace(raw.Generator)
	}
	if meta.IsDefined("jobs") {
		if raw.Jobs < 0 {
			return Config{}, fmt.Errorf("load config %s: jobs must not be negative", path)
		}
		cfg.Jobs = raw.Jobs
	}
	if meta.IsDefined("tail_lines") {
		if raw.TailLines <= 0 {
			return Config{}, fmt.Errorf("load config %s: tail_lines must be positive", path)
		}
		cfg.TailLines = raw.TailLines
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("prefixes") {
		cfg.Prefixes = nil
		for _, p := range raw.Prefixes {
			cfg.Prefixes = append(cfg.Prefixes, expandHome(strings.TrimSpace(p)))
		}
	}
	return cfg, nil
}

// LoadOverrides reads a flat table of option overrides. Boolean values
// are turned into "true" and "false".
func LoadOverrides(path string) (map[string]string, error) {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	out := make(map[string]string, len(raw))
	for name, v := range raw {
		switch v := v.(type) {
		case bool:
			out[name] = fmt.Sprint(v)
		case string:
			out[name] = v
		case int64:
			out[name] = fmt.Sprint(v)
		default:
			return nil, fmt.Errorf("load options %s: option %s: unsupported value %v", path, name, v)
		}
	}
	return out, nil
}

// LoadPlatform reads a platform descriptor.
func LoadPlatform(path string) (recipe.Platform, error) {
	var p recipe.Platform
	meta, err := toml.DecodeFile(path, &p)
	if err != nil {
		return recipe.Platform{}, fmt.Errorf("load platform: %w", err)
	}
	if err := undecoded(meta); err != nil {
		return recipe.Platform{}, fmt.Errorf("load platform %s: %w", path, err)
	}
	return p, nil
}

func undecoded(meta toml.MetaData) error {
	keys := meta.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	sort.Strings(names)
	return fmt.Errorf("unknown key(s): %s", strings.Join(names, ", "))
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}
