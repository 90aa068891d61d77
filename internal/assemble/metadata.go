// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assemble

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/goplus/llbuild/recipe"
)

// MetadataFile is the name of the metadata file inside a package.
const MetadataFile = "llbuild.json"

// Metadata describes an assembled package to its consumers. All paths are
// absolute.
type Metadata struct {
	Name          string            `json:"name" yaml:"name"`
	Version       string            `json:"version" yaml:"version"`
	BuildID       string            `json:"buildId" yaml:"buildId"`
	PlanID        string            `json:"planId" yaml:"planId"`
	Configuration map[string]string `json:"configuration" yaml:"configuration"`
	Platform      recipe.Platform   `json:"platform" yaml:"platform"`

	Root string `json:"root" yaml:"root"`
	// Libraries are sorted reverse-lexicographically, system libraries last.
	Libraries   []string            `json:"libraries" yaml:"libraries"`
	IncludeDirs []string            `json:"includeDirs" yaml:"includeDirs"`
	LibDirs     []string            `json:"libDirs" yaml:"libDirs"`
	BinDirs     []string            `json:"binDirs" yaml:"binDirs"`
	Defines     []string            `json:"defines,omitempty" yaml:"defines,omitempty"`
	CMakeName   string              `json:"cmakeName,omitempty" yaml:"cmakeName,omitempty"`
	Env         map[string]string   `json:"env,omitempty" yaml:"env,omitempty"`
	PathEnv     map[string][]string `json:"pathEnv,omitempty" yaml:"pathEnv,omitempty"`
}

// Format selects a metadata rendering.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// Encode writes m to w in format f.
func (m *Metadata) Encode(w io.Writer, f Format) error {
	switch f {
	case JSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown metadata format %q", f)
}

// ReadMetadata reads the metadata of the package at dir.
func ReadMetadata(dir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", MetadataFile, err)
	}
	return &m, nil
}

func writeMetadata(dir string, m *Metadata) error {
	f, err := os.Create(filepath.Join(dir, MetadataFile))
	if err != nil {
		return err
	}
	if err := m.Encode(f, JSON); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
