// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logging builds the root logger handed to every component.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Options configures New.
type Options struct {
	Level string
	JSON  bool
}

// New returns the llbuild root logger writing to w.
func New(w io.Writer, opts Options) (hclog.Logger, error) {
	level := hclog.Info
	if opts.Level != "" {
		level = hclog.LevelFromString(opts.Level)
		if level == hclog.NoLevel {
			return nil, fmt.Errorf("unknown log level %q (want trace, debug, info, warn or error)", opts.Level)
		}
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "llbuild",
		Level:      level,
		JSONFormat: opts.JSON,
		Output:     w,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn:     func() time.Time { return time.Now().UTC() },
	}), nil
}

// Levels lists the accepted level names.
func Levels() string {
	return strings.Join([]string{"trace", "debug", "info", "warn", "error"}, "|")
}
