// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/tripscout-labs/tripscout/pkg/validation"
	"github.com/tripscout-labs/tripscout/services/wizard/datatypes"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// Loader supplies the candidate programs for a country. An unknown
// country yields an empty, nil-error result; only unexpected
// infrastructure failures return an error.
type Loader interface {
	Load(ctx context.Context, countryCode string) ([]datatypes.CandidateProgram, error)
}

// FileCatalog loads candidate programs from one YAML file per country
// code under a base directory.
//
// # Description
//
// Files are named "<cc>.yaml" and hold an ordered list of program
// records. Results are cached per country; Watch invalidates cache
// entries when the files change on disk, so reference-data edits do not
// require a restart. Concurrent first loads for the same country are
// collapsed with singleflight.
//
// # Thread Safety
//
// FileCatalog is safe for concurrent use.
type FileCatalog struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string][]datatypes.CandidateProgram
	sf    singleflight.Group
}

// NewFileCatalog creates a catalog over dir. The directory must exist.
func NewFileCatalog(dir string) (*FileCatalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("programs directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("programs path %q is not a directory", dir)
	}
	return &FileCatalog{
		dir:    dir,
		logger: slog.Default(),
		cache:  make(map[string][]datatypes.CandidateProgram),
	}, nil
}

// Load returns the programs for countryCode. A missing file is a normal
// outcome (unsupported country) and yields an empty set; a corrupt file
// is logged and also yields an empty set. Only filesystem errors other
// than not-exist surface as errors.
func (c *FileCatalog) Load(ctx context.Context, countryCode string) ([]datatypes.CandidateProgram, error) {
	code, err := validation.SanitizeCountryCode(countryCode)
	if err != nil {
		c.logger.Warn("rejecting malformed country code", "country", countryCode, "error", err)
		return nil, nil
	}

	c.mu.RLock()
	cached, ok := c.cache[code]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	result, err, _ := c.sf.Do(code, func() (interface{}, error) {
		return c.loadFile(code)
	})
	if err != nil {
		return nil, err
	}
	programs := result.([]datatypes.CandidateProgram)

	c.mu.Lock()
	c.cache[code] = programs
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return programs, nil
}

func (c *FileCatalog) loadFile(code string) ([]datatypes.CandidateProgram, error) {
	path := filepath.Join(c.dir, code+".yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		c.logger.Info("no reference data for country", "country", code)
		return []datatypes.CandidateProgram{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read program file %s: %w", path, err)
	}

	var programs []datatypes.CandidateProgram
	if err := yaml.Unmarshal(data, &programs); err != nil {
		c.logger.Warn("corrupt program file, treating as empty", "path", path, "error", err)
		return []datatypes.CandidateProgram{}, nil
	}

	// Drop records that cannot participate in a comparison.
	valid := programs[:0]
	for _, p := range programs {
		if p.Name == "" || p.TuitionPerWeek <= 0 || p.HousingPerWeek < 0 || p.FixedFees < 0 {
			c.logger.Warn("skipping invalid program record", "path", path, "name", p.Name)
			continue
		}
		valid = append(valid, p)
	}
	return valid, nil
}

// Watch invalidates cached countries when their files change. Blocks
// until ctx is cancelled; run it on its own goroutine.
func (c *FileCatalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return fmt.Errorf("failed to watch programs directory: %w", err)
	}
	c.logger.Info("watching programs directory for changes", "dir", c.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, ".yaml") {
				continue
			}
			code := strings.TrimSuffix(name, ".yaml")
			c.mu.Lock()
			delete(c.cache, code)
			c.mu.Unlock()
			c.logger.Info("invalidated program cache", "country", code, "op", event.Op.String())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("catalog watcher error", "error", err)
		}
	}
}
