// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when a turn carries no locale or an unknown one.
const DefaultLocale = "it"

// Catalog is a locale-keyed text-template store. Templates live in one
// YAML file per locale ("it.yaml", "en.yaml") as flat key/value pairs.
// The catalog is immutable after load and safe for concurrent reads.
type Catalog struct {
	defaultLocale string
	locales       map[string]map[string]string
}

// LoadCatalog reads every "<locale>.yaml" file under dir.
func LoadCatalog(dir, defaultLocale string) (*Catalog, error) {
	if defaultLocale == "" {
		defaultLocale = DefaultLocale
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("locales directory not accessible: %w", err)
	}

	locales := make(map[string]map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read locale file %s: %w", name, err)
		}
		templates := make(map[string]string)
		if err := yaml.Unmarshal(data, &templates); err != nil {
			return nil, fmt.Errorf("failed to parse locale file %s: %w", name, err)
		}
		locales[strings.TrimSuffix(name, ".yaml")] = templates
	}

	if _, ok := locales[defaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %q not found in %s", defaultLocale, dir)
	}
	return &Catalog{defaultLocale: defaultLocale, locales: locales}, nil
}

// NewStaticCatalog builds a catalog from in-memory templates. Intended
// for tests.
func NewStaticCatalog(defaultLocale string, locales map[string]map[string]string) *Catalog {
	return &Catalog{defaultLocale: defaultLocale, locales: locales}
}

// Get resolves key for locale, falling back to the default locale and
// finally to the key itself so a missing template never breaks a reply.
func (c *Catalog) Get(locale, key string) string {
	if templates, ok := c.locales[locale]; ok {
		if text, ok := templates[key]; ok {
			return text
		}
	}
	if templates, ok := c.locales[c.defaultLocale]; ok {
		if text, ok := templates[key]; ok {
			return text
		}
	}
	return key
}

// Resolve returns locale when the catalog knows it, else the default.
func (c *Catalog) Resolve(locale string) string {
	if _, ok := c.locales[locale]; ok {
		return locale
	}
	return c.defaultLocale
}
