// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProgramFile(t *testing.T, dir, code, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, code+".yaml"), []byte(content), 0o644))
}

func TestNewFileCatalogRequiresDirectory(t *testing.T) {
	_, err := NewFileCatalog(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFileCatalogLoad(t *testing.T) {
	dir := t.TempDir()
	writeProgramFile(t, dir, "uk", `
- name: "London School"
  city: "London"
  tuition_per_week: 300
  housing_per_week: 200
  fixed_fees: 100
- name: "Oxford College"
  city: "Oxford"
  tuition_per_week: 350
  housing_per_week: 250
  fixed_fees: 150
`)

	catalog, err := NewFileCatalog(dir)
	require.NoError(t, err)

	programs, err := catalog.Load(context.Background(), "uk")
	require.NoError(t, err)
	require.Len(t, programs, 2)
	assert.Equal(t, "London School", programs[0].Name)
	assert.Equal(t, 300, programs[0].TuitionPerWeek)

	// Second load is served from cache.
	cached, err := catalog.Load(context.Background(), "uk")
	require.NoError(t, err)
	assert.Equal(t, programs, cached)
}

func TestFileCatalogLoadMissingCountry(t *testing.T) {
	catalog, err := NewFileCatalog(t.TempDir())
	require.NoError(t, err)

	programs, err := catalog.Load(context.Background(), "jp")
	require.NoError(t, err)
	assert.Empty(t, programs)
}

func TestFileCatalogLoadMalformedCode(t *testing.T) {
	catalog, err := NewFileCatalog(t.TempDir())
	require.NoError(t, err)

	// Path-traversal shaped codes never reach the filesystem.
	programs, err := catalog.Load(context.Background(), "../../etc/passwd")
	require.NoError(t, err)
	assert.Empty(t, programs)
}

func TestFileCatalogLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	writeProgramFile(t, dir, "uk", "{{{ not yaml")

	catalog, err := NewFileCatalog(dir)
	require.NoError(t, err)

	programs, err := catalog.Load(context.Background(), "uk")
	require.NoError(t, err)
	assert.Empty(t, programs)
}

func TestFileCatalogDropsInvalidRecords(t *testing.T) {
	dir := t.TempDir()
	writeProgramFile(t, dir, "mt", `
- name: ""
  city: "Nowhere"
  tuition_per_week: 100
- name: "Free School"
  city: "Sliema"
  tuition_per_week: 0
- name: "Good School"
  city: "Valletta"
  tuition_per_week: 200
  housing_per_week: 150
  fixed_fees: 100
`)

	catalog, err := NewFileCatalog(dir)
	require.NoError(t, err)

	programs, err := catalog.Load(context.Background(), "mt")
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, "Good School", programs[0].Name)
}
