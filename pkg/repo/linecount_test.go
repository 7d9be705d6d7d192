// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mbtest "github.com/kraklabs/mbscanner/internal/testing"
)

func TestCountFile(t *testing.T) {
	dir := t.TempDir()
	c := NewJSLineCounter(nil)

	tests := []struct {
		name    string
		content []byte
		want    int
	}{
		{"empty", []byte(""), 0},
		{"three lines", []byte("a\nb\nc\n"), 3},
		{"no trailing newline", []byte("a\nb"), 2},
		{"blank and comments", []byte("// c\n\n/* x */\n"), 3},
		{"crlf", []byte("a\r\nb\r\n"), 2},
		{"invalid utf-8", []byte{'a', '\n', 0xff, 0xfe, '\n'}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".js")
			require.NoError(t, os.WriteFile(path, tt.content, 0o644))
			assert.Equal(t, tt.want, c.CountFile(path))
		})
	}

	assert.Zero(t, c.CountFile(filepath.Join(dir, "missing.js")))
	assert.Zero(t, c.CountFile(dir))
}

func TestCountDirectory(t *testing.T) {
	root := t.TempDir()
	mbtest.WriteFile(t, filepath.Join(root, "index.js"), "a\nb\n")
	mbtest.WriteFile(t, filepath.Join(root, "src", "App.jsx"), "a\nb\nc\n")
	mbtest.WriteFile(t, filepath.Join(root, "src", "lib", "esm.mjs"), "a\n")
	mbtest.WriteFile(t, filepath.Join(root, "config.cjs"), "a\nb\nc\nd\n")
	mbtest.WriteFile(t, filepath.Join(root, "types.ts"), "ignored\nignored\n")
	mbtest.WriteFile(t, filepath.Join(root, "README.md"), "ignored\n")
	mbtest.WriteFile(t, filepath.Join(root, "UPPER.JS"), "ignored\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "bundle.js"), []byte{0xc3, 0x28, '\n'}, 0o644))

	assert.Equal(t, int64(10), NewJSLineCounter(nil).CountDirectory(root))
}

func TestCountDirectory_Missing(t *testing.T) {
	c := NewJSLineCounter(nil)
	assert.Zero(t, c.CountDirectory(filepath.Join(t.TempDir(), "missing")))

	file := mbtest.WriteFile(t, filepath.Join(t.TempDir(), "a.js"), "a\n")
	assert.Zero(t, c.CountDirectory(file))
}
