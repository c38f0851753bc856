package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWritesStdout(t *testing.T) {
	t.Chdir(t.TempDir())
	var out bytes.Buffer
	require.NoError(t, run(nil, strings.NewReader("[123, 456, 789]"), &out))
	assert.Equal(t, "const defaultExport = [123, 456, 789];\nexport default defaultExport;\n", out.String())
}

func TestRunExportForms(t *testing.T) {
	t.Chdir(t.TempDir())
	cases := []struct {
		export, want string
	}{
		{"=", "export = 5;\n"},
		{"answer", "export const answer = 5;\n"},
	}
	for _, c := range cases {
		var out bytes.Buffer
		require.NoError(t, run([]string{"-export", c.export}, strings.NewReader("5"), &out))
		assert.Equal(t, c.want, out.String())
	}

	err := run([]string{"-export", "not valid"}, strings.NewReader("5"), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunCheck(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	in := filepath.Join(dir, "in.json")
	target := filepath.Join(dir, "out.js")
	require.NoError(t, os.WriteFile(in, []byte(`{"a":1}`), 0o644))

	require.NoError(t, run([]string{"-in", in, "-out", target}, nil, &bytes.Buffer{}))
	require.NoError(t, run([]string{"-in", in, "-out", target, "-check"}, nil, &bytes.Buffer{}))

	require.NoError(t, os.WriteFile(in, []byte(`{"a":2}`), 0o644))
	var out bytes.Buffer
	err := run([]string{"-in", in, "-out", target, "-check"}, nil, &out)
	assert.True(t, errors.Is(err, errStale))
	assert.Contains(t, out.String(), "-const defaultExport = { a: 1 };")
	assert.Contains(t, out.String(), "+const defaultExport = { a: 2 };")
}

func TestUnified(t *testing.T) {
	assert.Empty(t, unified("x.js", []byte("a\n"), []byte("a\n")))
	patch := unified("x.js", []byte("a\nb\n"), []byte("a\nc\n"))
	assert.True(t, strings.HasPrefix(patch, "--- a/x.js\n+++ b/x.js\n"), patch)
	assert.Contains(t, patch, "-b\n+c\n")
}
