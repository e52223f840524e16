package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/eventbind/internal/emitter"
)

const tickSource = `package ticks

type TickEvent struct{ N int }

type Counter struct{ total int }

//eventbind:subscribe
func (c *Counter) OnTick(e TickEvent) { c.total += e.N }
`

func newSourceTree(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/app/go.mod", []byte("module example.com/app\n\ngo 1.25\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/app/ticks/ticks.go", []byte(tickSource), 0o644))
	return fs
}

func run(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(fs)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateDeferred(t *testing.T) {
	fs := newSourceTree(t)

	out, err := run(t, fs, "--dir", "/src/app/ticks", "--out", "/src/app/ticks")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote /src/app/ticks/"+emitter.SourceFile)

	src, err := afero.ReadFile(fs, "/src/app/ticks/"+emitter.SourceFile)
	require.NoError(t, err)
	assert.Contains(t, string(src), "package ticks\n")
	assert.Contains(t, string(src), `binding.Deferred(reflect.TypeFor[*Counter](), "OnTick", reflect.TypeFor[TickEvent]())`)

	exists, err := afero.Exists(fs, "/src/app/ticks/"+emitter.ManifestFile)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGenerateDirectWithManifest(t *testing.T) {
	fs := newSourceTree(t)

	out, err := run(t, fs,
		"--strategy", "anonymous",
		"--dir", "/src/app/ticks",
		"--out", "/src/app/bindings",
		"--manifest",
	)
	require.NoError(t, err)
	assert.Contains(t, out, emitter.ManifestFile)

	src, err := afero.ReadFile(fs, "/src/app/bindings/"+emitter.SourceFile)
	require.NoError(t, err)
	assert.Contains(t, string(src), "package bindings\n")
	assert.Contains(t, string(src), `binding.Direct("(*ticks.Counter).OnTick", (*ticks.Counter).OnTick)`)
	assert.Contains(t, string(src), `ticks "example.com/app/ticks"`)
}

func TestGenerateFromConfigFile(t *testing.T) {
	fs := newSourceTree(t)

	path := filepath.Join(t.TempDir(), "eventbind.yaml")
	conf := "strategy: direct\nsource_dirs:\n  - /src/app/ticks\noutput_dir: /src/app/gen\noutput_package: wiring\n"
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))

	_, err := run(t, fs, "--config", path, "--strategy", "deferred")
	require.NoError(t, err)

	src, err := afero.ReadFile(fs, "/src/app/gen/"+emitter.SourceFile)
	require.NoError(t, err)
	assert.Contains(t, string(src), "package wiring\n")
	assert.Contains(t, string(src), "binding.Deferred(")
}

func TestGenerateRegeneratesInPlace(t *testing.T) {
	fs := newSourceTree(t)

	_, err := run(t, fs, "--strategy", "direct", "--dir", "/src/app/ticks", "--out", "/src/app/ticks")
	require.NoError(t, err)
	first, err := afero.ReadFile(fs, "/src/app/ticks/"+emitter.SourceFile)
	require.NoError(t, err)

	_, err = run(t, fs, "--strategy", "direct", "--dir", "/src/app/ticks", "--out", "/src/app/ticks")
	require.NoError(t, err)
	second, err := afero.ReadFile(fs, "/src/app/ticks/"+emitter.SourceFile)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.Contains(t, string(second), "thunkCounterOnTick = binding.Direct(")
}

func TestGenerateRejectsNameCollisions(t *testing.T) {
	fs := newSourceTree(t)
	require.NoError(t, afero.WriteFile(fs, "/src/app/ticks/registry.go",
		[]byte("package ticks\n\nvar Table = map[string]int{}\n\nvar thunkCounterOnTick = 0\n"), 0o644))

	_, err := run(t, fs, "--strategy", "direct", "--dir", "/src/app/ticks", "--out", "/src/app/ticks")
	require.ErrorIs(t, err, emitter.ErrNameCollision)
	assert.Contains(t, err.Error(), "registry.go:3:5")

	exists, err := afero.Exists(fs, "/src/app/ticks/"+emitter.SourceFile)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = run(t, fs, "--strategy", "direct", "--dir", "/src/app/ticks", "--out", "/src/app/bindings")
	require.NoError(t, err, "other output packages do not see the bound package's names")
}

func TestGenerateRejectsBadInput(t *testing.T) {
	fs := newSourceTree(t)

	_, err := run(t, fs, "--strategy", "bogus", "--dir", "/src/app/ticks", "--out", "/src/app/ticks")
	assert.Error(t, err)

	_, err = run(t, fs, "--dir", "/elsewhere", "--out", "/elsewhere")
	assert.Error(t, err)

	_, err = run(t, fs, "positional")
	assert.Error(t, err)
}
