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

	"github.com/vic/godetach/pkg/combinators"
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestDetachStdin(t *testing.T) {
	out, _, err := run(t, "def Main = f (x: x x)\n")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "def Main = (f ((@_S @_I) @_I))\n"), out)
	assert.Contains(t, out, "def _S_ = (d: (x: (y: (z: ((d (x z)) (y z))))))\n")
	assert.Equal(t, 9, strings.Count(out, "def "))
}

func TestDetachFileWithStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.book")
	require.NoError(t, os.WriteFile(path, []byte("def Main = x: y: x\ndef Eta = f (x: g x)\n"), 0644))

	out, errOut, err := run(t, "", "--stats", "--workers", "1", path)
	require.NoError(t, err)
	assert.Contains(t, out, "def Main = (x: (y: x))\n")
	assert.Contains(t, out, "def Eta = (f g)\n")
	assert.Contains(t, errOut, "Lambdas extracted:")
	assert.Contains(t, errOut, "Root lambdas kept:")
}

func TestDetachVerify(t *testing.T) {
	src := `
def Id = x: x
def Main = f (x: x x)
def Loop = @Loop
`
	_, errOut, err := run(t, src, "--verify")
	require.NoError(t, err)
	assert.Contains(t, errOut, "verify: Loop: skipped")
	assert.Regexp(t, `verify: 2 checked, 1 skipped, 0 failed \(\d+ steps\)`, errOut)
}

func TestDetachTraceFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detach.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trace: 4\nworkers: 1\n"), 0644))

	_, errOut, err := run(t, "def Main = f (x: x)\n", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, errOut, "extracted")
	assert.Contains(t, errOut, "def=Main binder=x depth=1")
}

func TestDetachErrors(t *testing.T) {
	_, _, err := run(t, "def Main = (x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse error")

	_, _, err = run(t, "def Main = f {a, b}")
	require.Error(t, err)
	assert.True(t, errors.Is(err, combinators.ErrUnsupportedConstruct), "got %v", err)

	_, _, err = run(t, "", filepath.Join(t.TempDir(), "missing.book"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading file")

	_, _, err = run(t, "def Main = x", "--trace=-1")
	require.Error(t, err)
}

func TestAbstractCommand(t *testing.T) {
	out, _, err := run(t, "", "abstract", "f: g: x: v (f x) (g x)")
	require.NoError(t, err)
	assert.Contains(t, out, "abstracted: (S' v)\n")
	assert.Contains(t, out, "reduced:    (S' v)\n")
	assert.Contains(t, out, "lowered:    (@_S_ v)\n")

	_, _, err = run(t, "", "abstract", "f a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a named lambda")
}

func TestAbstractFromBook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.book")
	require.NoError(t, os.WriteFile(path, []byte("def Id = y: y\ndef Main = x: @Id x\ndef Val = f\n"), 0644))

	out, _, err := run(t, "", "abstract", "--book", path, "Main")
	require.NoError(t, err)
	assert.Contains(t, out, "abstracted: @Id\n")
	assert.Contains(t, out, "lowered:    @Id\n")

	_, _, err = run(t, "", "abstract", "--book", path, "Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definition Missing not found")

	_, _, err = run(t, "", "abstract", "-b", path, "Val")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a named lambda, got f")
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("DETACH_TRACE", "7")

	out, _, err := run(t, "", "config", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "trace: 7\n")
	assert.Contains(t, out, "level: debug\n")

	path := filepath.Join(t.TempDir(), "detach.yaml")
	out, _, err = run(t, "", "config", "--write", path)
	require.NoError(t, err)
	assert.Empty(t, out)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "trace: 7\n")
}
