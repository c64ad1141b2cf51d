package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), s)

	s, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoad_OverridesSomeFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("temperature: 0.2\nmax_output_tokens: 4096\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, s.Temperature, 1e-6)
	assert.Equal(t, int32(4096), s.MaxOutputTokens)
	assert.Equal(t, int32(40), s.TopK)
	assert.Equal(t, DeadliftText, s.Text)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("temperature: [oops"), 0o644))
	_, err := Load(bad)
	assert.Error(t, err)

	outOfRange := filepath.Join(dir, "range.yaml")
	require.NoError(t, os.WriteFile(outOfRange, []byte("top_p: 3\n"), 0o644))
	_, err = Load(outOfRange)
	assert.ErrorContains(t, err, "top_p")
}

func TestStore_UpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prompt.yaml")
	st := NewStore(path, Default())

	next := Default()
	next.Text = "Rate the lift."
	next.Temperature = 0.1
	require.NoError(t, st.Update(next))
	assert.Equal(t, next, st.Current())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, next, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestStore_UpdateRejectsInvalid(t *testing.T) {
	st := NewStore("", Default())
	bad := Default()
	bad.Text = "   "
	assert.Error(t, st.Update(bad))
	assert.Equal(t, Default(), st.Current())
}

func TestResolve(t *testing.T) {
	s := Default()
	assert.Equal(t, DeadliftText, s.Resolve(""))
	assert.Equal(t, DeadliftText, s.Resolve("  \n"))
	assert.Equal(t, "custom", s.Resolve("custom"))
}
