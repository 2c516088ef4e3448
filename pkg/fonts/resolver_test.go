package fonts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func TestResolveReadsFontName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.ttf"), goregular.TTF, 0o644))

	r := NewResolver(dir)
	name := r.Resolve("custom.ttf")
	assert.True(t, strings.HasPrefix(name, "Go"), name)
	assert.Equal(t, name, r.Resolve(filepath.Join(dir, "custom.ttf")))
}

func TestResolveFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Broken-Bold.otf"), []byte("not a font"), 0o644))

	r := NewResolver(dir)
	assert.Equal(t, "Broken-Bold", r.Resolve("Broken-Bold.otf"))
	assert.Equal(t, "Arial", r.Resolve("Arial"))
	assert.Equal(t, "", r.Path(""))
}

func TestNameRejectsGarbage(t *testing.T) {
	assert.Empty(t, Name([]byte{0, 1, 2, 3}))
}
