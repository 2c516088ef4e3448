// Package fonts resolves font files to the family names libass matches on.
package fonts

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/sfnt"
)

// Resolver maps a font name or file to the name renderers expect.
type Resolver struct {
	// Dir is searched for relative font names.
	Dir string
}

func NewResolver(dir string) *Resolver {
	return &Resolver{Dir: dir}
}

// Resolve returns the full name of the font file behind name. Names that do
// not point at a readable file are returned unchanged, so plain family names
// such as "Arial" pass straight through.
func (r *Resolver) Resolve(name string) string {
	path := r.Path(name)
	if path == "" {
		return name
	}
	return FileName(path)
}

// Path returns the font file for name, or "" when none exists.
func (r *Resolver) Path(name string) string {
	if name == "" {
		return ""
	}
	candidates := []string{name}
	if !filepath.IsAbs(name) && r.Dir != "" {
		candidates = append([]string{filepath.Join(r.Dir, name)}, candidates...)
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// FileName reads the full name (name ID 4) of a font file, then the family
// name (ID 1), and falls back to the file name without extension.
func FileName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	data, err := os.ReadFile(path)
	if err != nil {
		return stem
	}
	if name := Name(data); name != "" {
		return name
	}
	return stem
}

// Name extracts the full or family name from font data, "" if neither is present.
func Name(data []byte) string {
	f, err := sfnt.Parse(data)
	if err != nil {
		return ""
	}
	var buf sfnt.Buffer
	for _, id := range []sfnt.NameID{sfnt.NameIDFull, sfnt.NameIDFamily} {
		if name, err := f.Name(&buf, id); err == nil && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
	}
	return ""
}
