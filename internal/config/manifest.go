package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-ini/ini"
)

// Manifest is the raw krypton section of the project manifest: keys
// normalized, values as written (quotes preserved).
type Manifest map[string]string

func (m Manifest) lookup(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

func (Manifest) name() string { return "manifest" }

// ReadManifest loads the krypton section of the INI manifest at path.
// A missing file yields an empty manifest. Keys outside any section or
// unparseable syntax fail with "unable to parse <path>"; a key given
// twice in the section, under any spelling, fails with "<path>
// contains duplicate parameters". A manifest without a krypton section
// contributes nothing.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, nil
	}
	if err != nil {
		return nil, structuralError(path, fmt.Sprintf("unable to read %s", path), err)
	}
	return ParseManifest(path, data)
}

// ParseManifest parses manifest content; path is used in errors only.
func ParseManifest(path string, data []byte) (Manifest, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowShadows:               true,
		AllowDuplicateShadowValues: true,
		Insensitive:                true,
		PreserveSurroundedQuote:    true,
		SpaceBeforeInlineComment:   true,
	}, data)
	if err != nil {
		return nil, structuralError(path, fmt.Sprintf("unable to parse %s", path), err)
	}

	if len(f.Section(ini.DefaultSection).Keys()) > 0 {
		return nil, structuralError(path, fmt.Sprintf("unable to parse %s", path),
			errors.New("file contains no section headers"))
	}

	sec, err := f.GetSection(ManifestSection)
	if err != nil {
		return Manifest{}, nil
	}

	m := make(Manifest, len(sec.Keys()))
	for _, k := range sec.Keys() {
		key := NormalizeKey(k.Name())
		values := k.ValueWithShadows()
		if _, dup := m[key]; dup || len(values) > 1 {
			return nil, structuralError(path, fmt.Sprintf("%s contains duplicate parameters", path), nil)
		}
		m[key] = strings.TrimSpace(values[0])
	}
	return m, nil
}

// NormalizeKey maps a flag or manifest key to its canonical form.
func NormalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}
