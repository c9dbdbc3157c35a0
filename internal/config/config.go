// Package config loads the CLI's remotes.yaml file, mapping short
// remote names to repository URL prefixes so the user can write
// "myrepo/trunk/foo" instead of the full "<repo-root>#trunk/foo" form.
// It is consulted only by cmd/kaicopy; the dispatch core never sees
// anything but fully-resolved URL strings.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailayerhq/kai-copytree/internal/pathutil"
)

// Remotes holds every short-name -> URL-prefix mapping loaded from a
// remotes.yaml file.
type Remotes struct {
	Remotes map[string]string `yaml:"remotes"`
}

// Load reads and parses the remotes file at path.
func Load(path string) (Remotes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Remotes{}, fmt.Errorf("reading remotes file: %w", err)
	}
	var r Remotes
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Remotes{}, fmt.Errorf("parsing remotes file: %w", err)
	}
	return r, nil
}

// LoadOrEmpty is Load but tolerant of a missing file: the CLI works
// without remotes.yaml, it just loses the short-name convenience.
func LoadOrEmpty(path string) (Remotes, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Remotes{}, nil
	}
	return Load(path)
}

// Resolve expands "name/rest/of/path" into its full URL using the
// remote prefix registered under "name". raw is returned unchanged if
// its leading segment names no known remote.
func (r Remotes) Resolve(raw string) string {
	name, rest, hasRest := strings.Cut(raw, "/")
	prefix, ok := r.Remotes[name]
	if !ok {
		return raw
	}
	if !hasRest || rest == "" {
		return prefix
	}
	return pathutil.Join2(prefix, rest)
}
