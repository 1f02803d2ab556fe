package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Normalizer expands paths against a fixed home and working directory. It
// performs no filesystem I/O.
type Normalizer struct {
	Home    string
	WorkDir string
}

// DefaultNormalizer resolves "~" from $HOME, falling back to the OS notion of
// the user's home directory, and relative paths from the process working
// directory.
func DefaultNormalizer() Normalizer {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	wd, _ := os.Getwd()
	return Normalizer{Home: home, WorkDir: wd}
}

// Normalize is shorthand for DefaultNormalizer().Normalize(c).
func Normalize(c *Config) *Config {
	return DefaultNormalizer().Normalize(c)
}

// Normalize returns a copy of c in which every list field is split on commas
// into a non-nil slice and every path is absolute. Applying it to its own
// output yields an identical Config.
func (n Normalizer) Normalize(c *Config) *Config {
	out := c.Clone()
	for _, f := range out.lists() {
		*f = SplitList(*f...)
	}

	out.DatasetMeta = n.expandAll(out.DatasetMeta)
	out.TestSamples = n.expandAll(out.TestSamples)
	out.ModelDir = n.ExpandPath(out.ModelDir)
	out.PretrainedDir = n.ExpandPath(out.PretrainedDir)
	out.ConfigFile = n.ExpandPath(out.ConfigFile)

	out.Mode = Mode(strings.TrimSpace(string(out.Mode)))
	return out
}

// ExpandPath makes p absolute, expanding a leading "~". The empty path stays
// empty so that optional paths remain unset.
func (n Normalizer) ExpandPath(p string) string {
	p = strings.TrimSpace(p)
	switch {
	case p == "":
		return ""
	case p == "~":
		p = n.Home
	case strings.HasPrefix(p, "~"+string(filepath.Separator)):
		p = filepath.Join(n.Home, p[2:])
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(n.WorkDir, p)
	}
	return filepath.Clean(p)
}

func (n Normalizer) expandAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, n.ExpandPath(p))
	}
	return out
}

// SplitList splits each raw value on commas, trims whitespace and drops empty
// items. It always returns a non-nil slice.
func SplitList(raw ...string) []string {
	out := []string{}
	for _, r := range raw {
		for _, item := range strings.Split(r, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
