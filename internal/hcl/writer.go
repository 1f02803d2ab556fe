package hcl

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/hashicorp/hcl/v2/hclwrite"
)

// Encode renders settings as a job file that Loader reads back. Keys are
// written in sorted order; nil values are skipped.
func Encode(settings map[string]any) ([]byte, error) {
	conv := NewConverter()
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for _, name := range slices.Sorted(maps.Keys(settings)) {
		v := settings[name]
		if v == nil {
			continue
		}
		val, err := conv.ToCtyValue(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode '%s': %w", name, err)
		}
		if val.IsNull() {
			continue
		}
		body.SetAttributeValue(name, val)
	}
	return f.Bytes(), nil
}

// WriteFile writes settings to path as a job file.
func WriteFile(path string, settings map[string]any) error {
	b, err := Encode(settings)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write job file: %w", err)
	}
	return nil
}
