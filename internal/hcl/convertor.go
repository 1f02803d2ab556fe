package hcl

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/trainkit/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Converter moves values between cty and the flag-string form used by
// config.Overrides.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// ToFlagString renders val the way it would be typed on the command line.
// Lists, sets and tuples of primitives are joined with commas.
func (c *Converter) ToFlagString(ctx context.Context, val cty.Value) (string, error) {
	if val.IsNull() {
		return "", fmt.Errorf("value must not be null")
	}
	if !val.IsWhollyKnown() {
		return "", fmt.Errorf("value must be known")
	}

	ty := val.Type()
	if ty.IsListType() || ty.IsSetType() || ty.IsTupleType() {
		items := make([]string, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			s, err := c.decodeString(ctx, elem)
			if err != nil {
				return "", fmt.Errorf("list element: %w", err)
			}
			items = append(items, s)
		}
		return strings.Join(items, ","), nil
	}
	if !ty.IsPrimitiveType() {
		return "", fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
	}
	return c.decodeString(ctx, val)
}

// decodeString converts a primitive value to a Go string.
func (c *Converter) decodeString(ctx context.Context, val cty.Value) (string, error) {
	logger := ctxlog.FromContext(ctx)
	converted, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("cannot convert %s to string: %w", val.Type().FriendlyName(), err)
	}
	if !val.Type().Equals(cty.String) {
		logger.Debug("Implicitly converted value type.", "from", val.Type().FriendlyName(), "to", "string")
	}
	var out string
	if err := gocty.FromCtyValue(converted, &out); err != nil {
		return "", err
	}
	return out, nil
}

// ToCtyValue converts a native Go value into its corresponding cty.Value.
func (c *Converter) ToCtyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}
