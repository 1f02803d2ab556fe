package callbacks

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/trainkit/internal/component"
	"github.com/vk/trainkit/internal/ctxlog"
)

// Display logs one line per inferred sample pairing the sample's input with
// its prediction.
type Display struct {
	Base
	input  string
	output string
	shown  int
}

// NewDisplay creates a display callback showing the input field and the
// output fetch of each sample.
func NewDisplay(name, input, output string) *Display {
	return &Display{Base: Base{name: name}, input: input, output: output}
}

// Shown is the number of samples displayed so far.
func (d *Display) Shown() int { return d.shown }

// AfterStep implements component.Callback.
func (d *Display) AfterStep(ctx context.Context, st *component.RunState) error {
	logger := ctxlog.FromContext(ctx)
	preds := st.Outputs[d.output]
	for i, s := range st.Batch.Samples {
		logger.Info("Prediction.", d.input, s.Fields[d.input], d.output, element(preds, i))
		d.shown++
	}
	return nil
}

// element returns the i-th element of a list-valued output, or the value
// itself when it is not a list.
func element(v any, i int) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		if i < rv.Len() {
			return fmt.Sprint(rv.Index(i).Interface())
		}
		return ""
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
