package engines

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/vk/trainkit/internal/config"
	"github.com/vk/trainkit/internal/ctxlog"
	"github.com/vk/trainkit/internal/engine"
	"github.com/vk/trainkit/internal/serving"
)

// Predictor is the subset of serving.Client the rest engine needs.
type Predictor interface {
	Predict(ctx context.Context, instances any) ([]any, error)
}

// Rest runs inference against a model server speaking the predict API.
// Image inputs are read from disk and sent as pixel arrays.
type Rest struct {
	client Predictor
}

// NewRest creates a rest engine on top of a predict client.
func NewRest(client Predictor) *Rest {
	return &Rest{client: client}
}

// Run implements engine.Engine. Only infer requests are supported.
func (e *Rest) Run(ctx context.Context, req engine.Request) (engine.Outputs, error) {
	if req.Mode != config.ModeInfer {
		return nil, fmt.Errorf("%w: %s engine cannot run %s", engine.ErrUnsupportedMode, RestName, req.Mode)
	}
	instances, err := buildInstances(req.Inputs)
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("Rest engine: sending instances.", "network", req.Network, "count", len(instances))
	preds, err := e.client.Predict(ctx, instances)
	if err != nil {
		return nil, err
	}
	return splitPredictions(preds, req.Fetches), nil
}

// buildInstances converts column-wise inputs into row-format instances. A
// single input column is sent as bare values, several as one object per row.
func buildInstances(inputs map[string][]string) ([]any, error) {
	names := slices.DeleteFunc(slices.Sorted(maps.Keys(inputs)), func(k string) bool { return k == "augment" })
	n := 0
	for _, k := range names {
		n = max(n, len(inputs[k]))
	}

	rows := make([]any, 0, n)
	for i := range n {
		row := map[string]any{}
		for _, k := range names {
			if i >= len(inputs[k]) {
				continue
			}
			v, err := instanceValue(k, inputs[k][i])
			if err != nil {
				return nil, err
			}
			row[k] = v
		}
		if len(names) == 1 {
			rows = append(rows, row[names[0]])
		} else {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func instanceValue(name, value string) (any, error) {
	if name == "image" {
		return serving.ReadImage(value)
	}
	return value, nil
}

// splitPredictions maps the server answer onto the requested fetches.
// Object predictions are split by key; bare predictions answer a single
// fetch, or "predictions" when several were requested.
func splitPredictions(preds []any, fetches []string) engine.Outputs {
	out := engine.Outputs{}
	if len(preds) > 0 {
		if _, ok := preds[0].(map[string]any); ok {
			for _, p := range preds {
				obj, _ := p.(map[string]any)
				for k, v := range obj {
					col, _ := out[k].([]any)
					out[k] = append(col, v)
				}
			}
			return out
		}
	}
	if len(fetches) == 1 {
		out[fetches[0]] = preds
	} else {
		out["predictions"] = preds
	}
	return out
}
