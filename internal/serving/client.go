// Package serving is a REST client for models exposed through the TensorFlow
// Serving style predict API:
//
//	POST {"signature_name": "predict", "instances": [...]}
//	 ->  {"predictions": [...]}
package serving

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/trainkit/internal/ctxlog"
	"resty.dev/v3"
)

// DefaultSignature is the signature name sent with every request.
const DefaultSignature = "predict"

// PredictRequest is the JSON body of a predict call.
type PredictRequest struct {
	SignatureName string `json:"signature_name"`
	Instances     any    `json:"instances"`
}

// PredictResponse is the JSON body returned by the server.
type PredictResponse struct {
	Predictions []any  `json:"predictions"`
	Error       string `json:"error,omitempty"`
}

// Client posts predict requests to one model endpoint, e.g.
// http://localhost:8501/v1/models/styletransfer:predict.
type Client struct {
	url  string
	http *resty.Client
}

// NewClient creates a client for the given endpoint URL.
func NewClient(url string, timeout time.Duration) *Client {
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{url: url, http: c}
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// Predict sends instances and returns the server's predictions. Any non-2xx
// status is an error.
func (c *Client) Predict(ctx context.Context, instances any) ([]any, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Sending predict request.", "url", c.url)

	var out PredictResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(PredictRequest{SignatureName: DefaultSignature, Instances: instances}).
		SetResult(&out).
		SetError(&out).
		Post(c.url)
	if err != nil {
		return nil, fmt.Errorf("predict request to %s failed: %w", c.url, err)
	}
	if res.IsError() {
		if out.Error != "" {
			return nil, fmt.Errorf("predict request to %s failed with status %s: %s", c.url, res.Status(), out.Error)
		}
		return nil, fmt.Errorf("predict request to %s failed with status %s", c.url, res.Status())
	}

	logger.Debug("Received predictions.", "status", res.Status(), "count", len(out.Predictions))
	return out.Predictions, nil
}
