package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Predictor runs a preprocessed image batch through the model and returns one
// confidence score per class.
type Predictor interface {
	Predict(ctx context.Context, batch [][][][]float32) ([]float32, error)
}

// ServingPredictor calls a TensorFlow-Serving-style REST predict endpoint:
// POST {"instances": [...]} → {"predictions": [[...]]}.
//
// Inference has no request timeout of its own; a slow model call blocks the
// single worker until the poll context is cancelled.
type ServingPredictor struct {
	url        string
	httpClient *http.Client
}

// NewServingPredictor creates a predictor against the given predict URL.
func NewServingPredictor(url string) *ServingPredictor {
	return &ServingPredictor{
		url: url,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

var _ Predictor = (*ServingPredictor)(nil)

type predictRequest struct {
	Instances [][][][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float32 `json:"predictions"`
}

// Predict sends the batch for inference and returns the scores of its single
// instance.
func (p *ServingPredictor) Predict(ctx context.Context, batch [][][][]float32) ([]float32, error) {
	body, err := json.Marshal(predictRequest{Instances: batch})
	if err != nil {
		return nil, fmt.Errorf("marshal predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predict call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("predict call: unexpected status %d", resp.StatusCode)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	if len(out.Predictions) == 0 {
		return nil, fmt.Errorf("predict response contains no predictions")
	}

	return out.Predictions[0], nil
}
