package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"snaplens/internal/model"
)

// LoadLabels reads the ordinally-indexed class-name list from a JSON file.
// The list is loaded once at process start; a missing or empty file is a
// startup configuration error.
func LoadLabels(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read class list: %w", err)
	}
	var labels []string
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, fmt.Errorf("parse class list: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("class list %s is empty", path)
	}
	return labels, nil
}

// Classifier turns stored JPEG bytes into a ranked list of (label, confidence)
// pairs using a fixed, pre-trained model behind a Predictor.
type Classifier struct {
	labels    []string
	predictor Predictor
	inputSize int
	topK      int
}

// NewClassifier wires labels and a predictor into a classifier.
func NewClassifier(labels []string, p Predictor, inputSize, topK int) *Classifier {
	if inputSize <= 0 {
		inputSize = 100
	}
	if topK <= 0 {
		topK = 5
	}
	return &Classifier{labels: labels, predictor: p, inputSize: inputSize, topK: topK}
}

// Classify preprocesses the image, runs inference, and returns the top-K
// classes by descending confidence paired with their labels.
func (c *Classifier) Classify(ctx context.Context, data []byte) ([]model.Classification, error) {
	batch, err := Preprocess(data, c.inputSize)
	if err != nil {
		return nil, err
	}

	scores, err := c.predictor.Predict(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}

	n := len(scores)
	if len(c.labels) < n {
		n = len(c.labels)
	}
	ranked := make([]model.Classification, 0, n)
	for i := 0; i < n; i++ {
		ranked = append(ranked, model.Classification{
			Label:      c.labels[i],
			Confidence: float64(scores[i]),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	if len(ranked) > c.topK {
		ranked = ranked[:c.topK]
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("no classes scored")
	}
	return ranked, nil
}
