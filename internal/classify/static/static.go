// Package static provides a fixed-answer classifier for development and
// tests, in the spirit of a no-op provider.
package static

import (
	"context"

	"imagegate/internal/classify"
)

// Classifier always answers with the same label and probability,
// regardless of the payload.
type Classifier struct {
	label       string
	probability float64
}

// New builds a Classifier answering with label and probability.
func New(label string, probability float64) *Classifier {
	return &Classifier{label: label, probability: probability}
}

// Classify returns the configured answer.
func (c *Classifier) Classify(_ context.Context, _ []byte) (classify.Result, error) {
	return classify.Result{Label: c.label, Probability: c.probability}, nil
}
