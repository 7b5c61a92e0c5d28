// Package classify normalizes classifier results into a closed outcome set.
package classify

import (
	"context"
	"errors"
)

// ErrAnomalous is returned by a Classifier when an image was processed
// successfully but does not belong to any known class. It is a valid
// outcome, not a failure.
var ErrAnomalous = errors.New("image is anomalous")

// Result is a successful classification.
type Result struct {
	Label       string
	Probability float64
}

// Classifier maps image bytes to a label and a probability in [0,1].
// Implementations must honor ctx cancellation where possible and may
// return ErrAnomalous for images matching no known class.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (Result, error)
}

// Func adapts a plain function to the Classifier interface.
type Func func(ctx context.Context, image []byte) (Result, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, image []byte) (Result, error) {
	return f(ctx, image)
}

// Kind tags the possible classification outcomes.
type Kind int

const (
	// Classified means the classifier produced a label and probability.
	Classified Kind = iota
	// Anomalous means the image matches no known class.
	Anomalous
	// Failed means the classifier itself failed.
	Failed
)

// Outcome is the normalized result of one classification attempt.
// Label and Probability are set only when Kind is Classified; Message
// only when Kind is Failed.
type Outcome struct {
	Kind        Kind
	Label       string
	Probability float64
	Message     string
}

// String renders the kind for logs and metrics labels.
func (k Kind) String() string {
	switch k {
	case Classified:
		return "classified"
	case Anomalous:
		return "anomalous"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
