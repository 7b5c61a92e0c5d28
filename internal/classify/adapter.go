package classify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Adapter invokes a Classifier exactly once per call and folds every way
// it can misbehave (error, timeout, out-of-range probability, empty
// label) into the closed Outcome variant. There are no retries.
type Adapter struct {
	classifier Classifier
	timeout    time.Duration
	logger     *zap.Logger
}

// NewAdapter wraps classifier with a per-call timeout.
func NewAdapter(classifier Classifier, timeout time.Duration, logger *zap.Logger) *Adapter {
	return &Adapter{classifier: classifier, timeout: timeout, logger: logger}
}

type classifyReply struct {
	result Result
	err    error
}

// Classify runs the classifier against payload and normalizes the result.
func (a *Adapter) Classify(ctx context.Context, payload []byte) Outcome {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	// The classifier is trusted but opaque; it may ignore ctx, so the
	// call runs in its own goroutine and the deadline is enforced here.
	// A panic in that goroutine would kill the process before the HTTP
	// recover middleware could see it, so it is folded into a failure.
	replyCh := make(chan classifyReply, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				replyCh <- classifyReply{err: fmt.Errorf("classifier panic: %v", rec)}
			}
		}()
		result, err := a.classifier.Classify(ctx, payload)
		replyCh <- classifyReply{result: result, err: err}
	}()

	var reply classifyReply
	select {
	case reply = <-replyCh:
	case <-ctx.Done():
		a.logger.Error("classification timed out", zap.Duration("timeout", a.timeout))
		return Outcome{Kind: Failed, Message: "classification timed out"}
	}

	if reply.err != nil {
		if errors.Is(reply.err, ErrAnomalous) {
			a.logger.Error("image is anomalous and cannot be classified")
			return Outcome{Kind: Anomalous}
		}
		a.logger.Error("classifier failed", zap.Error(reply.err))
		return Outcome{Kind: Failed, Message: reply.err.Error()}
	}

	result := reply.result
	if result.Probability < 0 || result.Probability > 1 {
		a.logger.Error("classifier returned out-of-range probability",
			zap.Float64("probability", result.Probability))
		return Outcome{Kind: Failed, Message: fmt.Sprintf("probability %v out of range [0,1]", result.Probability)}
	}
	if result.Label == "" {
		a.logger.Error("classifier returned empty label")
		return Outcome{Kind: Failed, Message: "classifier returned empty label"}
	}

	return Outcome{Kind: Classified, Label: result.Label, Probability: result.Probability}
}
