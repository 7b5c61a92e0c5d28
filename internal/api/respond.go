package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"imagegate/internal/classify"
	"imagegate/internal/upload"
)

// Curated client-facing messages. The page route shows these verbatim;
// the API route wraps them in an error body.
const (
	msgNoFile      = "No file uploaded. Please upload an image."
	msgInvalidType = "Invalid file type. Please upload a valid image."
	msgAnomalous   = "Image is anomalous and cannot be classified."
	msgNotFound    = "Not Found"
	msgUnexpected  = "An unexpected error occurred"

	predictionErrorPrefix = "Prediction error: "
)

type predictionBody struct {
	Class       string  `json:"class"`
	Probability float64 `json:"probability"`
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Formatter maps validation and classification outcomes onto the two
// response policies: an always-200 page context and a status-coded JSON
// API body.
type Formatter struct {
	maxBytes int64
}

// NewFormatter builds a Formatter; maxBytes is only used to render the
// size-limit message.
func NewFormatter(maxBytes int64) *Formatter {
	return &Formatter{maxBytes: maxBytes}
}

// tooLargeMessage renders the configured limit in whole MiB.
func (f *Formatter) tooLargeMessage() string {
	return fmt.Sprintf("File too large. Maximum upload size is %d MiB.", f.maxBytes>>20)
}

// RejectionMessage returns the curated message for a failed validation.
// Calling it with upload.Valid is a programming error.
func (f *Formatter) RejectionMessage(kind upload.Kind) string {
	switch kind {
	case upload.Missing:
		return msgNoFile
	case upload.InvalidExtension:
		return msgInvalidType
	case upload.TooLarge:
		return f.tooLargeMessage()
	default:
		return msgUnexpected
	}
}

// APIRejection maps a failed validation onto the API policy. Oversized
// uploads get 413 rather than a generic 400 so clients can tell the
// limit apart from a malformed request.
func (f *Formatter) APIRejection(kind upload.Kind) (int, errorBody) {
	status := http.StatusBadRequest
	if kind == upload.TooLarge {
		status = http.StatusRequestEntityTooLarge
	}
	return status, errorBody{Error: f.RejectionMessage(kind)}
}

// APIOutcome maps a classification outcome onto the API policy.
func (f *Formatter) APIOutcome(out classify.Outcome) (int, any) {
	switch out.Kind {
	case classify.Classified:
		return http.StatusOK, predictionBody{Class: out.Label, Probability: out.Probability}
	case classify.Anomalous:
		return http.StatusBadRequest, errorBody{Error: msgAnomalous}
	default:
		return http.StatusInternalServerError, errorBody{Error: predictionErrorPrefix + out.Message}
	}
}

// PageRejection maps a failed validation onto the page policy.
func (f *Formatter) PageRejection(kind upload.Kind) PageData {
	return PageData{Error: f.RejectionMessage(kind)}
}

// PageOutcome maps a classification outcome onto the page policy. An
// anomalous image renders as a normal textual result, not an error.
func (f *Formatter) PageOutcome(out classify.Outcome, imageName string) PageData {
	switch out.Kind {
	case classify.Classified:
		return PageData{
			Result: &ResultView{Label: out.Label, Probability: out.Probability},
			Image:  imageName,
		}
	case classify.Anomalous:
		return PageData{
			Result: &ResultView{Label: "Anomalous"},
			Image:  imageName,
		}
	default:
		return PageData{Error: predictionErrorPrefix + out.Message}
	}
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}
