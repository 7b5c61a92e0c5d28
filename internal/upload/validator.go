// Package upload validates multipart image uploads before classification.
package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
)

// Kind tags the possible validation outcomes.
type Kind int

const (
	// Valid means the payload passed every check and may be classified.
	Valid Kind = iota
	// Missing means the form field was absent from the request.
	Missing
	// InvalidExtension means the filename is not an allowed image type.
	InvalidExtension
	// TooLarge means the upload exceeds the configured size limit.
	TooLarge
)

// Outcome is the result of validating one upload. Payload and Filename
// are set only when Kind is Valid.
type Outcome struct {
	Kind     Kind
	Payload  []byte
	Filename string
}

// Validator checks an incoming file upload against extension and size
// constraints. It holds no per-request state and is safe for concurrent use.
type Validator struct {
	maxBytes   int64
	extensions map[string]struct{}
}

// NewValidator builds a Validator accepting the given extensions (without
// leading dot, matched case-insensitively) up to maxBytes per upload.
func NewValidator(maxBytes int64, extensions []string) *Validator {
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}
	return &Validator{maxBytes: maxBytes, extensions: exts}
}

// FromRequest extracts and validates the named multipart file field.
// The request body must already be capped with http.MaxBytesReader so an
// oversized body is rejected before it is fully buffered.
func (v *Validator) FromRequest(r *http.Request, field string) Outcome {
	file, header, err := r.FormFile(field)
	if err != nil {
		if isBodyTooLarge(err) {
			return Outcome{Kind: TooLarge}
		}
		// Both an absent field and a non-multipart body count as "no file".
		return Outcome{Kind: Missing}
	}
	defer file.Close() //nolint:errcheck // read-only temp file

	if !v.allowed(header.Filename) {
		return Outcome{Kind: InvalidExtension}
	}
	if header.Size > v.maxBytes {
		return Outcome{Kind: TooLarge}
	}

	// LimitReader guards against a multipart header understating the size.
	payload, err := io.ReadAll(io.LimitReader(file, v.maxBytes+1))
	if err != nil {
		if isBodyTooLarge(err) {
			return Outcome{Kind: TooLarge}
		}
		return Outcome{Kind: Missing}
	}
	if int64(len(payload)) > v.maxBytes {
		return Outcome{Kind: TooLarge}
	}

	return Outcome{Kind: Valid, Payload: payload, Filename: SanitizeFilename(header.Filename)}
}

// allowed reports whether the filename carries an accepted extension.
func (v *Validator) allowed(filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return false
	}
	_, ok := v.extensions[strings.ToLower(filename[idx+1:])]
	return ok
}

// SanitizeFilename strips directory components and replaces bytes outside
// [A-Za-z0-9._-] so the name is safe to echo back or store.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "._")
}

// MaxBytes returns the configured upload size limit.
func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	// multipart wraps the MaxBytesReader failure in a plain error.
	return strings.Contains(err.Error(), "request body too large")
}

// String renders the kind for logs and tests.
func (k Kind) String() string {
	switch k {
	case Valid:
		return "valid"
	case Missing:
		return "missing"
	case InvalidExtension:
		return "invalid_extension"
	case TooLarge:
		return "too_large"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}
