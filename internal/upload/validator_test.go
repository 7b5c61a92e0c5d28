package upload

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func multipartRequest(t *testing.T, field, filename string, payload []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(payload)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/predict", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestValidator(maxBytes int64) *Validator {
	return NewValidator(maxBytes, []string{"png", "jpg", "jpeg"})
}

func TestFromRequest_MissingField(t *testing.T) {
	t.Parallel()

	v := newTestValidator(1 << 20)
	req := multipartRequest(t, "", "", nil)

	out := v.FromRequest(req, "image")
	require.Equal(t, Missing, out.Kind)
}

func TestFromRequest_NonMultipartBody(t *testing.T) {
	t.Parallel()

	v := newTestValidator(1 << 20)
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader("not a form"))

	out := v.FromRequest(req, "image")
	require.Equal(t, Missing, out.Kind)
}

func TestFromRequest_ExtensionCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		want     Kind
	}{
		{"lowercase png", "photo.png", Valid},
		{"lowercase jpeg", "photo.jpeg", Valid},
		{"uppercase PNG", "photo.PNG", Valid},
		{"mixed case Jpg", "photo.Jpg", Valid},
		{"gif rejected", "photo.gif", InvalidExtension},
		{"txt rejected", "notes.txt", InvalidExtension},
		{"pdf rejected", "doc.pdf", InvalidExtension},
		{"no extension", "photo", InvalidExtension},
		{"trailing dot only", "photo.", InvalidExtension},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := newTestValidator(1 << 20)
			req := multipartRequest(t, "image", tt.filename, []byte("fake image bytes"))
			out := v.FromRequest(req, "image")
			require.Equal(t, tt.want, out.Kind)
		})
	}
}

func TestFromRequest_PayloadReachesClassifierUnmodified(t *testing.T) {
	t.Parallel()

	payload := []byte{0x89, 'P', 'N', 'G', 0x00, 0xFF, 0x7F, 0x01}
	v := newTestValidator(1 << 20)
	req := multipartRequest(t, "image", "raw.png", payload)

	out := v.FromRequest(req, "image")
	require.Equal(t, Valid, out.Kind)
	require.Equal(t, payload, out.Payload)
}

func TestFromRequest_TooLarge(t *testing.T) {
	t.Parallel()

	v := newTestValidator(16)
	req := multipartRequest(t, "image", "big.png", bytes.Repeat([]byte("a"), 17))

	out := v.FromRequest(req, "image")
	require.Equal(t, TooLarge, out.Kind)
	require.Nil(t, out.Payload)
}

func TestFromRequest_ExactLimitAccepted(t *testing.T) {
	t.Parallel()

	v := newTestValidator(16)
	req := multipartRequest(t, "image", "edge.png", bytes.Repeat([]byte("a"), 16))

	out := v.FromRequest(req, "image")
	require.Equal(t, Valid, out.Kind)
	require.Len(t, out.Payload, 16)
}

func TestFromRequest_ExtensionCheckedBeforeSize(t *testing.T) {
	t.Parallel()

	v := newTestValidator(16)
	req := multipartRequest(t, "image", "big.gif", bytes.Repeat([]byte("a"), 64))

	out := v.FromRequest(req, "image")
	require.Equal(t, InvalidExtension, out.Kind)
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpeg", "photo.jpeg"},
		{"../../etc/passwd.png", "passwd.png"},
		{`..\..\boot.png`, "boot.png"},
		{"my photo (1).png", "my_photo__1_.png"},
		{"übild.png", "_bild.png"},
		{"..hidden.png", "hidden.png"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func TestFromRequest_BodyCappedByMaxBytesReader(t *testing.T) {
	t.Parallel()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "big.png")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("a"), 4096))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/predict", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rec, req.Body, 128)

	v := newTestValidator(1 << 20)
	out := v.FromRequest(req, "image")
	require.Equal(t, TooLarge, out.Kind)
}
