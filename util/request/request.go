package request

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

var (
	// JSONEncoding specifies application/json
	JSONEncoding = map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}

	// URLEncoding specifies application/x-www-form-urlencoded
	URLEncoding = map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
		"Accept":       "application/json",
	}
)

// New builds and executes HTTP request and returns the response
func New(method, uri string, data io.Reader, headers ...map[string]string) (*http.Request, error) {
	return NewWithContext(context.Background(), method, uri, data, headers...)
}

// NewWithContext builds a request bound to ctx
func NewWithContext(ctx context.Context, method, uri string, data io.Reader, headers ...map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, uri, data)
	if err == nil {
		for _, headers := range headers {
			for k, v := range headers {
				req.Header.Set(k, v)
			}
		}
	}

	return req, err
}

// MarshalJSON marshals JSON into an io.Reader
func MarshalJSON(data interface{}) io.Reader {
	if data == nil {
		return nil
	}

	body, err := json.Marshal(data)
	if err != nil {
		return &errorReader{err: err}
	}

	return bytes.NewReader(body)
}

// EncodeValues encodes form values into an io.Reader
func EncodeValues(values map[string]string) io.Reader {
	var b strings.Builder
	for k, v := range values {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k + "=" + urlEscape(v))
	}
	return strings.NewReader(b.String())
}

type errorReader struct {
	err error
}

func (r *errorReader) Read(p []byte) (int, error) {
	return 0, r.err
}
