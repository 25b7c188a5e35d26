package request

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/util"
)

// Timeout is the default request timeout used by the Helper
var Timeout = 30 * time.Second

// Helper provides utility primitives
type Helper struct {
	*http.Client
	log *util.Logger
}

// NewHelper creates http helper for simplified PUT GET logic
func NewHelper(log *util.Logger) *Helper {
	return &Helper{
		Client: &http.Client{
			Timeout: Timeout,
			Transport: &roundTripper{
				log:  log,
				base: http.DefaultTransport,
			},
		},
		log: log,
	}
}

// StatusError indicates unsuccessful http response
type StatusError struct {
	resp *http.Response
}

func (e StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d (%s)", e.resp.StatusCode, http.StatusText(e.resp.StatusCode))
}

// Response returns the response with the unexpected error
func (e StatusError) Response() *http.Response {
	return e.resp
}

// StatusCode returns the response's status code
func (e StatusError) StatusCode() int {
	return e.resp.StatusCode
}

// Unwrap classifies the status into the api error taxonomy
func (e StatusError) Unwrap() error {
	switch e.resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return api.ErrAuth
	case http.StatusNotFound:
		return api.ErrNotFound
	default:
		return api.ErrCommunication
	}
}

// ResponseError turns an HTTP status code into an error
func ResponseError(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return StatusError{resp: resp}
	}
	return nil
}

// Do executes HTTP request and returns the response. Transport failures are
// reported as api.ErrCommunication.
func (r *Helper) Do(req *http.Request) (*http.Response, error) {
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrCommunication, err)
	}
	return resp, nil
}

// DoBody executes HTTP request and returns the response body
func (r *Helper) DoBody(req *http.Request) ([]byte, error) {
	resp, err := r.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrCommunication, err)
	}

	return body, ResponseError(resp)
}

// DoJSON executes HTTP request and decodes JSON response.
// It returns a StatusError on response codes other than HTTP 2xx.
func (r *Helper) DoJSON(req *http.Request, res interface{}) error {
	body, err := r.DoBody(req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, res); err != nil {
		return fmt.Errorf("%w: %v", api.ErrDecode, err)
	}

	return nil
}

func urlEscape(s string) string {
	return url.QueryEscape(s)
}
