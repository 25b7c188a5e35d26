package request

import (
	"net/http"
	"net/http/httputil"

	"github.com/evcc-io/cdrive/util"
)

// roundTripper logs redacted requests and responses at trace level
type roundTripper struct {
	log  *util.Logger
	base http.RoundTripper
}

func (r *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if body, err := httputil.DumpRequestOut(req, true); err == nil {
		r.log.TRACE.Println(util.Redact(string(body)))
	}

	resp, err := r.base.RoundTrip(req)

	if resp != nil {
		if body, err := httputil.DumpResponse(resp, true); err == nil {
			r.log.TRACE.Println(util.Redact(string(body)))
		}
	}

	return resp, err
}
