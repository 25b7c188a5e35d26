package request

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/util"
	"github.com/stretchr/testify/require"
)

func TestHelperStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"vin":"WBA1"}`))
		case "/garbled":
			_, _ = w.Write([]byte(`{"vin":`))
		case "/auth":
			w.WriteHeader(http.StatusUnauthorized)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	h := NewHelper(util.NewLogger("test"))

	getJSON := func(uri string, res interface{}) error {
		req, err := New(http.MethodGet, uri, nil, JSONEncoding)
		require.NoError(t, err)
		return h.DoJSON(req, res)
	}

	var res struct{ VIN string }
	require.NoError(t, getJSON(srv.URL+"/ok", &res))
	require.Equal(t, "WBA1", res.VIN)

	for path, exp := range map[string]error{
		"/garbled": api.ErrDecode,
		"/auth":    api.ErrAuth,
		"/missing": api.ErrNotFound,
		"/other":   api.ErrCommunication,
	} {
		err := getJSON(srv.URL+path, &res)
		require.ErrorIs(t, err, exp, path)
	}

	var se StatusError
	require.True(t, errors.As(getJSON(srv.URL+"/other", &res), &se))
	require.Equal(t, http.StatusBadGateway, se.StatusCode())
}

func TestHelperTransportError(t *testing.T) {
	h := NewHelper(util.NewLogger("test"))
	req, err := New(http.MethodGet, "http://127.0.0.1:1/unreachable", nil)
	require.NoError(t, err)
	_, err = h.DoBody(req)
	require.ErrorIs(t, err, api.ErrCommunication)
}
