package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedact(t *testing.T) {
	for in, out := range map[string]string{
		`{"access_token":"abc","expires_in":3600}`:  `{"access_token":***,"expires_in":3600}`,
		`username=foo&password=bar&grant_type=password`: `username=foo&password=***&grant_type=password`,
		`nothing secret here`:                           `nothing secret here`,
	} {
		require.Equal(t, out, Redact(in))
	}
}
