package oauth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/evcc-io/cdrive/api"
	"golang.org/x/oauth2"
)

// RefreshFactor is the share of the provider-declared token lifetime after which the token is renewed
const RefreshFactor = 0.8

// Token is an OAuth2 token which supports decoding the expires_in attribute and returns content errors
type Token struct {
	oauth2.Token
	ExpiresIn     int64  `json:"expires_in"` // expiration time in seconds
	CorrelationID string `json:"gcid"`
}

func (t *Token) UnmarshalJSON(data []byte) error {
	var s struct {
		oauth2.Token
		ExpiresIn        int64   `json:"expires_in,omitempty"`
		CorrelationID    string  `json:"gcid,omitempty"`
		Error            *string `json:"error"`
		ErrorDescription *string `json:"error_description"`
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if s.Error != nil {
		desc := *s.Error
		if s.ErrorDescription != nil {
			desc = fmt.Sprintf("%s: %s", desc, *s.ErrorDescription)
		}
		return fmt.Errorf("%w: %s", api.ErrAuth, desc)
	}

	t.Token = s.Token
	t.ExpiresIn = s.ExpiresIn
	t.CorrelationID = s.CorrelationID

	if t.Expiry.IsZero() && s.ExpiresIn != 0 {
		t.Expiry = time.Now().Add(time.Second * time.Duration(s.ExpiresIn))
	}

	return nil
}

// Lifetime returns the provider-declared token lifetime
func (t *Token) Lifetime() time.Duration {
	return time.Duration(t.ExpiresIn) * time.Second
}

// RefreshAt returns the time a token issued at now with given lifetime should be renewed
func RefreshAt(now time.Time, lifetime time.Duration) time.Time {
	return now.Add(time.Duration(float64(lifetime) * RefreshFactor))
}
