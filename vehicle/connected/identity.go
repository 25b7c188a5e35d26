package connected

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/util/oauth"
	"github.com/evcc-io/cdrive/util/request"
)

// Authenticate implements api.VehicleService
func (v *Service) Authenticate(ctx context.Context, creds api.Credentials) (api.AuthResponse, error) {
	data := map[string]string{
		"grant_type": "password",
		"scope":      Scope,
		"username":   creds.Username,
		"password":   creds.Password,
	}

	var headers map[string]string
	if creds.Captcha != "" {
		headers = map[string]string{"hcaptchatoken": creds.Captcha}
	}

	return v.token(ctx, creds.Region, data, headers)
}

// Refresh implements api.VehicleService
func (v *Service) Refresh(ctx context.Context, region, refreshToken string) (api.AuthResponse, error) {
	data := map[string]string{
		"grant_type":    "refresh_token",
		"scope":         Scope,
		"refresh_token": refreshToken,
	}

	return v.token(ctx, region, data, nil)
}

func (v *Service) token(ctx context.Context, region string, data, headers map[string]string) (api.AuthResponse, error) {
	base, err := v.server(region)
	if err != nil {
		return api.AuthResponse{}, err
	}

	uri := fmt.Sprintf("%s/gcdm/oauth/token", base)
	req, err := request.NewWithContext(ctx, http.MethodPost, uri, request.EncodeValues(data), request.URLEncoding, map[string]string{
		"Authorization": ClientAuth,
		"User-Agent":    UserAgent,
	}, headers)
	if err != nil {
		return api.AuthResponse{}, err
	}

	body, err := v.DoBody(req)

	// invalid grants are reported as bad request
	var se request.StatusError
	if errors.As(err, &se) && se.StatusCode() == http.StatusBadRequest {
		var tok oauth.Token
		if jerr := json.Unmarshal(body, &tok); errors.Is(jerr, api.ErrAuth) {
			return api.AuthResponse{}, jerr
		}
		return api.AuthResponse{}, fmt.Errorf("%w: %v", api.ErrAuth, err)
	}

	if err != nil {
		return api.AuthResponse{}, err
	}

	var tok oauth.Token
	if err := json.Unmarshal(body, &tok); err != nil {
		if errors.Is(err, api.ErrAuth) {
			return api.AuthResponse{}, err
		}
		return api.AuthResponse{}, fmt.Errorf("%w: %v", api.ErrDecode, err)
	}

	if tok.AccessToken == "" {
		return api.AuthResponse{}, fmt.Errorf("%w: missing access token", api.ErrDecode)
	}

	return api.AuthResponse{
		AccessToken:   tok.AccessToken,
		RefreshToken:  tok.RefreshToken,
		ExpiresIn:     tok.Lifetime(),
		CorrelationID: tok.CorrelationID,
	}, nil
}
