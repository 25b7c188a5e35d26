package api

import (
	"context"
	"time"

	"github.com/evcc-io/cdrive/util/tree"
	"golang.org/x/oauth2"
)

//go:generate mockgen -package mock -destination ../mock/mock_api.go github.com/evcc-io/cdrive/api VehicleService

// Credentials identify a remote account
type Credentials struct {
	Username string
	Password string
	Region   string
	Captcha  string
}

// AuthResponse is the result of a successful token exchange
type AuthResponse struct {
	AccessToken   string
	RefreshToken  string
	ExpiresIn     time.Duration
	CorrelationID string
}

// VehicleRef is a vehicle known to an account with its static attributes
type VehicleRef struct {
	VIN        string
	Model      string
	Year       int
	Brand      string
	DriveTrain string
	Attributes tree.Node
}

// VehicleService is the remote vehicle cloud
type VehicleService interface {
	Authenticate(ctx context.Context, creds Credentials) (AuthResponse, error)
	Refresh(ctx context.Context, region, refreshToken string) (AuthResponse, error)
	Vehicles(ctx context.Context, token *oauth2.Token) ([]VehicleRef, error)
	Status(ctx context.Context, token *oauth2.Token, vin string) (tree.Node, error)
	Execute(ctx context.Context, token *oauth2.Token, vin string, cmd Command, poi *POI) (Execution, error)
	ExecutionStatus(ctx context.Context, token *oauth2.Token, vin string, exec Execution) (ExecutionState, error)
}

// Sink is the host platform's per-entity state store
type Sink interface {
	UpdateStates(entity string, states []State) error
}
