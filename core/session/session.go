package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/util"
	"github.com/evcc-io/cdrive/util/oauth"
	"github.com/evcc-io/cdrive/util/tree"
	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// TokenStore persists the opaque session blob per account
type TokenStore interface {
	Load(account string) ([]byte, error)
	Save(account string, blob []byte) error
}

// AuthResult is the outcome of an authentication attempt
type AuthResult struct {
	State string
	Err   error
}

// OK reports whether the session holds a usable token
func (r AuthResult) OK() bool {
	return r.State == StateAuthenticated && r.Err == nil
}

// blob is the persisted session representation
type blob struct {
	AccessToken   string    `json:"access_token"`
	RefreshToken  string    `json:"refresh_token"`
	CorrelationID string    `json:"gcid"`
	Expiry        time.Time `json:"expiry"`
}

// Session is an authenticated connection to one remote account
type Session struct {
	log     *util.Logger
	id      string
	service api.VehicleService
	store   TokenStore
	clock   clock.Clock
	policy  util.Policy
	fsm     *fsm.FSM
	group   singleflight.Group

	mu            sync.Mutex
	creds         api.Credentials
	accessToken   string
	refreshToken  string
	correlationID string
	refreshAt     time.Time
}

// Option configures a session
type Option func(*Session)

// WithClock replaces the wall clock
func WithClock(clock clock.Clock) Option {
	return func(s *Session) {
		s.clock = clock
	}
}

// WithPolicy replaces the command confirmation polling policy
func WithPolicy(policy util.Policy) Option {
	return func(s *Session) {
		s.policy = policy
	}
}

// WithStore enables session persistence
func WithStore(store TokenStore) Option {
	return func(s *Session) {
		s.store = store
	}
}

// New creates an account session. A previously persisted session is restored from the store.
func New(id string, creds api.Credentials, service api.VehicleService, opts ...Option) *Session {
	s := &Session{
		log:     util.NewLogger("session"),
		id:      id,
		creds:   creds,
		service: service,
		clock:   clock.New(),
		policy:  util.DefaultPolicy,
	}

	for _, o := range opts {
		o(s)
	}

	initial := StateUnauthenticated
	if s.restore() {
		initial = StateAuthenticated
	}

	s.fsm = newFSM(s.log, id, initial)

	return s
}

// restore loads the persisted blob and reports whether its access token is still usable
func (s *Session) restore() bool {
	if s.store == nil {
		return false
	}

	data, err := s.store.Load(s.id)
	if err != nil {
		if !errors.Is(err, api.ErrNotFound) {
			s.log.WARN.Printf("%s: restore: %v", s.id, err)
		}
		return false
	}

	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		s.log.WARN.Printf("%s: restore: %v", s.id, err)
		return false
	}

	s.accessToken = b.AccessToken
	s.refreshToken = b.RefreshToken
	s.correlationID = b.CorrelationID
	s.refreshAt = b.Expiry

	return b.AccessToken != "" && s.clock.Now().Before(b.Expiry)
}

// ID returns the account id
func (s *Session) ID() string {
	return s.id
}

// State returns the authentication state
func (s *Session) State() string {
	return s.fsm.Current()
}

// Blob returns the serialized session for persistence
func (s *Session) Blob() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return json.Marshal(blob{
		AccessToken:   s.accessToken,
		RefreshToken:  s.refreshToken,
		CorrelationID: s.correlationID,
		Expiry:        s.refreshAt,
	})
}

// Persist writes the session blob to the store
func (s *Session) Persist() error {
	if s.store == nil {
		return nil
	}

	b, err := s.Blob()
	if err == nil {
		err = s.store.Save(s.id, b)
	}

	return err
}

// UpdateCredentials replaces the credentials and discards all tokens
func (s *Session) UpdateCredentials(creds api.Credentials) {
	s.mu.Lock()
	s.creds = creds
	s.accessToken = ""
	s.refreshToken = ""
	s.refreshAt = time.Time{}
	s.mu.Unlock()

	transition(s.log, s.fsm, eventReset)
}

// Authenticate obtains a new access token. Concurrent callers share a single attempt.
func (s *Session) Authenticate(ctx context.Context) AuthResult {
	res, _, _ := s.group.Do("auth", func() (interface{}, error) {
		return s.authenticate(ctx), nil
	})

	return res.(AuthResult)
}

func (s *Session) authenticate(ctx context.Context) AuthResult {
	s.mu.Lock()
	creds := s.creds
	refreshToken := s.refreshToken
	s.mu.Unlock()

	if refreshToken != "" {
		res, err := s.service.Refresh(ctx, creds.Region, refreshToken)
		if err == nil {
			s.apply(res)
			return AuthResult{State: s.State()}
		}

		s.log.DEBUG.Printf("%s: token refresh: %v", s.id, err)

		if !errors.Is(err, api.ErrAuth) {
			transition(s.log, s.fsm, eventExpire)
			return AuthResult{State: s.State(), Err: err}
		}

		// refresh token rejected, fall back to credentials
		s.mu.Lock()
		s.refreshToken = ""
		s.mu.Unlock()
	}

	res, err := s.service.Authenticate(ctx, creds)
	if err != nil {
		if errors.Is(err, api.ErrAuth) {
			s.log.ERROR.Printf("%s: login rejected: %v", s.id, err)
			transition(s.log, s.fsm, eventReject)
			return AuthResult{State: s.State(), Err: fmt.Errorf("%w: %v", api.ErrAuthFailed, err)}
		}

		s.log.WARN.Printf("%s: login: %v", s.id, err)
		transition(s.log, s.fsm, eventExpire)
		return AuthResult{State: s.State(), Err: err}
	}

	s.apply(res)

	return AuthResult{State: s.State()}
}

// apply stores a successful token exchange
func (s *Session) apply(res api.AuthResponse) {
	s.mu.Lock()
	s.accessToken = res.AccessToken
	if res.RefreshToken != "" {
		s.refreshToken = res.RefreshToken
	}
	if res.CorrelationID != "" {
		s.correlationID = res.CorrelationID
	} else if s.correlationID == "" {
		s.correlationID = uuid.NewString()
	}
	s.refreshAt = oauth.RefreshAt(s.clock.Now(), res.ExpiresIn)
	s.mu.Unlock()

	s.log.DEBUG.Printf("%s: token valid until %v", s.id, s.refreshAt.Format(time.RFC3339))

	transition(s.log, s.fsm, eventLogin)

	if err := s.Persist(); err != nil {
		s.log.WARN.Printf("%s: persist: %v", s.id, err)
	}
}

// EnsureFresh authenticates if no token is held or the held token is due for renewal
func (s *Session) EnsureFresh(ctx context.Context) error {
	if s.State() == StateAuthFailed {
		return api.ErrAuthFailed
	}

	if s.State() == StateAuthenticated {
		s.mu.Lock()
		valid := s.accessToken != "" && s.clock.Now().Before(s.refreshAt)
		s.mu.Unlock()

		if valid {
			return nil
		}
	}

	return s.Authenticate(ctx).Err
}

// Token returns the current access token. The account region is attached as extra data.
func (s *Session) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := &oauth2.Token{
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
		TokenType:    "Bearer",
		Expiry:       s.refreshAt,
	}

	return token.WithExtra(map[string]interface{}{
		"region": s.creds.Region,
	})
}

// checkAuth expires the session if the remote side rejected the token
func (s *Session) checkAuth(err error) error {
	if errors.Is(err, api.ErrAuth) {
		s.mu.Lock()
		s.refreshAt = time.Time{}
		s.mu.Unlock()

		transition(s.log, s.fsm, eventExpire)
	}

	return err
}

// ListVehicles returns the vehicles of the account
func (s *Session) ListVehicles(ctx context.Context) ([]api.VehicleRef, error) {
	if err := s.EnsureFresh(ctx); err != nil {
		return nil, err
	}

	res, err := s.service.Vehicles(ctx, s.Token())
	if err != nil {
		return nil, fmt.Errorf("vehicles: %w", s.checkAuth(err))
	}

	return res, nil
}

// FetchStatus returns the raw status document of a vehicle. Missing or
// garbled responses yield api.ErrNotFound.
func (s *Session) FetchStatus(ctx context.Context, vin string) (tree.Node, error) {
	if err := s.EnsureFresh(ctx); err != nil {
		return nil, err
	}

	res, err := s.service.Status(ctx, s.Token(), vin)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) || errors.Is(err, api.ErrDecode) {
			return nil, fmt.Errorf("%w: status %s: %v", api.ErrNotFound, vin, err)
		}
		return nil, fmt.Errorf("status %s: %w", vin, s.checkAuth(err))
	}

	if res == nil {
		return nil, fmt.Errorf("%w: status %s", api.ErrNotFound, vin)
	}

	return res, nil
}

var errExecutionFailed = errors.New("execution failed")

// ExecuteCommand sends a remote command. Commands requiring confirmation are
// polled until the vehicle reports a terminal state or the policy is exhausted.
func (s *Session) ExecuteCommand(ctx context.Context, vin string, cmd api.Command, poi *api.POI) api.CommandResult {
	res := api.CommandResult{
		ID:      uuid.NewString(),
		VIN:     vin,
		Command: cmd,
		State:   api.ExecutionFailed,
	}

	if _, err := api.CommandString(string(cmd)); err != nil {
		res.Err = err
		return res
	}

	if cmd == api.CommandSendPOI {
		if poi == nil {
			res.Err = errors.New("missing poi")
			return res
		}
		if err := poi.Validate(); err != nil {
			res.Err = err
			return res
		}
	}

	if err := s.EnsureFresh(ctx); err != nil {
		res.Err = err
		return res
	}

	exec, err := s.service.Execute(ctx, s.Token(), vin, cmd, poi)
	if err != nil {
		res.Err = s.checkAuth(err)
		return res
	}

	if !cmd.Confirmed() {
		res.State = api.ExecutionExecuted
		return res
	}

	state := exec.State
	err = s.policy.Poll(ctx, func(ctx context.Context) (bool, error) {
		var err error
		if state, err = s.service.ExecutionStatus(ctx, s.Token(), vin, exec); err != nil {
			return false, err
		}

		s.log.TRACE.Printf("%s: %s %s: %s", s.id, vin, cmd, state)

		switch {
		case state == api.ExecutionExecuted:
			return true, nil
		case state.Terminal():
			return false, util.Abort(fmt.Errorf("%w: %s", errExecutionFailed, state))
		default:
			return false, nil
		}
	})

	switch {
	case err == nil:
		res.State = api.ExecutionExecuted
	case errors.Is(err, api.ErrTimeout):
		res.State = api.ExecutionTimeout
		res.Err = err
	case errors.Is(err, errExecutionFailed):
		res.Err = fmt.Errorf("%s: %w", cmd, err)
	default:
		res.Err = err
	}

	return res
}
