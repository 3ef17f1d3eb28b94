// Package session resolves an access token into an authenticated identity and
// keeps interested parties informed as the session changes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"astramentor/internal/middleware"
	"astramentor/internal/models"
)

// State is the lifecycle phase of the session.
type State int

const (
	// StateUnresolved means no resolution has been attempted yet.
	StateUnresolved State = iota
	// StateResolving means a resolution is in flight.
	StateResolving
	// StateResolved means the identity came from the profile store.
	StateResolved
	// StateResolvedFallback means the profile fetch failed and the identity
	// was synthesized from token claims.
	StateResolvedFallback
	// StateSignedOut means the session ended.
	StateSignedOut
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateResolvedFallback:
		return "resolved_fallback"
	case StateSignedOut:
		return "signed_out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Identity is the resolved user for a session.
type Identity struct {
	ID                 uint        `json:"id"`
	Name               string      `json:"name"`
	Email              string      `json:"email"`
	Role               models.Role `json:"role"`
	RegistrationNumber string      `json:"registration_number,omitempty"`
	Avatar             string      `json:"avatar,omitempty"`
	// Fallback marks an identity synthesized from token claims instead of a
	// stored profile. Fields outside the claims may be empty.
	Fallback bool `json:"fallback"`
}

// Snapshot is an immutable view of the session at one point in time.
type Snapshot struct {
	State    State
	Identity *Identity
}

// Authenticator validates an access token and returns the subject's user ID
// together with the token's claims.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uint, map[string]any, error)
}

// ProfileStore loads the stored profile backing an identity.
type ProfileStore interface {
	GetByID(ctx context.Context, id uint) (*models.Profile, error)
}

// TokenIssuer exchanges credentials for an access token.
type TokenIssuer interface {
	Issue(ctx context.Context, email, password string) (string, error)
}

// SessionRevoker invalidates the server-side session behind a token.
type SessionRevoker interface {
	Revoke(ctx context.Context, token string) error
}

// Provider resolves tokens into identities. Each Resolve call carries a
// generation number; when resolutions race, the last one to finish wins and
// earlier results are discarded. Resolutions are never cancelled mid-flight.
type Provider struct {
	auth     Authenticator
	profiles ProfileStore
	issuer   TokenIssuer
	revoker  SessionRevoker

	mu           sync.Mutex
	state        State
	identity     *Identity
	token        string
	started      uint64
	signedOutGen uint64
	subs         map[chan Snapshot]struct{}
}

// NewProvider returns a Provider in the unresolved state.
func NewProvider(auth Authenticator, profiles ProfileStore) *Provider {
	return &Provider{
		auth:     auth,
		profiles: profiles,
		state:    StateUnresolved,
		subs:     make(map[chan Snapshot]struct{}),
	}
}

// WithCredentials equips the provider for credential sign-in and remote
// sign-out. Returns the provider for chaining at construction.
func (p *Provider) WithCredentials(issuer TokenIssuer, revoker SessionRevoker) *Provider {
	p.issuer = issuer
	p.revoker = revoker
	return p
}

// Snapshot returns the current session view.
func (p *Provider) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{State: p.state, Identity: p.identity}
}

// CurrentIdentity returns the resolved identity without blocking. ok is false
// until the session reaches a resolved state.
func (p *Provider) CurrentIdentity() (Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.identity == nil {
		return Identity{}, false
	}
	return *p.identity, true
}

// Subscribe registers for session changes. The returned cancel function must
// be called to release the subscription. Slow subscribers miss updates rather
// than block the provider.
func (p *Provider) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		if _, ok := p.subs[ch]; ok {
			delete(p.subs, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
	return ch, cancel
}

// notifyLocked publishes the current snapshot to all subscribers. Callers must
// hold p.mu.
func (p *Provider) notifyLocked() {
	snap := Snapshot{State: p.state, Identity: p.identity}
	for ch := range p.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Resolve authenticates the token and loads the identity behind it. If the
// profile store fails after authentication succeeds, the session resolves to a
// fallback identity built from the token claims rather than failing closed.
// An invalid token signs the session out.
func (p *Provider) Resolve(ctx context.Context, token string) Snapshot {
	p.mu.Lock()
	p.started++
	gen := p.started
	if p.state == StateUnresolved || p.state == StateSignedOut {
		p.state = StateResolving
		p.notifyLocked()
	}
	p.mu.Unlock()

	userID, claims, err := p.auth.Authenticate(ctx, token)
	if err != nil {
		return p.apply(gen, StateSignedOut, nil, "")
	}

	profile, err := p.profiles.GetByID(ctx, userID)
	if err != nil {
		fallback := IdentityFromClaims(userID, claims)
		middleware.Logger.WarnContext(ctx, "profile fetch failed, using fallback identity from token claims",
			slog.Any("user_id", userID),
			slog.String("error", err.Error()),
		)
		return p.apply(gen, StateResolvedFallback, fallback, token)
	}

	return p.apply(gen, StateResolved, &Identity{
		ID:                 profile.ID,
		Name:               profile.Name,
		Email:              profile.Email,
		Role:               profile.Role,
		RegistrationNumber: profile.RegistrationNumber,
		Avatar:             profile.Avatar,
	}, token)
}

// SignIn exchanges credentials for a token and resolves the session. Issuer
// errors surface verbatim and leave the session untouched.
func (p *Provider) SignIn(ctx context.Context, email, password string) (Snapshot, error) {
	if p.issuer == nil {
		return p.Snapshot(), errors.New("session: no token issuer configured")
	}
	token, err := p.issuer.Issue(ctx, email, password)
	if err != nil {
		return p.Snapshot(), err
	}
	return p.Resolve(ctx, token), nil
}

// apply commits a resolution result. Racing resolutions are not cancelled;
// whichever finishes last overwrites the session. The one exception is an
// explicit sign-out: results from resolutions that started before it are
// discarded so a stale token cannot resurrect the session.
func (p *Provider) apply(gen uint64, state State, identity *Identity, token string) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen <= p.signedOutGen {
		return Snapshot{State: p.state, Identity: p.identity}
	}
	p.state = state
	p.identity = identity
	p.token = token
	p.notifyLocked()
	return Snapshot{State: p.state, Identity: p.identity}
}

// SignOut clears the session immediately. It never blocks on in-flight
// resolutions; any that finish later are discarded because sign-out claims the
// newest generation. Remote invalidation, when a revoker is configured, runs
// in the background and its outcome never affects the local clear.
func (p *Provider) SignOut() {
	p.mu.Lock()

	p.started++
	p.signedOutGen = p.started
	p.state = StateSignedOut
	p.identity = nil
	token := p.token
	p.token = ""
	p.notifyLocked()
	p.mu.Unlock()

	if p.revoker != nil && token != "" {
		go func() {
			if err := p.revoker.Revoke(context.Background(), token); err != nil {
				middleware.Logger.Warn("remote session revocation failed",
					slog.String("error", err.Error()),
				)
			}
		}()
	}
}

// IdentityFromClaims synthesizes a fallback identity from JWT claims. Missing
// claims leave the matching fields empty; the role defaults to student.
func IdentityFromClaims(userID uint, claims map[string]any) *Identity {
	id := &Identity{
		ID:       userID,
		Role:     models.RoleStudent,
		Fallback: true,
	}
	if claims == nil {
		return id
	}
	if name, ok := claims["name"].(string); ok {
		id.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if role, ok := claims["role"].(string); ok && models.Role(role).Valid() {
		id.Role = models.Role(role)
	}
	if regNo, ok := claims["registration_number"].(string); ok {
		id.RegistrationNumber = regNo
	}
	return id
}
