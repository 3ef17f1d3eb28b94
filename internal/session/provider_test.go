package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"astramentor/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authStub is a stub Authenticator keyed by token string.
type authStub struct {
	authenticateFn func(context.Context, string) (uint, map[string]any, error)
}

func (s *authStub) Authenticate(ctx context.Context, token string) (uint, map[string]any, error) {
	return s.authenticateFn(ctx, token)
}

// profileStoreStub is a stub ProfileStore.
type profileStoreStub struct {
	getByIDFn func(context.Context, uint) (*models.Profile, error)
}

func (s *profileStoreStub) GetByID(ctx context.Context, id uint) (*models.Profile, error) {
	return s.getByIDFn(ctx, id)
}

func okAuth(userID uint, claims map[string]any) *authStub {
	return &authStub{
		authenticateFn: func(_ context.Context, _ string) (uint, map[string]any, error) {
			return userID, claims, nil
		},
	}
}

func okProfiles(profile *models.Profile) *profileStoreStub {
	return &profileStoreStub{
		getByIDFn: func(_ context.Context, _ uint) (*models.Profile, error) {
			return profile, nil
		},
	}
}

func TestProvider_Resolve_Success(t *testing.T) {
	t.Parallel()

	p := NewProvider(
		okAuth(1, nil),
		okProfiles(&models.Profile{ID: 1, Name: "Ada", Email: "ada@example.com", Role: models.RoleTeacher}),
	)

	assert.Equal(t, StateUnresolved, p.Snapshot().State)

	snap := p.Resolve(context.Background(), "token")
	assert.Equal(t, StateResolved, snap.State)
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "Ada", snap.Identity.Name)
	assert.Equal(t, models.RoleTeacher, snap.Identity.Role)
	assert.False(t, snap.Identity.Fallback)
}

func TestProvider_Resolve_InvalidTokenSignsOut(t *testing.T) {
	t.Parallel()

	auth := &authStub{
		authenticateFn: func(_ context.Context, _ string) (uint, map[string]any, error) {
			return 0, nil, ErrInvalidToken
		},
	}
	p := NewProvider(auth, okProfiles(&models.Profile{ID: 1}))

	snap := p.Resolve(context.Background(), "bad-token")
	assert.Equal(t, StateSignedOut, snap.State)
	assert.Nil(t, snap.Identity)
}

func TestProvider_Resolve_FallbackIdentityFromClaims(t *testing.T) {
	t.Parallel()

	claims := map[string]any{
		"sub":                 "7",
		"name":                "Grace",
		"email":               "grace@example.com",
		"role":                "teacher",
		"registration_number": "STF-0007",
	}
	profiles := &profileStoreStub{
		getByIDFn: func(_ context.Context, _ uint) (*models.Profile, error) {
			return nil, errors.New("profile store unavailable")
		},
	}
	p := NewProvider(okAuth(7, claims), profiles)

	snap := p.Resolve(context.Background(), "token")
	assert.Equal(t, StateResolvedFallback, snap.State)
	require.NotNil(t, snap.Identity)
	assert.True(t, snap.Identity.Fallback)
	assert.Equal(t, uint(7), snap.Identity.ID)
	assert.Equal(t, "Grace", snap.Identity.Name)
	assert.Equal(t, models.RoleTeacher, snap.Identity.Role)
	assert.Equal(t, "STF-0007", snap.Identity.RegistrationNumber)
}

func TestProvider_Resolve_FallbackDefaultsToStudent(t *testing.T) {
	t.Parallel()

	profiles := &profileStoreStub{
		getByIDFn: func(_ context.Context, _ uint) (*models.Profile, error) {
			return nil, errors.New("timeout")
		},
	}
	p := NewProvider(okAuth(3, map[string]any{"role": "superuser"}), profiles)

	snap := p.Resolve(context.Background(), "token")
	require.NotNil(t, snap.Identity)
	assert.Equal(t, models.RoleStudent, snap.Identity.Role, "unknown role claims fall back to student")
}

func TestProvider_LastResolutionToFinishWins(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	profiles := &profileStoreStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Profile, error) {
			var first bool
			once.Do(func() { first = true })
			if first {
				// First resolution stalls until the second has finished.
				close(started)
				<-release
				return &models.Profile{ID: id, Name: "Slow"}, nil
			}
			return &models.Profile{ID: id, Name: "Fast"}, nil
		},
	}
	p := NewProvider(okAuth(1, nil), profiles)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Resolve(context.Background(), "slow-token")
	}()

	<-started
	p.Resolve(context.Background(), "fast-token")
	close(release)
	wg.Wait()

	// The slow resolution finished last, so its identity is the final one.
	assert.Equal(t, "Slow", p.Snapshot().Identity.Name)
}

func TestProvider_SignOutDiscardsInFlightResolution(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	profiles := &profileStoreStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Profile, error) {
			close(started)
			<-release
			return &models.Profile{ID: id, Name: "Stale"}, nil
		},
	}
	p := NewProvider(okAuth(1, nil), profiles)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Resolve(context.Background(), "token")
	}()

	// Sign out while the resolution is stalled in the profile store.
	<-started
	p.SignOut()
	close(release)
	wg.Wait()

	snap := p.Snapshot()
	assert.Equal(t, StateSignedOut, snap.State, "a resolution started before sign-out must not resurrect the session")
	assert.Nil(t, snap.Identity)
}

func TestProvider_Subscribe(t *testing.T) {
	t.Parallel()

	p := NewProvider(okAuth(1, nil), okProfiles(&models.Profile{ID: 1, Name: "Ada"}))

	ch, cancel := p.Subscribe()
	defer cancel()

	p.Resolve(context.Background(), "token")

	// Resolving then resolved.
	var states []State
	for len(states) < 2 {
		select {
		case snap := <-ch:
			states = append(states, snap.State)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for snapshots, got %v", states)
		}
	}
	assert.Equal(t, []State{StateResolving, StateResolved}, states)
}

func TestProvider_SubscribeCancelIsIdempotent(t *testing.T) {
	t.Parallel()

	p := NewProvider(okAuth(1, nil), okProfiles(&models.Profile{ID: 1}))
	_, cancel := p.Subscribe()
	cancel()
	cancel()

	// Publishing after cancel must not panic on the closed channel.
	p.SignOut()
}

// issuerStub is a stub TokenIssuer.
type issuerStub struct {
	issueFn func(context.Context, string, string) (string, error)
}

func (s *issuerStub) Issue(ctx context.Context, email, password string) (string, error) {
	return s.issueFn(ctx, email, password)
}

// revokerStub is a stub SessionRevoker recording the revoked token.
type revokerStub struct {
	mu      sync.Mutex
	revoked []string
}

func (s *revokerStub) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = append(s.revoked, token)
	return nil
}

func (s *revokerStub) tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.revoked...)
}

func TestProvider_SignIn_Success(t *testing.T) {
	t.Parallel()

	issuer := &issuerStub{
		issueFn: func(_ context.Context, email, _ string) (string, error) {
			assert.Equal(t, "ada@example.com", email)
			return "issued-token", nil
		},
	}
	p := NewProvider(
		okAuth(1, nil),
		okProfiles(&models.Profile{ID: 1, Name: "Ada", Role: models.RoleTeacher}),
	).WithCredentials(issuer, nil)

	snap, err := p.SignIn(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, StateResolved, snap.State)

	identity, ok := p.CurrentIdentity()
	require.True(t, ok)
	assert.Equal(t, "Ada", identity.Name)
}

func TestProvider_SignIn_IssuerErrorSurfacesVerbatim(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("invalid credentials")
	issuer := &issuerStub{
		issueFn: func(_ context.Context, _, _ string) (string, error) {
			return "", wantErr
		},
	}
	p := NewProvider(okAuth(1, nil), okProfiles(&models.Profile{ID: 1})).
		WithCredentials(issuer, nil)

	snap, err := p.SignIn(context.Background(), "ada@example.com", "wrong")
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, StateUnresolved, snap.State, "failed sign-in must not change the session")
}

func TestProvider_CurrentIdentity_FalseUntilResolved(t *testing.T) {
	t.Parallel()

	p := NewProvider(okAuth(1, nil), okProfiles(&models.Profile{ID: 1, Name: "Ada"}))

	_, ok := p.CurrentIdentity()
	assert.False(t, ok)

	p.Resolve(context.Background(), "token")
	identity, ok := p.CurrentIdentity()
	require.True(t, ok)
	assert.Equal(t, uint(1), identity.ID)
}

func TestProvider_SignOutRevokesRemotelyWithoutBlocking(t *testing.T) {
	t.Parallel()

	revoker := &revokerStub{}
	p := NewProvider(okAuth(1, nil), okProfiles(&models.Profile{ID: 1})).
		WithCredentials(nil, revoker)

	p.Resolve(context.Background(), "live-token")
	p.SignOut()

	// The local clear is immediate.
	assert.Equal(t, StateSignedOut, p.Snapshot().State)

	// The remote revocation catches up in the background.
	assert.Eventually(t, func() bool {
		tokens := revoker.tokens()
		return len(tokens) == 1 && tokens[0] == "live-token"
	}, time.Second, 10*time.Millisecond)
}

func TestJWTAuthenticator(t *testing.T) {
	t.Parallel()

	const secret = "test-secret-for-session-authenticator"
	auth := NewJWTAuthenticator(secret)

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  "42",
			"name": "Ada",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(secret))
		require.NoError(t, err)

		userID, claims, err := auth.Authenticate(context.Background(), signed)
		require.NoError(t, err)
		assert.Equal(t, uint(42), userID)
		assert.Equal(t, "Ada", claims["name"])
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42"})
		signed, err := token.SignedString([]byte("some-other-secret"))
		require.NoError(t, err)

		_, _, err = auth.Authenticate(context.Background(), signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "42",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(secret))
		require.NoError(t, err)

		_, _, err = auth.Authenticate(context.Background(), signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()
		_, _, err := auth.Authenticate(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
