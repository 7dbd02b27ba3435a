package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwl-dev/lemongate/internal/cache"
	"github.com/mwl-dev/lemongate/internal/dto"
	"github.com/mwl-dev/lemongate/internal/secrets"
	"github.com/mwl-dev/lemongate/internal/token"
)

const (
	testSigningSecret = "0123456789abcdef"
	testClientID      = "test-client-id.apps.googleusercontent.com"
	testKid           = "test-kid"
)

type googleFixture struct {
	key    *rsa.PrivateKey
	server *httptest.Server
	auth   *AuthService
}

func newGoogleFixture(t *testing.T) *googleFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": testKid,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(server.Close)

	store := secrets.StaticStore{
		secrets.LemonSigningSecret:  testSigningSecret,
		secrets.GoogleOAuthClientID: "other-client-id, " + testClientID,
	}

	auth := NewAuthService(
		newTestDB(t),
		cache.NewMemory(10*time.Second),
		store,
		NewGoogleJWKSClient(server.URL),
	)

	return &googleFixture{key: key, server: server, auth: auth}
}

func (f *googleFixture) credential(t *testing.T, claims GoogleClaims) string {
	t.Helper()

	if claims.Issuer == "" {
		claims.Issuer = "https://accounts.google.com"
	}
	if claims.Audience == nil {
		claims.Audience = jwt.ClaimStrings{testClientID}
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKid

	signed, err := tok.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func TestRegisterAnonymous(t *testing.T) {
	f := newGoogleFixture(t)
	ctx := context.Background()

	user, err := f.auth.RegisterAnonymous(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, user.Token)
	assert.Empty(t, user.Email)

	payload, err := token.Verify(user.Token, testSigningSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), payload.UserID)

	found, err := f.auth.FindByToken(ctx, user.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestFindByTokenRejectsUnknown(t *testing.T) {
	f := newGoogleFixture(t)
	ctx := context.Background()

	// Authentic token, but no user record holds it.
	orphan, err := token.Mint("nobody", time.Now().Unix(), testSigningSecret)
	require.NoError(t, err)
	_, err = f.auth.FindByToken(ctx, orphan)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.auth.FindByToken(ctx, "garbage")
	assert.Error(t, err)
}

func TestGoogleSignInCreatesUser(t *testing.T) {
	f := newGoogleFixture(t)
	ctx := context.Background()

	cred := f.credential(t, GoogleClaims{
		Email:   "new@example.com",
		Name:    "New User",
		Picture: "https://example.com/avatar.png",
	})

	user, err := f.auth.GoogleSignIn(ctx, &dto.GoogleSignInRequest{Credential: cred})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, "New User", user.Name)
	assert.Equal(t, "https://example.com/avatar.png", user.Avatar)
	require.NotEmpty(t, user.Token)

	payload, err := token.Verify(user.Token, testSigningSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), payload.UserID)
}

// A replayed login converges on the same record and keeps the token:
// rotation would strand the user's other devices.
func TestGoogleSignInRepeatKeepsToken(t *testing.T) {
	f := newGoogleFixture(t)
	ctx := context.Background()

	first, err := f.auth.GoogleSignIn(ctx, &dto.GoogleSignInRequest{
		Credential: f.credential(t, GoogleClaims{Email: "same@example.com", Name: "Before"}),
	})
	require.NoError(t, err)

	second, err := f.auth.GoogleSignIn(ctx, &dto.GoogleSignInRequest{
		Credential: f.credential(t, GoogleClaims{Email: "same@example.com", Name: "After"}),
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, "After", second.Name)
}

func TestGoogleSignInMergesIntoExistingToken(t *testing.T) {
	f := newGoogleFixture(t)
	ctx := context.Background()

	anon, err := f.auth.RegisterAnonymous(ctx)
	require.NoError(t, err)

	user, err := f.auth.GoogleSignIn(ctx, &dto.GoogleSignInRequest{
		Credential: f.credential(t, GoogleClaims{Email: "merged@example.com"}),
		Token:      anon.Token,
	})
	require.NoError(t, err)

	assert.Equal(t, anon.ID, user.ID)
	assert.Equal(t, anon.Token, user.Token)
	assert.Equal(t, "merged@example.com", user.Email)
}

func TestGoogleSignInRejectsBadCredentials(t *testing.T) {
	f := newGoogleFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		claims GoogleClaims
	}{
		{"wrong audience", GoogleClaims{
			Email:            "x@example.com",
			RegisteredClaims: jwt.RegisteredClaims{Audience: jwt.ClaimStrings{"someone-else"}},
		}},
		{"wrong issuer", GoogleClaims{
			Email:            "x@example.com",
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "https://evil.example.com"},
		}},
		{"expired", GoogleClaims{
			Email:            "x@example.com",
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
		}},
		{"missing email", GoogleClaims{}},
		{"invalid email", GoogleClaims{Email: "not-an-address"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.auth.GoogleSignIn(ctx, &dto.GoogleSignInRequest{
				Credential: f.credential(t, tc.claims),
			})
			assert.Error(t, err)
		})
	}

	t.Run("forged signature", func(t *testing.T) {
		otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, GoogleClaims{
			Email: "x@example.com",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "https://accounts.google.com",
				Audience:  jwt.ClaimStrings{testClientID},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		tok.Header["kid"] = testKid
		forged, err := tok.SignedString(otherKey)
		require.NoError(t, err)

		_, err = f.auth.GoogleSignIn(ctx, &dto.GoogleSignInRequest{Credential: forged})
		assert.Error(t, err)
	})
}

func TestGoogleSignInAcceptsAnyRegisteredClientID(t *testing.T) {
	f := newGoogleFixture(t)
	ctx := context.Background()

	cred := f.credential(t, GoogleClaims{
		Email:            "alt@example.com",
		RegisteredClaims: jwt.RegisteredClaims{Audience: jwt.ClaimStrings{"other-client-id"}},
	})

	user, err := f.auth.GoogleSignIn(ctx, &dto.GoogleSignInRequest{Credential: cred})
	require.NoError(t, err)
	assert.Equal(t, "alt@example.com", user.Email)
}

func TestUserCacheInvalidatedOnUpsert(t *testing.T) {
	f := newGoogleFixture(t)
	ctx := context.Background()

	// Prime the email-lookup cache with an absence.
	cred := f.credential(t, GoogleClaims{Email: "cached@example.com"})
	user, err := f.auth.GoogleSignIn(ctx, &dto.GoogleSignInRequest{Credential: cred})
	require.NoError(t, err)

	// A login right after the upsert must see the fresh record, not the
	// cached absence.
	again, err := f.auth.GoogleSignIn(ctx, &dto.GoogleSignInRequest{
		Credential: f.credential(t, GoogleClaims{Email: "cached@example.com"}),
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}
