package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkomike/bloggie-sub001/authcache"
	"github.com/darkomike/bloggie-sub001/token"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func testConfig() token.Config {
	return token.Config{
		Secret: []byte("test-secret"),
		Issuer: "bloggie-test",
		Now:    func() time.Time { return fixedNow },
	}
}

func signFor(t *testing.T, cfg token.Config, ttl time.Duration) string {
	t.Helper()
	signer, err := token.NewSigner(cfg)
	require.NoError(t, err)
	tok, err := signer.Sign(authcache.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}, ttl)
	require.NoError(t, err)
	return tok
}

func TestSignAndVerify(t *testing.T) {
	cfg := testConfig()
	tok := signFor(t, cfg, time.Hour)

	claims := token.NewVerifier(cfg).Verify(tok)
	require.NotNil(t, claims)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "Ada", claims.Name)
	assert.True(t, fixedNow.Equal(claims.IssuedAt))
	assert.True(t, fixedNow.Add(time.Hour).Equal(claims.ExpiresAt))
	assert.Equal(t, &authcache.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}, claims.User())
}

func TestVerifyRejects(t *testing.T) {
	cfg := testConfig()
	tok := signFor(t, cfg, time.Hour)

	later := cfg
	later.Now = func() time.Time { return fixedNow.Add(2 * time.Hour) }

	otherSecret := cfg
	otherSecret.Secret = []byte("other")

	otherIssuer := cfg
	otherIssuer.Issuer = "someone-else"

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1", Issuer: cfg.Issuer})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name string
		cfg  token.Config
		tok  string
	}{
		{"expired", later, tok},
		{"wrong secret", otherSecret, tok},
		{"wrong issuer", otherIssuer, tok},
		{"malformed", cfg, "not.a.token"},
		{"empty", cfg, ""},
		{"alg none", cfg, unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, token.NewVerifier(tt.cfg).Verify(tt.tok))
		})
	}
}

func TestDecodeIgnoresSignature(t *testing.T) {
	cfg := testConfig()
	tok := signFor(t, cfg, time.Hour)

	claims := token.Decode(tok)
	require.NotNil(t, claims)
	assert.Equal(t, "u1", claims.UserID)
	assert.Nil(t, token.Decode("garbage"))
}

func TestSignValidatesInput(t *testing.T) {
	_, err := token.NewSigner(token.Config{})
	assert.Error(t, err)

	signer, err := token.NewSigner(testConfig())
	require.NoError(t, err)
	_, err = signer.Sign(authcache.User{}, time.Hour)
	assert.Error(t, err)
	_, err = signer.Sign(authcache.User{ID: "u1"}, 0)
	assert.Error(t, err)
}
