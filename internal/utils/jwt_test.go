package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestCodec(secret string) (*TokenCodec, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)}
	return NewTokenCodec(secret, 30*time.Minute, WithClock(clock.Now)), clock
}

func TestTokenCodec_RoundTripUntilExpiry(t *testing.T) {
	codec, clock := newTestCodec("super-secret")

	tok, err := codec.Issue("42", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(10*time.Minute), tok.Exp)

	clock.t = clock.t.Add(9*time.Minute + 59*time.Second)
	claims, err := codec.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.True(t, claims.ExpiresAt.Equal(tok.Exp))

	clock.t = clock.t.Add(2 * time.Second)
	_, err = codec.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenCodec_DefaultTTL(t *testing.T) {
	codec, clock := newTestCodec("k")

	tok, err := codec.Issue("7", 0)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(30*time.Minute), tok.Exp)
}

func TestTokenCodec_OnlySubjectAndExpiry(t *testing.T) {
	codec, _ := newTestCodec("k")

	tok, err := codec.Issue("7", time.Minute)
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(tok.Token, jwt.MapClaims{})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Len(t, claims, 2)
	assert.Equal(t, "7", claims["sub"])
	assert.Contains(t, claims, "exp")
	assert.Equal(t, "HS256", parsed.Header["alg"])
}

func TestTokenCodec_TamperedTokenFails(t *testing.T) {
	codec, _ := newTestCodec("k")

	tok, err := codec.Issue("7", time.Minute)
	require.NoError(t, err)

	parts := strings.Split(tok.Token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = codec.Verify(tampered)
	assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestTokenCodec_WrongSecretFails(t *testing.T) {
	issuer, _ := newTestCodec("right-secret")
	verifier, _ := newTestCodec("wrong-secret")

	tok, err := issuer.Issue("7", time.Minute)
	require.NoError(t, err)

	_, err = verifier.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestTokenCodec_OtherAlgorithmFails(t *testing.T) {
	codec, clock := newTestCodec("k")

	claims := jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = codec.Verify(signed)
	assert.ErrorIs(t, err, ErrTokenAlgorithm)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Verify(unsigned)
	assert.ErrorIs(t, err, ErrTokenAlgorithm)
}

func TestTokenCodec_MissingClaims(t *testing.T) {
	codec, clock := newTestCodec("k")

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "7"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = codec.Verify(noExp)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Minute)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = codec.Verify(noSub)
	assert.ErrorIs(t, err, ErrTokenSubject)

	_, err = codec.Issue("", time.Minute)
	assert.ErrorIs(t, err, ErrTokenSubject)
}

func TestTokenCodec_Malformed(t *testing.T) {
	codec, _ := newTestCodec("k")

	for _, raw := range []string{"", "not.a.jwt", "abc"} {
		_, err := codec.Verify(raw)
		assert.ErrorIs(t, err, ErrTokenMalformed, "raw=%q", raw)
	}
}
