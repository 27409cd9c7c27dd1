package utils // package utils provides the password and token primitives used by the auth flow

import (
    "errors"  // sentinel errors for each verification failure
    "strings" // message inspection for algorithm failures
    "time"    // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// signingMethod is the only algorithm tokens are signed or accepted with.
var signingMethod = jwt.SigningMethodHS256

// Verification failures.  Callers at the HTTP boundary collapse all of them
// into one "could not validate credentials" response.
var (
    ErrTokenMalformed = errors.New("token malformed")
    ErrTokenSignature = errors.New("token signature invalid")
    ErrTokenAlgorithm = errors.New("token algorithm not allowed")
    ErrTokenExpired   = errors.New("token expired")
    ErrTokenSubject   = errors.New("token subject missing")
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp in UTC.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// TokenClaims is what a verified token asserts.
type TokenClaims struct {
    Subject   string
    ExpiresAt time.Time
}

// TokenCodec signs and verifies HS256 access tokens carrying only the
// subject and expiration claims.  A codec is immutable after construction
// and safe for concurrent use.
type TokenCodec struct {
    secret     []byte
    defaultTTL time.Duration
    now        func() time.Time
}

// CodecOption customizes a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock replaces time.Now, mainly for tests that need to step past expiry.
func WithClock(now func() time.Time) CodecOption {
    return func(c *TokenCodec) { c.now = now }
}

// NewTokenCodec builds a codec for the given secret.  defaultTTL applies when
// Issue is called without a positive ttl.
func NewTokenCodec(secret string, defaultTTL time.Duration, opts ...CodecOption) *TokenCodec {
    c := &TokenCodec{
        secret:     []byte(secret),
        defaultTTL: defaultTTL,
        now:        time.Now,
    }
    for _, opt := range opts {
        opt(c)
    }
    return c
}

// Issue signs a token for subject that expires ttl from now.  A ttl of zero
// or less uses the codec default.
func (c *TokenCodec) Issue(subject string, ttl time.Duration) (AccessToken, error) {
    if subject == "" {
        return AccessToken{}, ErrTokenSubject
    }
    if ttl <= 0 {
        ttl = c.defaultTTL
    }
    exp := c.now().UTC().Add(ttl)
    claims := jwt.RegisteredClaims{
        Subject:   subject,
        ExpiresAt: jwt.NewNumericDate(exp),
    }
    signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(c.secret)
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: claims.ExpiresAt.Time}, nil
}

// Verify checks signature, algorithm and expiry and returns the claims.
func (c *TokenCodec) Verify(raw string) (TokenClaims, error) {
    var claims jwt.RegisteredClaims
    tok, err := jwt.ParseWithClaims(raw, &claims,
        func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
        jwt.WithValidMethods([]string{signingMethod.Alg()}),
        jwt.WithExpirationRequired(),
        jwt.WithTimeFunc(c.now),
    )
    if err != nil {
        return TokenClaims{}, classify(err)
    }
    if !tok.Valid {
        return TokenClaims{}, ErrTokenSignature
    }
    if claims.Subject == "" {
        return TokenClaims{}, ErrTokenSubject
    }
    return TokenClaims{Subject: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// classify maps jwt parse errors onto the codec's sentinels.  The parser
// reports a disallowed algorithm as an invalid signature, so the method
// check has to look at the message.
func classify(err error) error {
    switch {
    case errors.Is(err, jwt.ErrTokenExpired):
        return errors.Join(ErrTokenExpired, err)
    case errors.Is(err, jwt.ErrTokenUnverifiable):
        return errors.Join(ErrTokenAlgorithm, err)
    case errors.Is(err, jwt.ErrTokenSignatureInvalid) && strings.Contains(err.Error(), "signing method"):
        return errors.Join(ErrTokenAlgorithm, err)
    case errors.Is(err, jwt.ErrTokenSignatureInvalid):
        return errors.Join(ErrTokenSignature, err)
    default:
        return errors.Join(ErrTokenMalformed, err)
    }
}
