package utils // package utils provides helper functions for credential issuing and hashing

import (
    "errors" // sentinel errors for verification failures
    "time"   // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

// Credential represents a signed bearer token along with its expiry.  The
// Token field contains the JWT string that clients send in the
// Authorization header.  Exp stores the expiration timestamp in UTC.
type Credential struct {
    Token string    `json:"token"`   // the serialized JWT string
    Exp   time.Time `json:"expires"` // the UTC expiration time
}

// Claims is the payload of every credential.  The identity id is the
// standard subject claim; Role is a private claim.  RegisteredClaims
// supplies exp and iat validation.
type Claims struct {
    Role string `json:"role"`
    jwt.RegisteredClaims
}

// ErrInvalidCredential is returned by ParseCredential for any verification
// failure: malformed token, wrong algorithm, bad signature, expiry, or a
// token without subject or role.
var ErrInvalidCredential = errors.New("invalid credential")

// IssueCredential builds and signs an HS256 JWT for an identity.  The ttl
// bounds its lifetime; login uses a long ttl while the provider
// registration flow issues a short-lived one for its internal call.
func IssueCredential(secret, identityID, role string, ttl time.Duration) (Credential, error) {
    now := time.Now().UTC()
    // Round to seconds so the returned expiry matches the encoded exp claim.
    exp := now.Add(ttl).Truncate(time.Second)
    claims := Claims{
        Role: role,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   identityID,
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    // Create a new token object specifying the signing method (HS256) and
    // include the claims, then sign it with the shared secret.
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return Credential{}, err
    }
    return Credential{Token: signed, Exp: exp}, nil
}

// ParseCredential verifies the signature and expiry of raw and returns its
// claims.  Only HMAC-signed tokens are accepted so a token cannot pick its
// own algorithm.
func ParseCredential(secret, raw string) (*Claims, error) {
    claims := &Claims{}
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
        // Type assert the signing method to HMAC; reject others.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidCredential
        }
        return []byte(secret), nil
    }, jwt.WithExpirationRequired())
    if err != nil || !tok.Valid {
        return nil, ErrInvalidCredential
    }
    if claims.Subject == "" || claims.Role == "" {
        return nil, ErrInvalidCredential
    }
    return claims, nil
}
