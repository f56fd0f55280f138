package utils // package utils provides helper functions for token creation and hashing

import (
    "errors"
    "time" // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// CredentialPair bundles the access and refresh tokens returned on every
// successful authentication.  Both are HS256-signed JWTs carrying the user
// id in the subject claim; neither is persisted server side.  The access
// token is short-lived and sent in the Authorization header; the refresh
// token lives longer and can be exchanged for a new access token.
type CredentialPair struct {
    Access     string    // serialized access JWT
    AccessExp  time.Time // UTC expiration of the access token
    Refresh    string    // serialized refresh JWT
    RefreshExp time.Time // UTC expiration of the refresh token
}

// ErrInvalidRefresh is returned when a presented refresh token fails
// signature, expiry or type checks.
var ErrInvalidRefresh = errors.New("invalid refresh token")

// NewCredentialPair builds and signs the access/refresh pair for a user.
// It takes the signing secret, the user ID, the access TTL in minutes and
// the refresh TTL in days.  Each JWT includes standard claims: subject
// (sub), expiration (exp) and issued at (iat); the refresh token is marked
// with typ=refresh so it can never pass as an access token.
func NewCredentialPair(secret string, userID uint64, accessTTLMin, refreshTTLDays int) (CredentialPair, error) {
    now := time.Now().UTC()
    accessExp := now.Add(time.Duration(accessTTLMin) * time.Minute)
    refreshExp := now.Add(time.Duration(refreshTTLDays) * 24 * time.Hour)

    access, err := signToken(secret, jwt.MapClaims{
        "sub": userID,
        "exp": accessExp.Unix(),
        "iat": now.Unix(),
    })
    if err != nil {
        return CredentialPair{}, err
    }
    refresh, err := signToken(secret, jwt.MapClaims{
        "sub": userID,
        "typ": "refresh",
        "exp": refreshExp.Unix(),
        "iat": now.Unix(),
    })
    if err != nil {
        return CredentialPair{}, err
    }
    return CredentialPair{
        Access:     access,
        AccessExp:  accessExp,
        Refresh:    refresh,
        RefreshExp: refreshExp,
    }, nil
}

// NewAccessToken signs a standalone access token.  Used when a refresh
// token is exchanged without rotating the pair.
func NewAccessToken(secret string, userID uint64, ttlMin int) (string, time.Time, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    tok, err := signToken(secret, jwt.MapClaims{
        "sub": userID,
        "exp": exp.Unix(),
        "iat": now.Unix(),
    })
    return tok, exp, err
}

// ParseRefresh validates a refresh token and returns the user id it was
// issued for.  Tokens signed with a different algorithm, expired tokens and
// access tokens presented as refresh tokens are all rejected.
func ParseRefresh(secret, raw string) (uint64, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidRefresh
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return 0, ErrInvalidRefresh
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return 0, ErrInvalidRefresh
    }
    if typ, _ := claims["typ"].(string); typ != "refresh" {
        return 0, ErrInvalidRefresh
    }
    sub, ok := claims["sub"].(float64)
    if !ok || sub <= 0 {
        return 0, ErrInvalidRefresh
    }
    return uint64(sub), nil
}

func signToken(secret string, claims jwt.MapClaims) (string, error) {
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return t.SignedString([]byte(secret))
}
