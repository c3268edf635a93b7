package beatport

import (
	"math"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// TokenExpiryBuffer treats a token about to lapse as already expired.
const TokenExpiryBuffer = 30 * time.Second

// Token is the OAuth token pair used as the bearer credential.
type Token struct {
	AccessToken  string
	ExpiresAt    float64 // epoch seconds
	RefreshToken string
}

// DecodeToken decodes a token endpoint response or a persisted token.
// It accepts either an absolute expires_at or a relative expires_in.
func DecodeToken(raw []byte) (*Token, error) {
	return decodeToken(raw, time.Now())
}

func decodeToken(raw []byte, now time.Time) (*Token, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &DecodeError{Entity: "token", Field: "access_token"}
	}
	data := gjson.ParseBytes(raw)

	access := data.Get("access_token")
	if !present(access) {
		return nil, &DecodeError{Entity: "token", Field: "access_token"}
	}
	refresh := data.Get("refresh_token")
	if !present(refresh) {
		return nil, &DecodeError{Entity: "token", Field: "refresh_token"}
	}

	var expiresAt float64
	if v := data.Get("expires_at"); present(v) {
		expiresAt = v.Float()
	} else if v := data.Get("expires_in"); present(v) {
		expiresAt = epochSeconds(now) + float64(v.Int())
	} else {
		return nil, &DecodeError{Entity: "token", Field: "expires_in"}
	}

	return &Token{
		AccessToken:  access.String(),
		ExpiresAt:    expiresAt,
		RefreshToken: refresh.String(),
	}, nil
}

// IsExpired reports whether the token lapses within TokenExpiryBuffer.
func (t *Token) IsExpired() bool {
	return t.expiredAt(time.Now())
}

func (t *Token) expiredAt(now time.Time) bool {
	return epochSeconds(now.Add(TokenExpiryBuffer)) >= t.ExpiresAt
}

// Encode returns the flat persistable form of the token.
func (t *Token) Encode() map[string]any {
	return map[string]any{
		"access_token":  t.AccessToken,
		"expires_at":    t.ExpiresAt,
		"refresh_token": t.RefreshToken,
	}
}

// OAuth2 converts the token for use with golang.org/x/oauth2.
func (t *Token) OAuth2() *oauth2.Token {
	sec, frac := math.Modf(t.ExpiresAt)
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: t.RefreshToken,
		Expiry:       time.Unix(int64(sec), int64(frac*float64(time.Second))),
	}
}

// tokenFromOAuth2 converts a code exchange result. oauth2 turns expires_in into
// Expiry; a server sending expires_at instead leaves it in the raw extras.
func tokenFromOAuth2(tok *oauth2.Token) (*Token, error) {
	if tok.AccessToken == "" {
		return nil, &DecodeError{Entity: "token", Field: "access_token"}
	}
	if tok.RefreshToken == "" {
		return nil, &DecodeError{Entity: "token", Field: "refresh_token"}
	}

	var expiresAt float64
	switch v := tok.Extra("expires_at").(type) {
	case float64:
		expiresAt = v
	default:
		if tok.Expiry.IsZero() {
			return nil, &DecodeError{Entity: "token", Field: "expires_in"}
		}
		expiresAt = epochSeconds(tok.Expiry)
	}

	return &Token{
		AccessToken:  tok.AccessToken,
		ExpiresAt:    expiresAt,
		RefreshToken: tok.RefreshToken,
	}, nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func present(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}
