// Package identity derives the per-user storage partition key from the
// auth token held in the key-value store.
//
// The token is decoded without signature verification. The identifier it
// yields is untrusted and must only ever be used to partition local data,
// never to make authorization decisions.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goodtune/studytime/internal/storage"
	"github.com/rs/zerolog"
)

const (
	// DefaultTokenKey is the store key the auth token is kept under.
	DefaultTokenKey = "userToken"

	// SharedKey is used when no user identifier can be decoded. Every
	// unidentified user on the device shares it.
	SharedKey = "studyTimeData"

	keyPrefix = SharedKey + "_"
)

// userClaims lists the claims that may carry the user identifier, in priority order.
var userClaims = []string{"userId", "id", "_id", "sub"}

// Resolver derives storage keys from the stored auth token.
type Resolver struct {
	kv       storage.KV
	tokenKey string
	parser   *jwt.Parser
	logger   zerolog.Logger
}

// NewResolver creates a Resolver reading the token stored under tokenKey.
func NewResolver(kv storage.KV, tokenKey string, logger zerolog.Logger) *Resolver {
	if tokenKey == "" {
		tokenKey = DefaultTokenKey
	}
	return &Resolver{
		kv:       kv,
		tokenKey: tokenKey,
		parser:   jwt.NewParser(jwt.WithJSONNumber()),
		logger:   logger.With().Str("component", "identity").Logger(),
	}
}

// StorageKey returns "studyTimeData_<userId>" for the current token, or
// SharedKey when there is no token or it cannot be decoded.
func (r *Resolver) StorageKey(ctx context.Context) string {
	token, err := r.kv.Get(ctx, r.tokenKey)
	if err != nil {
		if !storage.IsNotFound(err) {
			r.logger.Warn().Err(err).Msg("Failed to read auth token, using shared key")
		}
		return SharedKey
	}

	userID, err := UserID(r.parser, token)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to decode auth token, using shared key")
		return SharedKey
	}

	return keyPrefix + userID
}

// SetToken stores the auth token.
func (r *Resolver) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("empty token")
	}
	if err := r.kv.Set(ctx, r.tokenKey, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// ClearToken removes the auth token. A missing token is not an error.
func (r *Resolver) ClearToken(ctx context.Context) error {
	if err := r.kv.Delete(ctx, r.tokenKey); err != nil && !storage.IsNotFound(err) {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// UserID extracts the user identifier from an unverified JWT. Numeric
// claims keep their literal digits when parser uses jwt.WithJSONNumber.
func UserID(parser *jwt.Parser, token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(strings.TrimSpace(token), claims); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	for _, name := range userClaims {
		switch v := claims[name].(type) {
		case string:
			if v != "" {
				return v, nil
			}
		case json.Number:
			if v != "" {
				return v.String(), nil
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
	}

	return "", fmt.Errorf("token has no user identifier claim")
}
