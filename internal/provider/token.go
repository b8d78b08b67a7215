package provider

import (
	"encoding/json"
	"time"

	"golang.org/x/oauth2"
)

// TokenStore abstracts where the serialized token bundle lives. The storage
// layer implements it as an opaque cache entry; the provider never defines
// the storage medium.
type TokenStore interface {
	GetCacheEntry(key string) (string, error)
	SetCacheEntry(key, value string) error
}

// TokenCacheKey is the cache entry holding the serialized oauth2 token.
const TokenCacheKey = "oauth_token"

// CheckToken validates that a token is present and not expired. Expired or
// absent tokens fail fast with ErrUnauthenticated; there is no silent
// refresh here.
func CheckToken(tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return ErrUnauthenticated
	}
	if !tok.Expiry.IsZero() && tok.Expiry.Before(time.Now()) && tok.RefreshToken == "" {
		return ErrUnauthenticated
	}
	return nil
}

// LoadToken reads the token bundle from the store. A missing or unreadable
// entry surfaces as ErrUnauthenticated.
func LoadToken(store TokenStore) (*oauth2.Token, error) {
	raw, err := store.GetCacheEntry(TokenCacheKey)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, ErrUnauthenticated
	}
	if err := CheckToken(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// SaveToken persists the token bundle to the store.
func SaveToken(store TokenStore, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return store.SetCacheEntry(TokenCacheKey, string(data))
}
