package provider

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

type fakeTokenStore struct {
	entries map[string]string
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{entries: make(map[string]string)}
}

func (f *fakeTokenStore) GetCacheEntry(key string) (string, error) {
	v, ok := f.entries[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (f *fakeTokenStore) SetCacheEntry(key, value string) error {
	f.entries[key] = value
	return nil
}

func TestCheckToken(t *testing.T) {
	tests := []struct {
		name    string
		tok     *oauth2.Token
		wantErr bool
	}{
		{"nil", nil, true},
		{"empty access token", &oauth2.Token{}, true},
		{"valid without expiry", &oauth2.Token{AccessToken: "abc"}, false},
		{"unexpired", &oauth2.Token{AccessToken: "abc", Expiry: time.Now().Add(time.Hour)}, false},
		{"expired without refresh token", &oauth2.Token{AccessToken: "abc", Expiry: time.Now().Add(-time.Hour)}, true},
		{"expired but refreshable", &oauth2.Token{AccessToken: "abc", RefreshToken: "r", Expiry: time.Now().Add(-time.Hour)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckToken(tt.tok)
			if tt.wantErr && !errors.Is(err, ErrUnauthenticated) {
				t.Errorf("err = %v, want ErrUnauthenticated", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("err = %v, want nil", err)
			}
		})
	}
}

func TestSaveAndLoadToken(t *testing.T) {
	store := newFakeTokenStore()

	want := &oauth2.Token{
		AccessToken:  "abc",
		RefreshToken: "r",
		Expiry:       time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	if err := SaveToken(store, want); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	got, err := LoadToken(store)
	if err != nil {
		t.Fatalf("LoadToken: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if !got.Expiry.Equal(want.Expiry) {
		t.Errorf("expiry = %v, want %v", got.Expiry, want.Expiry)
	}
}

func TestLoadTokenMissing(t *testing.T) {
	if _, err := LoadToken(newFakeTokenStore()); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestLoadTokenCorruptEntry(t *testing.T) {
	store := newFakeTokenStore()
	store.entries[TokenCacheKey] = "{not json"

	if _, err := LoadToken(store); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestLoadTokenExpired(t *testing.T) {
	store := newFakeTokenStore()
	expired := &oauth2.Token{AccessToken: "abc", Expiry: time.Now().Add(-time.Hour)}
	if err := SaveToken(store, expired); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	if _, err := LoadToken(store); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}
