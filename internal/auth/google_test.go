package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/in-nis/classdash/internal/config"
)

func newGoogleProvider(t *testing.T, userinfoStatus int) *Google {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "google-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer google-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if userinfoStatus != http.StatusOK {
			w.WriteHeader(userinfoStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GoogleUser{
			ID:    "g-7",
			Email: "ana@school.edu",
			Name:  "Ana Maria Lee",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &Google{
		conf: &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost/auth/google/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:   srv.URL + "/auth",
				TokenURL:  srv.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: srv.URL + "/userinfo",
	}
}

func TestGoogleFetchUser(t *testing.T) {
	g := newGoogleProvider(t, http.StatusOK)

	gu, err := g.FetchUser(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "g-7", gu.ID)
	assert.Equal(t, "ana@school.edu", gu.Email)

	first, last := gu.names()
	assert.Equal(t, "Ana", first)
	assert.Equal(t, "Maria Lee", last)
}

func TestGoogleFetchUserFailures(t *testing.T) {
	t.Run("bad code", func(t *testing.T) {
		g := newGoogleProvider(t, http.StatusOK)
		_, err := g.FetchUser(context.Background(), "bad-code")
		assert.ErrorContains(t, err, "failed to exchange token")
	})

	t.Run("userinfo error", func(t *testing.T) {
		g := newGoogleProvider(t, http.StatusInternalServerError)
		_, err := g.FetchUser(context.Background(), "good-code")
		assert.ErrorContains(t, err, "bad status")
	})
}

func TestGoogleAuthCodeURL(t *testing.T) {
	g := NewGoogle(&config.Config{
		GoogleClientID:    "client-id",
		GoogleSecret:      "secret",
		GoogleRedirectURL: "http://localhost:8000/auth/google/callback",
	})
	require.True(t, g.Enabled())

	u, err := url.Parse(g.AuthCodeURL("state-123"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Contains(t, q.Get("scope"), "userinfo.email")

	assert.False(t, NewGoogle(&config.Config{}).Enabled())
}

func TestGoogleUserNames(t *testing.T) {
	tests := []struct {
		name      string
		gu        GoogleUser
		wantFirst string
		wantLast  string
	}{
		{"structured", GoogleUser{Name: "ignored name", GivenName: "Ana", FamilyName: "Lee"}, "Ana", "Lee"},
		{"single word", GoogleUser{Name: "Madonna"}, "Madonna", ""},
		{"split on first space", GoogleUser{Name: " Jean Luc Picard "}, "Jean", "Luc Picard"},
		{"empty", GoogleUser{}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := tt.gu.names()
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantLast, last)
		})
	}
}
