package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLocalVerifier_RoundTrip(t *testing.T) {
	token, _, err := SignAccessToken(42, "alice", time.Minute)
	if err != nil {
		t.Fatalf("SignAccessToken() error = %v", err)
	}

	id, err := NewLocalVerifier().Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.UserID != 42 || id.Username != "alice" {
		t.Fatalf("Verify() = %+v, want user 42 alice", id)
	}
}

func TestLocalVerifier_Garbage(t *testing.T) {
	_, err := NewLocalVerifier().Verify(context.Background(), "not-a-token")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Verify() error = %v, want ErrUnauthenticated", err)
	}
}

func TestLocalVerifier_Expired(t *testing.T) {
	token, _, err := SignAccessToken(42, "alice", -time.Minute)
	if err != nil {
		t.Fatalf("SignAccessToken() error = %v", err)
	}
	_, err = NewLocalVerifier().Verify(context.Background(), token)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Verify() error = %v, want ErrUnauthenticated", err)
	}
}

func TestRemoteVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auth/verify" {
			t.Errorf("path = %s, want /v1/auth/verify", r.URL.Path)
		}
		if r.Header.Get("Authorization") == "Bearer good" {
			_ = json.NewEncoder(w).Encode(map[string]any{"userId": 7, "username": "bob", "type": "access"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := NewRemoteVerifier(srv.URL)
	id, err := v.Verify(context.Background(), "good")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.UserID != 7 || id.Username != "bob" {
		t.Fatalf("Verify() = %+v, want user 7 bob", id)
	}

	if _, err := v.Verify(context.Background(), "bad"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Verify() error = %v, want ErrUnauthenticated", err)
	}
}
