package delegate_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/doorward/doorward/delegate"
	"github.com/doorward/doorward/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeIdentity mimics the subset of the external identity service the
// client talks to.
func fakeIdentity(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") == "" || r.Header.Get("X-Request-Id") == "" {
			t.Error("missing apikey or correlation id")
		}
		var body struct {
			Email, Password, Name string
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Email == "taken@example.com" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"msg": "User already registered"})
			return
		}
		json.NewEncoder(w).Encode(delegate.Session{
			AccessToken:  "token-" + body.Email,
			RefreshToken: "refresh-" + body.Email,
			ExpiresIn:    3600,
			User:         delegate.ExternalUser{ID: uuid.NewString(), Email: body.Email, Name: body.Name},
		})
	})
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("grant_type") {
		case "password":
			var body struct{ Email, Password string }
			json.NewDecoder(r.Body).Decode(&body)
			if body.Password != "letmein" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
			json.NewEncoder(w).Encode(delegate.Session{
				AccessToken: "token-1", RefreshToken: "refresh-1", ExpiresIn: 3600,
				User: delegate.ExternalUser{ID: uuid.NewString(), Email: body.Email},
			})
		case "refresh_token":
			json.NewEncoder(w).Encode(delegate.Session{
				AccessToken: "token-2", RefreshToken: "refresh-2", ExpiresIn: 3600,
				User: delegate.ExternalUser{ID: uuid.NewString(), Email: "ana@example.com"},
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer limited" {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"msg": "invalid token"})
			return
		}
		json.NewEncoder(w).Encode(delegate.ExternalUser{ID: uuid.NewString(), Email: "ana@example.com", Name: "Ana"})
	})
	return httptest.NewServer(mux)
}

func TestSignUpMirrorsProfile(t *testing.T) {
	ctx := context.Background()
	server := fakeIdentity(t)
	defer server.Close()
	profiles, cleanup := testutil.AcquireProfileStore(ctx, t, "profiles")
	defer cleanup()

	svc := delegate.NewService(delegate.NewClient(server.URL, "anon-key"), profiles)
	sess, err := svc.SignUp(ctx, "ana@example.com", "letmein", "Ana")
	require.NoError(t, err)
	require.NotEmpty(t, sess.AccessToken)

	mirrored, err := profiles.Get(ctx, sess.User.ID)
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", mirrored.Email)
	require.Equal(t, "Ana", mirrored.Name)
}

func TestSignUpRejected(t *testing.T) {
	ctx := context.Background()
	server := fakeIdentity(t)
	defer server.Close()
	profiles, cleanup := testutil.AcquireProfileStore(ctx, t, "profiles")
	defer cleanup()

	svc := delegate.NewService(delegate.NewClient(server.URL, "anon-key"), profiles)
	_, err := svc.SignUp(ctx, "taken@example.com", "letmein", "Ana")
	var rejected delegate.Rejected
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, http.StatusUnprocessableEntity, rejected.Status)
	require.Equal(t, "User already registered", rejected.Reason)
}

func TestSignUpMirrorFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	server := fakeIdentity(t)
	defer server.Close()
	profiles, cleanup := testutil.AcquireProfileStore(ctx, t, "profiles")
	// closing the store makes every mirror write fail
	cleanup()

	svc := delegate.NewService(delegate.NewClient(server.URL, "anon-key"), profiles)
	_, err := svc.SignUp(ctx, "ana@example.com", "letmein", "Ana")
	require.Error(t, err)
	require.Contains(t, err.Error(), "mirror failed")
}

func TestSignInAndCurrentUser(t *testing.T) {
	ctx := context.Background()
	server := fakeIdentity(t)
	defer server.Close()
	profiles, cleanup := testutil.AcquireProfileStore(ctx, t, "profiles")
	defer cleanup()

	svc := delegate.NewService(delegate.NewClient(server.URL, "anon-key"), profiles)
	sess, err := svc.SignIn(ctx, "ana@example.com", "letmein")
	require.NoError(t, err)

	user, err := svc.CurrentUser(ctx, sess.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", user.Email)

	_, err = svc.SignIn(ctx, "ana@example.com", "wrong")
	var rejected delegate.Rejected
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, "invalid_grant", rejected.Reason)

	require.NoError(t, svc.SignOut(ctx, sess.AccessToken))
}

func TestRateLimited(t *testing.T) {
	ctx := context.Background()
	server := fakeIdentity(t)
	defer server.Close()

	client := delegate.NewClient(server.URL, "anon-key")
	_, err := client.CurrentUser(ctx, "limited")
	var limited delegate.RateLimited
	require.ErrorAs(t, err, &limited)
	require.Equal(t, 30*time.Second, limited.RetryAfter)
}

func TestSessionEventsFollowTheFlow(t *testing.T) {
	ctx := context.Background()
	server := fakeIdentity(t)
	defer server.Close()
	profiles, cleanup := testutil.AcquireProfileStore(ctx, t, "profiles")
	defer cleanup()

	svc := delegate.NewService(delegate.NewClient(server.URL, "anon-key"), profiles)
	events, cancel := svc.Events().Subscribe()
	defer cancel()

	sess, err := svc.SignUp(ctx, "ana@example.com", "letmein", "Ana")
	require.NoError(t, err)
	refreshed, err := svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx, refreshed.AccessToken))

	want := []delegate.EventKind{delegate.SignedIn, delegate.TokenRefreshed, delegate.SignedOut}
	for _, kind := range want {
		select {
		case ev := <-events:
			require.Equal(t, kind, ev.Kind)
		case <-time.After(time.Second):
			t.Fatalf("never received event %v", kind)
		}
	}
}

func TestNetworkFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// nothing listens here
	client := delegate.NewClient("http://127.0.0.1:1", "anon-key")
	_, err := client.SignIn(ctx, "ana@example.com", "letmein")
	var network delegate.NetworkFailure
	if !errors.As(err, &network) {
		t.Fatalf("expected NetworkFailure, got %v", err)
	}
}
