package authprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeAPIError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{"code": 400, "message": message},
	})
}

func TestIdentityToolkitSignIn(t *testing.T) {
	var gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/accounts:signInWithPassword", r.URL.Path)
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(w, http.StatusOK, map[string]any{
			"localId":     "uid-1",
			"email":       "agente@example.com",
			"displayName": "Agente",
			"idToken":     "tok",
		})
	}))
	defer srv.Close()

	p := NewIdentityToolkit(srv.URL, "api-key")
	u, err := p.SignIn(context.Background(), "agente@example.com", "segredo1")
	require.NoError(t, err)

	assert.Equal(t, "api-key", gotKey)
	assert.Equal(t, "agente@example.com", gotBody["email"])
	assert.Equal(t, true, gotBody["returnSecureToken"])
	assert.Equal(t, User{UID: "uid-1", Email: "agente@example.com", DisplayName: "Agente", IDToken: "tok"}, u)

	current, ok := p.CurrentUser()
	assert.True(t, ok)
	assert.Equal(t, "uid-1", current.UID)
}

func TestIdentityToolkitErrorMapping(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"EMAIL_NOT_FOUND", CodeUserNotFound},
		{"INVALID_PASSWORD", CodeWrongPassword},
		{"USER_DISABLED", CodeUserDisabled},
		{"EMAIL_EXISTS", CodeEmailAlreadyInUse},
		{"WEAK_PASSWORD : Password should be at least 6 characters", CodeWeakPassword},
		{"INVALID_EMAIL", CodeInvalidEmail},
		{"TOO_MANY_ATTEMPTS_TRY_LATER : Access blocked", CodeTooManyRequests},
		{"INVALID_LOGIN_CREDENTIALS", CodeInvalidCredential},
		{"SOMETHING_NEW", CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeAPIError(w, tt.message)
			}))
			defer srv.Close()

			_, err := NewIdentityToolkit(srv.URL, "k").SignIn(context.Background(), "a@b.co", "x")
			require.Error(t, err)
			assert.Equal(t, tt.want, CodeOf(err))
		})
	}
}

func TestIdentityToolkitNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewIdentityToolkit(url, "k").CreateAccount(context.Background(), "a@b.co", "segredo1")
	assert.Equal(t, CodeNetworkRequestFailed, CodeOf(err))
}

func TestIdentityToolkitUpdateDisplayNameUsesAccountToken(t *testing.T) {
	var updates []map[string]any
	signUps := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts:signUp":
			signUps++
			writeJSON(w, http.StatusOK, map[string]any{
				"localId": fmt.Sprintf("uid-%d", signUps),
				"email":   "a@b.co",
				"idToken": fmt.Sprintf("token-%d", signUps),
			})
		case "/accounts:update":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			updates = append(updates, body)
			writeJSON(w, http.StatusOK, map[string]any{})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewIdentityToolkit(srv.URL, "k")
	ctx := context.Background()

	err := p.UpdateDisplayName(ctx, User{UID: "uid-0"}, "Maria")
	assert.Equal(t, CodeInvalidCredential, CodeOf(err), "no token to authorize with")

	// A second registration lands before the first one renames its account.
	first, err := p.CreateAccount(ctx, "a@b.co", "segredo1")
	require.NoError(t, err)
	second, err := p.CreateAccount(ctx, "c@d.co", "segredo1")
	require.NoError(t, err)

	require.NoError(t, p.UpdateDisplayName(ctx, first, "Maria"))
	require.NoError(t, p.UpdateDisplayName(ctx, second, "Joana"))

	require.Len(t, updates, 2)
	assert.Equal(t, "token-1", updates[0]["idToken"])
	assert.Equal(t, "Maria", updates[0]["displayName"])
	assert.Equal(t, "token-2", updates[1]["idToken"])
	current, _ := p.CurrentUser()
	assert.Equal(t, "Joana", current.DisplayName)
}

func TestIdentityToolkitSignOutRevokesToken(t *testing.T) {
	lookups := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lookups++
		writeJSON(w, http.StatusOK, map[string]any{"users": []map[string]any{{"localId": "uid-1"}}})
	}))
	defer srv.Close()

	p := NewIdentityToolkit(srv.URL, "k")
	ctx := context.Background()

	require.NoError(t, p.SignOut(ctx, "signed-out"))

	_, err := p.VerifyIDToken(ctx, "signed-out")
	assert.Equal(t, CodeInvalidCredential, CodeOf(err))
	assert.Zero(t, lookups, "revoked tokens are rejected without a lookup")

	_, err = p.VerifyIDToken(ctx, "still-valid")
	require.NoError(t, err)
	assert.Equal(t, 1, lookups)
}

func TestIdentityToolkitVerifyIDToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body lookupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body.IDToken {
		case "good":
			writeJSON(w, http.StatusOK, map[string]any{"users": []map[string]any{{"localId": "uid-1", "email": "a@b.co"}}})
		case "disabled":
			writeJSON(w, http.StatusOK, map[string]any{"users": []map[string]any{{"localId": "uid-2", "disabled": true}}})
		default:
			writeAPIError(w, "INVALID_ID_TOKEN")
		}
	}))
	defer srv.Close()

	p := NewIdentityToolkit(srv.URL, "k")
	ctx := context.Background()

	u, err := p.VerifyIDToken(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", u.UID)

	_, err = p.VerifyIDToken(ctx, "disabled")
	assert.Equal(t, CodeUserDisabled, CodeOf(err))

	_, err = p.VerifyIDToken(ctx, "bad")
	assert.Equal(t, CodeInvalidCredential, CodeOf(err))
}
