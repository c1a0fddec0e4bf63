package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-saas-starter/internal/auth"
	"github.com/redmonkez12/go-saas-starter/internal/flow"
	"github.com/redmonkez12/go-saas-starter/internal/httputil"
	"github.com/redmonkez12/go-saas-starter/internal/user"
	"github.com/redmonkez12/go-saas-starter/internal/verifyemail"
)

type harness struct {
	srv     *httptest.Server
	session sessionFile
	out     *bytes.Buffer
}

func newHarness(t *testing.T, mux *http.ServeMux) *harness {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &harness{
		srv:     srv,
		session: sessionFile{path: filepath.Join(t.TempDir(), "session")},
		out:     &bytes.Buffer{},
	}
}

func (h *harness) run(args ...string) error {
	cmd := newRootCmd(h.out)
	cmd.SetArgs(append([]string{"--base-url", h.srv.URL, "--session-file", h.session.path}, args...))
	cmd.SetOut(h.out)
	cmd.SetErr(h.out)
	return cmd.ExecuteContext(context.Background())
}

func TestSignIn_SavesSessionAndNavigates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/sign-in/email", func(w http.ResponseWriter, r *http.Request) {
		var req auth.SignInRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		http.SetCookie(w, &http.Cookie{Name: auth.SessionCookieName, Value: "sealed", Path: "/"})
		httputil.RespondJSON(w, auth.UserResponse{User: &user.User{ID: uuid.New(), Email: req.Email, EmailVerified: true}}, http.StatusOK)
	})
	h := newHarness(t, mux)

	require.NoError(t, h.run("--locale", "fr", "sign-in", "--email", "a@b.com", "--password", "password123"))

	assert.Contains(t, h.out.String(), h.srv.URL+"/fr/dashboard")
	token, err := h.session.Load()
	require.NoError(t, err)
	assert.Equal(t, "sealed", token)
}

func TestSignIn_ValidationFailsWithoutRequest(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/sign-in/email", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	h := newHarness(t, mux)

	err := h.run("sign-in", "--email", "not-an-email", "--password", "password123")
	assert.Error(t, err)
	assert.False(t, called)
	assert.Contains(t, h.out.String(), flow.MsgInvalidEmail)
}

func TestSignIn_RemoteErrorMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/sign-in/email", func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondErrorWithCode(w, "Invalid email or password", "INVALID_EMAIL_OR_PASSWORD", http.StatusUnauthorized)
	})
	h := newHarness(t, mux)

	err := h.run("sign-in", "--email", "a@b.com", "--password", "password123")
	assert.Error(t, err)
	assert.Contains(t, h.out.String(), "Invalid email or password")
}

func TestSignUp_ReportsEmailSent(t *testing.T) {
	var got auth.SignUpRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/sign-up/email", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		httputil.RespondJSON(w, auth.UserResponse{User: &user.User{ID: uuid.New(), Email: got.Email}}, http.StatusOK)
	})
	h := newHarness(t, mux)

	require.NoError(t, h.run("sign-up", "--name", "Ada", "--email", "ada@b.com", "--password", "password123"))
	assert.Equal(t, "/dashboard", got.CallbackURL)
	assert.Contains(t, h.out.String(), "ada@b.com")
}

func TestResetPassword_RequestAndConfirm(t *testing.T) {
	var forget auth.ForgetPasswordRequest
	var reset auth.ResetPasswordRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/forget-password", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&forget))
		httputil.RespondJSON(w, auth.StatusResponse{Status: true}, http.StatusOK)
	})
	mux.HandleFunc("POST /api/auth/reset-password", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reset))
		httputil.RespondJSON(w, auth.StatusResponse{Status: true}, http.StatusOK)
	})
	h := newHarness(t, mux)
	require.NoError(t, h.session.Save("stale"))

	require.NoError(t, h.run("--locale", "fr", "reset-password", "--email", "a@b.com"))
	assert.Equal(t, h.srv.URL+"/fr/reset-password/confirm", forget.RedirectTo)

	require.NoError(t, h.run("reset-password", "confirm", "--token", "tok", "--password", "newpassword1"))
	assert.Equal(t, "tok", reset.Token)
	assert.Equal(t, "newpassword1", reset.NewPassword)

	token, err := h.session.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestVerifyEmail_MissingToken(t *testing.T) {
	h := newHarness(t, http.NewServeMux())

	err := h.run("verify-email")
	assert.Error(t, err)
	assert.Contains(t, h.out.String(), verifyemail.MsgTokenMissing)
}

func TestSignOut_ClearsSavedSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/sign-out", func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie(auth.SessionCookieName)
		require.NoError(t, err)
		assert.Equal(t, "sealed", ck.Value)
		http.SetCookie(w, &http.Cookie{Name: auth.SessionCookieName, Path: "/", MaxAge: -1})
		httputil.RespondJSON(w, auth.StatusResponse{Status: true}, http.StatusOK)
	})
	h := newHarness(t, mux)
	require.NoError(t, h.session.Save("sealed"))

	require.NoError(t, h.run("sign-out"))

	token, err := h.session.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Contains(t, h.out.String(), h.srv.URL+"/\n")
}

func TestSession_NotSignedIn(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/get-session", func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondJSON(w, nil, http.StatusOK)
	})
	h := newHarness(t, mux)

	require.NoError(t, h.run("session"))
	assert.Contains(t, h.out.String(), "Not signed in.")
}

func TestRoot_RejectsUnknownLocale(t *testing.T) {
	h := newHarness(t, http.NewServeMux())
	assert.Error(t, h.run("--locale", "de", "session"))
}
