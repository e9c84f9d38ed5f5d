package deleteaccount

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mwauth "ats_service/internal/http_server/middleware/auth"
	"ats_service/internal/listener"
	"ats_service/internal/models"
	"ats_service/internal/session"
	"ats_service/internal/storage"
	"ats_service/internal/tenants"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	users     map[string]models.User
	destroyed []string
}

func (f *fakeDirectory) SaveUser(_ context.Context, username, company, workEmail string, _ []byte, _ string) (models.User, error) {
	u := models.User{Username: username, Company: company, WorkEmail: workEmail}
	f.users[username] = u
	return u, nil
}

func (f *fakeDirectory) DeleteUser(_ context.Context, username string) (models.User, error) {
	u, ok := f.users[username]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	delete(f.users, username)
	return u, nil
}

func (f *fakeDirectory) User(_ context.Context, username string) (models.User, error) {
	u, ok := f.users[username]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeDirectory) DestroyTenantStorage(_ context.Context, company string) error {
	f.destroyed = append(f.destroyed, company)
	return nil
}

type noopVerifier struct{}

func (noopVerifier) Check(context.Context, string, string) error { return nil }

type noopListener struct{}

func (noopListener) Start(context.Context) (listener.Reply, error) { return listener.Reply{}, nil }

func setup(t *testing.T) (http.Handler, *session.Manager, *fakeDirectory) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := &fakeDirectory{users: map[string]models.User{
		"alice": {Username: "alice", Company: "AcmeA"},
		"bob":   {Username: "bob", Company: "AcmeB"},
	}}

	tenantService := tenants.New(log, dir, dir, dir, noopVerifier{}, noopListener{}, nil)
	sessions := session.NewManager("test-secret", time.Hour, nil)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(mwauth.New(log, sessions))
		r.Delete("/deleteAccount", New(log, validator.New(), tenantService))
	})

	return r, sessions, dir
}

func deleteAs(t *testing.T, h http.Handler, sessions *session.Manager, as, target string) *httptest.ResponseRecorder {
	t.Helper()

	tok, err := sessions.Issue(as)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/deleteAccount",
		strings.NewReader(`{"username": "`+target+`"}`))
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: tok})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestDeleteAccount_OwnAccount(t *testing.T) {
	t.Parallel()

	h, sessions, dir := setup(t)

	rec := deleteAs(t, h, sessions, "alice", "alice")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, dir.users, "alice")
	assert.Equal(t, []string{"AcmeA"}, dir.destroyed)
}

func TestDeleteAccount_ForeignAccountForbidden(t *testing.T) {
	t.Parallel()

	h, sessions, dir := setup(t)

	rec := deleteAs(t, h, sessions, "alice", "bob")

	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	assert.Contains(t, dir.users, "bob")
	assert.Empty(t, dir.destroyed)
}

func TestDeleteAccount_AlreadyGone(t *testing.T) {
	t.Parallel()

	h, sessions, dir := setup(t)

	require.Equal(t, http.StatusOK, deleteAs(t, h, sessions, "bob", "bob").Code)

	rec := deleteAs(t, h, sessions, "bob", "bob")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, []string{"AcmeB"}, dir.destroyed)
}

func TestDeleteAccount_NoSession(t *testing.T) {
	t.Parallel()

	h, _, _ := setup(t)

	req := httptest.NewRequest(http.MethodDelete, "/deleteAccount",
		strings.NewReader(`{"username": "alice"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
