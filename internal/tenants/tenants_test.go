package tenants

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"ats_service/internal/listener"
	"ats_service/internal/models"
	"ats_service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeRegistry struct {
	users       map[string]models.User
	saveErr     error
	deleteErr   error
	deleteOrder []string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{users: make(map[string]models.User)}
}

func (f *fakeRegistry) SaveUser(_ context.Context, username, company, workEmail string, passHash []byte, emailAppKey string) (models.User, error) {
	if f.saveErr != nil {
		return models.User{}, f.saveErr
	}
	if _, ok := f.users[username]; ok {
		return models.User{}, storage.ErrUserExists
	}

	u := models.User{
		ID:          int64(len(f.users) + 1),
		Username:    username,
		PassHash:    passHash,
		Company:     company,
		WorkEmail:   workEmail,
		EmailAppKey: emailAppKey,
	}
	f.users[username] = u

	return u, nil
}

func (f *fakeRegistry) DeleteUser(_ context.Context, username string) (models.User, error) {
	if f.deleteErr != nil {
		return models.User{}, f.deleteErr
	}

	u, ok := f.users[username]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	delete(f.users, username)
	f.deleteOrder = append(f.deleteOrder, "deregister")

	return u, nil
}

func (f *fakeRegistry) User(_ context.Context, username string) (models.User, error) {
	u, ok := f.users[username]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return u, nil
}

type fakeStore struct {
	registry  *fakeRegistry
	destroyed []string
	err       error
}

func (f *fakeStore) DestroyTenantStorage(_ context.Context, company string) error {
	if f.registry != nil {
		f.registry.deleteOrder = append(f.registry.deleteOrder, "teardown")
	}
	if f.err != nil {
		return f.err
	}
	f.destroyed = append(f.destroyed, company)
	return nil
}

type fakeVerifier struct {
	err   error
	calls int
}

func (f *fakeVerifier) Check(_ context.Context, _, _ string) error {
	f.calls++
	return f.err
}

type fakeListener struct {
	starts int
}

func (f *fakeListener) Start(_ context.Context) (listener.Reply, error) {
	f.starts++
	return listener.Reply{StatusCode: 200, Body: `{"message": "started"}`}, nil
}

type fakePublisher struct {
	events []models.TenantEvent
}

func (f *fakePublisher) Publish(_ context.Context, ev models.TenantEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type env struct {
	registry  *fakeRegistry
	store     *fakeStore
	verifier  *fakeVerifier
	listener  *fakeListener
	publisher *fakePublisher
	svc       *Tenants
}

func newEnv() *env {
	registry := newFakeRegistry()
	store := &fakeStore{registry: registry}
	verifier := &fakeVerifier{}
	listener := &fakeListener{}
	publisher := &fakePublisher{}

	svc := New(discardLogger(), registry, registry, store, verifier, listener, publisher)

	return &env{
		registry:  registry,
		store:     store,
		verifier:  verifier,
		listener:  listener,
		publisher: publisher,
		svc:       svc,
	}
}

func TestRegister_WithoutMailboxKeySkipsVerifier(t *testing.T) {
	t.Parallel()

	e := newEnv()

	user, err := e.svc.Register(context.Background(), "admin", "pass", "Acme", "hr@acme.test", "")
	require.NoError(t, err)

	assert.Equal(t, "Acme", user.Company)
	assert.False(t, user.MailboxEnabled())
	assert.Zero(t, e.verifier.calls, "verifier must not run for empty app key")
	assert.Zero(t, e.listener.starts, "listener must not start without a verified mailbox")
	assert.Empty(t, e.publisher.events)
}

func TestRegister_WithMailboxKeyRunsGate(t *testing.T) {
	t.Parallel()

	e := newEnv()

	user, err := e.svc.Register(context.Background(), "admin", "pass", "Acme", "hr@acme.test", "app-key")
	require.NoError(t, err)

	assert.True(t, user.MailboxEnabled())
	assert.Equal(t, 1, e.verifier.calls)
	assert.Equal(t, 1, e.listener.starts)
	require.Len(t, e.publisher.events, 1)
	assert.Equal(t, models.EventTenantRegistered, e.publisher.events[0].Event)
}

func TestRegister_FailedHandshakeLeavesNoRecord(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.verifier.err = errors.New("LOGIN failed")

	_, err := e.svc.Register(context.Background(), "admin", "pass", "Acme", "hr@acme.test", "bad-key")
	require.ErrorIs(t, err, ErrMailboxVerification)
	assert.Contains(t, err.Error(), "LOGIN failed", "verifier reason must propagate")

	_, err = e.registry.User(context.Background(), "admin")
	assert.ErrorIs(t, err, storage.ErrUserNotFound, "no record may exist after a failed handshake")
	assert.Zero(t, e.listener.starts)
}

func TestRegister_DuplicateIdentity(t *testing.T) {
	t.Parallel()

	e := newEnv()

	_, err := e.svc.Register(context.Background(), "admin", "pass", "Acme", "hr@acme.test", "")
	require.NoError(t, err)

	_, err = e.svc.Register(context.Background(), "admin", "other", "Other", "x@other.test", "")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegister_RejectsUnsafeCompanyName(t *testing.T) {
	t.Parallel()

	e := newEnv()

	_, err := e.svc.Register(context.Background(), "admin", "pass", `Acme";DROP TABLE users;--`, "hr@acme.test", "")
	assert.ErrorIs(t, err, ErrBadCompanyName)
	assert.Empty(t, e.registry.users)
}

func TestRegister_HashesPassword(t *testing.T) {
	t.Parallel()

	e := newEnv()

	user, err := e.svc.Register(context.Background(), "admin", "hunter2", "Acme", "hr@acme.test", "")
	require.NoError(t, err)

	assert.NotEqual(t, []byte("hunter2"), user.PassHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword(user.PassHash, []byte("hunter2")))
}

func TestLogin(t *testing.T) {
	t.Parallel()

	e := newEnv()

	_, err := e.svc.Register(context.Background(), "admin", "hunter2", "Acme", "hr@acme.test", "")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		user, err := e.svc.Login(context.Background(), "admin", "hunter2")
		require.NoError(t, err)
		assert.Equal(t, "Acme", user.Company)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := e.svc.Login(context.Background(), "admin", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := e.svc.Login(context.Background(), "ghost", "hunter2")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestDelete_CascadesInOrder(t *testing.T) {
	t.Parallel()

	e := newEnv()

	_, err := e.svc.Register(context.Background(), "admin", "pass", "Acme", "hr@acme.test", "")
	require.NoError(t, err)

	require.NoError(t, e.svc.Delete(context.Background(), "admin"))

	assert.Equal(t, []string{"deregister", "teardown"}, e.registry.deleteOrder,
		"registration removal must be ordered strictly before storage teardown")
	assert.Equal(t, []string{"Acme"}, e.store.destroyed)

	require.Len(t, e.publisher.events, 1)
	assert.Equal(t, models.EventTenantDeleted, e.publisher.events[0].Event)
}

func TestDelete_SecondAttemptNotFound(t *testing.T) {
	t.Parallel()

	e := newEnv()

	_, err := e.svc.Register(context.Background(), "admin", "pass", "Acme", "hr@acme.test", "")
	require.NoError(t, err)

	require.NoError(t, e.svc.Delete(context.Background(), "admin"))

	err = e.svc.Delete(context.Background(), "admin")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDelete_TeardownFailureSurfacesInconsistency(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.store.err = errors.New("connection lost")

	_, err := e.svc.Register(context.Background(), "admin", "pass", "Acme", "hr@acme.test", "")
	require.NoError(t, err)

	err = e.svc.Delete(context.Background(), "admin")
	require.ErrorIs(t, err, ErrStorageInconsistency)
	assert.Contains(t, err.Error(), "Acme", "the orphaned company must be identifiable")

	// Registration record is already gone: the inconsistency is real.
	_, err = e.registry.User(context.Background(), "admin")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}
