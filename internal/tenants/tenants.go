// Package tenants is the tenant directory: registration, login and the
// cascading account teardown. It gates mailbox credentials behind a live
// verification handshake and kicks the ingestion worker when a tenant
// with a verified mailbox appears.
package tenants

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sl "ats_service/internal/lib/logger"
	"ats_service/internal/listener"
	"ats_service/internal/models"
	"ats_service/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserExists          = errors.New("user already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrBadCompanyName      = errors.New("company name must contain only letters, digits and underscores")
	ErrMailboxVerification = errors.New("mailbox verification failed")

	// ErrStorageInconsistency means the registration record is gone but
	// tenant tables survived the teardown. Operator intervention (or a
	// DestroyTenantStorage re-run) is required.
	ErrStorageInconsistency = errors.New("tenant storage teardown failed after account removal")
)

type TenantSaver interface {
	SaveUser(ctx context.Context, username, company, workEmail string, passHash []byte, emailAppKey string) (models.User, error)
	DeleteUser(ctx context.Context, username string) (models.User, error)
}

type TenantProvider interface {
	User(ctx context.Context, username string) (models.User, error)
}

type StoreManager interface {
	DestroyTenantStorage(ctx context.Context, company string) error
}

type MailVerifier interface {
	Check(ctx context.Context, address, appKey string) error
}

type ListenerStarter interface {
	Start(ctx context.Context) (listener.Reply, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev models.TenantEvent) error
}

type Tenants struct {
	log      *slog.Logger
	saver    TenantSaver
	provider TenantProvider
	store    StoreManager
	verifier MailVerifier
	listener ListenerStarter
	events   EventPublisher
}

// New wires the tenant directory. events may be nil when no broker is
// configured.
func New(
	log *slog.Logger,
	saver TenantSaver,
	provider TenantProvider,
	store StoreManager,
	verifier MailVerifier,
	listener ListenerStarter,
	events EventPublisher,
) *Tenants {
	return &Tenants{
		log:      log,
		saver:    saver,
		provider: provider,
		store:    store,
		verifier: verifier,
		listener: listener,
		events:   events,
	}
}

// Register creates a tenant registration. A non-empty emailAppKey must
// survive the live mailbox handshake before anything is persisted; an
// empty one skips the handshake and the tenant is created without
// ingestion enabled.
func (t *Tenants) Register(
	ctx context.Context,
	username, password, company, workEmail, emailAppKey string,
) (models.User, error) {
	const op = "tenants.Register"

	log := t.log.With(slog.String("op", op))

	if err := storage.ValidateCompanyName(company); err != nil {
		log.Warn("rejected company name", slog.String("company", company))
		return models.User{}, ErrBadCompanyName
	}

	if emailAppKey != "" {
		if err := t.verifier.Check(ctx, workEmail, emailAppKey); err != nil {
			log.Warn("mailbox verification failed", sl.Err(err))
			return models.User{}, fmt.Errorf("%w: %w", ErrMailboxVerification, err)
		}
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := t.saver.SaveUser(ctx, username, company, workEmail, passHash, emailAppKey)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists", slog.String("username", username))
			return models.User{}, ErrUserExists
		}

		log.Error("failed to save user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("tenant registered",
		slog.String("username", username),
		slog.String("company", company),
		slog.Bool("mailbox", user.MailboxEnabled()),
	)

	if user.MailboxEnabled() {
		t.kickListener(ctx, log)
		t.publish(ctx, log, models.TenantEvent{
			Event:     models.EventTenantRegistered,
			Company:   company,
			WorkEmail: workEmail,
		})
	}

	return user, nil
}

// Login verifies credentials against the stored hash. An unknown
// identity and a wrong password are indistinguishable to the caller.
func (t *Tenants) Login(ctx context.Context, username, password string) (models.User, error) {
	const op = "tenants.Login"

	log := t.log.With(slog.String("op", op))

	user, err := t.provider.User(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return models.User{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", slog.String("username", username))
		return models.User{}, ErrInvalidCredentials
	}

	log.Info("user logged in", slog.String("username", username))

	return user, nil
}

// Delete removes the registration record and then tears down the
// tenant's tables, strictly in that order. A teardown failure after the
// record is gone leaves orphaned tables; that state is surfaced as
// ErrStorageInconsistency and logged loudly, never swallowed.
// DestroyTenantStorage is idempotent, so re-running it is the repair.
func (t *Tenants) Delete(ctx context.Context, username string) error {
	const op = "tenants.Delete"

	log := t.log.With(slog.String("op", op))

	user, err := t.saver.DeleteUser(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return ErrUserNotFound
		}

		log.Error("failed to delete user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := t.store.DestroyTenantStorage(ctx, user.Company); err != nil {
		log.Error("ORPHANED TENANT STORAGE: account removed but teardown failed",
			slog.String("username", username),
			slog.String("company", user.Company),
			sl.Err(err),
		)
		return fmt.Errorf("%w: company %s: %w", ErrStorageInconsistency, user.Company, err)
	}

	log.Info("account and tenant storage deleted",
		slog.String("username", username),
		slog.String("company", user.Company),
	)

	t.publish(ctx, log, models.TenantEvent{
		Event:     models.EventTenantDeleted,
		Company:   user.Company,
		WorkEmail: user.WorkEmail,
	})

	return nil
}

func (t *Tenants) kickListener(ctx context.Context, log *slog.Logger) {
	if _, err := t.listener.Start(ctx); err != nil {
		// The worker can be started later via the control routes.
		log.Warn("failed to start email listener", sl.Err(err))
	}
}

func (t *Tenants) publish(ctx context.Context, log *slog.Logger, ev models.TenantEvent) {
	if t.events == nil {
		return
	}

	if err := t.events.Publish(ctx, ev); err != nil {
		log.Warn("failed to publish tenant event", slog.String("event", ev.Event), sl.Err(err))
	}
}
