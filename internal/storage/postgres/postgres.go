package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ats_service/internal/config"
	"ats_service/internal/models"
	"ats_service/internal/storage"
	"ats_service/internal/storage/postgres/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const pgUniqueViolation = "23505"

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	if err := runMigrations(ctx, dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// runMigrations applies the registry migration through goose, which wants
// a database/sql handle rather than a pgx pool.
func runMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

func (r *PostgresRepo) SaveUser(
	ctx context.Context,
	username, company, workEmail string,
	passHash []byte,
	emailAppKey string,
) (models.User, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (username, password, company, work_email, email_app_key)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id;
	`

	u := models.User{
		Username:    username,
		PassHash:    passHash,
		Company:     company,
		WorkEmail:   workEmail,
		EmailAppKey: emailAppKey,
	}

	err := r.pool.QueryRow(ctx, query, username, string(passHash), company, workEmail, emailAppKey).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return models.User{}, storage.ErrUserExists
		}

		return models.User{}, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) User(ctx context.Context, username string) (models.User, error) {
	query := `
		SELECT id, username, password, company, work_email, COALESCE(email_app_key, '')
		FROM users
		WHERE username = $1;
	`

	row := r.pool.QueryRow(ctx, query, username)

	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PassHash,
		&u.Company,
		&u.WorkEmail,
		&u.EmailAppKey,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	return u, nil
}

func (r *PostgresRepo) CompanyByUsername(ctx context.Context, username string) (string, error) {
	query := `SELECT company FROM users WHERE username = $1;`

	var company string

	err := r.pool.QueryRow(ctx, query, username).Scan(&company)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", storage.ErrUserNotFound
	}

	return company, err
}

func (r *PostgresRepo) DeleteUser(ctx context.Context, username string) (models.User, error) {
	const op = "storage.postgres.DeleteUser"

	query := `
		DELETE FROM users
		WHERE username = $1
		RETURNING id, username, password, company, work_email, COALESCE(email_app_key, '');
	`

	row := r.pool.QueryRow(ctx, query, username)

	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PassHash,
		&u.Company,
		&u.WorkEmail,
		&u.EmailAppKey,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: failed to delete user: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) HasUsers(ctx context.Context) (bool, error) {
	const op = "storage.postgres.HasUsers"

	var exists bool

	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users);`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
