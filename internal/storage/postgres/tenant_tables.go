package postgres

import (
	"context"
	"errors"
	"fmt"

	"ats_service/internal/models"
	"ats_service/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Per-tenant tables are named after the company: `<company>` holds job
// postings and `<company>_selected` holds candidates matched by the
// ingestion worker. The naming scheme is part of the contract with that
// worker. Company names pass the storage allow-list before any of the
// statements below are assembled, and identifiers are additionally
// quoted through pgx, never concatenated raw.

const selectedSuffix = "_selected"

func jobTableIdent(company string) string {
	return pgx.Identifier{company}.Sanitize()
}

func selectedTableIdent(company string) string {
	return pgx.Identifier{company + selectedSuffix}.Sanitize()
}

// tableExists probes pg catalog instead of provoking an undefined-table
// error, so "collection absent" stays distinguishable from real failures.
// ident must already be quoted: to_regclass folds bare names to lowercase
// and would miss mixed-case tenant tables.
func (r *PostgresRepo) tableExists(ctx context.Context, ident string) (bool, error) {
	var regclass *string

	err := r.pool.QueryRow(ctx, `SELECT to_regclass($1);`, ident).Scan(&regclass)
	if err != nil {
		return false, err
	}

	return regclass != nil, nil
}

func (r *PostgresRepo) EnsureJobTable(ctx context.Context, company string) error {
	const op = "storage.postgres.EnsureJobTable"

	if err := storage.ValidateCompanyName(company); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			job_title VARCHAR(255) UNIQUE NOT NULL,
			job_description TEXT NOT NULL
		);
	`, jobTableIdent(company))

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) AddJob(ctx context.Context, company, title, description string) (models.Job, error) {
	const op = "storage.postgres.AddJob"

	if err := storage.ValidateCompanyName(company); err != nil {
		return models.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (job_title, job_description)
		VALUES ($1, $2)
		RETURNING id;
	`, jobTableIdent(company))

	job := models.Job{
		Title:       title,
		Description: description,
	}

	err := r.pool.QueryRow(ctx, query, title, description).Scan(&job.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return models.Job{}, storage.ErrJobExists
		}

		return models.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	return job, nil
}

func (r *PostgresRepo) RemoveJob(ctx context.Context, company, title string) (bool, error) {
	const op = "storage.postgres.RemoveJob"

	if err := storage.ValidateCompanyName(company); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := r.tableExists(ctx, jobTableIdent(company))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return false, nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE job_title = $1;`, jobTableIdent(company))

	tag, err := r.pool.Exec(ctx, query, title)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepo) Jobs(ctx context.Context, company string) ([]models.Job, error) {
	const op = "storage.postgres.Jobs"

	if err := storage.ValidateCompanyName(company); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := r.tableExists(ctx, jobTableIdent(company))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return []models.Job{}, nil
	}

	query := fmt.Sprintf(`SELECT id, job_title, job_description FROM %s;`, jobTableIdent(company))

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	jobs := []models.Job{}

	for rows.Next() {
		var j models.Job

		if err := rows.Scan(&j.ID, &j.Title, &j.Description); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		jobs = append(jobs, j)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}

	return jobs, nil
}

func (r *PostgresRepo) Selected(ctx context.Context, company string) ([]models.Candidate, error) {
	const op = "storage.postgres.Selected"

	if err := storage.ValidateCompanyName(company); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := r.tableExists(ctx, selectedTableIdent(company))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return []models.Candidate{}, nil
	}

	query := fmt.Sprintf(`
		SELECT id, name, email, phone_no, skills, file_name
		FROM %s;
	`, selectedTableIdent(company))

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	candidates := []models.Candidate{}

	for rows.Next() {
		var c models.Candidate

		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.PhoneNo, &c.Skills, &c.FileName); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		candidates = append(candidates, c)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}

	return candidates, nil
}

func (r *PostgresRepo) Resume(ctx context.Context, company string, candidateID int64) (string, []byte, error) {
	const op = "storage.postgres.Resume"

	if err := storage.ValidateCompanyName(company); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := r.tableExists(ctx, selectedTableIdent(company))
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return "", nil, storage.ErrFileNotFound
	}

	query := fmt.Sprintf(`SELECT file_name, file_data FROM %s WHERE id = $1;`, selectedTableIdent(company))

	var (
		fileName string
		fileData []byte
	)

	err = r.pool.QueryRow(ctx, query, candidateID).Scan(&fileName, &fileData)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, storage.ErrFileNotFound
		}

		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	return fileName, fileData, nil
}

// DestroyTenantStorage drops both tenant tables. It is a no-op when the
// tables do not exist, so it doubles as the repair operation after a
// half-finished account deletion.
func (r *PostgresRepo) DestroyTenantStorage(ctx context.Context, company string) error {
	const op = "storage.postgres.DestroyTenantStorage"

	if err := storage.ValidateCompanyName(company); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, ident := range []string{jobTableIdent(company), selectedTableIdent(company)} {
		query := fmt.Sprintf(`DROP TABLE IF EXISTS %s CASCADE;`, ident)

		if _, err := r.pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}
