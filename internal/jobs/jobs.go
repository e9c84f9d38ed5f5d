// Package jobs exposes tenant-scoped job postings and matched
// candidates. Every operation resolves the caller's company first and
// only then touches that tenant's tables.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	sl "ats_service/internal/lib/logger"
	"ats_service/internal/models"
	"ats_service/internal/storage"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrJobExists    = errors.New("job already exists")
	ErrJobNotFound  = errors.New("job not found")
	ErrFileNotFound = errors.New("file not found")
)

type JobStore interface {
	EnsureJobTable(ctx context.Context, company string) error
	AddJob(ctx context.Context, company, title, description string) (models.Job, error)
	RemoveJob(ctx context.Context, company, title string) (bool, error)
	Jobs(ctx context.Context, company string) ([]models.Job, error)
	Selected(ctx context.Context, company string) ([]models.Candidate, error)
	Resume(ctx context.Context, company string, candidateID int64) (string, []byte, error)
}

type CompanyResolver interface {
	CompanyByUsername(ctx context.Context, username string) (string, error)
}

type Jobs struct {
	log      *slog.Logger
	store    JobStore
	resolver CompanyResolver
}

func New(log *slog.Logger, store JobStore, resolver CompanyResolver) *Jobs {
	return &Jobs{
		log:      log,
		store:    store,
		resolver: resolver,
	}
}

// Add lazily provisions the tenant's job table and inserts the posting.
func (j *Jobs) Add(ctx context.Context, username, title, description string) (models.Job, error) {
	const op = "jobs.Add"

	log := j.log.With(slog.String("op", op))

	company, err := j.company(ctx, username)
	if err != nil {
		return models.Job{}, err
	}

	if err := j.store.EnsureJobTable(ctx, company); err != nil {
		log.Error("failed to ensure job table", sl.Err(err))
		return models.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	job, err := j.store.AddJob(ctx, company, title, description)
	if err != nil {
		if errors.Is(err, storage.ErrJobExists) {
			return models.Job{}, ErrJobExists
		}

		log.Error("failed to add job", sl.Err(err))
		return models.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("job added", slog.String("company", company), slog.String("title", title))

	return job, nil
}

// Remove reports false, not an error, when no posting matches the title.
func (j *Jobs) Remove(ctx context.Context, username, title string) (bool, error) {
	const op = "jobs.Remove"

	company, err := j.company(ctx, username)
	if err != nil {
		return false, err
	}

	removed, err := j.store.RemoveJob(ctx, company, title)
	if err != nil {
		j.log.Error("failed to remove job", slog.String("op", op), sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return removed, nil
}

func (j *Jobs) List(ctx context.Context, username string) ([]models.Job, error) {
	const op = "jobs.List"

	company, err := j.company(ctx, username)
	if err != nil {
		return nil, err
	}

	jobs, err := j.store.Jobs(ctx, company)
	if err != nil {
		j.log.Error("failed to list jobs", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return jobs, nil
}

func (j *Jobs) Selected(ctx context.Context, username string) ([]models.Candidate, error) {
	const op = "jobs.Selected"

	company, err := j.company(ctx, username)
	if err != nil {
		return nil, err
	}

	candidates, err := j.store.Selected(ctx, company)
	if err != nil {
		j.log.Error("failed to list selected candidates", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return candidates, nil
}

// Resume returns the stored resume blob plus the content type derived
// from the filename extension.
func (j *Jobs) Resume(ctx context.Context, username string, candidateID int64) (string, string, []byte, error) {
	const op = "jobs.Resume"

	company, err := j.company(ctx, username)
	if err != nil {
		return "", "", nil, err
	}

	fileName, data, err := j.store.Resume(ctx, company, candidateID)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return "", "", nil, ErrFileNotFound
		}

		j.log.Error("failed to fetch resume", slog.String("op", op), sl.Err(err))
		return "", "", nil, fmt.Errorf("%s: %w", op, err)
	}

	return fileName, ContentTypeFor(fileName), data, nil
}

// ContentTypeFor maps resume extensions to a download content type.
// Unknown extensions fall back to a generic binary type rather than
// guessing.
func ContentTypeFor(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

func (j *Jobs) company(ctx context.Context, username string) (string, error) {
	const op = "jobs.company"

	company, err := j.resolver.CompanyByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", ErrUserNotFound
		}

		j.log.Error("failed to resolve company", slog.String("op", op), sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return company, nil
}
