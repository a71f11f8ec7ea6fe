package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"algoarena/internal/common"
	"algoarena/internal/domain/model"
)

type SubmissionRepository interface {
	Create(ctx context.Context, sub *model.Submission) error
	FindByID(ctx context.Context, id string) (*model.Submission, error)
	ListByUserAndProblem(ctx context.Context, userID, problemID string, limit, offset int) ([]model.Submission, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	results, err := json.Marshal(sub.TestCaseResults)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Create: %w", err)
	}

	query := `INSERT INTO submissions (id, user_id, problem_id, language, code, status, test_case_results)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.db.ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.ProblemID, sub.Language, sub.Code, sub.Status, results,
	)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Create: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT id, user_id, problem_id, language, code, status, test_case_results, submitted_at, updated_at
	          FROM submissions WHERE id = $1`
	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.FindByID: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) ListByUserAndProblem(ctx context.Context, userID, problemID string, limit, offset int) ([]model.Submission, error) {
	query := `SELECT id, user_id, problem_id, language, code, status, test_case_results, submitted_at, updated_at
	          FROM submissions
	          WHERE user_id = $1 AND problem_id = $2
	          ORDER BY submitted_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, query, userID, problemID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListByUserAndProblem: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListByUserAndProblem: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func scanSubmission(row rowScanner) (*model.Submission, error) {
	sub := &model.Submission{}
	var results []byte
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.ProblemID, &sub.Language, &sub.Code, &sub.Status,
		&results, &sub.SubmittedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &sub.TestCaseResults); err != nil {
			return nil, err
		}
	}
	return sub, nil
}
