package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"algoarena/internal/common"
	"algoarena/internal/domain/model"
)

type ProblemRepository interface {
	Create(ctx context.Context, problem *model.Problem) error
	Update(ctx context.Context, problem *model.Problem) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Problem, error)
	List(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty, tag string) ([]model.Problem, int, error)
	ListSolvedByUser(ctx context.Context, userID string) ([]model.Problem, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

// The ordered collections (tags, examples, test cases, snippets, reference
// solutions) are stored as jsonb columns; json arrays keep their declared
// order across the round trip, which the validation pipeline relies on.

const problemColumns = `id, title, slug, description, difficulty, tags, examples, constraints,
	       test_cases, code_snippets, reference_solutions, created_by, created_at, updated_at`

func (r *pgProblemRepository) Create(ctx context.Context, p *model.Problem) error {
	cols, err := marshalProblemColumns(p)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Create: %w", err)
	}

	query := `INSERT INTO problems (id, title, slug, description, difficulty, tags, examples, constraints,
	              test_cases, code_snippets, reference_solutions, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.Title, p.Slug, p.Description, p.Difficulty,
		cols.tags, cols.examples, p.Constraints, cols.testCases, cols.snippets, cols.solutions,
		p.CreatedByID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("problem with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.Create: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) Update(ctx context.Context, p *model.Problem) error {
	cols, err := marshalProblemColumns(p)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Update: %w", err)
	}

	query := `UPDATE problems SET
	              title = $1, slug = $2, description = $3, difficulty = $4, tags = $5,
	              examples = $6, constraints = $7, test_cases = $8, code_snippets = $9,
	              reference_solutions = $10, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $11`
	res, err := r.db.ExecContext(ctx, query,
		p.Title, p.Slug, p.Description, p.Difficulty,
		cols.tags, cols.examples, p.Constraints, cols.testCases, cols.snippets, cols.solutions,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProblemRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM problems WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Delete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProblemRepository) FindByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE id = $1`
	problem, err := scanProblem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindByID: %w", err)
	}
	return problem, nil
}

func (r *pgProblemRepository) List(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty, tag string) ([]model.Problem, int, error) {
	var conditions []string
	var args []interface{}
	argID := 1

	if difficulty != "" {
		conditions = append(conditions, "difficulty = $"+strconv.Itoa(argID))
		args = append(args, difficulty)
		argID++
	}
	if tag != "" {
		conditions = append(conditions, "tags @> jsonb_build_array($"+strconv.Itoa(argID)+"::text)")
		args = append(args, tag)
		argID++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM problems` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.List: count: %w", err)
	}

	query := `SELECT ` + problemColumns + ` FROM problems` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argID) + ` OFFSET $` + strconv.Itoa(argID+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.List: %w", err)
	}
	defer rows.Close()

	problems, err := collectProblems(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.List: %w", err)
	}
	return problems, total, nil
}

func (r *pgProblemRepository) ListSolvedByUser(ctx context.Context, userID string) ([]model.Problem, error) {
	query := `SELECT DISTINCT p.id, p.title, p.slug, p.description, p.difficulty, p.tags, p.examples,
	                 p.constraints, p.test_cases, p.code_snippets, p.reference_solutions,
	                 p.created_by, p.created_at, p.updated_at
	          FROM problems p
	          JOIN submissions s ON s.problem_id = p.id
	          WHERE s.user_id = $1 AND s.status = $2
	          ORDER BY p.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID, model.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListSolvedByUser: %w", err)
	}
	defer rows.Close()

	problems, err := collectProblems(rows)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListSolvedByUser: %w", err)
	}
	return problems, nil
}

type problemColumnsJSON struct {
	tags      []byte
	examples  []byte
	testCases []byte
	snippets  []byte
	solutions []byte
}

func marshalProblemColumns(p *model.Problem) (*problemColumnsJSON, error) {
	cols := &problemColumnsJSON{}
	var err error
	if cols.tags, err = json.Marshal(p.Tags); err != nil {
		return nil, err
	}
	if cols.examples, err = json.Marshal(p.Examples); err != nil {
		return nil, err
	}
	if cols.testCases, err = json.Marshal(p.TestCases); err != nil {
		return nil, err
	}
	if cols.snippets, err = json.Marshal(p.CodeSnippets); err != nil {
		return nil, err
	}
	if cols.solutions, err = json.Marshal(p.ReferenceSolutions); err != nil {
		return nil, err
	}
	return cols, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProblem(row rowScanner) (*model.Problem, error) {
	p := &model.Problem{}
	var tags, examples, testCases, snippets, solutions []byte
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty,
		&tags, &examples, &p.Constraints, &testCases, &snippets, &solutions,
		&p.CreatedByID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, pair := range []struct {
		data []byte
		dst  interface{}
	}{
		{tags, &p.Tags},
		{examples, &p.Examples},
		{testCases, &p.TestCases},
		{snippets, &p.CodeSnippets},
		{solutions, &p.ReferenceSolutions},
	} {
		if len(pair.data) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.data, pair.dst); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func collectProblems(rows *sql.Rows) ([]model.Problem, error) {
	var problems []model.Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, *p)
	}
	return problems, rows.Err()
}
