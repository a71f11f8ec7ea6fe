package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"algoarena/internal/common"
	"algoarena/internal/domain/model"
	"algoarena/internal/domain/repository"
	"algoarena/internal/judge"
	"algoarena/internal/platform/cache"
)

// ProblemService is the sole path by which a problem becomes trustworthy
// enough to store: every reference solution must pass every test case on the
// judge before anything is persisted.
type ProblemService struct {
	problemRepo repository.ProblemRepository
	judge       judge.Client
	cache       *cache.Cache
	logger      *zap.Logger
}

func NewProblemService(
	problemRepo repository.ProblemRepository,
	judgeClient judge.Client,
	problemCache *cache.Cache,
	logger *zap.Logger,
) *ProblemService {
	return &ProblemService{
		problemRepo: problemRepo,
		judge:       judgeClient,
		cache:       problemCache,
		logger:      logger,
	}
}

type CreateProblemRequest struct {
	Title              string                    `json:"title"`
	Description        string                    `json:"description"`
	Difficulty         model.ProblemDifficulty   `json:"difficulty"`
	Tags               []string                  `json:"tags"`
	Examples           []model.Example           `json:"examples"`
	Constraints        string                    `json:"constraints"`
	TestCases          []model.TestCase          `json:"testCases"`
	CodeSnippets       []model.CodeSnippet       `json:"codeSnippets"`
	ReferenceSolutions []model.ReferenceSolution `json:"referenceSolutions"`
}

type UpdateProblemRequest struct {
	Title              *string                    `json:"title,omitempty"`
	Description        *string                    `json:"description,omitempty"`
	Difficulty         *model.ProblemDifficulty   `json:"difficulty,omitempty"`
	Tags               *[]string                  `json:"tags,omitempty"`
	Examples           *[]model.Example           `json:"examples,omitempty"`
	Constraints        *string                    `json:"constraints,omitempty"`
	TestCases          *[]model.TestCase          `json:"testCases,omitempty"`
	CodeSnippets       *[]model.CodeSnippet       `json:"codeSnippets,omitempty"`
	ReferenceSolutions *[]model.ReferenceSolution `json:"referenceSolutions,omitempty"`
}

// ValidateAndCreate runs the full validation pipeline for a draft and
// persists the problem only when every reference solution passed every test
// case. The requester must be an admin; that check happens before any judge
// interaction.
func (s *ProblemService) ValidateAndCreate(ctx context.Context, requester *model.User, req CreateProblemRequest) (*model.Problem, error) {
	if requester == nil || requester.Role != model.RoleAdmin {
		return nil, common.ErrForbidden
	}
	if req.Title == "" || req.Description == "" || req.Difficulty == "" {
		return nil, fmt.Errorf("title, description and difficulty are required: %w", common.ErrBadRequest)
	}
	if len(req.TestCases) == 0 {
		return nil, fmt.Errorf("at least one test case is required: %w", common.ErrBadRequest)
	}
	if len(req.ReferenceSolutions) == 0 {
		return nil, fmt.Errorf("at least one reference solution is required: %w", common.ErrBadRequest)
	}

	if err := s.validateSolutions(ctx, req.ReferenceSolutions, req.TestCases); err != nil {
		return nil, err
	}

	problem := &model.Problem{
		ID:                 uuid.NewString(),
		Title:              req.Title,
		Slug:               slug.Make(req.Title),
		Description:        req.Description,
		Difficulty:         req.Difficulty,
		Tags:               req.Tags,
		Examples:           req.Examples,
		Constraints:        req.Constraints,
		TestCases:          req.TestCases,
		CodeSnippets:       req.CodeSnippets,
		ReferenceSolutions: req.ReferenceSolutions,
		CreatedByID:        requester.ID,
	}

	if err := s.problemRepo.Create(ctx, problem); err != nil {
		return nil, common.Errorf("failed to create problem: %w", err)
	}

	s.logger.Info("problem validated and created",
		zap.String("problem_id", problem.ID),
		zap.String("created_by", requester.ID),
		zap.Int("reference_solutions", len(problem.ReferenceSolutions)),
		zap.Int("test_cases", len(problem.TestCases)))
	return problem, nil
}

// validateSolutions submits one execution unit per (solution, test case)
// pair, in declared solution order then test-case order, and fails on the
// first non-accepted result. Ordering is a contract: repeated runs against
// the same invalid draft report the same first failure.
func (s *ProblemService) validateSolutions(ctx context.Context, solutions []model.ReferenceSolution, testCases []model.TestCase) error {
	for _, sol := range solutions {
		languageID, ok := judge.LanguageID(sol.Language)
		if !ok {
			return &common.UnsupportedLanguageError{Language: sol.Language}
		}

		units := make([]judge.SubmissionUnit, 0, len(testCases))
		for _, tc := range testCases {
			units = append(units, judge.SubmissionUnit{
				SourceCode:     sol.Code,
				LanguageID:     languageID,
				Stdin:          tc.Input,
				ExpectedOutput: tc.Output,
			})
		}

		tokens, err := s.judge.SubmitBatch(ctx, units)
		if err != nil {
			return err
		}
		results, err := s.judge.PollBatchResults(ctx, tokens)
		if err != nil {
			return err
		}

		for i, res := range results {
			if res.Status.ID != judge.StatusAccepted {
				return &common.TestCaseFailedError{
					Language:      sol.Language,
					TestCaseIndex: i,
					Input:         testCases[i].Input,
					Status:        res.Status.Description,
					Stdout:        res.Stdout,
					Stderr:        res.Stderr,
					CompileOutput: res.CompileOutput,
				}
			}
		}
	}
	return nil
}

// Update applies a partial update; when the test cases or reference
// solutions change, the merged pair is re-validated through the judge before
// anything is written, keeping the all-or-nothing invariant on mutation.
func (s *ProblemService) Update(ctx context.Context, requester *model.User, id string, req UpdateProblemRequest) (*model.Problem, error) {
	if requester == nil || requester.Role != model.RoleAdmin {
		return nil, common.ErrForbidden
	}

	problem, err := s.problemRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		problem.Title = *req.Title
		problem.Slug = slug.Make(*req.Title)
	}
	if req.Description != nil {
		problem.Description = *req.Description
	}
	if req.Difficulty != nil {
		problem.Difficulty = *req.Difficulty
	}
	if req.Tags != nil {
		problem.Tags = *req.Tags
	}
	if req.Examples != nil {
		problem.Examples = *req.Examples
	}
	if req.Constraints != nil {
		problem.Constraints = *req.Constraints
	}
	if req.CodeSnippets != nil {
		problem.CodeSnippets = *req.CodeSnippets
	}

	revalidate := false
	if req.TestCases != nil {
		problem.TestCases = *req.TestCases
		revalidate = true
	}
	if req.ReferenceSolutions != nil {
		problem.ReferenceSolutions = *req.ReferenceSolutions
		revalidate = true
	}
	if revalidate {
		if len(problem.TestCases) == 0 {
			return nil, fmt.Errorf("at least one test case is required: %w", common.ErrBadRequest)
		}
		if len(problem.ReferenceSolutions) == 0 {
			return nil, fmt.Errorf("at least one reference solution is required: %w", common.ErrBadRequest)
		}
		if err := s.validateSolutions(ctx, problem.ReferenceSolutions, problem.TestCases); err != nil {
			return nil, err
		}
	}

	if err := s.problemRepo.Update(ctx, problem); err != nil {
		return nil, common.Errorf("failed to update problem: %w", err)
	}
	s.cache.Delete(ctx, problemCacheKey(id))

	s.logger.Info("problem updated",
		zap.String("problem_id", id),
		zap.Bool("revalidated", revalidate))
	return problem, nil
}

func (s *ProblemService) Delete(ctx context.Context, requester *model.User, id string) error {
	if requester == nil || requester.Role != model.RoleAdmin {
		return common.ErrForbidden
	}
	if err := s.problemRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(ctx, problemCacheKey(id))
	s.logger.Info("problem deleted", zap.String("problem_id", id))
	return nil
}

// GetProblem returns a problem, going through the read cache. Hidden test
// cases and reference solutions are stripped for non-admin requesters.
func (s *ProblemService) GetProblem(ctx context.Context, requester *model.User, id string) (*model.Problem, error) {
	if data, ok := s.cache.Get(ctx, problemCacheKey(id)); ok {
		cached := &model.Problem{}
		if err := json.Unmarshal(data, cached); err == nil {
			return redactFor(requester, cached), nil
		}
	}

	problem, err := s.problemRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(problem); err == nil {
		s.cache.Set(ctx, problemCacheKey(id), data)
	}
	return redactFor(requester, problem), nil
}

func (s *ProblemService) ListProblems(ctx context.Context, requester *model.User, page, pageSize int, difficulty model.ProblemDifficulty, tag string) ([]model.Problem, int, error) {
	limit := pageSize
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}

	problems, total, err := s.problemRepo.List(ctx, limit, offset, difficulty, tag)
	if err != nil {
		return nil, 0, err
	}
	return redactAllFor(requester, problems), total, nil
}

func (s *ProblemService) ListSolved(ctx context.Context, requester *model.User) ([]model.Problem, error) {
	problems, err := s.problemRepo.ListSolvedByUser(ctx, requester.ID)
	if err != nil {
		return nil, err
	}
	return redactAllFor(requester, problems), nil
}

func problemCacheKey(id string) string {
	return "problem:" + id
}

func redactFor(requester *model.User, p *model.Problem) *model.Problem {
	if requester != nil && requester.Role == model.RoleAdmin {
		return p
	}
	return p.Redacted()
}

func redactAllFor(requester *model.User, problems []model.Problem) []model.Problem {
	if requester != nil && requester.Role == model.RoleAdmin {
		return problems
	}
	redacted := make([]model.Problem, len(problems))
	for i := range problems {
		redacted[i] = *problems[i].Redacted()
	}
	return redacted
}
