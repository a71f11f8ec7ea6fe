package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"algoarena/internal/common"
	"algoarena/internal/domain/model"
	"algoarena/internal/domain/repository"
	"algoarena/internal/judge"
)

// SubmissionService runs user code against a problem's test cases through
// the judge and records the attempt.
type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	judge          judge.Client
	logger         *zap.Logger
}

func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	problemRepo repository.ProblemRepository,
	judgeClient judge.Client,
	logger *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: submissionRepo,
		problemRepo:    problemRepo,
		judge:          judgeClient,
		logger:         logger,
	}
}

type CreateSubmissionRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

func (s *SubmissionService) SubmitSolution(ctx context.Context, requester *model.User, problemID string, req CreateSubmissionRequest) (*model.Submission, error) {
	if req.Language == "" || req.Code == "" {
		return nil, fmt.Errorf("language and code are required: %w", common.ErrBadRequest)
	}

	problem, err := s.problemRepo.FindByID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if len(problem.TestCases) == 0 {
		return nil, fmt.Errorf("problem %s has no test cases: %w", problemID, common.ErrInternalServer)
	}

	languageID, ok := judge.LanguageID(req.Language)
	if !ok {
		return nil, &common.UnsupportedLanguageError{Language: req.Language}
	}

	units := make([]judge.SubmissionUnit, 0, len(problem.TestCases))
	for _, tc := range problem.TestCases {
		units = append(units, judge.SubmissionUnit{
			SourceCode:     req.Code,
			LanguageID:     languageID,
			Stdin:          tc.Input,
			ExpectedOutput: tc.Output,
		})
	}

	tokens, err := s.judge.SubmitBatch(ctx, units)
	if err != nil {
		return nil, err
	}
	results, err := s.judge.PollBatchResults(ctx, tokens)
	if err != nil {
		return nil, err
	}

	submission := &model.Submission{
		ID:        uuid.NewString(),
		UserID:    requester.ID,
		ProblemID: problem.ID,
		Language:  req.Language,
		Code:      req.Code,
		Status:    model.StatusAccepted,
	}
	for i, res := range results {
		caseStatus := statusFromJudge(res.Status.ID)
		// Overall status is the first non-accepted case's status.
		if caseStatus != model.StatusAccepted && submission.Status == model.StatusAccepted {
			submission.Status = caseStatus
		}
		submission.TestCaseResults = append(submission.TestCaseResults, model.SubmissionTestCaseResult{
			TestCaseIndex: i,
			Input:         problem.TestCases[i].Input,
			Expected:      problem.TestCases[i].Output,
			Stdout:        res.Stdout,
			Stderr:        res.Stderr,
			CompileOutput: res.CompileOutput,
			Status:        caseStatus,
		})
	}

	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		return nil, common.Errorf("failed to create submission: %w", err)
	}

	s.logger.Info("submission judged",
		zap.String("submission_id", submission.ID),
		zap.String("problem_id", problem.ID),
		zap.String("user_id", requester.ID),
		zap.String("status", string(submission.Status)))
	return submission, nil
}

func (s *SubmissionService) ListForProblem(ctx context.Context, requester *model.User, problemID string, page, pageSize int) ([]model.Submission, error) {
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return s.submissionRepo.ListByUserAndProblem(ctx, requester.ID, problemID, pageSize, offset)
}

// statusFromJudge maps Judge0 status ids onto submission statuses. Ids 7-12
// cover the runtime error family (SIGSEGV, SIGFPE, NZEC and friends).
func statusFromJudge(id int) model.SubmissionStatus {
	switch {
	case id == judge.StatusAccepted:
		return model.StatusAccepted
	case id == 4:
		return model.StatusWrongAnswer
	case id == 5:
		return model.StatusTimeLimitExceeded
	case id == 6:
		return model.StatusCompilationError
	case id >= 7 && id <= 12:
		return model.StatusRuntimeError
	default:
		return model.StatusSystemError
	}
}
