package model

import "time"

type SubmissionStatus string

const (
	StatusAccepted          SubmissionStatus = "Accepted"
	StatusWrongAnswer       SubmissionStatus = "WrongAnswer"
	StatusTimeLimitExceeded SubmissionStatus = "TimeLimitExceeded"
	StatusCompilationError  SubmissionStatus = "CompilationError"
	StatusRuntimeError      SubmissionStatus = "RuntimeError"
	StatusSystemError       SubmissionStatus = "SystemError"
)

// Submission records a user's attempt at a problem, with per-test-case
// results as reported by the judge.
type Submission struct {
	ID              string                     `json:"id"`
	UserID          string                     `json:"user_id"`
	ProblemID       string                     `json:"problem_id"`
	Language        string                     `json:"language"`
	Code            string                     `json:"code"`
	Status          SubmissionStatus           `json:"status"`
	TestCaseResults []SubmissionTestCaseResult `json:"test_case_results,omitempty"`
	SubmittedAt     time.Time                  `json:"submitted_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

type SubmissionTestCaseResult struct {
	TestCaseIndex int              `json:"test_case_index"`
	Input         string           `json:"input"`
	Expected      string           `json:"expected"`
	Stdout        string           `json:"stdout,omitempty"`
	Stderr        string           `json:"stderr,omitempty"`
	CompileOutput string           `json:"compile_output,omitempty"`
	Status        SubmissionStatus `json:"status"`
}
