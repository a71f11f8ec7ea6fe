package model

import (
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy   ProblemDifficulty = "Easy"
	DifficultyMedium ProblemDifficulty = "Medium"
	DifficultyHard   ProblemDifficulty = "Hard"
)

// Problem is persisted only after every reference solution has passed every
// test case; a partially validated draft never reaches the store.
type Problem struct {
	ID                 string              `json:"id"`
	Title              string              `json:"title"`
	Slug               string              `json:"slug"`
	Description        string              `json:"description"`
	Difficulty         ProblemDifficulty   `json:"difficulty"`
	Tags               []string            `json:"tags,omitempty"`
	Examples           []Example           `json:"examples,omitempty"`
	Constraints        string              `json:"constraints,omitempty"`
	TestCases          []TestCase          `json:"test_cases,omitempty"`          // Admin only view
	CodeSnippets       []CodeSnippet       `json:"code_snippets,omitempty"`       // Starter code per language
	ReferenceSolutions []ReferenceSolution `json:"reference_solutions,omitempty"` // Admin only view
	CreatedByID        string              `json:"created_by_id,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type Example struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

type TestCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

type CodeSnippet struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// ReferenceSolution pairs a language with a full admin-authored solution.
// Problems carry these as an ordered sequence, not a map: validation iterates
// them in declared order, so the first reported failure is deterministic.
type ReferenceSolution struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Redacted returns a copy stripped of admin-only material (hidden test cases
// and reference solutions).
func (p *Problem) Redacted() *Problem {
	redacted := *p
	redacted.TestCases = nil
	redacted.ReferenceSolutions = nil
	return &redacted
}
