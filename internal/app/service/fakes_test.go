package service

import (
	"context"
	"fmt"
	"sync"

	"algoarena/internal/common"
	"algoarena/internal/domain/model"
	"algoarena/internal/judge"
)

// fakeJudgeClient scripts judge outcomes per submission unit. The default
// outcome is Accepted; tests override decide to fail selected units.
type fakeJudgeClient struct {
	mu          sync.Mutex
	nextToken   int
	units       map[string]judge.SubmissionUnit
	submitCalls [][]judge.SubmissionUnit
	pollCalls   int
	decide      func(unit judge.SubmissionUnit) judge.Status
	submitErr   error
	pollErr     error
}

func newFakeJudgeClient() *fakeJudgeClient {
	return &fakeJudgeClient{units: map[string]judge.SubmissionUnit{}}
}

func (f *fakeJudgeClient) SubmitBatch(ctx context.Context, units []judge.SubmissionUnit) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitCalls = append(f.submitCalls, units)
	tokens := make([]string, len(units))
	for i, unit := range units {
		f.nextToken++
		token := fmt.Sprintf("tok-%d", f.nextToken)
		f.units[token] = unit
		tokens[i] = token
	}
	return tokens, nil
}

func (f *fakeJudgeClient) PollBatchResults(ctx context.Context, tokens []string) ([]judge.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	f.pollCalls++
	results := make([]judge.Result, len(tokens))
	for i, token := range tokens {
		unit := f.units[token]
		status := judge.Status{ID: judge.StatusAccepted, Description: "Accepted"}
		if f.decide != nil {
			status = f.decide(unit)
		}
		results[i] = judge.Result{Token: token, Status: status}
	}
	return results, nil
}

func (f *fakeJudgeClient) submittedUnits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, call := range f.submitCalls {
		total += len(call)
	}
	return total
}

type fakeProblemRepo struct {
	mu       sync.Mutex
	problems map[string]*model.Problem
	created  int
	deleted  int
	solved   map[string][]model.Problem // userID -> solved problems
}

func newFakeProblemRepo() *fakeProblemRepo {
	return &fakeProblemRepo{
		problems: map[string]*model.Problem{},
		solved:   map[string][]model.Problem{},
	}
}

func (f *fakeProblemRepo) Create(ctx context.Context, p *model.Problem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *p
	f.problems[p.ID] = &stored
	f.created++
	return nil
}

func (f *fakeProblemRepo) Update(ctx context.Context, p *model.Problem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.problems[p.ID]; !ok {
		return common.ErrNotFound
	}
	stored := *p
	f.problems[p.ID] = &stored
	return nil
}

func (f *fakeProblemRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.problems[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.problems, id)
	f.deleted++
	return nil
}

func (f *fakeProblemRepo) FindByID(ctx context.Context, id string) (*model.Problem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	found := *p
	return &found, nil
}

func (f *fakeProblemRepo) List(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty, tag string) ([]model.Problem, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Problem
	for _, p := range f.problems {
		if difficulty != "" && p.Difficulty != difficulty {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (f *fakeProblemRepo) ListSolvedByUser(ctx context.Context, userID string) ([]model.Problem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.solved[userID], nil
}

type fakeUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*model.User
	byID    map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*model.User{}, byID: map[string]*model.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byEmail[user.Email]; exists {
		return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
	}
	stored := *user
	f.byEmail[user.Email] = &stored
	f.byID[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	found := *user
	return &found, nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	found := *user
	return &found, nil
}

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	submissions []*model.Submission
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{}
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, sub *model.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *sub
	f.submissions = append(f.submissions, &stored)
	return nil
}

func (f *fakeSubmissionRepo) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.submissions {
		if sub.ID == id {
			found := *sub
			return &found, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeSubmissionRepo) ListByUserAndProblem(ctx context.Context, userID, problemID string, limit, offset int) ([]model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Submission
	for _, sub := range f.submissions {
		if sub.UserID == userID && sub.ProblemID == problemID {
			out = append(out, *sub)
		}
	}
	return out, nil
}
