package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"algoarena/internal/app/service"
	"algoarena/internal/common"
	"algoarena/internal/common/security"
	"algoarena/internal/domain/model"
	"algoarena/internal/judge"
)

type memoryUserRepo struct {
	byEmail map[string]*model.User
	byID    map[string]*model.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{byEmail: map[string]*model.User{}, byID: map[string]*model.User{}}
}

func (r *memoryUserRepo) Create(ctx context.Context, user *model.User) error {
	if _, exists := r.byEmail[user.Email]; exists {
		return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
	}
	stored := *user
	r.byEmail[user.Email] = &stored
	r.byID[user.ID] = &stored
	return nil
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	found := *user
	return &found, nil
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	found := *user
	return &found, nil
}

type memoryProblemRepo struct {
	problems map[string]*model.Problem
}

func newMemoryProblemRepo() *memoryProblemRepo {
	return &memoryProblemRepo{problems: map[string]*model.Problem{}}
}

func (r *memoryProblemRepo) Create(ctx context.Context, p *model.Problem) error {
	stored := *p
	r.problems[p.ID] = &stored
	return nil
}

func (r *memoryProblemRepo) Update(ctx context.Context, p *model.Problem) error {
	if _, ok := r.problems[p.ID]; !ok {
		return common.ErrNotFound
	}
	stored := *p
	r.problems[p.ID] = &stored
	return nil
}

func (r *memoryProblemRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.problems[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.problems, id)
	return nil
}

func (r *memoryProblemRepo) FindByID(ctx context.Context, id string) (*model.Problem, error) {
	p, ok := r.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	found := *p
	return &found, nil
}

func (r *memoryProblemRepo) List(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty, tag string) ([]model.Problem, int, error) {
	var out []model.Problem
	for _, p := range r.problems {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *memoryProblemRepo) ListSolvedByUser(ctx context.Context, userID string) ([]model.Problem, error) {
	return nil, nil
}

type memorySubmissionRepo struct {
	submissions []*model.Submission
}

func (r *memorySubmissionRepo) Create(ctx context.Context, sub *model.Submission) error {
	stored := *sub
	r.submissions = append(r.submissions, &stored)
	return nil
}

func (r *memorySubmissionRepo) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	return nil, common.ErrNotFound
}

func (r *memorySubmissionRepo) ListByUserAndProblem(ctx context.Context, userID, problemID string, limit, offset int) ([]model.Submission, error) {
	return nil, nil
}

// acceptAllJudge counts calls and declares every unit accepted.
type acceptAllJudge struct {
	calls int
}

func (j *acceptAllJudge) SubmitBatch(ctx context.Context, units []judge.SubmissionUnit) ([]string, error) {
	j.calls++
	tokens := make([]string, len(units))
	for i := range units {
		tokens[i] = fmt.Sprintf("tok-%d", i)
	}
	return tokens, nil
}

func (j *acceptAllJudge) PollBatchResults(ctx context.Context, tokens []string) ([]judge.Result, error) {
	results := make([]judge.Result, len(tokens))
	for i, token := range tokens {
		results[i] = judge.Result{
			Token:  token,
			Status: judge.Status{ID: judge.StatusAccepted, Description: "Accepted"},
		}
	}
	return results, nil
}

type testEnv struct {
	server   *httptest.Server
	userRepo *memoryUserRepo
	judge    *acceptAllJudge
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	sessions := security.NewSessionManager([]byte("router-test-key"))
	userRepo := newMemoryUserRepo()
	problemRepo := newMemoryProblemRepo()
	submissionRepo := &memorySubmissionRepo{}
	judgeClient := &acceptAllJudge{}

	authService := service.NewAuthService(userRepo, sessions, logger)
	problemService := service.NewProblemService(problemRepo, judgeClient, nil, logger)
	submissionService := service.NewSubmissionService(submissionRepo, problemRepo, judgeClient, logger)

	router := NewRouter(sessions, userRepo, authService, problemService, submissionService, false)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testEnv{server: server, userRepo: userRepo, judge: judgeClient}
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}, cookie *http.Cookie) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func (e *testEnv) get(t *testing.T, path string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == security.SessionCookieName {
			return c
		}
	}
	return nil
}

func (e *testEnv) register(t *testing.T, email string) *http.Cookie {
	t.Helper()
	resp := e.postJSON(t, "/api/v1/auth/register", map[string]string{
		"email":    email,
		"password": "s3cret",
		"name":     "Test User",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register returned %d", resp.StatusCode)
	}
	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatal("register set no session cookie")
	}
	return cookie
}

func TestRegisterSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/v1/auth/register", map[string]string{
		"email":    "alice@example.com",
		"password": "s3cret",
		"name":     "Alice",
	}, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatal("no session cookie set")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}

	var body struct {
		User *model.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.User == nil || body.User.Email != "alice@example.com" {
		t.Errorf("unexpected user in response: %+v", body.User)
	}
	if body.User.HashedPassword != "" {
		t.Error("hashed password leaked over the wire")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com")

	resp := env.postJSON(t, "/api/v1/auth/register", map[string]string{
		"email":    "alice@example.com",
		"password": "other",
	}, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if sessionCookie(resp) != nil {
		t.Error("failed register still set a session cookie")
	}
}

func TestCheckRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice@example.com")

	resp := env.get(t, "/api/v1/auth/check", cookie)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("check with cookie = %d, want 200", resp.StatusCode)
	}
	var body struct {
		User *model.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.User == nil || body.User.Email != "alice@example.com" {
		t.Errorf("unexpected user: %+v", body.User)
	}

	bare := env.get(t, "/api/v1/auth/check", nil)
	defer bare.Body.Close()
	if bare.StatusCode != http.StatusUnauthorized {
		t.Fatalf("check without cookie = %d, want 401", bare.StatusCode)
	}
}

func TestLogoutExpiresCookie(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice@example.com")

	resp := env.postJSON(t, "/api/v1/auth/logout", map[string]string{}, cookie)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout = %d, want 200", resp.StatusCode)
	}
	expired := sessionCookie(resp)
	if expired == nil {
		t.Fatal("logout did not reset the session cookie")
	}
	if expired.Value != "" || expired.MaxAge >= 0 {
		t.Errorf("logout cookie not expired: value=%q maxAge=%d", expired.Value, expired.MaxAge)
	}
}

func TestProblemCreateRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "user@example.com")

	resp := env.postJSON(t, "/api/v1/problems/", map[string]interface{}{
		"title":       "Echo Input",
		"description": "Print the input back.",
		"difficulty":  "Easy",
		"testCases":   []map[string]string{{"input": "5", "output": "5"}},
		"referenceSolutions": []map[string]string{
			{"language": "PYTHON", "code": "print(input())"},
		},
	}, cookie)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if env.judge.calls != 0 {
		t.Errorf("judge contacted %d times for a non-admin request", env.judge.calls)
	}
}

func TestProblemCreateAsAdmin(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "admin@example.com")
	// Promote the registered user; there is no self-service path to admin.
	env.userRepo.byEmail["admin@example.com"].Role = model.RoleAdmin

	resp := env.postJSON(t, "/api/v1/problems/", map[string]interface{}{
		"title":       "Echo Input",
		"description": "Print the input back.",
		"difficulty":  "Easy",
		"testCases":   []map[string]string{{"input": "5", "output": "5"}},
		"referenceSolutions": []map[string]string{
			{"language": "PYTHON", "code": "print(input())"},
		},
	}, cookie)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if env.judge.calls == 0 {
		t.Error("judge never contacted during validation")
	}

	var problem model.Problem
	if err := json.NewDecoder(resp.Body).Decode(&problem); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if problem.Slug != "echo-input" {
		t.Errorf("slug = %q", problem.Slug)
	}
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)
	resp := env.get(t, "/health", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health = %d, want 200", resp.StatusCode)
	}
}
