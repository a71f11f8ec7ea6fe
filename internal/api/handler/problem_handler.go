package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"algoarena/internal/api/middleware"
	"algoarena/internal/app/service"
	"algoarena/internal/common"
	"algoarena/internal/domain/model"
)

type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(ps *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps}
}

// RegisterRoutes mounts the problem routes; the whole subtree is already
// behind the auth middleware, admin-only mutations get an extra gate.
func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listProblems)
	r.Get("/solved", h.listSolved)
	r.Get("/{problemID}", h.getProblem)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.AdminOnly)
		admin.Post("/", h.createProblem)
		admin.Put("/{problemID}", h.updateProblem)
		admin.Delete("/{problemID}", h.deleteProblem)
	})
}

func (h *ProblemHandler) createProblem(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	problem, err := h.problemService.ValidateAndCreate(r.Context(), user, req)
	if err != nil {
		respondWithProblemError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, problem)
}

func (h *ProblemHandler) updateProblem(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.UpdateProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	problem, err := h.problemService.Update(r.Context(), user, chi.URLParam(r, "problemID"), req)
	if err != nil {
		respondWithProblemError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) deleteProblem(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	if err := h.problemService.Delete(r.Context(), user, chi.URLParam(r, "problemID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Problem deleted"})
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	problem, err := h.problemService.GetProblem(r.Context(), user, chi.URLParam(r, "problemID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	difficulty := model.ProblemDifficulty(r.URL.Query().Get("difficulty"))
	tag := r.URL.Query().Get("tag")

	problems, total, err := h.problemService.ListProblems(r.Context(), user, page, pageSize, difficulty, tag)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	type paginatedProblemsResponse struct {
		Problems []model.Problem `json:"problems"`
		Total    int             `json:"total"`
		Page     int             `json:"page"`
		PageSize int             `json:"page_size"`
	}
	common.RespondWithJSON(w, http.StatusOK, paginatedProblemsResponse{
		Problems: problems,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *ProblemHandler) listSolved(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	problems, err := h.problemService.ListSolved(r.Context(), user)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string][]model.Problem{"problems": problems})
}

// respondWithProblemError surfaces validation failures with their structured
// detail (which language, which test case, the judge's raw output) so the
// caller can fix the draft without re-submitting blindly.
func respondWithProblemError(w http.ResponseWriter, err error) {
	var tcErr *common.TestCaseFailedError
	if errors.As(err, &tcErr) {
		idx := tcErr.TestCaseIndex
		common.RespondWithJSON(w, http.StatusBadRequest, common.ValidationErrorResponse{
			Error:         tcErr.Error(),
			Language:      tcErr.Language,
			TestCaseIndex: &idx,
			Input:         tcErr.Input,
			Status:        tcErr.Status,
			Stdout:        tcErr.Stdout,
			Stderr:        tcErr.Stderr,
			CompileOutput: tcErr.CompileOutput,
		})
		return
	}

	var langErr *common.UnsupportedLanguageError
	if errors.As(err, &langErr) {
		common.RespondWithJSON(w, http.StatusBadRequest, common.ValidationErrorResponse{
			Error:    langErr.Error(),
			Language: langErr.Language,
		})
		return
	}

	common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
}
