package common

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse carries the structured detail of a failed problem
// validation: the offending language and, when a judge run failed, the test
// case index, its input and the judge's raw result.
type ValidationErrorResponse struct {
	Error         string `json:"error"`
	Language      string `json:"language,omitempty"`
	TestCaseIndex *int   `json:"test_case_index,omitempty"`
	Input         string `json:"input,omitempty"`
	Status        string `json:"status,omitempty"`
	Stdout        string `json:"stdout,omitempty"`
	Stderr        string `json:"stderr,omitempty"`
	CompileOutput string `json:"compile_output,omitempty"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
