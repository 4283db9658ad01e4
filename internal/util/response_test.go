package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFoundError("exam %d not found", 1), http.StatusNotFound},
		{"bad request", BadRequestError("bad"), http.StatusBadRequest},
		{"forbidden", ForbiddenError("nope"), http.StatusForbidden},
		{"conflict", ConflictError("busy"), http.StatusConflict},
		{"wrapped conflict", fmt.Errorf("save: %w", ConflictError("busy")), http.StatusConflict},
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"email registered", ErrEmailRegistered, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := StatusCode(tc.err); got != tc.want {
				t.Fatalf("StatusCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestHandleErrorIncludesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	err := BadRequestError("exam is incomplete").WithDetails(map[string]interface{}{"remainingMarks": 6})
	HandleError(c, err)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body struct {
		Code    int                    `json:"code"`
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Message != "exam is incomplete" {
		t.Fatalf("message = %q", body.Message)
	}
	if body.Data["remainingMarks"] != float64(6) {
		t.Fatalf("data = %v", body.Data)
	}
}

func TestHandleErrorHidesInternalErrors(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleError(c, errors.New("dial tcp 10.0.0.1:3306: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var body Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Message != "Internal server error" {
		t.Fatalf("internal error leaked: %q", body.Message)
	}
}

func TestBindErrorListsFields(t *testing.T) {
	type payload struct {
		Name  string `validate:"required"`
		Marks int    `validate:"min=1"`
	}
	err := validator.New().Struct(payload{Marks: 0})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	BindError(c, err)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body struct {
		Data struct {
			Fields map[string]string `json:"fields"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Data.Fields["name"] != "required" || body.Data.Fields["marks"] != "min=1" {
		t.Fatalf("fields = %v", body.Data.Fields)
	}
}
