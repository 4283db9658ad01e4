package middleware

import (
	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func newTestRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/teacher", AuthMiddleware(cfg), RoleMiddleware(model.RoleTeacher), func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c).UserID)
	})
	return r
}

func TestAuthAndRoleMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "middleware-test-secret"}}
	r := newTestRouter(cfg)

	token := func(role model.UserRole, secret string) string {
		user := &model.User{Email: string(role) + "@example.com", Role: role}
		user.ID = 7
		tok, err := util.GenerateJWT(user, 0, 0, secret, time.Hour)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		return tok
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + token(model.RoleTeacher, "other-secret"), http.StatusUnauthorized},
		{"student on teacher route", "Bearer " + token(model.RoleStudent, cfg.JWT.Secret), http.StatusForbidden},
		{"teacher", "Bearer " + token(model.RoleTeacher, cfg.JWT.Secret), http.StatusOK},
		{"admin bypass", "Bearer " + token(model.RoleAdmin, cfg.JWT.Secret), http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/teacher", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestCheatEventValidator(t *testing.T) {
	if err := RegisterValidators(); err != nil {
		t.Fatalf("register validators: %v", err)
	}
	type event struct {
		EventType string `binding:"required,cheatevent"`
	}
	if err := binding.Validator.ValidateStruct(event{EventType: string(model.EventTabSwitch)}); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}
	if err := binding.Validator.ValidateStruct(event{EventType: "COPY_PASTE"}); err == nil {
		t.Fatal("unknown event accepted")
	}
}
