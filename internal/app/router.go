package app

import (
	"exam_portal_backend/docs"
	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/middleware"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	student := rg.Group("/student")
	student.Use(middleware.RoleMiddleware(model.RoleStudent))
	{
		student.GET("/exams", c.assignment.ListMyExams)
		student.GET("/exams/:id/eligibility", c.assignment.Eligibility)
		student.POST("/exams/:id/start", c.attempt.StartExam)
		student.GET("/exams/:id/questions", c.attempt.GetQuestions)
		student.PUT("/exams/:id/responses", c.attempt.SaveResponses)
		student.GET("/exams/:id/responses", c.attempt.GetResponses)
		student.POST("/exams/:id/submit", c.attempt.SubmitExam)
		student.POST("/exams/:id/cheating-events", c.attempt.LogCheatingEvent)
		student.GET("/exams/:id/result", c.result.MyResult)
		student.GET("/exams/:id/answer-sheet", c.result.MyAnswerSheet)
	}
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.RoleTeacher))
	{
		// 考试
		teacher.POST("/exams", c.exam.CreateExam)
		teacher.GET("/exams", c.exam.ListExams)
		teacher.GET("/exams/:id", c.exam.GetExam)
		teacher.PUT("/exams/:id", c.exam.UpdateExam)
		teacher.PATCH("/exams/:id/status", c.exam.UpdateExamStatus)
		teacher.DELETE("/exams/:id", c.exam.DeleteExam)

		// 题目
		teacher.GET("/exams/:id/questions", c.question.ListQuestions)
		teacher.POST("/exams/:id/questions", c.question.AddQuestion)
		teacher.POST("/exams/:id/questions/bulk", c.question.BulkAddQuestions)
		teacher.POST("/exams/:id/questions/images", c.question.UploadImage)
		teacher.PUT("/exams/:id/questions/:questionId", c.question.UpdateQuestion)
		teacher.DELETE("/exams/:id/questions/:questionId", c.question.DeleteQuestion)

		// 分配与封禁
		teacher.POST("/exams/:id/assign", c.assignment.AssignExam)
		teacher.GET("/exams/:id/students", c.assignment.ListExamStudents)
		teacher.POST("/exams/:id/students/:studentId/ban", c.assignment.ToggleBan)

		// 成绩
		teacher.GET("/exams/:id/results", c.result.ExamResults)
		teacher.GET("/exams/:id/students/:studentId/result", c.result.StudentResult)
		teacher.GET("/exams/:id/students/:studentId/answer-sheet", c.result.StudentAnswerSheet)
		teacher.GET("/exams/:id/students/:studentId/cheat-logs", c.result.CheatLogs)
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.RoleAdmin))
	{
		admin.POST("/subjects", c.admin.CreateSubject)
		admin.GET("/subjects", c.admin.ListSubjects)
		admin.POST("/subjects/:id/teachers/:teacherId", c.admin.AssignTeacher)
		admin.POST("/subjects/:id/students/:studentId", c.admin.EnrollStudent)
		admin.POST("/sweeps/expired", c.admin.RunExpirySweep)
		admin.GET("/users", c.user.GetUsers)
		admin.POST("/users/:id/disable", c.user.DisableUser)
	}
}
