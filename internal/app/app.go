package app

import (
	"context"
	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/controller"
	"exam_portal_backend/internal/middleware"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/configwatcher"
	"exam_portal_backend/pkg/database"
	"exam_portal_backend/pkg/lock"
	"exam_portal_backend/pkg/logger"
	"exam_portal_backend/pkg/monitoring"
	"exam_portal_backend/pkg/security"
	"exam_portal_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	subject     *repository.SubjectRepository
	exam        *repository.ExamRepository
	question    *repository.QuestionRepository
	studentExam *repository.StudentExamRepository
	answerSheet *repository.AnswerSheetRepository
	result      *repository.ResultRepository
	antiCheat   *repository.AntiCheatingRepository
	cache       *repository.QuestionCache
}

type services struct {
	auth       *service.AuthService
	subject    *service.SubjectService
	user       *service.UserService
	storage    *service.StorageService
	exam       *service.ExamService
	question   *service.QuestionService
	assignment *service.AssignmentService
	attempt    *service.AttemptService
	monitor    *service.MonitorService
	sweep      *service.SweepService
	result     *service.ResultService
}

type controllers struct {
	auth       *controller.AuthController
	exam       *controller.ExamController
	question   *controller.QuestionController
	assignment *controller.AssignmentController
	attempt    *controller.AttemptController
	result     *controller.ResultController
	admin      *controller.AdminController
	user       *controller.UserController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		subject:     repository.NewSubjectRepository(db),
		exam:        repository.NewExamRepository(db),
		question:    repository.NewQuestionRepository(db),
		studentExam: repository.NewStudentExamRepository(db),
		answerSheet: repository.NewAnswerSheetRepository(db),
		result:      repository.NewResultRepository(db),
		antiCheat:   repository.NewAntiCheatingRepository(db),
		cache:       repository.NewQuestionCache(rdb),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}
	clock := util.SystemClock{}

	guard := service.NewAccessGuard(repos.exam, repos.subject, repos.user)
	submitter := service.NewSubmitter(repos.studentExam, repos.answerSheet, repos.result, repos.question, repos.user, clock)

	var locker lock.Locker = lock.NoopLocker{}
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb)
	}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(db, repos.user, cfg, clock)
	s.subject = service.NewSubjectService(repos.subject, repos.user)
	s.user = service.NewUserService(repos.user)
	s.exam = service.NewExamService(db, repos.exam, repos.question, repos.cache, guard, clock)
	s.question = service.NewQuestionService(db, repos.exam, repos.question, repos.cache, guard, s.storage)
	s.assignment = service.NewAssignmentService(db, repos.exam, repos.studentExam, repos.subject, repos.user, guard, clock)
	s.attempt = service.NewAttemptService(db, repos.exam, repos.studentExam, repos.question, repos.answerSheet, repos.cache, submitter, guard, clock)
	s.monitor = service.NewMonitorService(db, repos.antiCheat, repos.studentExam, repos.exam, submitter, guard, clock)
	s.sweep = service.NewSweepService(db, repos.studentExam, repos.exam, submitter, locker, clock, cfg.Sweep.Interval(), cfg.Sweep.LockTTL())
	s.result = service.NewResultService(repos.studentExam, repos.result, repos.answerSheet, repos.question, repos.antiCheat, repos.exam, guard, clock)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		exam:       controller.NewExamController(s.exam),
		question:   controller.NewQuestionController(s.question),
		assignment: controller.NewAssignmentController(s.assignment),
		attempt:    controller.NewAttemptController(s.attempt, s.monitor),
		result:     controller.NewResultController(s.result),
		admin:      controller.NewAdminController(s.subject, s.sweep),
		user:       controller.NewUserController(s.user),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时清扫到期作答；配置热更新时调整间隔
func (a *App) startBackgroundTasks(ctx context.Context, s *services, cfg *config.Config) {
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.sweep.SetInterval(newCfg.Sweep.Interval(), newCfg.Sweep.LockTTL())
	})

	if cfg.Sweep.Enabled {
		go s.sweep.Run(ctx)
		logger.Log.Info("Expiry sweep scheduled", zap.Duration("interval", cfg.Sweep.Interval()))
	}

	if cfg.Server.WatchConfig {
		go func() {
			err := configwatcher.WatchConfig(ctx, "configs/config.yaml", func(newCfg *config.Config) {
				for _, cb := range a.configCallbacks {
					cb(newCfg)
				}
			})
			if err != nil {
				logger.Log.Error("config watcher stopped", zap.Error(err))
			}
		}()
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	app.Redis = rdb

	if err := middleware.RegisterValidators(); err != nil {
		logger.Log.Fatal("Failed to register validators", zap.Error(err))
	}

	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("exam-portal", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal || cfg.Storage.Type == "" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.startBackgroundTasks(ctx, services, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 停止定时清扫和配置监听
	if a.cancel != nil {
		a.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	log.Println("Server exiting")
}
