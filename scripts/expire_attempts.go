// 手动触发到期自动交卷脚本
//
// 主应用已按 sweep.interval_minutes 定时执行，此脚本用于外部 cron 调度
// 或关闭了 sweep.enabled 的部署。
//
// 用法: go run scripts/expire_attempts.go

package main

import (
	"context"
	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/database"
	"exam_portal_backend/pkg/lock"
	"exam_portal_backend/pkg/logger"
	"log"
)

func main() {
	// 与主程序同一套加载逻辑，环境变量覆盖和默认值都生效
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	var locker lock.Locker = lock.NoopLocker{}
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Redis 连接失败: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb)
	}

	clock := util.SystemClock{}
	studentExams := repository.NewStudentExamRepository(db)
	exams := repository.NewExamRepository(db)
	submitter := service.NewSubmitter(
		studentExams,
		repository.NewAnswerSheetRepository(db),
		repository.NewResultRepository(db),
		repository.NewQuestionRepository(db),
		repository.NewUserRepository(db),
		clock,
	)
	sweep := service.NewSweepService(db, studentExams, exams, submitter, locker, clock, cfg.Sweep.Interval(), cfg.Sweep.LockTTL())

	log.Println("手动触发到期交卷任务...")
	report, err := sweep.SweepExpired(context.Background())
	if err != nil {
		log.Fatalf("执行失败: %v", err)
	}
	if report.Skipped {
		log.Println("其它实例正在执行，跳过")
		return
	}
	log.Printf("完成！扫描 %d，交卷 %d，已关闭 %d，失败 %d", report.Scanned, report.Submitted, report.AlreadyClosed, report.Failed)
}
