package repository

import (
	"context"
	"encoding/json"
	"exam_portal_backend/internal/model"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const questionCacheTTL = 30 * time.Minute

// QuestionCache 缓存去掉正确答案后的题目集合。Redis 未启用时所有操作都是空操作
type QuestionCache struct {
	Redis *redis.Client
}

func NewQuestionCache(rdb *redis.Client) *QuestionCache {
	return &QuestionCache{Redis: rdb}
}

func questionCacheKey(examID uint) string {
	return fmt.Sprintf("exam:questions:secure:%d", examID)
}

func (c *QuestionCache) Get(ctx context.Context, examID uint) ([]model.QuestionView, bool) {
	if c == nil || c.Redis == nil {
		return nil, false
	}
	val, err := c.Redis.Get(ctx, questionCacheKey(examID)).Bytes()
	if err != nil {
		return nil, false
	}
	var views []model.QuestionView
	if err := json.Unmarshal(val, &views); err != nil {
		return nil, false
	}
	return views, true
}

func (c *QuestionCache) Set(ctx context.Context, examID uint, views []model.QuestionView) {
	if c == nil || c.Redis == nil {
		return
	}
	data, err := json.Marshal(views)
	if err != nil {
		return
	}
	c.Redis.Set(ctx, questionCacheKey(examID), data, questionCacheTTL)
}

func (c *QuestionCache) Invalidate(ctx context.Context, examID uint) {
	if c == nil || c.Redis == nil {
		return
	}
	c.Redis.Del(ctx, questionCacheKey(examID))
}
