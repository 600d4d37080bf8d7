package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"mentor_lms_backend/internal/model"
	"mentor_lms_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CatalogCache 缓存课程的有序章节列表。完成状态不缓存，每次都从完成记录计算。
// client 为 nil 时所有操作都是空操作。
//
// 每门课程有一个目录版本号，章节列表按版本号存放。写入方提交后递增版本号，
// 读取方只能把数据库结果写到读库前取得的版本下，迟到的旧列表不会被后续读取命中。
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// CatalogVersion 读库前取得的目录版本，Valid 为 false 时不回写缓存
type CatalogVersion struct {
	Value int64
	Valid bool
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CatalogCache{client: client, ttl: ttl}
}

func versionKey(courseID uint) string {
	return fmt.Sprintf("catalog:course:%d:version", courseID)
}

func chaptersKey(courseID uint, version int64) string {
	return fmt.Sprintf("catalog:course:%d:v%d:chapters", courseID, version)
}

func (c *CatalogCache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *CatalogCache) version(ctx context.Context, courseID uint) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(courseID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

// GetChapters 命中时返回章节列表；未命中时返回当前版本，供 SetChapters 回写
func (c *CatalogCache) GetChapters(ctx context.Context, courseID uint) ([]model.Chapter, CatalogVersion, bool) {
	if !c.enabled() {
		return nil, CatalogVersion{}, false
	}

	version, err := c.version(ctx, courseID)
	if err != nil {
		logger.Log.Warn("catalog cache version read failed", zap.Uint("courseId", courseID), zap.Error(err))
		return nil, CatalogVersion{}, false
	}
	current := CatalogVersion{Value: version, Valid: true}

	raw, err := c.client.Get(ctx, chaptersKey(courseID, version)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("catalog cache read failed", zap.Uint("courseId", courseID), zap.Error(err))
		}
		return nil, current, false
	}

	chapters, err := decodeChapters(raw)
	if err != nil {
		logger.Log.Warn("catalog cache decode failed", zap.Uint("courseId", courseID), zap.Error(err))
		return nil, current, false
	}
	return chapters, current, true
}

// SetChapters 写到读库前取得的版本下；版本已被写入方递增时该条目不会再被读到，随 TTL 过期
func (c *CatalogCache) SetChapters(ctx context.Context, courseID uint, version CatalogVersion, chapters []model.Chapter) {
	if !c.enabled() || !version.Valid {
		return
	}

	raw, err := encodeChapters(chapters)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, chaptersKey(courseID, version.Value), raw, c.ttl).Err(); err != nil {
		logger.Log.Warn("catalog cache write failed", zap.Uint("courseId", courseID), zap.Error(err))
	}
}

// Invalidate 必须在章节变更提交之后调用
func (c *CatalogCache) Invalidate(ctx context.Context, courseID uint) {
	if !c.enabled() {
		return
	}
	next, err := c.client.Incr(ctx, versionKey(courseID)).Result()
	if err != nil {
		logger.Log.Warn("catalog cache invalidate failed", zap.Uint("courseId", courseID), zap.Error(err))
		return
	}
	// 旧版本条目已不可达，顺手删掉
	if err := c.client.Del(ctx, chaptersKey(courseID, next-1)).Err(); err != nil {
		logger.Log.Debug("catalog cache cleanup failed", zap.Uint("courseId", courseID), zap.Error(err))
	}
}

type cachedChapter struct {
	ID            uint      `json:"id"`
	CourseID      uint      `json:"c"`
	SequenceOrder int       `json:"s"`
	Title         string    `json:"t"`
	CreatedAt     time.Time `json:"ca"`
	UpdatedAt     time.Time `json:"ua"`
}

func encodeChapters(chapters []model.Chapter) ([]byte, error) {
	items := make([]cachedChapter, len(chapters))
	for i, ch := range chapters {
		items[i] = cachedChapter{
			ID:            ch.ID,
			CourseID:      ch.CourseID,
			SequenceOrder: ch.SequenceOrder,
			Title:         ch.Title,
			CreatedAt:     ch.CreatedAt,
			UpdatedAt:     ch.UpdatedAt,
		}
	}
	return json.Marshal(items)
}

func decodeChapters(raw []byte) ([]model.Chapter, error) {
	var items []cachedChapter
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	chapters := make([]model.Chapter, len(items))
	for i, it := range items {
		chapters[i] = model.Chapter{CourseID: it.CourseID, SequenceOrder: it.SequenceOrder, Title: it.Title}
		chapters[i].ID = it.ID
		chapters[i].CreatedAt = it.CreatedAt
		chapters[i].UpdatedAt = it.UpdatedAt
	}
	return chapters, nil
}
