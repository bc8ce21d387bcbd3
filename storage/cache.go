package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"board-api/domain"
)

const boardCachePrefix = "board:"

// Cache wraps a Repository with Redis-backed caching of board views. Every
// task mutation bumps a generation counter, which retires all cached boards
// at once. Keys carry a per-instance id: the repository lives in process
// memory, so boards cached by another process or an earlier run never match.
type Cache struct {
	*Repository
	redis    *redis.Client
	ttl      time.Duration
	instance string
	logger   *log.Logger
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base *Repository, client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if base == nil {
		panic("storage.NewCache: base repository is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{Repository: base, redis: client, ttl: ttl, instance: uuid.NewString(), logger: logger}
}

// Board serves the project's board from Redis when possible.
func (c *Cache) Board(ctx context.Context, projectID int64) (domain.Board, error) {
	gen, ok := c.generation(ctx)
	if ok {
		if b, hit := c.loadBoard(ctx, gen, projectID); hit {
			return b, nil
		}
	}

	b, err := c.Repository.Board(ctx, projectID)
	if err != nil {
		return domain.Board{}, err
	}
	if ok {
		c.storeBoard(ctx, gen, b)
	}
	return b, nil
}

func (c *Cache) generation(ctx context.Context) (int64, bool) {
	if c.redis == nil || c.ttl == 0 {
		return 0, false
	}
	gen, err := c.redis.Get(ctx, c.generationKey()).Int64()
	if err == redis.Nil {
		return 0, true
	}
	if err != nil {
		return 0, false
	}
	return gen, true
}

func (c *Cache) loadBoard(ctx context.Context, gen, projectID int64) (domain.Board, bool) {
	key := c.boardKey(gen, projectID)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the repository without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return domain.Board{}, false
	}
	var b domain.Board
	if err := sonic.Unmarshal(data, &b); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return domain.Board{}, false
	}
	return b, true
}

func (c *Cache) storeBoard(ctx context.Context, gen int64, b domain.Board) {
	data, err := sonic.Marshal(b)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, c.boardKey(gen, b.ProjectID), data, c.ttl).Err()
}

// invalidate runs after the repository write has committed, so it must not
// be cut short by the caller going away.
func (c *Cache) invalidate(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Incr(context.WithoutCancel(ctx), c.generationKey()).Err(); err != nil {
		c.logger.WithFields(log.Fields{
			"key":   c.generationKey(),
			"error": err,
		}).Warn("board cache invalidation failed")
	}
}

func (c *Cache) generationKey() string {
	return boardCachePrefix + c.instance + ":gen"
}

func (c *Cache) boardKey(gen, projectID int64) string {
	return boardCachePrefix + c.instance + ":" + strconv.FormatInt(gen, 10) + ":" + strconv.FormatInt(projectID, 10)
}

func (c *Cache) CreateProject(ctx context.Context, in domain.NewProject) (domain.Project, error) {
	p, err := c.Repository.CreateProject(ctx, in)
	if err == nil {
		c.invalidate(ctx)
	}
	return p, err
}

func (c *Cache) DeleteProject(ctx context.Context, id int64) (domain.Project, error) {
	p, err := c.Repository.DeleteProject(ctx, id)
	if err == nil {
		c.invalidate(ctx)
	}
	return p, err
}

func (c *Cache) CreateTask(ctx context.Context, in domain.NewTask) (domain.Task, error) {
	t, err := c.Repository.CreateTask(ctx, in)
	if err == nil {
		c.invalidate(ctx)
	}
	return t, err
}

func (c *Cache) UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	t, err := c.Repository.UpdateTask(ctx, id, patch)
	if err == nil {
		c.invalidate(ctx)
	}
	return t, err
}

func (c *Cache) UpdateStatus(ctx context.Context, id int64, status domain.TaskStatus, position *int) (domain.Task, error) {
	t, err := c.Repository.UpdateStatus(ctx, id, status, position)
	if err == nil {
		c.invalidate(ctx)
	}
	return t, err
}

func (c *Cache) DeleteTask(ctx context.Context, id int64) (domain.Task, error) {
	t, err := c.Repository.DeleteTask(ctx, id)
	if err == nil {
		c.invalidate(ctx)
	}
	return t, err
}

func (c *Cache) BulkMove(ctx context.Context, ids []int64, status domain.TaskStatus, projectID *int64) (BulkResult, error) {
	res, err := c.Repository.BulkMove(ctx, ids, status, projectID)
	if err == nil {
		c.invalidate(ctx)
	}
	return res, err
}

func (c *Cache) BulkAssign(ctx context.Context, ids []int64, assigneeID *int64) (BulkResult, error) {
	res, err := c.Repository.BulkAssign(ctx, ids, assigneeID)
	if err == nil {
		c.invalidate(ctx)
	}
	return res, err
}

func (c *Cache) BulkUpdate(ctx context.Context, ids []int64, patch domain.TaskPatch) (BulkResult, error) {
	res, err := c.Repository.BulkUpdate(ctx, ids, patch)
	if err == nil {
		c.invalidate(ctx)
	}
	return res, err
}

func (c *Cache) BulkDelete(ctx context.Context, ids []int64) (BulkResult, error) {
	res, err := c.Repository.BulkDelete(ctx, ids)
	if err == nil {
		c.invalidate(ctx)
	}
	return res, err
}

func (c *Cache) AttachFile(ctx context.Context, taskID int64, file domain.FileUpload) (domain.Task, error) {
	t, err := c.Repository.AttachFile(ctx, taskID, file)
	if err == nil {
		c.invalidate(ctx)
	}
	return t, err
}

func (c *Cache) RemoveFile(ctx context.Context, taskID, fileID int64) (domain.Task, error) {
	t, err := c.Repository.RemoveFile(ctx, taskID, fileID)
	if err == nil {
		c.invalidate(ctx)
	}
	return t, err
}
