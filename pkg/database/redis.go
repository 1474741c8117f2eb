package database

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"post-reorder-backend/pkg/models"

	"github.com/go-redis/redis/v8"
)

// RedisDatabase stores each item as a hash and indexes partitions with sets:
//
//	reorder:item:<id>                  hash of item fields
//	reorder:posts:<type>:<status>      set of item ids
//	reorder:item:seq                   id counter
type RedisDatabase struct {
	client *redis.Client
}

const redisKeyPrefix = "reorder:"

func redisItemKey(id int64) string {
	return fmt.Sprintf("%sitem:%d", redisKeyPrefix, id)
}

func redisPartitionKey(postType, postStatus string) string {
	return fmt.Sprintf("%sposts:%s:%s", redisKeyPrefix, postType, postStatus)
}

const redisSeqKey = redisKeyPrefix + "item:seq"

// updateIfExists applies HSET only when the item hash is present, so a write
// for a deleted item is reported instead of resurrecting a partial hash.
var updateIfExists = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

// createIfAbsent writes the item hash and its partition membership in one
// step, refusing an id that is already stored.
var createIfAbsent = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

// NewRedisDatabase connects to the Redis server at addr.
func NewRedisDatabase(addr string, db int) (*RedisDatabase, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisDatabase{client: client}, nil
}

// NewRedisDatabaseFromClient wraps an existing client.
func NewRedisDatabaseFromClient(client *redis.Client) *RedisDatabase {
	return &RedisDatabase{client: client}
}

func parseRedisItem(id int64, fields map[string]string) (models.Item, error) {
	it := models.Item{
		ID:         id,
		Title:      fields["title"],
		PostType:   fields["post_type"],
		PostStatus: fields["post_status"],
	}
	var err error
	if it.MenuOrder, err = strconv.Atoi(fields["menu_order"]); err != nil {
		return it, fmt.Errorf("item %d: bad menu_order: %w", id, err)
	}
	if v := fields["post_parent"]; v != "" {
		if it.ParentID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return it, fmt.Errorf("item %d: bad post_parent: %w", id, err)
		}
	}
	if v := fields["updated_at"]; v != "" {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return it, fmt.Errorf("item %d: bad updated_at: %w", id, err)
		}
		it.UpdatedAt = time.Unix(sec, 0).UTC()
	}
	return it, nil
}

func (db *RedisDatabase) ListItems(ctx context.Context, q models.ListQuery) ([]models.Item, error) {
	q = q.Normalized()
	members, err := db.client.SMembers(ctx, redisPartitionKey(q.PostType, q.PostStatus)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	cmds := make([]*redis.StringStringMapCmd, len(ids))
	_, err = db.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, redisItemKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	items := make([]models.Item, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue // stale index entry
		}
		it, err := parseRedisItem(ids[i], fields)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	sortItems(items, q)
	return items, nil
}

// sortItems orders items the way the SQL stores do: by the requested field,
// ties broken by ascending id.
func sortItems(items []models.Item, q models.ListQuery) {
	desc := q.Direction == "DESC"
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		var cmp int
		switch q.OrderBy {
		case models.OrderByTitle:
			cmp = strings.Compare(a.Title, b.Title)
		case models.OrderByID:
			cmp = compareInt64(a.ID, b.ID)
		default:
			cmp = compareInt64(int64(a.MenuOrder), int64(b.MenuOrder))
		}
		if cmp == 0 {
			return a.ID < b.ID
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (db *RedisDatabase) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	fields, err := db.client.HGetAll(ctx, redisItemKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrItemNotFound
	}
	it, err := parseRedisItem(id, fields)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (db *RedisDatabase) CreateItem(ctx context.Context, it *models.Item) error {
	if it.ID == 0 {
		id, err := db.client.Incr(ctx, redisSeqKey).Result()
		if err != nil {
			return fmt.Errorf("failed to allocate item id: %w", err)
		}
		it.ID = id
	} else {
		current, err := db.client.Get(ctx, redisSeqKey).Int64()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to read item id counter: %w", err)
		}
		if current < it.ID {
			if err := db.client.Set(ctx, redisSeqKey, it.ID, 0).Err(); err != nil {
				return fmt.Errorf("failed to advance item id counter: %w", err)
			}
		}
	}
	it.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	keys := []string{redisItemKey(it.ID), redisPartitionKey(it.PostType, it.PostStatus)}
	created, err := createIfAbsent.Run(ctx, db.client, keys,
		it.ID,
		"title", it.Title,
		"post_type", it.PostType,
		"post_status", it.PostStatus,
		"menu_order", it.MenuOrder,
		"post_parent", it.ParentID,
		"updated_at", it.UpdatedAt.Unix(),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to create item %d: %w", it.ID, err)
	}
	if created == 0 {
		return fmt.Errorf("create item %d: %w", it.ID, ErrItemExists)
	}
	return nil
}

func (db *RedisDatabase) FilterInScope(ctx context.Context, postType, postStatus string, ids []int64) (map[int64]bool, error) {
	in := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return in, nil
	}
	key := redisPartitionKey(postType, postStatus)
	cmds := make([]*redis.BoolCmd, len(ids))
	_, err := db.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.SIsMember(ctx, key, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check item scope: %w", err)
	}
	for i, cmd := range cmds {
		if cmd.Val() {
			in[ids[i]] = true
		}
	}
	return in, nil
}

func (db *RedisDatabase) ApplyOrder(ctx context.Context, assignments []models.OrderAssignment) models.ReorderReport {
	return applyEach(ctx, assignments, func(ctx context.Context, a models.OrderAssignment) error {
		args := []interface{}{"menu_order", a.MenuOrder, "updated_at", time.Now().Unix()}
		if a.SetParent {
			args = append(args, "post_parent", a.ParentID)
		}
		applied, err := updateIfExists.Run(ctx, db.client, []string{redisItemKey(a.ID)}, args...).Int()
		if err != nil {
			return fmt.Errorf("failed to update item %d: %w", a.ID, err)
		}
		if applied == 0 {
			return ErrItemNotFound
		}
		return nil
	})
}

func (db *RedisDatabase) HealthCheck(ctx context.Context) error {
	return db.client.Ping(ctx).Err()
}

func (db *RedisDatabase) Close() error {
	return db.client.Close()
}
