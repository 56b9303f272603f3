package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis implements Store on a Redis hash per record. The conditional writes
// run as Lua scripts so the status check and the replacement are atomic on
// the server.
type Redis struct {
	client *redis.Client
}

var insertScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "status", ARGV[1], "doc", ARGV[2])
return 1
`)

var casScript = redis.NewScript(`
local cur = redis.call("HGET", KEYS[1], "status")
if not cur then
  return -1
end
if cur ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1], "status", ARGV[2], "doc", ARGV[3])
return 1
`)

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// NewRedisClient configures a Redis client from a URL and verifies
// connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func recordKey(table, key string) string {
	return "doorman:" + table + ":" + key
}

func (r *Redis) Get(ctx context.Context, table, key string) (*Record, error) {
	fields, err := r.client.HGetAll(ctx, recordKey(table, key)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return &Record{Key: key, Status: fields["status"], Doc: []byte(fields["doc"])}, nil
}

func (r *Redis) Insert(ctx context.Context, table string, rec *Record) error {
	ok, err := insertScript.Run(ctx, r.client, []string{recordKey(table, rec.Key)}, rec.Status, string(rec.Doc)).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ok == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *Redis) UpdateIfStatus(ctx context.Context, table, key, expectedStatus string, rec *Record) error {
	res, err := casScript.Run(ctx, r.client, []string{recordKey(table, key)}, expectedStatus, rec.Status, string(rec.Doc)).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch res {
	case -1:
		return ErrNotFound
	case 0:
		return ErrConflict
	}
	return nil
}

func (r *Redis) Scan(ctx context.Context, table string) ([]*Record, error) {
	var recs []*Record

	iter := r.client.Scan(ctx, 0, recordKey(table, "*"), 100).Iterator()
	for iter.Next(ctx) {
		fields, err := r.client.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if len(fields) == 0 {
			// deleted between SCAN and HGETALL; scans are best-effort
			continue
		}
		key := iter.Val()[len(recordKey(table, "")):]
		recs = append(recs, &Record{Key: key, Status: fields["status"], Doc: []byte(fields["doc"])})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return recs, nil
}
