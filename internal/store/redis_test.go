package store

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client)
}

func TestRedisInsertAndGet(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	rec := &Record{Key: "f1", Status: "pending", Doc: []byte(`{"name":"Alice"}`)}
	if err := r.Insert(ctx, TableVisitors, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := r.Get(ctx, TableVisitors, "f1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != "pending" || string(got.Doc) != `{"name":"Alice"}` {
		t.Fatalf("unexpected record: %+v", got)
	}

	if err := r.Insert(ctx, TableVisitors, rec); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	if _, err := r.Get(ctx, TableVisitors, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisUpdateIfStatus(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	if err := r.UpdateIfStatus(ctx, TablePasscodes, "123456", "pending", &Record{Key: "123456", Status: "approved"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := r.Insert(ctx, TablePasscodes, &Record{Key: "123456", Status: "approved", Doc: []byte(`{}`)}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := r.UpdateIfStatus(ctx, TablePasscodes, "123456", "pending", &Record{Key: "123456", Status: "rejected"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := r.UpdateIfStatus(ctx, TablePasscodes, "123456", "approved", &Record{Key: "123456", Status: "used", Doc: []byte(`{"used":true}`)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := r.Get(ctx, TablePasscodes, "123456")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != "used" || string(got.Doc) != `{"used":true}` {
		t.Fatalf("unexpected record after CAS: %+v", got)
	}

	// a second redemption attempt loses
	if err := r.UpdateIfStatus(ctx, TablePasscodes, "123456", "approved", &Record{Key: "123456", Status: "used"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on replay, got %v", err)
	}
}

func TestRedisScan(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	for _, key := range []string{"a", "b", "c"} {
		if err := r.Insert(ctx, TableVisitors, &Record{Key: key, Status: "pending", Doc: []byte(`{}`)}); err != nil {
			t.Fatalf("insert %s: %v", key, err)
		}
	}
	if err := r.Insert(ctx, TablePasscodes, &Record{Key: "111111", Status: "pending", Doc: []byte(`{}`)}); err != nil {
		t.Fatalf("insert passcode: %v", err)
	}

	recs, err := r.Scan(ctx, TableVisitors)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 visitor records, got %d", len(recs))
	}
	for _, rec := range recs {
		if rec.Key != "a" && rec.Key != "b" && rec.Key != "c" {
			t.Fatalf("unexpected key %q", rec.Key)
		}
	}
}
