package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

func bodyHash(b []byte) string { s := sha256.Sum256(b); return hex.EncodeToString(s[:]) }

// nowUTC is a var so tests can pin the clock.
var nowUTC = func() time.Time { return time.Now().UTC() }

func buildKey(method, path, client, idempKey string) string {
	return "idemp:" + strings.ToLower(method) + ":" + path + ":" + client + ":" + strings.ToLower(idempKey)
}

// ---- Redis helpers ----
func provisionalSet(ctx context.Context, rdb *redis.Client, key string, entry idempEntry) (bool, error) {
	payload, _ := json.Marshal(entry)
	return rdb.SetNX(ctx, key, payload, provisionalLockTTL).Result()
}

func loadEntry(ctx context.Context, rdb *redis.Client, key string) (idempEntry, error) {
	var e idempEntry
	v, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(v, &e)
	return e, err
}

// claim takes the key for this request. When another request holds it, the
// stored entry is returned instead. A key that expires between the SETNX and
// the read is claimed again, once.
func claim(ctx context.Context, rdb *redis.Client, key string, entry idempEntry) (bool, idempEntry, error) {
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := provisionalSet(ctx, rdb, key, entry)
		if err != nil || ok {
			return ok, idempEntry{}, err
		}
		cur, err := loadEntry(ctx, rdb, key)
		if errors.Is(err, redis.Nil) {
			continue
		}
		return false, cur, err
	}
	return false, idempEntry{InProgress: true}, nil
}

func saveFinal(ctx context.Context, rdb *redis.Client, key string, entry idempEntry, ttl time.Duration) error {
	payload, _ := json.Marshal(entry)
	return rdb.Set(ctx, key, payload, ttl).Err()
}

func release(ctx context.Context, rdb *redis.Client, key string) error {
	return rdb.Del(ctx, key).Err()
}
