package token

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// expiredRetention keeps expired and consumed records around after their
// nominal expiry so that replayed tokens report "expired" or "already used"
// instead of "not found". The sweep (or this TTL) removes them for good.
const expiredRetention = 24 * time.Hour

// consumeLua atomically performs GET → validate → mark-consumed on a token
// record. Doing the check and the write in one script is what guarantees a
// single winner under concurrent consumption.
//
// KEYS[1] = record key
// ARGV[1] = current unix timestamp
//
// Returns 1 on success, or an error string: not_found, expired, already_used.
var consumeLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local rec = cjson.decode(data)
if rec.consumed then
  return {err='already_used'}
end
if tonumber(ARGV[1]) >= tonumber(rec.expires_at) then
  return {err='expired'}
end

local ttl = redis.call('PTTL', KEYS[1])
if ttl <= 0 then
  return {err='expired'}
end

rec.consumed = true
redis.call('SET', KEYS[1], cjson.encode(rec), 'PX', ttl)
return 1
`)

// replaceLua drops the live token (if any) tracked by an account index key.
// A consumed record is left in place so a later replay still reports
// already_used rather than not_found.
// KEYS[1] = account index key
// ARGV[1] = record key prefix
var replaceLua = redis.NewScript(`
local id = redis.call('GET', KEYS[1])
if not id then
  return 0
end
redis.call('DEL', KEYS[1])

local key = ARGV[1] .. id
local data = redis.call('GET', key)
if not data then
  return 0
end
if cjson.decode(data).consumed then
  return 0
end
redis.call('DEL', key)
return 1
`)

// RedisStore is the Redis-backed Store implementation.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a RedisStore. prefix namespaces all keys; empty
// selects "vt".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "vt"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) recordKey(id string) string {
	return s.prefix + ":" + id
}

func (s *RedisStore) accountKey(accountID string, purpose Purpose) string {
	return s.prefix + "a:" + accountID + ":" + purpose.String()
}

// redisRecord is the stored JSON shape. Timestamps are unix seconds so the
// consume script can compare them without date parsing.
type redisRecord struct {
	ID         string `json:"id"`
	AccountID  string `json:"account_id"`
	SecretHash string `json:"secret_hash"`
	Purpose    uint8  `json:"purpose"`
	IssuedAt   int64  `json:"issued_at"`
	ExpiresAt  int64  `json:"expires_at"`
	Consumed   bool   `json:"consumed"`
}

func encodeRecord(rec *Record) ([]byte, error) {
	return json.Marshal(redisRecord{
		ID:         rec.ID.String(),
		AccountID:  rec.AccountID,
		SecretHash: base64.StdEncoding.EncodeToString(rec.SecretHash[:]),
		Purpose:    uint8(rec.Purpose),
		IssuedAt:   rec.IssuedAt.Unix(),
		ExpiresAt:  rec.ExpiresAt.Unix(),
		Consumed:   rec.Consumed,
	})
}

func decodeRecord(data []byte) (*Record, error) {
	var wire redisRecord
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: corrupt record: %v", ErrStoreUnavailable, err)
	}

	id, err := uuid.Parse(wire.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt record id: %v", ErrStoreUnavailable, err)
	}
	hash, err := base64.StdEncoding.DecodeString(wire.SecretHash)
	if err != nil || len(hash) != 32 {
		return nil, fmt.Errorf("%w: corrupt secret hash", ErrStoreUnavailable)
	}

	rec := &Record{
		ID:        id,
		AccountID: wire.AccountID,
		Purpose:   Purpose(wire.Purpose),
		IssuedAt:  time.Unix(wire.IssuedAt, 0),
		ExpiresAt: time.Unix(wire.ExpiresAt, 0),
		Consumed:  wire.Consumed,
	}
	copy(rec.SecretHash[:], hash)
	return rec, nil
}

// Insert persists a record and the account index entry pointing at it.
func (s *RedisStore) Insert(ctx context.Context, rec *Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	ttl := time.Until(rec.ExpiresAt) + expiredRetention
	recordKey := s.recordKey(rec.ID.String())
	accountKey := s.accountKey(rec.AccountID, rec.Purpose)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey, data, ttl)
		pipe.Set(ctx, accountKey, rec.ID.String(), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get fetches a record by id without mutating it.
func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	data, err := s.redis.Get(ctx, s.recordKey(id.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return decodeRecord(data)
}

// ConsumeByID marks a valid record consumed. Exactly one concurrent caller
// wins; the rest observe ErrAlreadyUsed.
func (s *RedisStore) ConsumeByID(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := consumeLua.Run(ctx, s.redis,
		[]string{s.recordKey(id.String())},
		strconv.FormatInt(now.Unix(), 10),
	).Result()
	if err == nil {
		return nil
	}

	switch err.Error() {
	case "not_found":
		return ErrNotFound
	case "expired":
		return ErrExpired
	case "already_used":
		return ErrAlreadyUsed
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// DeleteForAccount removes the live token for accountID+purpose, if any.
func (s *RedisStore) DeleteForAccount(ctx context.Context, accountID string, purpose Purpose) error {
	_, err := replaceLua.Run(ctx, s.redis,
		[]string{s.accountKey(accountID, purpose)},
		s.prefix+":",
	).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteExpired scans token records and removes those past expiry. The scan
// is O(n) over the token keyspace and meant for scheduled or opportunistic
// use, not request hot paths.
func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	pattern := s.prefix + ":*"
	nowUnix := now.Unix()

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 256).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		for _, key := range keys {
			data, err := s.redis.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return removed, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			rec, err := decodeRecord(data)
			if err != nil {
				continue
			}
			if rec.ExpiresAt.Unix() > nowUnix {
				continue
			}
			deleted, err := s.redis.Del(ctx, key).Result()
			if err != nil {
				return removed, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			removed += int(deleted)
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
