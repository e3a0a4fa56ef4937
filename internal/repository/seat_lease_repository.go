package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-live/internal/model"
)

// SeatHoldTTL is the fixed lifetime of a seat lease. A lease that is not
// released, re-held or superseded by a confirmed booking simply vanishes
// when the TTL lapses; Redis is the only authority on expiry and no code
// path polls for it.
const SeatHoldTTL = 600 * time.Second

// SeatLeaseRepo stores seat leases in Redis. Each lease is a plain string
// key hold:{showtimeID}:{seat} whose value is the holder identity and whose
// TTL enforces expiry. A per-showtime set holdidx:{showtimeID} indexes the
// seat numbers with a live-or-recent lease so that snapshot and disconnect
// cleanup cost scales with the seats of one showtime, not with the size of
// the whole keyspace. The index may briefly contain seats whose lease has
// already expired; readers prune such members as they encounter them.
//
// Every mutation is a single server-side Lua script, so the absent-or-owned
// check and the write happen atomically even with many server instances
// sharing the store.
type SeatLeaseRepo struct {
	rdb *redis.Client
}

// NewSeatLeaseRepo returns a SeatLeaseRepo bound to the provided client.
// The client must be non-nil: seat operations fail closed when the store
// is unreachable, they never degrade to unsynchronized success.
func NewSeatLeaseRepo(rdb *redis.Client) *SeatLeaseRepo {
	if rdb == nil {
		panic("nil redis client passed to NewSeatLeaseRepo")
	}
	return &SeatLeaseRepo{rdb: rdb}
}

func holdKey(showtimeID uint64, seat string) string {
	return fmt.Sprintf("hold:%d:%s", showtimeID, seat)
}

func holdIndexKey(showtimeID uint64) string {
	return fmt.Sprintf("holdidx:%d", showtimeID)
}

// acquireScript grants the lease when the key is absent or already owned by
// the caller (idempotent re-hold, which also refreshes the TTL). It updates
// the showtime index in the same atomic step. KEYS[1] = hold key,
// KEYS[2] = index key, ARGV = holder, ttl seconds, seat number.
var acquireScript = redis.NewScript(`
    local holder = redis.call('GET', KEYS[1])
    if holder and holder ~= ARGV[1] then
        return 0
    end
    redis.call('SET', KEYS[1], ARGV[1], 'EX', tonumber(ARGV[2]))
    redis.call('SADD', KEYS[2], ARGV[3])
    redis.call('EXPIRE', KEYS[2], tonumber(ARGV[2]))
    return 1
`)

// releaseScript deletes the lease only when the caller owns it. A release
// attempt against another holder's lease (or an expired one) is a no-op.
// KEYS[1] = hold key, KEYS[2] = index key, ARGV = holder, seat number.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        redis.call('DEL', KEYS[1])
        redis.call('SREM', KEYS[2], ARGV[2])
        return 1
    end
    return 0
`)

// releaseAllScript walks the showtime index and removes every lease owned
// by the given holder, returning the released seat numbers. The index
// bounds the walk to one showtime's seats. KEYS[1] = index key,
// ARGV[1] = holder, ARGV[2] = hold key prefix ("hold:{showtimeID}:").
var releaseAllScript = redis.NewScript(`
    local released = {}
    local seats = redis.call('SMEMBERS', KEYS[1])
    for _, seat in ipairs(seats) do
        local key = ARGV[2] .. seat
        if redis.call('GET', key) == ARGV[1] then
            redis.call('DEL', key)
            redis.call('SREM', KEYS[1], seat)
            released[#released+1] = seat
        end
    end
    return released
`)

// Acquire attempts to take the lease for one seat. It returns ErrSeatTaken
// when a live lease owned by a different holder exists. Any store error is
// returned as-is so callers fail closed.
func (r *SeatLeaseRepo) Acquire(ctx context.Context, showtimeID uint64, seat, holderID string) error {
	ttl := int64(SeatHoldTTL / time.Second)
	res, err := acquireScript.Run(ctx, r.rdb,
		[]string{holdKey(showtimeID, seat), holdIndexKey(showtimeID)},
		holderID, ttl, seat,
	).Int64()
	if err != nil {
		return err
	}
	if res == 0 {
		return ErrSeatTaken
	}
	return nil
}

// Release removes the lease if and only if holderID owns it. The returned
// bool reports whether a lease was actually removed; releasing a seat held
// by someone else (or not held at all) is not an error.
func (r *SeatLeaseRepo) Release(ctx context.Context, showtimeID uint64, seat, holderID string) (bool, error) {
	res, err := releaseScript.Run(ctx, r.rdb,
		[]string{holdKey(showtimeID, seat), holdIndexKey(showtimeID)},
		holderID, seat,
	).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// Clear unconditionally removes the leases for the given seats. Used when a
// booking is finalized: payment supersedes whatever hold state remains, so
// no ownership check applies. Unknown or already-expired seats are ignored.
func (r *SeatLeaseRepo) Clear(ctx context.Context, showtimeID uint64, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	pipe := r.rdb.Pipeline()
	idx := holdIndexKey(showtimeID)
	for _, seat := range seats {
		pipe.Del(ctx, holdKey(showtimeID, seat))
		pipe.SRem(ctx, idx, seat)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Snapshot returns all live (seat, holder) pairs for a showtime. It reads
// the index set and resolves each member's lease; members whose lease has
// expired since they were indexed are pruned on the way out, keeping the
// index self-healing. The result is the source of truth a joining client
// renders before any events arrive.
func (r *SeatLeaseRepo) Snapshot(ctx context.Context, showtimeID uint64) ([]model.SeatHold, error) {
	idx := holdIndexKey(showtimeID)
	seats, err := r.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		return nil, err
	}
	if len(seats) == 0 {
		return []model.SeatHold{}, nil
	}
	pipe := r.rdb.Pipeline()
	gets := make([]*redis.StringCmd, len(seats))
	for i, seat := range seats {
		gets[i] = pipe.Get(ctx, holdKey(showtimeID, seat))
	}
	// Exec returns the first command error; redis.Nil just means the lease
	// expired between indexing and now.
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}
	holds := make([]model.SeatHold, 0, len(seats))
	var stale []interface{}
	for i, seat := range seats {
		holder, err := gets[i].Result()
		if err == redis.Nil {
			stale = append(stale, seat)
			continue
		}
		if err != nil {
			return nil, err
		}
		holds = append(holds, model.SeatHold{SeatNumber: seat, HolderID: holder})
	}
	if len(stale) > 0 {
		// Best effort; a failed prune only delays cleanup to the next reader.
		_ = r.rdb.SRem(ctx, idx, stale...).Err()
	}
	return holds, nil
}

// ReleaseAllByHolder removes every lease of the showtime owned by holderID
// and returns the seat numbers that were released. Invoked when a holder's
// connection goes away; the caller broadcasts the result as one batch.
func (r *SeatLeaseRepo) ReleaseAllByHolder(ctx context.Context, showtimeID uint64, holderID string) ([]string, error) {
	prefix := fmt.Sprintf("hold:%d:", showtimeID)
	res, err := releaseAllScript.Run(ctx, r.rdb,
		[]string{holdIndexKey(showtimeID)},
		holderID, prefix,
	).StringSlice()
	if err != nil {
		return nil, err
	}
	return res, nil
}
