package seatlock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DefaultTTL is how long a seat stays claimed if the holder never releases it.
const DefaultTTL = 5 * time.Minute

const keyPrefix = "lock:"

// rollbackTimeout bounds releases that run after the caller's context is gone.
const rollbackTimeout = 3 * time.Second

// releaseIfHeld deletes each key whose value still names ARGV[1] as holder.
// Values are "<acquiredAtMillis>:<holderID>".
var releaseIfHeld = redis.NewScript(`
local n = 0
for i, k in ipairs(KEYS) do
	local v = redis.call('GET', k)
	if v then
		local sep = string.find(v, ':', 1, true)
		if sep and string.sub(v, sep + 1) == ARGV[1] then
			n = n + redis.call('DEL', k)
		end
	end
end
return n
`)

// SeatLock is a live claim on one seat.
type SeatLock struct {
	TripID     string    `json:"tripId"`
	Date       string    `json:"date"`
	Seat       int       `json:"seat"`
	HolderID   string    `json:"holderId"`
	AcquiredAt time.Time `json:"acquiredAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// AcquireResult reports the outcome of AcquireAll. On failure Acquired is empty.
type AcquireResult struct {
	Success     bool  `json:"success"`
	Acquired    []int `json:"acquired"`
	Conflicting []int `json:"conflicting"`
}

// LockStatus describes the state of a single seat key.
type LockStatus struct {
	Locked    bool      `json:"locked"`
	HolderID  string    `json:"holderId,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Store is a TTL based seat lock over Redis. Expiry is enforced by Redis itself,
// so an abandoned lock frees itself without any sweep.
type Store struct {
	client redis.UniversalClient
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(client redis.UniversalClient, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, logger: logger, now: time.Now}
}

// Key returns the Redis key of a seat lock.
func Key(tripID, date string, seat int) string {
	return fmt.Sprintf("%s%s:%s:%d", keyPrefix, tripID, date, seat)
}

func encodeValue(holderID string, at time.Time) string {
	return strconv.FormatInt(at.UnixMilli(), 10) + ":" + holderID
}

func decodeValue(v string) (holderID string, acquiredAt time.Time) {
	ts, holder, ok := strings.Cut(v, ":")
	if !ok {
		return v, time.Time{}
	}
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return holder, time.Time{}
	}
	return holder, time.UnixMilli(ms)
}

// AcquireAll claims every seat for holderID or none of them. Seats are claimed
// one at a time with SET NX PX; on the first conflict all seats claimed by this
// call are released before returning. A seat already held by holderID is
// treated as acquired and has its TTL refreshed.
func (s *Store) AcquireAll(ctx context.Context, tripID, date string, seats []int, holderID string, ttl time.Duration) (AcquireResult, error) {
	if holderID == "" {
		return AcquireResult{}, errors.New("seatlock: holder id is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	var (
		fresh    []int
		acquired []int
		conflict = -1
	)
	value := encodeValue(holderID, s.now())

	for i, seat := range seats {
		if err := ctx.Err(); err != nil {
			s.rollback(tripID, date, fresh, holderID)
			return AcquireResult{}, fmt.Errorf("seatlock: acquire interrupted: %w", err)
		}

		key := Key(tripID, date, seat)
		ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
		if err != nil {
			s.rollback(tripID, date, fresh, holderID)
			return AcquireResult{}, fmt.Errorf("seatlock: set %s: %w", key, err)
		}
		if ok {
			fresh = append(fresh, seat)
			acquired = append(acquired, seat)
			continue
		}

		current, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			// Expired between SETNX and GET; retry this seat once.
			ok, err = s.client.SetNX(ctx, key, value, ttl).Result()
			if err == nil && ok {
				fresh = append(fresh, seat)
				acquired = append(acquired, seat)
				continue
			}
		}
		if err != nil && err != redis.Nil {
			s.rollback(tripID, date, fresh, holderID)
			return AcquireResult{}, fmt.Errorf("seatlock: get %s: %w", key, err)
		}
		if holder, _ := decodeValue(current); current != "" && holder == holderID {
			_ = s.client.PExpire(ctx, key, ttl).Err()
			acquired = append(acquired, seat)
			continue
		}
		conflict = i
		break
	}

	if conflict < 0 {
		return AcquireResult{Success: true, Acquired: acquired, Conflicting: []int{}}, nil
	}

	s.rollback(tripID, date, fresh, holderID)

	conflicting := []int{seats[conflict]}
	for _, seat := range seats[conflict+1:] {
		current, err := s.client.Get(ctx, Key(tripID, date, seat)).Result()
		if err != nil {
			continue
		}
		if holder, _ := decodeValue(current); holder != holderID {
			conflicting = append(conflicting, seat)
		}
	}

	s.logger.Debug("seat lock conflict",
		zap.String("tripId", tripID),
		zap.String("date", date),
		zap.Ints("conflicting", conflicting),
		zap.String("holder", holderID),
	)
	return AcquireResult{Success: false, Acquired: []int{}, Conflicting: conflicting}, nil
}

// rollback releases seats claimed by holderID on a context detached from the
// caller, so a cancelled request still cleans up after itself.
func (s *Store) rollback(tripID, date string, seats []int, holderID string) {
	if len(seats) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), rollbackTimeout)
	defer cancel()
	if _, err := s.ReleaseHeld(ctx, tripID, date, seats, holderID); err != nil {
		// The TTL still frees these seats.
		s.logger.Warn("seat lock rollback failed",
			zap.String("tripId", tripID),
			zap.String("date", date),
			zap.Ints("seats", seats),
			zap.Error(err),
		)
	}
}

// Release deletes the seat locks regardless of holder. Releasing a seat that is
// not locked is a no-op. It returns how many locks were removed.
func (s *Store) Release(ctx context.Context, tripID, date string, seats []int) (int, error) {
	if len(seats) == 0 {
		return 0, nil
	}
	keys := make([]string, len(seats))
	for i, seat := range seats {
		keys[i] = Key(tripID, date, seat)
	}
	n, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("seatlock: release: %w", err)
	}
	return int(n), nil
}

// ReleaseHeld deletes only the seat locks still owned by holderID.
func (s *Store) ReleaseHeld(ctx context.Context, tripID, date string, seats []int, holderID string) (int, error) {
	if len(seats) == 0 {
		return 0, nil
	}
	keys := make([]string, len(seats))
	for i, seat := range seats {
		keys[i] = Key(tripID, date, seat)
	}
	n, err := releaseIfHeld.Run(ctx, s.client, keys, holderID).Int()
	if err != nil {
		return 0, fmt.Errorf("seatlock: release held: %w", err)
	}
	return n, nil
}

// IsLocked reports whether a seat is currently claimed and by whom.
func (s *Store) IsLocked(ctx context.Context, tripID, date string, seat int) (LockStatus, error) {
	key := Key(tripID, date, seat)
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return LockStatus{}, nil
	}
	if err != nil {
		return LockStatus{}, fmt.Errorf("seatlock: get %s: %w", key, err)
	}
	pttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return LockStatus{}, fmt.Errorf("seatlock: pttl %s: %w", key, err)
	}
	holder, _ := decodeValue(v)
	status := LockStatus{Locked: true, HolderID: holder}
	if pttl > 0 {
		status.ExpiresAt = s.now().Add(pttl)
	}
	return status, nil
}

// ListLocked returns the locked seats of a trip on a date in ascending order.
func (s *Store) ListLocked(ctx context.Context, tripID, date string) ([]int, error) {
	prefix := fmt.Sprintf("%s%s:%s:", keyPrefix, tripID, date)
	seats := []int{}
	err := s.scan(ctx, prefix+"*", func(key, _ string) {
		if seat, err := strconv.Atoi(strings.TrimPrefix(key, prefix)); err == nil {
			seats = append(seats, seat)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Ints(seats)
	return seats, nil
}

// Expiring lists every lock whose remaining TTL is below within. It exists for
// auditing only; correctness never depends on it.
func (s *Store) Expiring(ctx context.Context, within time.Duration) ([]SeatLock, error) {
	var locks []SeatLock
	err := s.scan(ctx, keyPrefix+"*", func(key, value string) {
		pttl, err := s.client.PTTL(ctx, key).Result()
		if err != nil || pttl <= 0 || pttl > within {
			return
		}
		lock, ok := parseKey(key)
		if !ok {
			return
		}
		lock.HolderID, lock.AcquiredAt = decodeValue(value)
		lock.ExpiresAt = s.now().Add(pttl)
		locks = append(locks, lock)
	})
	return locks, err
}

func (s *Store) scan(ctx context.Context, match string, fn func(key, value string)) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return fmt.Errorf("seatlock: scan %s: %w", match, err)
		}
		for _, key := range keys {
			v, err := s.client.Get(ctx, key).Result()
			if err != nil {
				continue // expired mid-scan
			}
			fn(key, v)
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func parseKey(key string) (SeatLock, bool) {
	rest := strings.TrimPrefix(key, keyPrefix)
	last := strings.LastIndex(rest, ":")
	if last < 0 {
		return SeatLock{}, false
	}
	seat, err := strconv.Atoi(rest[last+1:])
	if err != nil {
		return SeatLock{}, false
	}
	rest = rest[:last]
	mid := strings.LastIndex(rest, ":")
	if mid < 0 {
		return SeatLock{}, false
	}
	return SeatLock{TripID: rest[:mid], Date: rest[mid+1:], Seat: seat}, true
}
