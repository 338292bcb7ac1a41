package match

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store mirrors live session state into redis. The in-memory session stays
// authoritative; the mirror serves inspection, the lobby index, and recovery.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) gameKey(id string) string  { return "omok:game:" + strings.TrimSpace(id) }
func (s *Store) movesKey(id string) string { return s.gameKey(id) + ":moves" }
func (s *Store) lobbyKey() string          { return "omok:lobby" }

// SaveRecord writes the session record and refreshes companion TTLs.
func (s *Store) SaveRecord(ctx context.Context, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.gameKey(rec.ID), raw, s.ttl).Err(); err != nil {
		return err
	}
	_ = s.rdb.Expire(ctx, s.movesKey(rec.ID), s.ttl).Err()
	return nil
}

func (s *Store) LoadRecord(ctx context.Context, id string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, s.gameKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// AppendMove pushes one committed move onto the per-game log.
func (s *Store) AppendMove(ctx context.Context, id string, mv Move) error {
	raw, err := json.Marshal(mv)
	if err != nil {
		return err
	}
	if err := s.rdb.RPush(ctx, s.movesKey(id), raw).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, s.movesKey(id), s.ttl).Err()
}

func (s *Store) Moves(ctx context.Context, id string) ([]Move, error) {
	raws, err := s.rdb.LRange(ctx, s.movesKey(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Move, 0, len(raws))
	for _, raw := range raws {
		var mv Move
		if err := json.Unmarshal([]byte(raw), &mv); err != nil {
			return nil, err
		}
		out = append(out, mv)
	}
	return out, nil
}

// ClearMoves drops the move log on round reset.
func (s *Store) ClearMoves(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.movesKey(id)).Err()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.gameKey(id), s.movesKey(id)).Err(); err != nil {
		return err
	}
	return s.rdb.SRem(ctx, s.lobbyKey(), id).Err()
}

// Lobby index: rooms waiting for an opponent.
func (s *Store) AddLobby(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	if err := s.rdb.SAdd(ctx, s.lobbyKey(), id).Err(); err != nil {
		return err
	}
	_ = s.rdb.Expire(ctx, s.lobbyKey(), s.ttl).Err()
	return nil
}

func (s *Store) RemoveLobby(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	return s.rdb.SRem(ctx, s.lobbyKey(), id).Err()
}

// ListLobby returns the records of rooms still waiting for a white seat.
func (s *Store) ListLobby(ctx context.Context) ([]*Record, error) {
	ids, err := s.rdb.SMembers(ctx, s.lobbyKey()).Result()
	if err != nil {
		return nil, err
	}
	var out []*Record
	for _, id := range ids {
		rec, _ := s.LoadRecord(ctx, id)
		if rec == nil {
			continue
		}
		if rec.White != nil || rec.Winner != "" {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// ParseRedisURL extracts client options from a redis:// URL.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
