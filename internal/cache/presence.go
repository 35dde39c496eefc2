package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// PresenceMirror exports room membership to Redis with TTL semantics. The
// in-process presence registry stays the protocol's source of truth; the
// mirror exists for operational visibility and for readers outside this
// process, so every method is best-effort from the gateway's point of view.
type PresenceMirror interface {
	AddMember(ctx context.Context, roomID, userID, name string, ttl time.Duration) error
	RemoveMember(ctx context.Context, roomID, userID string) error
	GetRooms(ctx context.Context) ([]string, error)
	GetAliveMembers(ctx context.Context, roomID string) ([]Member, error)
	SetCursor(ctx context.Context, roomID, userID string, jsonData []byte, ttl time.Duration) error
	GetCursor(ctx context.Context, roomID, userID string) ([]byte, error)
}

type Member struct {
	UserID string
	Name   string
}

type redisPresence struct {
	rdb redis.UniversalClient
}

func NewRedisPresence(rdb redis.UniversalClient) PresenceMirror {
	return &redisPresence{rdb: rdb}
}

func (p *redisPresence) AddMember(ctx context.Context, roomID, userID, name string, ttl time.Duration) error {
	// Refreshing a member's TTL is the same call again.
	tx := p.rdb.TxPipeline()
	// ZSET score holds expireAt (unix seconds), a logical TTL per member.
	expireAt := time.Now().Add(ttl).Unix()
	tx.ZAdd(ctx, roomKey(roomID), redis.Z{Score: float64(expireAt), Member: userID})
	tx.HSet(ctx, namesKey(roomID), userID, name)
	_, err := tx.Exec(ctx)
	return err
}

func (p *redisPresence) RemoveMember(ctx context.Context, roomID, userID string) error {
	tx := p.rdb.TxPipeline()
	tx.ZRem(ctx, roomKey(roomID), userID)
	tx.HDel(ctx, namesKey(roomID), userID)
	_, err := tx.Exec(ctx)
	return err
}

func (p *redisPresence) GetRooms(ctx context.Context) ([]string, error) {
	var rooms []string
	iter := p.rdb.Scan(ctx, 0, "canvas:presence:room:*", 0).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		// namesKey shares the prefix (canvas:presence:room:names:...),
		// filter it out.
		if strings.Contains(k, ":names:") {
			continue
		}
		// Keys look like canvas:presence:room:{roomID:<id>}; the braces are
		// the cluster hash tag.
		roomID := strings.TrimPrefix(k, "canvas:presence:room:")
		roomID = strings.TrimPrefix(roomID, "{roomID:")
		roomID = strings.TrimSuffix(roomID, "}")
		if roomID != "" {
			rooms = append(rooms, roomID)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (p *redisPresence) SetCursor(ctx context.Context, roomID, userID string, jsonData []byte, ttl time.Duration) error {
	return p.rdb.Set(ctx, cursorKey(roomID, userID), jsonData, ttl).Err()
}

func (p *redisPresence) GetCursor(ctx context.Context, roomID, userID string) ([]byte, error) {
	return p.rdb.Get(ctx, cursorKey(roomID, userID)).Bytes()
}

func (p *redisPresence) GetAliveMembers(ctx context.Context, roomID string) ([]Member, error) {
	// step1: sweep expired members. score=expireAt (unix seconds);
	// expireAt <= now means expired.
	now := time.Now().Unix()
	luaScript := `
	-- KEYS[1] = roomKey(roomID)
	-- KEYS[2] = namesKey(roomID)
	-- ARGV[1] = now (unix seconds)

	local expired = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
	if #expired > 0 then
		redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
		redis.call("HDEL", KEYS[2], unpack(expired))
	end
	return #expired
	`

	script := redis.NewScript(luaScript)
	_, err := script.Run(ctx, p.rdb, []string{roomKey(roomID), namesKey(roomID)}, now).Int()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	// step2: the survivors are the alive members.
	aliveIDs, err := p.rdb.ZRangeByScore(ctx, roomKey(roomID), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now, 10), // strictly > now
		Max: "+inf",
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if len(aliveIDs) == 0 {
		return nil, nil
	}

	// step3: batch-resolve names.
	names, err := p.rdb.HMGet(ctx, namesKey(roomID), aliveIDs...).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	members := make([]Member, 0, len(aliveIDs))
	for i, v := range names {
		name := ""
		if v != nil {
			name, _ = v.(string)
		}
		members = append(members, Member{UserID: aliveIDs[i], Name: name})
	}
	return members, nil
}
