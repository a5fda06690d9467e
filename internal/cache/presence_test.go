package cache

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// 需要本地 Redis，没有就跳过。
func testPresence(t *testing.T) PresenceCache {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379", DB: 15})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skip: redis not available: %v", err)
	}
	t.Cleanup(func() {
		_ = rdb.FlushDB(context.Background()).Err()
		_ = rdb.Close()
	})
	return NewRedisPresence(rdb)
}

func TestPresence_AddListRemove(t *testing.T) {
	p := testPresence(t)
	ctx := context.Background()

	if err := p.AddMember(ctx, "doc1", 1, "alice", time.Minute); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if err := p.AddMember(ctx, "doc1", 2, "bob", time.Minute); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	members, err := p.GetAliveMembersWithNames(ctx, "doc1")
	if err != nil {
		t.Fatalf("GetAliveMembersWithNames() error = %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %d, want 2", len(members))
	}

	if err := p.RemoveMember(ctx, "doc1", 1); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	members, err = p.GetAliveMembersWithNames(ctx, "doc1")
	if err != nil {
		t.Fatalf("GetAliveMembersWithNames() error = %v", err)
	}
	if len(members) != 1 || members[0].UserID != 2 || members[0].Username != "bob" {
		t.Fatalf("members after remove = %+v, want only bob", members)
	}
}

func TestPresence_ExpiredMembersSwept(t *testing.T) {
	p := testPresence(t)
	ctx := context.Background()

	// 负 TTL 直接过期，Lua 清理应把它扫掉
	if err := p.AddMember(ctx, "doc2", 1, "alice", -time.Second); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	members, err := p.GetAliveMembersWithNames(ctx, "doc2")
	if err != nil {
		t.Fatalf("GetAliveMembersWithNames() error = %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("members = %+v, want none", members)
	}
}

func TestPresence_CursorRoundTrip(t *testing.T) {
	p := testPresence(t)
	ctx := context.Background()

	data := []byte(`{"index":3,"length":5}`)
	if err := p.SetCursor(ctx, "doc1", 1, data, time.Minute); err != nil {
		t.Fatalf("SetCursor() error = %v", err)
	}
	got, err := p.GetCursor(ctx, "doc1", 1)
	if err != nil {
		t.Fatalf("GetCursor() error = %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("GetCursor() = %s, want %s", got, data)
	}

	// 没写过光标的成员返回 nil，不是错误
	got, err = p.GetCursor(ctx, "doc1", 42)
	if err != nil || got != nil {
		t.Fatalf("GetCursor(absent) = (%v, %v), want (nil, nil)", got, err)
	}
}
