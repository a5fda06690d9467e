package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"collabcore/internal/ot/delta"
	"collabcore/internal/perm"
)

// Registry 管所有活跃房间的生命周期：首次 join 建房、末位 leave 拆房，
// 并保证一条连接同时只属于一个房间。它是显式持有、随服务存亡的对象，
// 不是进程级全局状态。

const (
	defaultFlushDebounce = 3 * time.Second
	defaultPresenceTTL   = 10 * time.Minute
)

type RegistryOptions struct {
	FlushDebounce time.Duration
	PresenceTTL   time.Duration
}

type Registry struct {
	store       Store
	presence    Presence    // 可为 nil（无 Redis 时只靠内存成员集）
	events      *Dispatcher // 可为 nil（不发审计事件）
	debounce    time.Duration
	presenceTTL time.Duration

	mu        sync.Mutex
	rooms     map[string]*Room
	bySession map[Session]*Room
}

func NewRegistry(store Store, presence Presence, events *Dispatcher, opt RegistryOptions) *Registry {
	if opt.FlushDebounce <= 0 {
		opt.FlushDebounce = defaultFlushDebounce
	}
	if opt.PresenceTTL <= 0 {
		opt.PresenceTTL = defaultPresenceTTL
	}
	return &Registry{
		store:       store,
		presence:    presence,
		events:      events,
		debounce:    opt.FlushDebounce,
		presenceTTL: opt.PresenceTTL,
		rooms:       make(map[string]*Room),
		bySession:   make(map[Session]*Room),
	}
}

// Join 鉴权后把会话加入文档房间。文档不存在时自动建档，
// owner 为首个加入者（原语义：首次打开即建档）。
func (g *Registry) Join(ctx context.Context, docID string, sess Session) error {
	meta, err := g.store.Meta(ctx, docID)
	if errors.Is(err, ErrDocNotFound) {
		if cerr := g.store.Create(ctx, docID, sess.UserID()); cerr != nil {
			log.Printf("auto-create failed doc=%s err=%v", docID, cerr)
			return ErrPersistenceUnavailable
		}
		meta = DocMeta{OwnerID: sess.UserID()}
	} else if err != nil {
		log.Printf("meta load failed doc=%s err=%v", docID, err)
		return ErrPersistenceUnavailable
	}

	cap := perm.Resolve(meta.OwnerID, meta.Collaborators, meta.IsPublic, sess.UserID())
	if !cap.CanView {
		return ErrForbidden
	}

	// 单连接同时只在一个房间：先退出旧房间（含重复 join 同一文档）
	g.Leave(sess)

	// 撞上房间销毁窗口时重建重试
	for attempt := 0; attempt < 3; attempt++ {
		room := g.roomFor(docID)
		if err := room.Join(sess, cap); err != nil {
			if errors.Is(err, ErrRoomClosed) {
				continue
			}
			return err
		}
		g.mu.Lock()
		g.bySession[sess] = room
		g.mu.Unlock()
		return nil
	}
	return ErrRoomClosed
}

// Leave 把会话移出其所在房间；不在任何房间时是空操作。
// 断线（transport 层关闭）与显式 leave 走同一条路径。
func (g *Registry) Leave(sess Session) {
	g.mu.Lock()
	room := g.bySession[sess]
	delete(g.bySession, sess)
	g.mu.Unlock()
	if room != nil {
		room.Leave(sess)
	}
}

func (g *Registry) SubmitEdit(sess Session, docID string, ops delta.Delta, baseRevision uint64) error {
	room, err := g.roomOf(sess, docID)
	if err != nil {
		return err
	}
	return room.SubmitEdit(sess, ops, baseRevision)
}

func (g *Registry) UpdateCursor(sess Session, docID string, rng json.RawMessage) error {
	room, err := g.roomOf(sess, docID)
	if err != nil {
		return err
	}
	return room.UpdateCursor(sess, rng)
}

func (g *Registry) Chat(sess Session, docID, message string) error {
	room, err := g.roomOf(sess, docID)
	if err != nil {
		return err
	}
	return room.Chat(sess, message)
}

// Save 是客户端主动触发的落盘提示，content 非空时整体替换内容。
func (g *Registry) Save(sess Session, docID string, content delta.Delta) error {
	room, err := g.roomOf(sess, docID)
	if err != nil {
		return err
	}
	return room.Save(sess, content)
}

// Shutdown 逐个触发末次落盘并销毁所有房间（进程退出路径）。
func (g *Registry) Shutdown(ctx context.Context) {
	g.mu.Lock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	g.mu.Unlock()
	for _, r := range rooms {
		r.Close(ctx)
	}
}

func (g *Registry) roomFor(docID string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.rooms[docID]
	if r == nil {
		r = newRoom(docID, g)
		g.rooms[docID] = r
		go r.run()
	}
	return r
}

func (g *Registry) roomOf(sess Session, docID string) (*Room, error) {
	g.mu.Lock()
	r := g.bySession[sess]
	g.mu.Unlock()
	if r == nil || r.docID != docID {
		return nil, ErrNotMember
	}
	return r, nil
}

// removeRoom 只在房间自我销毁时由房间 goroutine 调用。
func (g *Registry) removeRoom(docID string, r *Room) {
	g.mu.Lock()
	if g.rooms[docID] == r {
		delete(g.rooms, docID)
	}
	g.mu.Unlock()
}
