package collab

import (
	"context"
	"errors"
	"time"

	"collabcore/internal/ot/delta"
	"collabcore/internal/perm"
)

// Session 是一条已鉴权的实时连接在房间视角下的样子。
// ws.Conn 实现它；测试里用内存假实现。
type Session interface {
	SessionID() string
	UserID() uint64
	Username() string
	// Enqueue 非阻塞投递一条出站事件；队列满时返回 false（允许丢弃）。
	Enqueue(msg Outbound) bool
}

// DocMeta 是权限判定需要的文档归属信息。
type DocMeta struct {
	OwnerID       uint64
	IsPublic      bool
	Collaborators []perm.Collaborator
}

// ContentSnapshot 是文档会话状态的只读快照。
type ContentSnapshot struct {
	Content  delta.Delta
	Text     string
	Revision uint64
}

// ErrDocNotFound 表示持久层中没有这篇文档（区别于持久层不可达）。
var ErrDocNotFound = errors.New("document not found")

// Store 是外部持久化协作方的客户端视图。
// 实现见 internal/store；任何驱动错误都在实现内转译。
type Store interface {
	// Meta 读取归属信息；不存在返回 ErrDocNotFound。
	Meta(ctx context.Context, docID string) (DocMeta, error)
	// Create 建档（首次 join 自动建档，owner 为首个加入者）。
	Create(ctx context.Context, docID string, ownerID uint64) error
	// LoadContent 读取内容与版本号；不存在视作空文档。
	LoadContent(ctx context.Context, docID string) (ContentSnapshot, error)
	// SaveContent 落盘内容并追加一条版本历史（editorID 为最后编辑者）。
	SaveContent(ctx context.Context, docID string, snap ContentSnapshot, editorID uint64) error
}

// Presence 是共享在线状态缓存（Redis）。对房间来说是只写的：
// 成员集的权威来源永远是房间循环内的 members。
type Presence interface {
	AddMember(ctx context.Context, docID string, userID uint64, username string, ttl time.Duration) error
	RemoveMember(ctx context.Context, docID string, userID uint64) error
	SetCursor(ctx context.Context, docID string, userID uint64, jsonData []byte, ttl time.Duration) error
}
