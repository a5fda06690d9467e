package ws

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"collabcore/internal/auth"
	"collabcore/internal/collab"
)

// Conn 是一条已鉴权的实时连接：一个读循环 + 一个写循环，
// 中间隔一条有界 send 通道。它实现 collab.Session，
// 房间循环通过 Enqueue 给它投递出站事件。
type Conn struct {
	ws       *websocket.Conn
	reg      *collab.Registry
	id       string
	identity auth.Identity

	send chan collab.Outbound
}

func NewConn(wsConn *websocket.Conn, reg *collab.Registry, identity auth.Identity, queueSize int) *Conn {
	if queueSize <= 0 {
		queueSize = 32
	}
	return &Conn{
		ws:       wsConn,
		reg:      reg,
		id:       uuid.NewString(),
		identity: identity,
		send:     make(chan collab.Outbound, queueSize),
	}
}

func (c *Conn) SessionID() string { return c.id }
func (c *Conn) UserID() uint64    { return c.identity.UserID }
func (c *Conn) Username() string  { return c.identity.Username }

// Enqueue 非阻塞投递；队列满了就丢（慢消费者不准拖住房间循环）。
func (c *Conn) Enqueue(msg collab.Outbound) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ReadLoop 阻塞消费入站消息直到连接关闭。
// 返回前走与显式 leave 相同的退出路径（含可能的末次落盘）。
func (c *Conn) ReadLoop() {
	defer func() {
		c.reg.Leave(c)
		close(c.send)
	}()
	for {
		var msg ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("ws read error user=%d: %v", c.UserID(), err)
			}
			return
		}
		if msg.DocID == "" {
			c.Enqueue(collab.ErrorMsg{Type: "error", Code: "BAD_REQUEST", Message: "missing docId"})
			continue
		}

		switch msg.Type {
		case "join":
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := c.reg.Join(ctx, msg.DocID, c)
			cancel()
			if err != nil {
				// join 失败必须带可区分的错误事件，然后关连接
				c.Enqueue(collab.ErrorMsg{Type: "error", Code: joinErrorCode(err)})
				return
			}

		case "edit":
			if err := c.reg.SubmitEdit(c, msg.DocID, msg.Ops, msg.BaseRevision); err != nil {
				c.Enqueue(collab.OperationRejectedMsg{Type: "operation-rejected", DocID: msg.DocID, Code: rejectCode(err)})
			}

		case "cursor":
			if err := c.reg.UpdateCursor(c, msg.DocID, msg.Range); err != nil {
				log.Printf("cursor dropped user=%d doc=%s: %v", c.UserID(), msg.DocID, err)
			}

		case "save":
			if err := c.reg.Save(c, msg.DocID, msg.Content); err != nil {
				c.Enqueue(collab.OperationRejectedMsg{Type: "operation-rejected", DocID: msg.DocID, Code: rejectCode(err)})
			}

		case "chat":
			if err := c.reg.Chat(c, msg.DocID, msg.Message); err != nil {
				log.Printf("chat dropped user=%d doc=%s: %v", c.UserID(), msg.DocID, err)
			}

		default:
			c.Enqueue(collab.ErrorMsg{Type: "error", Code: "UNKNOWN_TYPE", Message: msg.Type})
		}
	}
}

// WriteLoop 持续把 send 通道里的事件按 JSON 写出去。
func (c *Conn) WriteLoop() {
	for msg := range c.send {
		if err := c.ws.WriteJSON(msg); err != nil {
			log.Printf("ws write error user=%d: %v", c.UserID(), err)
			break
		}
	}
	_ = c.ws.Close()
}

func joinErrorCode(err error) string {
	switch {
	case errors.Is(err, collab.ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, collab.ErrPersistenceUnavailable):
		return "PERSISTENCE_UNAVAILABLE"
	case errors.Is(err, auth.ErrUnauthenticated):
		return "UNAUTHENTICATED"
	default:
		return "INTERNAL"
	}
}

func rejectCode(err error) string {
	switch {
	case errors.Is(err, collab.ErrNotMember):
		return "NOT_A_MEMBER"
	case errors.Is(err, collab.ErrRoomClosed):
		return "ROOM_CLOSED"
	default:
		return "INTERNAL"
	}
}
