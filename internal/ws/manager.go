package ws

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"collabcore/internal/auth"
	"collabcore/internal/collab"
)

// 全局的 WebSocket upgrader（允许本地开发环境的来源）
var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" {
		return true
	}
	allowedPrefixes := []string{
		"http://localhost",
		"http://127.0.0.1",
		"https://localhost",
		"https://127.0.0.1",
	}
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(origin, p) {
			return true
		}
	}
	return false
}}

type Manager struct {
	reg       *collab.Registry
	queueSize int
}

func NewManager(reg *collab.Registry, queueSize int) *Manager {
	return &Manager{reg: reg, queueSize: queueSize}
}

// WebSocketConnect 把一个已通过鉴权中间件的 HTTP 请求升级成实时连接。
// 身份在升级时绑定，连接存续期间不变。
func (m *Manager) WebSocketConnect(c *gin.Context) {
	// 以键是否存在判断是否过了鉴权中间件，不拿 id 的零值当哨兵
	rawID, ok := c.Get("userId")
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED"})
		return
	}
	userID, _ := rawID.(uint64)
	username := c.GetString("username")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v (origin=%s)", err, c.Request.Header.Get("Origin"))
		return
	}

	wsConn := NewConn(conn, m.reg, auth.Identity{UserID: userID, Username: username}, m.queueSize)

	// 先启动写循环，保证后续写入 send 通道的事件能被及时发送
	go wsConn.WriteLoop()
	wsConn.ReadLoop()
}
