package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"collabcore/internal/cache"
)

// PresenceHandler 对外暴露只读的在线成员查询。
// 权威成员集在房间内存里，这里读的是 Redis 侧影，
// 供网关/其他服务不经 WebSocket 观察文档的在线情况。
type PresenceHandler struct {
	presence cache.PresenceCache
}

func NewPresenceHandler(presence cache.PresenceCache) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

type presenceMemberView struct {
	UserID   uint64          `json:"userId"`
	Username string          `json:"username"`
	Cursor   json.RawMessage `json:"cursor,omitempty"`
}

// GetPresence GET /collab/presence/:docId
func (h *PresenceHandler) GetPresence(c *gin.Context) {
	docID := c.Param("docId")
	if docID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": "missing docId"})
		return
	}

	ctx := c.Request.Context()
	members, err := h.presence.GetAliveMembersWithNames(ctx, docID)
	if err != nil {
		log.Printf("presence query failed doc=%s err=%v", docID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "presence unavailable"})
		return
	}

	views := make([]presenceMemberView, 0, len(members))
	for _, m := range members {
		v := presenceMemberView{UserID: m.UserID, Username: m.Username}
		// 光标缺失不算错误，成员可能从未上报过
		if cur, cerr := h.presence.GetCursor(ctx, docID, m.UserID); cerr == nil && len(cur) > 0 {
			v.Cursor = cur
		}
		views = append(views, v)
	}

	c.JSON(http.StatusOK, gin.H{"docId": docID, "members": views})
}
