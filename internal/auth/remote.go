package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// RemoteVerifier 调外部 auth 服务的 /v1/auth/verify 校验 token。
// 部署上 collab 核心与签发方不共享密钥时走这条路。
type RemoteVerifier struct {
	client    *http.Client
	verifyURL string
}

// NewRemoteVerifier 的 baseURL 不要带路径（如 http://localhost:3001），
// verify 路径在这里拼，避免双斜杠。
func NewRemoteVerifier(baseURL string) *RemoteVerifier {
	return &RemoteVerifier{
		client:    &http.Client{Timeout: 1200 * time.Millisecond},
		verifyURL: strings.TrimRight(baseURL, "/") + "/v1/auth/verify",
	}
}

type verifyResp struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
	Type     string `json:"type"`
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader([]byte("{}")))
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		// 上游不可达也按未鉴权处理：不允许半鉴权会话
		return Identity{}, ErrUnauthenticated
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, ErrUnauthenticated
	}
	var claims verifyResp
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return Identity{}, ErrUnauthenticated
	}
	if claims.Type != "" && claims.Type != "access" {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}
