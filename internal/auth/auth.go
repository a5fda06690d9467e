package auth

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 连接网关的鉴权协作方：token 进，身份出。
// 鉴权失败对该连接是致命的，不存在匿名/半鉴权会话。

var ErrUnauthenticated = errors.New("UNAUTHENTICATED")

type Identity struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type Claims struct {
	UserID   uint64 `json:"sub"`
	Username string `json:"username"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

func getSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret"
	}
	return []byte(secret)
}

// LocalVerifier 在进程内校验 HS256 access token，
// 与签发方共享 JWT_SECRET。
type LocalVerifier struct{}

func NewLocalVerifier() *LocalVerifier { return &LocalVerifier{} }

func (v *LocalVerifier) Verify(ctx context.Context, tokenString string) (Identity, error) {
	claims, err := ParseToken(tokenString)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}
	// refresh token 不能用来建立实时连接
	if claims.Type != "" && claims.Type != "access" {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// ParseToken 解析并校验签名与有效期，返回 Claims。
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return getSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

// SignAccessToken 供本地联调与测试签发 access token。
func SignAccessToken(userID uint64, username string, ttl time.Duration) (string, time.Time, error) {
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Type:     "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(getSecret())
	if err != nil {
		return "", time.Time{}, err
	}
	return token, time.Now().Add(ttl), nil
}
