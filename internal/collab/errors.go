package collab

import "errors"

// 组件边界错误：底层驱动错误不允许穿透到这一层之上。
var (
	ErrForbidden              = errors.New("FORBIDDEN")
	ErrPersistenceUnavailable = errors.New("PERSISTENCE_UNAVAILABLE")
	ErrInvalidEdit            = errors.New("INVALID_EDIT")
	ErrRoomClosed             = errors.New("ROOM_CLOSED")
	ErrNotMember              = errors.New("NOT_A_MEMBER")
)
