package delta

import "errors"

type Kind string

const (
	KindRetain Kind = "retain"
	KindInsert Kind = "insert"
	KindDelete Kind = "delete"
)

type Op struct {
	Kind  Kind           `json:"kind"`            // "retain" / "insert" / "delete"
	Count int            `json:"count,omitempty"` // retain/delete 的长度
	Text  string         `json:"text,omitempty"`  // insert 的文本
	Attrs map[string]any `json:"attrs,omitempty"` // 样式属性（粗体/颜色等）
}

type Delta []Op

// "ops":[{"retain":5},{"insert":"Hello"}]

var (
	ErrEmptyDelta = errors.New("empty delta")
	ErrBadOp      = errors.New("malformed op")
)

// Validate 只做结构校验，不做位置校验。
// 位置是否越界由应用侧按 last-writer-merge 策略兜底处理。
func (d Delta) Validate() error {
	if len(d) == 0 {
		return ErrEmptyDelta
	}
	for _, op := range d {
		switch op.Kind {
		case KindRetain, KindDelete:
			if op.Count <= 0 || op.Text != "" {
				return ErrBadOp
			}
		case KindInsert:
			if op.Text == "" || op.Count != 0 {
				return ErrBadOp
			}
		default:
			return ErrBadOp
		}
	}
	return nil
}

// Concat 把 b 拼接到 a 之后，返回新切片（不修改入参）。
// 这是本服务的合并策略：操作日志按到达顺序串接。
func Concat(a, b Delta) Delta {
	out := make(Delta, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

// InsertText 返回 delta 中全部 insert 文本的串接，用于越界回退时的追加写。
func (d Delta) InsertText() string {
	var s string
	for _, op := range d {
		if op.Kind == KindInsert {
			s += op.Text
		}
	}
	return s
}

// InsertLen 返回 insert 文本的总 rune 数。
func (d Delta) InsertLen() int {
	n := 0
	for _, op := range d {
		if op.Kind == KindInsert {
			n += len([]rune(op.Text))
		}
	}
	return n
}
