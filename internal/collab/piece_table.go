package collab

import (
	"errors"
	"strings"

	"collabcore/internal/ot/delta"
)

// PieceTable 维护文档的纯文本投影。
// 操作日志本身按串接合并（见 room.go），纯文本只是给持久层和
// 版本历史用的可读快照，所以这里按 retain/insert/delete 的
// 位置语义尽力重放；位置越界时返回 ErrOutOfRange，由调用方回退。

var ErrOutOfRange = errors.New("position out of range")

type bufKind int

const (
	bufOriginal bufKind = iota
	bufAdd
)

type piece struct {
	buf    bufKind
	off    int
	length int
}

type PieceTable struct {
	original []rune
	add      []rune
	pieces   []piece
}

func NewPieceTable(initial string) *PieceTable {
	r := []rune(initial)
	pt := &PieceTable{original: r}
	if len(r) > 0 {
		pt.pieces = []piece{{buf: bufOriginal, off: 0, length: len(r)}}
	}
	return pt
}

func (pt *PieceTable) Len() int {
	n := 0
	for _, p := range pt.pieces {
		n += p.length
	}
	return n
}

func (pt *PieceTable) String() string {
	var b strings.Builder
	for _, p := range pt.pieces {
		switch p.buf {
		case bufOriginal:
			b.WriteString(string(pt.original[p.off : p.off+p.length]))
		case bufAdd:
			b.WriteString(string(pt.add[p.off : p.off+p.length]))
		}
	}
	return b.String()
}

// Apply 按位置语义重放一个 delta。任何一步越界都返回 ErrOutOfRange，
// 此时表内容回滚到调用前的样子；调用方可改用 AppendText 兜底
// （见 room.go 的 last-writer-merge 策略）。
func (pt *PieceTable) Apply(d delta.Delta) error {
	saved := make([]piece, len(pt.pieces))
	copy(saved, pt.pieces)
	savedAdd := len(pt.add)
	if err := pt.apply(d); err != nil {
		pt.pieces = saved
		pt.add = pt.add[:savedAdd]
		return err
	}
	return nil
}

func (pt *PieceTable) apply(d delta.Delta) error {
	pos := 0
	for _, op := range d {
		switch op.Kind {
		case delta.KindRetain:
			if pos+op.Count > pt.Len() {
				return ErrOutOfRange
			}
			pos += op.Count
		case delta.KindInsert:
			pt.insert(pos, op.Text)
			pos += len([]rune(op.Text))
		case delta.KindDelete:
			if pos+op.Count > pt.Len() {
				return ErrOutOfRange
			}
			pt.delete(pos, op.Count)
		}
	}
	return nil
}

// AppendText 在末尾追加文本，作为 Apply 失败时的回退路径。
func (pt *PieceTable) AppendText(text string) {
	if text == "" {
		return
	}
	pt.insert(pt.Len(), text)
}

func (pt *PieceTable) insert(pos int, text string) {
	r := []rune(text)
	np := piece{buf: bufAdd, off: len(pt.add), length: len(r)}
	pt.add = append(pt.add, r...)

	idx, off := pt.locate(pos)
	if idx >= len(pt.pieces) {
		pt.pieces = append(pt.pieces, np)
		return
	}

	// 在目标 piece 中间插入：拆成 左 / 新 / 右 三段
	cur := pt.pieces[idx]
	out := make([]piece, 0, len(pt.pieces)+2)
	out = append(out, pt.pieces[:idx]...)
	if off > 0 {
		out = append(out, piece{buf: cur.buf, off: cur.off, length: off})
	}
	out = append(out, np)
	if cur.length-off > 0 {
		out = append(out, piece{buf: cur.buf, off: cur.off + off, length: cur.length - off})
	}
	out = append(out, pt.pieces[idx+1:]...)
	pt.pieces = out
}

func (pt *PieceTable) delete(pos, count int) {
	remain := count
	idx, off := pt.locate(pos)
	for remain > 0 && idx < len(pt.pieces) {
		cur := &pt.pieces[idx]
		can := cur.length - off
		if can <= 0 {
			idx++
			off = 0
			continue
		}
		take := remain
		if take > can {
			take = can
		}

		if off == 0 && take == cur.length {
			// 整个 piece 删掉，idx 不动
			pt.pieces = append(pt.pieces[:idx], pt.pieces[idx+1:]...)
		} else {
			leftLen := off
			rightLen := cur.length - off - take
			out := make([]piece, 0, len(pt.pieces)+1)
			out = append(out, pt.pieces[:idx]...)
			if leftLen > 0 {
				out = append(out, piece{buf: cur.buf, off: cur.off, length: leftLen})
			}
			if rightLen > 0 {
				out = append(out, piece{buf: cur.buf, off: cur.off + off + take, length: rightLen})
			}
			out = append(out, pt.pieces[idx+1:]...)
			pt.pieces = out
			if leftLen > 0 {
				idx++
			}
			off = 0
		}
		remain -= take
	}
}

// locate 把逻辑位置换算成 (piece 下标, piece 内偏移)。
func (pt *PieceTable) locate(pos int) (idx, off int) {
	cur := 0
	for i, p := range pt.pieces {
		if pos < cur+p.length {
			return i, pos - cur
		}
		cur += p.length
	}
	return len(pt.pieces), 0
}
