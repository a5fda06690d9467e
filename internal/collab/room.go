package collab

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"collabcore/internal/ot/delta"
	"collabcore/internal/perm"
)

// Room 是一篇文档的会话状态 + 广播器。所有会话状态
// （members/content/revision）只被 run 里的那一个 goroutine 触碰，
// join/leave/edit 等都化成 inbox 上的命令，天然按到达顺序全序处理；
// 不同文档的房间互不相干。只有持久层读写会脱离这个循环异步执行。

type command interface{}

type joinCmd struct {
	sess  Session
	cap   perm.Capability
	reply chan error
}

type leaveCmd struct {
	sess  Session
	reply chan struct{}
}

type editCmd struct {
	sess         Session
	ops          delta.Delta
	baseRevision uint64
}

type cursorCmd struct {
	sess Session
	rng  json.RawMessage
}

type chatCmd struct {
	sess    Session
	message string
}

type saveCmd struct {
	sess    Session
	content delta.Delta // 可选：客户端携带的全量内容，非空时整体替换
}

type flushTickCmd struct{}

type flushDoneCmd struct {
	revision uint64
	err      error
}

type closeCmd struct {
	reply chan struct{}
}

type memberState struct {
	cap    perm.Capability
	cursor json.RawMessage
}

type Room struct {
	docID string
	reg   *Registry

	inbox chan command
	done  chan struct{}
	// closeErr 在 close(done) 之前写入，之后只读
	closeErr error

	// 以下字段只允许 run 的 goroutine 访问
	members     map[Session]*memberState
	content     delta.Delta
	text        *PieceTable
	revision    uint64
	lastFlushed uint64
	lastEditor  uint64
	flushing    bool
	flushTimer  *time.Timer
	// closing：销毁已决定但还在等在途 flush 归来
	closing    bool
	closeReply chan struct{}
	closed     bool
}

func newRoom(docID string, reg *Registry) *Room {
	return &Room{
		docID:   docID,
		reg:     reg,
		inbox:   make(chan command, 256),
		done:    make(chan struct{}),
		members: make(map[Session]*memberState),
	}
}

// enqueue 向房间循环投递命令；房间已销毁时返回销毁原因。
func (r *Room) enqueue(c command) error {
	select {
	case <-r.done:
		return r.closeErr
	default:
	}
	select {
	case r.inbox <- c:
		return nil
	case <-r.done:
		return r.closeErr
	}
}

// Join 把会话加入房间并等待处理完成。成功后 document-state、
// presence-update 等事件已经（或即将按序）投递到相关会话。
func (r *Room) Join(sess Session, cap perm.Capability) error {
	reply := make(chan error, 1)
	if err := r.enqueue(joinCmd{sess: sess, cap: cap, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		return r.closeErr
	}
}

// Leave 把会话移出房间并等待处理完成（含可能的末次落盘与销毁）。
func (r *Room) Leave(sess Session) {
	reply := make(chan struct{}, 1)
	if err := r.enqueue(leaveCmd{sess: sess, reply: reply}); err != nil {
		return
	}
	select {
	case <-reply:
	case <-r.done:
	}
}

func (r *Room) SubmitEdit(sess Session, ops delta.Delta, baseRevision uint64) error {
	return r.enqueue(editCmd{sess: sess, ops: ops, baseRevision: baseRevision})
}

func (r *Room) UpdateCursor(sess Session, rng json.RawMessage) error {
	return r.enqueue(cursorCmd{sess: sess, rng: rng})
}

func (r *Room) Chat(sess Session, message string) error {
	return r.enqueue(chatCmd{sess: sess, message: message})
}

func (r *Room) Save(sess Session, content delta.Delta) error {
	return r.enqueue(saveCmd{sess: sess, content: content})
}

// Close 触发末次落盘并销毁房间（进程退出路径）。
func (r *Room) Close(ctx context.Context) {
	reply := make(chan struct{}, 1)
	if err := r.enqueue(closeCmd{reply: reply}); err != nil {
		return
	}
	select {
	case <-reply:
	case <-r.done:
	case <-ctx.Done():
	}
}

func (r *Room) run() {
	if err := r.load(); err != nil {
		log.Printf("room load failed doc=%s err=%v", r.docID, err)
		r.shutdown(ErrPersistenceUnavailable)
		return
	}
	defer func() {
		// 单个房间的崩溃不允许波及进程和其他房间
		if p := recover(); p != nil {
			log.Printf("room panic doc=%s: %v", r.docID, p)
			r.finalFlush()
			r.shutdown(ErrRoomClosed)
		}
	}()
	for cmd := range r.inbox {
		switch c := cmd.(type) {
		case joinCmd:
			r.handleJoin(c)
		case leaveCmd:
			r.handleLeave(c)
		case editCmd:
			r.handleEdit(c)
		case cursorCmd:
			r.handleCursor(c)
		case chatCmd:
			r.handleChat(c)
		case saveCmd:
			r.handleSave(c)
		case flushTickCmd:
			r.startFlush()
		case flushDoneCmd:
			r.handleFlushDone(c)
		case closeCmd:
			if r.flushing {
				r.closing = true
				r.closeReply = c.reply
			} else {
				r.finalFlush()
				r.closed = true
				c.reply <- struct{}{}
			}
		}
		if r.closed {
			r.shutdown(ErrRoomClosed)
			return
		}
	}
}

// load 从持久层取回内容作为房间初始状态；无记录视作空文档。
func (r *Room) load() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := r.reg.store.LoadContent(ctx, r.docID)
	if err != nil {
		return err
	}
	r.content = snap.Content
	r.revision = snap.Revision
	r.lastFlushed = snap.Revision
	r.text = NewPieceTable(snap.Text)
	return nil
}

func (r *Room) handleJoin(c joinCmd) {
	if r.closing && r.closeReply == nil {
		// 末位 leave 正在等在途 flush，又来了新成员：取消销毁
		r.closing = false
	}
	r.members[c.sess] = &memberState{cap: c.cap}
	if r.reg.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := r.reg.presence.AddMember(ctx, r.docID, c.sess.UserID(), c.sess.Username(), r.reg.presenceTTL); err != nil {
			log.Printf("presence add failed doc=%s user=%d err=%v", r.docID, c.sess.UserID(), err)
		}
		cancel()
	}

	c.sess.Enqueue(DocumentStateMsg{
		Type:     "document-state",
		DocID:    r.docID,
		Content:  r.content,
		Revision: r.revision,
		CanEdit:  c.cap.CanEdit,
	})
	// 已有成员的光标回放给新成员
	for sess, st := range r.members {
		if sess == c.sess || st.cursor == nil {
			continue
		}
		c.sess.Enqueue(CursorMsg{Type: "cursor", DocID: r.docID, UserID: sess.UserID(), Range: st.cursor})
	}
	r.broadcast(UserJoinedMsg{Type: "user-joined", DocID: r.docID, UserID: c.sess.UserID(), Username: c.sess.Username()}, c.sess)
	r.broadcastPresence(nil)
	c.reply <- nil
}

func (r *Room) handleLeave(c leaveCmd) {
	defer func() { c.reply <- struct{}{} }()
	if _, ok := r.members[c.sess]; !ok {
		return
	}
	delete(r.members, c.sess)
	if r.reg.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := r.reg.presence.RemoveMember(ctx, r.docID, c.sess.UserID()); err != nil {
			log.Printf("presence remove failed doc=%s user=%d err=%v", r.docID, c.sess.UserID(), err)
		}
		cancel()
	}
	if len(r.members) == 0 {
		// 末位成员离开：末次落盘后销毁。有在途 flush 时等它归来，
		// 避免同一修订被落两次。
		if r.flushing {
			r.closing = true
			return
		}
		r.finalFlush()
		r.closed = true
		return
	}
	r.broadcast(UserLeftMsg{Type: "user-left", DocID: r.docID, UserID: c.sess.UserID(), Username: c.sess.Username()}, nil)
	r.broadcastPresence(nil)
}

func (r *Room) handleEdit(c editCmd) {
	st, ok := r.members[c.sess]
	if !ok {
		c.sess.Enqueue(OperationRejectedMsg{Type: "operation-rejected", DocID: r.docID, Code: "NOT_A_MEMBER"})
		return
	}
	if !st.cap.CanEdit {
		c.sess.Enqueue(OperationRejectedMsg{Type: "operation-rejected", DocID: r.docID, Code: "FORBIDDEN"})
		return
	}
	if err := c.ops.Validate(); err != nil {
		c.sess.Enqueue(OperationRejectedMsg{Type: "operation-rejected", DocID: r.docID, Code: "INVALID_EDIT", Message: err.Error()})
		return
	}

	// last-writer-merge：不做并发编辑的变换回放，陈旧的 baseRevision
	// 也照单全收，操作日志直接串接。收敛交给客户端。
	if err := r.text.Apply(c.ops); err != nil {
		// 位置已失效：退化为末尾追加，保证插入的内容不丢
		r.text.AppendText(c.ops.InsertText())
	}
	r.content = delta.Concat(r.content, c.ops)
	r.revision++
	r.lastEditor = c.sess.UserID()

	r.broadcast(EditMsg{
		Type:     "edit",
		DocID:    r.docID,
		Ops:      c.ops,
		Revision: r.revision,
		UserID:   c.sess.UserID(),
	}, c.sess)

	r.scheduleFlush()

	if r.reg.events != nil {
		ok := r.reg.events.Enqueue(DocOpEvent{
			EventType:    "OP_APPLIED",
			DocID:        r.docID,
			Revision:     r.revision,
			AuthorID:     c.sess.UserID(),
			BaseRevision: c.baseRevision,
			Ops:          c.ops,
			AppliedAt:    time.Now(),
		})
		if !ok {
			log.Printf("op event queue full, drop doc=%s rev=%d", r.docID, r.revision)
		}
	}
}

func (r *Room) handleCursor(c cursorCmd) {
	st, ok := r.members[c.sess]
	if !ok {
		return
	}
	st.cursor = c.rng
	if r.reg.presence != nil && len(c.rng) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := r.reg.presence.SetCursor(ctx, r.docID, c.sess.UserID(), c.rng, r.reg.presenceTTL); err != nil {
			log.Printf("cursor cache failed doc=%s user=%d err=%v", r.docID, c.sess.UserID(), err)
		}
		cancel()
	}
	r.broadcast(CursorMsg{Type: "cursor", DocID: r.docID, UserID: c.sess.UserID(), Range: c.rng}, c.sess)
}

func (r *Room) handleChat(c chatCmd) {
	if _, ok := r.members[c.sess]; !ok {
		return
	}
	// 聊天是纯转发，包含发送者本人
	r.broadcast(ChatMsg{
		Type:     "chat",
		DocID:    r.docID,
		UserID:   c.sess.UserID(),
		Username: c.sess.Username(),
		Message:  c.message,
	}, nil)
}

func (r *Room) handleSave(c saveCmd) {
	st, ok := r.members[c.sess]
	if !ok {
		return
	}
	if len(c.content) > 0 {
		if !st.cap.CanEdit {
			c.sess.Enqueue(OperationRejectedMsg{Type: "operation-rejected", DocID: r.docID, Code: "FORBIDDEN"})
			return
		}
		if err := c.content.Validate(); err != nil {
			c.sess.Enqueue(OperationRejectedMsg{Type: "operation-rejected", DocID: r.docID, Code: "INVALID_EDIT", Message: err.Error()})
			return
		}
		// 客户端全量内容优先于服务器端串接结果（原语义：save 时以客户端为准）
		r.content = c.content
		r.text = NewPieceTable("")
		if err := r.text.Apply(c.content); err != nil {
			r.text = NewPieceTable("")
			r.text.AppendText(c.content.InsertText())
		}
		r.revision++
		r.lastEditor = c.sess.UserID()
	}
	r.startFlush()
}

func (r *Room) scheduleFlush() {
	d := r.reg.debounce
	if r.flushTimer == nil {
		r.flushTimer = time.AfterFunc(d, func() {
			_ = r.enqueue(flushTickCmd{})
		})
		return
	}
	r.flushTimer.Reset(d)
}

// startFlush 异步落盘当前快照；同一时刻最多一个在途 flush。
func (r *Room) startFlush() {
	if r.flushing || r.revision == r.lastFlushed {
		return
	}
	r.flushing = true
	snap := r.snapshot()
	editor := r.lastEditor
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := r.reg.store.SaveContent(ctx, r.docID, snap, editor)
		_ = r.enqueue(flushDoneCmd{revision: snap.Revision, err: err})
	}()
}

func (r *Room) handleFlushDone(c flushDoneCmd) {
	r.flushing = false
	if c.err != nil {
		// 落盘失败不影响在线会话：内存态仍是权威，留待下次触发重试
		log.Printf("flush failed doc=%s rev=%d err=%v", r.docID, c.revision, c.err)
	} else if c.revision > r.lastFlushed {
		r.lastFlushed = c.revision
	}
	if r.closing {
		r.finalFlush()
		r.closed = true
		if r.closeReply != nil {
			r.closeReply <- struct{}{}
		}
		return
	}
	if c.err != nil || r.revision != r.lastFlushed {
		r.scheduleFlush()
	}
}

// finalFlush 在销毁前同步落盘。无新修订时是空操作，保证幂等。
func (r *Room) finalFlush() {
	if r.revision == r.lastFlushed {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snap := r.snapshot()
	if err := r.reg.store.SaveContent(ctx, r.docID, snap, r.lastEditor); err != nil {
		log.Printf("final flush failed doc=%s rev=%d err=%v", r.docID, snap.Revision, err)
		return
	}
	r.lastFlushed = snap.Revision
}

func (r *Room) snapshot() ContentSnapshot {
	return ContentSnapshot{
		Content:  r.content,
		Text:     r.text.String(),
		Revision: r.revision,
	}
}

// broadcast 把事件投递给除 exclude 外的所有成员。
// 投递失败（队列满）只记录，不阻塞房间循环。
func (r *Room) broadcast(msg Outbound, exclude Session) {
	for sess := range r.members {
		if sess == exclude {
			continue
		}
		if !sess.Enqueue(msg) {
			log.Printf("drop %s for user=%d doc=%s: send queue full", msg.MessageType(), sess.UserID(), r.docID)
		}
	}
}

// broadcastPresence 以当前成员集为准广播 presence-update。
func (r *Room) broadcastPresence(exclude Session) {
	members := make([]Member, 0, len(r.members))
	for sess := range r.members {
		members = append(members, Member{UserID: sess.UserID(), Username: sess.Username()})
	}
	r.broadcast(PresenceUpdateMsg{Type: "presence-update", DocID: r.docID, Members: members}, exclude)
}

func (r *Room) shutdown(reason error) {
	if r.flushTimer != nil {
		r.flushTimer.Stop()
	}
	r.reg.removeRoom(r.docID, r)
	r.closeErr = reason
	close(r.done)
}
