package collab

import (
	"context"
	"testing"
	"time"
)

// producer 为 nil 时事件被消费后直接丢弃，用来验证队列与 worker 行为。

func TestDispatcherCloseDrains(t *testing.T) {
	d := NewDispatcher(nil, "", nil, DispatcherOptions{QueueSize: 8, Workers: 2})
	for i := 0; i < 5; i++ {
		if !d.Enqueue(DocOpEvent{EventType: "OP_APPLIED", DocID: "doc1", Revision: uint64(i + 1), AppliedAt: time.Now()}) {
			t.Fatalf("Enqueue(%d) = false, want true", i)
		}
	}
	// Close 返回即说明队列已清空、worker 全部退出；否则测试会挂死在这里
	d.Close()
}

func TestDispatcherEnqueueFull(t *testing.T) {
	// 先占住信号量让 worker 卡在 Acquire，队列必然堆积
	sem := NewSemaphore(1)
	if err := sem.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	d := NewDispatcher(nil, "", sem, DispatcherOptions{QueueSize: 1, Workers: 1})

	// 队列满时必须立即返回 false 而不是阻塞：
	// 最多一个在 worker 手里、一个在队列里，第三个必然被拒
	dropped := false
	for i := 0; i < 3; i++ {
		if !d.Enqueue(DocOpEvent{EventType: "OP_APPLIED", DocID: "doc1", Revision: uint64(i + 1)}) {
			dropped = true
			break
		}
	}
	if !dropped {
		t.Fatalf("Enqueue never reported a full queue")
	}

	if err := sem.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	d.Close()
}
