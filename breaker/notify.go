package breaker

import (
	"sync"
	"time"
)

// Event 状态变更事件
type Event struct {
	Breaker string
	From    State
	To      State
	Time    time.Time
}

// Subscriber 状态变更回调，在触发变更的 goroutine 中同步执行
type Subscriber func(Event)

var subscribers struct {
	sync.RWMutex
	next int
	fns  map[int]Subscriber
}

// Subscribe 注册进程级的状态变更回调，返回取消函数。
// 回调不应阻塞，也不应再调用触发它的熔断器。
func Subscribe(fn Subscriber) (unsubscribe func()) {
	subscribers.Lock()
	defer subscribers.Unlock()
	if subscribers.fns == nil {
		subscribers.fns = make(map[int]Subscriber)
	}
	id := subscribers.next
	subscribers.next++
	subscribers.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			subscribers.Lock()
			defer subscribers.Unlock()
			delete(subscribers.fns, id)
		})
	}
}

func notify(e Event) {
	subscribers.RLock()
	fns := make([]Subscriber, 0, len(subscribers.fns))
	for _, fn := range subscribers.fns {
		fns = append(fns, fn)
	}
	subscribers.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
