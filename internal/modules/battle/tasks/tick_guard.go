package tasks

import "sync/atomic"

// tickGuard 保证同一任务的相邻触发不重入：
// 上一轮尚未结束时 tryRun 直接返回 false，不排队等待。
type tickGuard struct {
	running atomic.Bool
}

// tryRun 在未被占用时执行 fn 并返回 true，否则跳过并返回 false。
func (g *tickGuard) tryRun(fn func()) bool {
	if !g.running.CompareAndSwap(false, true) {
		return false
	}
	defer g.running.Store(false)
	fn()
	return true
}
