package battle

import (
	"math/rand"
	"sync"
)

// Rand 战斗结算使用的随机源。
// 生产环境使用 NewSeededRand；测试注入固定序列以保证结果可复现。
type Rand interface {
	// Float64 返回 [0.0, 1.0) 区间的随机数
	Float64() float64
	// Intn 返回 [0, n) 区间的随机整数
	Intn(n int) int
}

// lockedRand math/rand 的并发安全包装
type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

// NewSeededRand 创建可播种的并发安全随机源
func NewSeededRand(seed int64) Rand {
	return &lockedRand{src: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}
