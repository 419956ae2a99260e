package service

import (
	"sync"
	"time"

	"tsu-battle/internal/entity/battle_runtime"
	"tsu-battle/internal/pkg/xerrors"
)

type storeEntry struct {
	mu      sync.Mutex
	session *battle_runtime.BattleSession
}

// SessionStore 提供线程安全的战斗会话存储。
// 每个会话持有独立互斥锁，不同会话的回合结算互不阻塞；
// 外层读写锁只保护会话表本身的增删。
type SessionStore struct {
	mu      sync.RWMutex
	entries map[string]*storeEntry
	clock   func() time.Time
}

// NewSessionStore 返回默认 SessionStore 实例。
func NewSessionStore() *SessionStore {
	return &SessionStore{
		entries: make(map[string]*storeEntry),
		clock:   time.Now,
	}
}

// Put 登记一个新会话，ID 冲突时返回错误。
func (s *SessionStore) Put(session *battle_runtime.BattleSession) error {
	if session == nil || session.ID == "" {
		return xerrors.New(xerrors.CodeInvalidParams, "会话 ID 不能为空")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[session.ID]; exists {
		return xerrors.NewConflictError("battle_session", session.ID)
	}
	s.entries[session.ID] = &storeEntry{session: session}
	return nil
}

// Acquire 锁定并返回指定会话，调用方必须调用返回的释放函数。
// 会话不存在时返回 CodeBattleSessionNotFound。
func (s *SessionStore) Acquire(sessionID string) (*battle_runtime.BattleSession, func(), error) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, xerrors.NewSessionNotFoundError(sessionID)
	}

	entry.mu.Lock()
	entry.session.LastActivity = s.clock()
	return entry.session, entry.mu.Unlock, nil
}

// Peek 只读返回会话的浅引用，不触碰活跃时间。
// 仅限单线程场景（测试断言、过期清理后的检查）使用；
// 并发状态读取必须走 Inspect，否则会与进行中的结算竞争。
func (s *SessionStore) Peek(sessionID string) (*battle_runtime.BattleSession, bool) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return entry.session, true
}

// Inspect 在持有会话锁的前提下执行只读回调，不刷新活跃时间。
// 回调内不得修改会话，也不得再调用会触碰同一会话锁的方法。
func (s *SessionStore) Inspect(sessionID string, fn func(*battle_runtime.BattleSession)) bool {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	fn(entry.session)
	return true
}

// Delete 移除会话。
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
}

// Count 返回当前会话数。
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// IdleSessionIDs 返回最后活跃时间早于 cutoff 的会话 ID 列表。
func (s *SessionStore) IdleSessionIDs(cutoff time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, entry := range s.entries {
		if entry.session.LastActivity.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}
