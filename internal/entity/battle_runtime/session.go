// Package battle_runtime 定义战斗引擎的运行时实体。
// 这些结构体只在会话存续期间存在于内存中，落库时转换为战报。
package battle_runtime

import (
	"time"

	"tsu-battle/internal/domain/battle"
)

// Mode 战斗模式
type Mode string

const (
	ModeDuel       Mode = "duel"             // 1v1 决斗
	ModeRoyale     Mode = "royale"           // 大逃杀
	ModeTournament Mode = "guild-tournament" // 公会擂台赛
	ModeTeam       Mode = "fixed-roster-team" // 固定阵容团战
	ModePveLadder  Mode = "pve-ladder"       // PvE 天梯
)

// IsValid 检查模式是否合法
func (m Mode) IsValid() bool {
	switch m {
	case ModeDuel, ModeRoyale, ModeTournament, ModeTeam, ModePveLadder:
		return true
	}
	return false
}

// SessionStatus 会话状态机：pending -> active -> finished（终态）
type SessionStatus string

const (
	StatusPending  SessionStatus = "pending"
	StatusActive   SessionStatus = "active"
	StatusFinished SessionStatus = "finished"
)

// Participant 会话内的参战者：不可变的属性快照加上存活状态。
type Participant struct {
	Profile *battle.CombatProfile
	HP      int64
	MaxHP   int64

	// Eliminated / Placement 大逃杀模式专用；名次只会被赋值一次
	Eliminated bool
	Placement  int

	// Roster 固定阵容/擂台模式下所属阵营（0 或 1）
	Roster int
}

// Alive 是否仍在战斗中
func (p *Participant) Alive() bool {
	return p.HP > 0
}

// ApplyDamage 扣减血量，钳制到 0，返回扣减后的血量。
func (p *Participant) ApplyDamage(amount int64) int64 {
	p.HP -= amount
	if p.HP < 0 {
		p.HP = 0
	}
	return p.HP
}

// RoundResult 一个回合的完整结算结果。
// 对已结算回合的重复提交原样返回同一个结果（幂等重放）。
type RoundResult struct {
	Round      int                   `json:"round"`
	Damages    []battle.DamageResult `json:"damages"`
	Eliminated []string              `json:"eliminated,omitempty"`
	Finished   bool                  `json:"finished"`
	WinnerID   string                `json:"winner_id,omitempty"`
	Draw       bool                  `json:"draw,omitempty"`
}

// RoyaleState 大逃杀的安全区状态
type RoyaleState struct {
	Stage int // 当前收缩阶段，0 表示尚未收缩
}

// TournamentState 擂台/团战的阵营推进状态
type TournamentState struct {
	FighterIndex [2]int // 双方当前出战位
	Score        [2]int // 对局胜场
}

// PveState PvE 天梯状态
type PveState struct {
	AccountID string
	Index     int // 当前进度层数
}

// BattleSession 一场战斗的全部可变状态。
// 并发控制由会话存储负责：所有读写都必须在持有对应会话锁时进行。
type BattleSession struct {
	ID           string
	Mode         Mode
	Status       SessionStatus
	Participants []*Participant
	Round        int

	// Log 只追加的战斗叙事
	Log []string

	// WinnerID 至多被赋值一次；Draw 标记平局终局
	WinnerID string
	Draw     bool

	Royale     *RoyaleState
	Tournament *TournamentState
	Pve        *PveState

	// pending 按回合收集的动作提交
	Pending map[string]battle.Action

	// History 已结算回合的结果，幂等重放与战报导出使用
	History []*RoundResult

	CreatedAt    time.Time
	LastActivity time.Time
}

// FindParticipant 按 ID 查找参战者，不存在时返回 nil。
func (s *BattleSession) FindParticipant(id string) *Participant {
	for _, p := range s.Participants {
		if p.Profile != nil && p.Profile.ID == id {
			return p
		}
	}
	return nil
}

// AliveCount 仍在战斗中的参战者数量
func (s *BattleSession) AliveCount() int {
	count := 0
	for _, p := range s.Participants {
		if p.Alive() {
			count++
		}
	}
	return count
}

// AppendLog 追加战斗叙事
func (s *BattleSession) AppendLog(lines ...string) {
	s.Log = append(s.Log, lines...)
}

// ResultFor 返回指定回合的已结算结果，未结算时返回 nil。
func (s *BattleSession) ResultFor(round int) *RoundResult {
	for _, r := range s.History {
		if r.Round == round {
			return r
		}
	}
	return nil
}
