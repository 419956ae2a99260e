package service

import (
	"time"

	"tsu-battle/internal/entity/battle_runtime"
)

// ParticipantView 参战者的对外快照
type ParticipantView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	HP         int64  `json:"hp"`
	MaxHP      int64  `json:"max_hp"`
	Roster     int    `json:"roster"`
	Eliminated bool   `json:"eliminated,omitempty"`
	Placement  int    `json:"placement,omitempty"`
	AI         bool   `json:"ai,omitempty"`
}

// SessionView 会话状态的只读视图，展示用，不携带会话锁。
type SessionView struct {
	SessionID    string            `json:"session_id"`
	Mode         string            `json:"mode"`
	Status       string            `json:"status"`
	Round        int               `json:"round"`
	Participants []ParticipantView `json:"participants"`
	Log          []string          `json:"log"`
	WinnerID     string            `json:"winner_id,omitempty"`
	Draw         bool              `json:"draw,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// NewSessionView 从会话构建只读视图，日志与参战者均为副本。
// 调用方必须持有会话锁（store.Inspect 或 Acquire 的临界区内）。
func NewSessionView(session *battle_runtime.BattleSession) *SessionView {
	view := &SessionView{
		SessionID: session.ID,
		Mode:      string(session.Mode),
		Status:    string(session.Status),
		Round:     session.Round,
		WinnerID:  session.WinnerID,
		Draw:      session.Draw,
		CreatedAt: session.CreatedAt,
	}
	view.Log = append(view.Log, session.Log...)
	for _, p := range session.Participants {
		view.Participants = append(view.Participants, ParticipantView{
			ID:         p.Profile.ID,
			Name:       p.Profile.Name,
			HP:         p.HP,
			MaxHP:      p.MaxHP,
			Roster:     p.Roster,
			Eliminated: p.Eliminated,
			Placement:  p.Placement,
			AI:         p.Profile.AIControlled,
		})
	}
	return view
}
