package service

import (
	"tsu-battle/internal/entity/battle_runtime"
)

// RoundEvent battle.round 事件载荷
type RoundEvent struct {
	SessionID string                      `json:"session_id"`
	Mode      string                      `json:"mode"`
	Round     int                         `json:"round"`
	Result    *battle_runtime.RoundResult `json:"result"`
}

// FinishedEvent battle.finished 事件载荷
type FinishedEvent struct {
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
	Rounds    int    `json:"rounds"`
	WinnerID  string `json:"winner_id,omitempty"`
	Draw      bool   `json:"draw"`
	Result    string `json:"result"` // victory / draw / expired
}

// AnomalyEvent battle.anomaly 事件载荷
type AnomalyEvent struct {
	AccountID string `json:"account_id"`
	Resource  string `json:"resource"`
	Magnitude int64  `json:"magnitude"`
	Severity  string `json:"severity"`
}
