package interfaces

import (
	"context"
	"encoding/json"
)

// BattleReport 战斗结束后落库的战报。
// 游戏服的回调接口消费同构的 payload。
type BattleReport struct {
	SessionID    string          // 会话唯一 ID
	Mode         string          // 战斗模式
	ResultStatus string          // victory / defeat / draw / expired
	WinnerID     string          // 胜者（可为空）
	Rounds       int             // 总回合数
	RewardGold   string          // 奖励金币（十进制字符串，高阶超出 int64）
	Participants json.RawMessage // 参与者 JSON
	Events       json.RawMessage // 回合事件 JSON
}

// BattleReportRepository 战报持久化
type BattleReportRepository interface {
	Create(ctx context.Context, report *BattleReport) error
	GetBySessionID(ctx context.Context, sessionID string) (*BattleReport, error)
}
