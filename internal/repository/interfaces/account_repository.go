package interfaces

import (
	"context"

	"tsu-battle/internal/entity/battle_runtime"
)

// Account 战斗引擎视角下的账号：基础属性、种族、段位与进度。
// 账号的主数据归游戏服所有，这里只读取结算需要的切片。
type Account struct {
	ID               string
	Name             string
	Race             string
	Rank             int // 段位，限制可挑战的进度层数
	ProgressionIndex int // PvE 天梯当前层数
	Attributes       map[string]int
}

// AccountRepository 账号数据访问。
// 单账号内强一致，跨账号最终一致（由游戏服的库保证）。
type AccountRepository interface {
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	// GetResourceTotals 返回账号当前的资源总量（反作弊快照用）
	GetResourceTotals(ctx context.Context, accountID string) (map[battle_runtime.ResourceKind]int64, error)
	// UpdateResources 按增量更新资源（奖励发放）
	UpdateResources(ctx context.Context, accountID string, deltas map[battle_runtime.ResourceKind]int64) error
	// AdvanceProgression 将 PvE 进度推进到指定层数（胜利时 +1，绝不跳层）
	AdvanceProgression(ctx context.Context, accountID string, newIndex int) error
}
