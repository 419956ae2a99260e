package interfaces

import (
	"context"
	"time"

	"tsu-battle/internal/entity/battle_runtime"
)

// SnapshotRepository 资源增长快照的持久化。
// Redis 缓存最近一份，Postgres 保留历史；读取时优先缓存。
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *battle_runtime.GrowthSnapshot) error
	Latest(ctx context.Context, accountID string) (*battle_runtime.GrowthSnapshot, error)
}

// AnomalyRepository 异常记录的持久化
type AnomalyRepository interface {
	Create(ctx context.Context, record *battle_runtime.AnomalyRecord) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*battle_runtime.AnomalyRecord, error)
	CountByAccount(ctx context.Context, accountID string) (int64, error)
	// ListRecent 按严重级别过滤指定时间之后的记录，定时巡检用
	ListRecent(ctx context.Context, severities []battle_runtime.AnomalySeverity, since time.Time, limit int) ([]*battle_runtime.AnomalyRecord, error)
}
