package battle_runtime

import "time"

// ResourceKind 受监控的资源种类
type ResourceKind string

const (
	ResourceGold           ResourceKind = "gold"            // 通用货币
	ResourceShards         ResourceKind = "shards"          // 稀有货币
	ResourceTrainingPoints ResourceKind = "training_points" // 训练点
)

// GrowthSnapshot 账号资源总量的时点快照
type GrowthSnapshot struct {
	AccountID  string                 `json:"account_id"`
	Resources  map[ResourceKind]int64 `json:"resources"`
	CapturedAt time.Time              `json:"captured_at"`
}

// AnomalySeverity 异常严重级别
type AnomalySeverity string

const (
	SeverityLow      AnomalySeverity = "low"
	SeverityHigh     AnomalySeverity = "high"
	SeverityCritical AnomalySeverity = "critical"
)

// AnomalyRecord 一次增长越限的记录。
// 监控是旁路的：记录只用于事后审查，绝不回滚触发它的操作。
type AnomalyRecord struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"account_id"`
	Resource   ResourceKind    `json:"resource"`
	Kind       string          `json:"kind"`
	Magnitude  int64           `json:"magnitude"`
	Severity   AnomalySeverity `json:"severity"`
	DetectedAt time.Time       `json:"detected_at"`
}
