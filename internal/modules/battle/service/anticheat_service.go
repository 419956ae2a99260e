package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tsu-battle/internal/entity/battle_runtime"
	"tsu-battle/internal/pkg/log"
	"tsu-battle/internal/pkg/metrics"
	"tsu-battle/internal/pkg/notify"
	"tsu-battle/internal/pkg/xerrors"
	"tsu-battle/internal/repository/interfaces"
	"tsu-battle/internal/repository/query"
)

// 监控周期内各资源的增长上限。
// 超限只产生异常记录，绝不回滚触发它的操作。
var growthCeilings = map[battle_runtime.ResourceKind]int64{
	battle_runtime.ResourceGold:           1_000_000,
	battle_runtime.ResourceShards:         500,
	battle_runtime.ResourceTrainingPoints: 10_000,
}

// 越限倍数对应的严重级别阈值
const (
	severityHighFactor     = 2  // 超限 2 倍以上
	severityCriticalFactor = 10 // 超限 10 倍以上
)

// VerifyResult 校验结果：是否通过、本次产生的异常、以及更新后的快照。
type VerifyResult struct {
	OK        bool                            `json:"ok"`
	Anomalies []*battle_runtime.AnomalyRecord `json:"anomalies,omitempty"`
	Snapshot  *battle_runtime.GrowthSnapshot  `json:"snapshot"`
}

// AntiCheatService 资源增长监控。
// 旁路观察账号资源变动：Snapshot 记录时点总量，
// Verify 比对最近快照并对每个越限资源产出恰好一条异常记录。
type AntiCheatService struct {
	accountRepo  interfaces.AccountRepository
	snapshotRepo interfaces.SnapshotRepository
	anomalyRepo  interfaces.AnomalyRepository
	logger       log.Logger
	clock        func() time.Time
}

// NewAntiCheatService 构造函数。
func NewAntiCheatService(
	accountRepo interfaces.AccountRepository,
	snapshotRepo interfaces.SnapshotRepository,
	anomalyRepo interfaces.AnomalyRepository,
	logger log.Logger,
) *AntiCheatService {
	return &AntiCheatService{
		accountRepo:  accountRepo,
		snapshotRepo: snapshotRepo,
		anomalyRepo:  anomalyRepo,
		logger:       logger.With("component", "anticheat_service"),
		clock:        time.Now,
	}
}

// Snapshot 记录账号当前资源总量。
func (s *AntiCheatService) Snapshot(ctx context.Context, accountID string) (*battle_runtime.GrowthSnapshot, error) {
	if accountID == "" {
		return nil, xerrors.NewValidationError("account_id", "账号 ID 不能为空")
	}

	totals, err := s.accountRepo.GetResourceTotals(ctx, accountID)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "读取资源总量失败")
	}

	snapshot := &battle_runtime.GrowthSnapshot{
		AccountID:  accountID,
		Resources:  totals,
		CapturedAt: s.clock(),
	}
	if err := s.snapshotRepo.Save(ctx, snapshot); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "保存资源快照失败")
	}
	return snapshot, nil
}

// Verify 比对最近快照并标记越限资源。
// 每个越限资源恰好产出一条记录；校验结束后写入新快照，
// 因此对同一增长重复校验不会重复报警。
func (s *AntiCheatService) Verify(ctx context.Context, accountID string) (*VerifyResult, error) {
	if accountID == "" {
		return nil, xerrors.NewValidationError("account_id", "账号 ID 不能为空")
	}

	previous, err := s.snapshotRepo.Latest(ctx, accountID)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "读取资源快照失败")
	}
	if previous == nil {
		return nil, xerrors.New(xerrors.CodeSnapshotMissing, "账号尚无资源快照")
	}

	totals, err := s.accountRepo.GetResourceTotals(ctx, accountID)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "读取资源总量失败")
	}

	now := s.clock()
	result := &VerifyResult{OK: true}
	for resource, ceiling := range growthCeilings {
		growth := totals[resource] - previous.Resources[resource]
		if growth <= ceiling {
			continue
		}

		magnitude := growth - ceiling
		record := &battle_runtime.AnomalyRecord{
			ID:         uuid.NewString(),
			AccountID:  accountID,
			Resource:   resource,
			Kind:       "growth_ceiling_exceeded",
			Magnitude:  magnitude,
			Severity:   severityFor(growth, ceiling),
			DetectedAt: now,
		}
		result.OK = false
		result.Anomalies = append(result.Anomalies, record)

		// 异常只记录不拦截
		if err := s.anomalyRepo.Create(ctx, record); err != nil {
			s.logger.ErrorContext(ctx, "落库异常记录失败", "account_id", accountID, "error", err)
		}
		metrics.DefaultBusinessMetrics.RecordAnomaly(string(record.Severity), metrics.GetServiceName())

		event := &AnomalyEvent{
			AccountID: accountID,
			Resource:  string(resource),
			Magnitude: magnitude,
			Severity:  string(record.Severity),
		}
		if err := notify.PublishBattleEvent(ctx, notify.SubjectBattleAnomaly, event); err != nil {
			s.logger.WarnContext(ctx, "发布异常事件失败", "account_id", accountID, "error", err)
		}

		log.LogAppError(ctx, "检测到资源增长异常",
			xerrors.NewAnomalyError(accountID, string(resource), magnitude).
				WithMetadata("growth", growth).
				WithMetadata("ceiling", ceiling).
				WithMetadata("severity", string(record.Severity)))
	}

	snapshot := &battle_runtime.GrowthSnapshot{
		AccountID:  accountID,
		Resources:  totals,
		CapturedAt: now,
	}
	if err := s.snapshotRepo.Save(ctx, snapshot); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "保存资源快照失败")
	}
	result.Snapshot = snapshot
	return result, nil
}

// ListAnomalies 分页返回账号最近的异常记录。
func (s *AntiCheatService) ListAnomalies(ctx context.Context, accountID string, pagination *query.Pagination) ([]*battle_runtime.AnomalyRecord, *query.PaginationResult, error) {
	pagination.Validate()

	total, err := s.anomalyRepo.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "统计异常记录失败")
	}

	records, err := s.anomalyRepo.ListByAccount(ctx, accountID, pagination.GetLimit(), pagination.GetOffset())
	if err != nil {
		return nil, nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询异常记录失败")
	}
	return records, query.NewPaginationResult(pagination.Page, pagination.PageSize, total), nil
}

func severityFor(growth, ceiling int64) battle_runtime.AnomalySeverity {
	switch {
	case growth > ceiling*severityCriticalFactor:
		return battle_runtime.SeverityCritical
	case growth > ceiling*severityHighFactor:
		return battle_runtime.SeverityHigh
	default:
		return battle_runtime.SeverityLow
	}
}
