package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tsu-battle/internal/entity/battle_runtime"
	"tsu-battle/internal/pkg/log"
	"tsu-battle/internal/pkg/xerrors"
	"tsu-battle/internal/repository/query"
)

type fakeSnapshotRepo struct {
	latest map[string]*battle_runtime.GrowthSnapshot
	saved  int
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{latest: make(map[string]*battle_runtime.GrowthSnapshot)}
}

func (f *fakeSnapshotRepo) Save(ctx context.Context, snapshot *battle_runtime.GrowthSnapshot) error {
	f.latest[snapshot.AccountID] = snapshot
	f.saved++
	return nil
}

func (f *fakeSnapshotRepo) Latest(ctx context.Context, accountID string) (*battle_runtime.GrowthSnapshot, error) {
	return f.latest[accountID], nil
}

type fakeAnomalyRepo struct {
	records []*battle_runtime.AnomalyRecord
}

func (f *fakeAnomalyRepo) Create(ctx context.Context, record *battle_runtime.AnomalyRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeAnomalyRepo) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*battle_runtime.AnomalyRecord, error) {
	var out []*battle_runtime.AnomalyRecord
	for _, record := range f.records {
		if record.AccountID == accountID {
			out = append(out, record)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAnomalyRepo) CountByAccount(ctx context.Context, accountID string) (int64, error) {
	var total int64
	for _, record := range f.records {
		if record.AccountID == accountID {
			total++
		}
	}
	return total, nil
}

func (f *fakeAnomalyRepo) ListRecent(ctx context.Context, severities []battle_runtime.AnomalySeverity, since time.Time, limit int) ([]*battle_runtime.AnomalyRecord, error) {
	var out []*battle_runtime.AnomalyRecord
	for _, record := range f.records {
		if record.DetectedAt.Before(since) {
			continue
		}
		for _, severity := range severities {
			if record.Severity == severity {
				out = append(out, record)
				break
			}
		}
	}
	return out, nil
}

func newAntiCheatFixture() (*AntiCheatService, *fakeAccountRepo, *fakeSnapshotRepo, *fakeAnomalyRepo) {
	accountRepo := newFakeAccountRepo()
	snapshotRepo := newFakeSnapshotRepo()
	anomalyRepo := &fakeAnomalyRepo{}
	svc := NewAntiCheatService(accountRepo, snapshotRepo, anomalyRepo, log.GetLogger())
	return svc, accountRepo, snapshotRepo, anomalyRepo
}

func TestVerifyWithoutSnapshotFails(t *testing.T) {
	svc, _, _, _ := newAntiCheatFixture()

	_, err := svc.Verify(context.Background(), "ghost")
	require.Error(t, err)
	require.Equal(t, xerrors.CodeSnapshotMissing, appErrCode(t, err))
}

func TestVerifyFlagsGoldGrowthAboveCeiling(t *testing.T) {
	ctx := context.Background()
	svc, accountRepo, snapshotRepo, anomalyRepo := newAntiCheatFixture()

	accountRepo.resources["p1"] = map[battle_runtime.ResourceKind]int64{
		battle_runtime.ResourceGold: 1_000,
	}
	_, err := svc.Snapshot(ctx, "p1")
	require.NoError(t, err)

	// 监控周期内金币从 1,000 涨到 2,500,000，超过上限 1,000,000
	accountRepo.resources["p1"][battle_runtime.ResourceGold] = 2_500_000

	result, err := svc.Verify(ctx, "p1")
	require.NoError(t, err)
	require.False(t, result.OK)
	require.Len(t, result.Anomalies, 1)

	anomaly := result.Anomalies[0]
	require.Equal(t, battle_runtime.ResourceGold, anomaly.Resource)
	require.Equal(t, int64(1_499_000), anomaly.Magnitude)
	require.Equal(t, battle_runtime.SeverityHigh, anomaly.Severity)
	require.Len(t, anomalyRepo.records, 1, "每个越限资源恰好一条记录")

	// 校验后写入新快照
	require.Equal(t, int64(2_500_000), snapshotRepo.latest["p1"].Resources[battle_runtime.ResourceGold])
}

func TestVerifyDoesNotFlagSameGrowthTwice(t *testing.T) {
	ctx := context.Background()
	svc, accountRepo, _, anomalyRepo := newAntiCheatFixture()

	accountRepo.resources["p1"] = map[battle_runtime.ResourceKind]int64{
		battle_runtime.ResourceGold: 0,
	}
	_, err := svc.Snapshot(ctx, "p1")
	require.NoError(t, err)

	accountRepo.resources["p1"][battle_runtime.ResourceGold] = 3_000_000

	first, err := svc.Verify(ctx, "p1")
	require.NoError(t, err)
	require.False(t, first.OK)
	require.Len(t, anomalyRepo.records, 1)

	// 快照已刷新，余额不变的情况下重复校验不再报警
	second, err := svc.Verify(ctx, "p1")
	require.NoError(t, err)
	require.True(t, second.OK)
	require.Empty(t, second.Anomalies)
	require.Len(t, anomalyRepo.records, 1)
}

func TestVerifySeverityTiers(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		growth   int64
		severity battle_runtime.AnomalySeverity
	}{
		{name: "略超上限", growth: 1_000_001, severity: battle_runtime.SeverityLow},
		{name: "超限两倍以上", growth: 2_000_001, severity: battle_runtime.SeverityHigh},
		{name: "超限十倍以上", growth: 10_000_001, severity: battle_runtime.SeverityCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, accountRepo, _, _ := newAntiCheatFixture()
			accountRepo.resources["p1"] = map[battle_runtime.ResourceKind]int64{
				battle_runtime.ResourceGold: 0,
			}
			_, err := svc.Snapshot(ctx, "p1")
			require.NoError(t, err)

			accountRepo.resources["p1"][battle_runtime.ResourceGold] = tc.growth

			result, err := svc.Verify(ctx, "p1")
			require.NoError(t, err)
			require.Len(t, result.Anomalies, 1)
			require.Equal(t, tc.severity, result.Anomalies[0].Severity)
		})
	}
}

func TestVerifyFlagsEachResourceSeparately(t *testing.T) {
	ctx := context.Background()
	svc, accountRepo, _, anomalyRepo := newAntiCheatFixture()

	accountRepo.resources["p1"] = map[battle_runtime.ResourceKind]int64{
		battle_runtime.ResourceGold:           0,
		battle_runtime.ResourceShards:         0,
		battle_runtime.ResourceTrainingPoints: 0,
	}
	_, err := svc.Snapshot(ctx, "p1")
	require.NoError(t, err)

	// 金币与碎片越限，修炼点数保持在上限之内
	accountRepo.resources["p1"][battle_runtime.ResourceGold] = 2_000_000
	accountRepo.resources["p1"][battle_runtime.ResourceShards] = 6_000
	accountRepo.resources["p1"][battle_runtime.ResourceTrainingPoints] = 9_999

	result, err := svc.Verify(ctx, "p1")
	require.NoError(t, err)
	require.False(t, result.OK)
	require.Len(t, result.Anomalies, 2)
	require.Len(t, anomalyRepo.records, 2)

	bySeverity := make(map[battle_runtime.ResourceKind]battle_runtime.AnomalySeverity)
	for _, anomaly := range result.Anomalies {
		bySeverity[anomaly.Resource] = anomaly.Severity
	}
	require.Equal(t, battle_runtime.SeverityLow, bySeverity[battle_runtime.ResourceGold])
	require.Equal(t, battle_runtime.SeverityCritical, bySeverity[battle_runtime.ResourceShards])

	records, pageResult, err := svc.ListAnomalies(ctx, "p1", &query.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, int64(2), pageResult.Total)
	require.Equal(t, 1, pageResult.TotalPages)
}

func TestListAnomaliesPaginates(t *testing.T) {
	svc, _, _, anomalyRepo := newAntiCheatFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		anomalyRepo.records = append(anomalyRepo.records, &battle_runtime.AnomalyRecord{
			AccountID: "p1",
			Resource:  battle_runtime.ResourceGold,
			Severity:  battle_runtime.SeverityLow,
		})
	}

	records, pageResult, err := svc.ListAnomalies(ctx, "p1", &query.Pagination{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, int64(5), pageResult.Total)
	require.Equal(t, 3, pageResult.TotalPages)

	// 超出末页返回空集而不是错误
	records, _, err = svc.ListAnomalies(ctx, "p1", &query.Pagination{Page: 4, PageSize: 2})
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestSnapshotRequiresAccountID(t *testing.T) {
	svc, _, _, _ := newAntiCheatFixture()

	_, err := svc.Snapshot(context.Background(), "")
	require.Error(t, err)
	_, err = svc.Verify(context.Background(), "")
	require.Error(t, err)
}
