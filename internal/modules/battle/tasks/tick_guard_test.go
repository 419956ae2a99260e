package tasks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tsu-battle/internal/entity/battle_runtime"
	"tsu-battle/internal/pkg/log"
)

func TestTickGuardSkipsOverlappingRuns(t *testing.T) {
	var guard tickGuard
	entered := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ok := guard.tryRun(func() {
			close(entered)
			<-release
		})
		require.True(t, ok)
	}()

	<-entered
	// 第一轮仍在执行，第二轮必须被跳过而不是排队
	require.False(t, guard.tryRun(func() {
		t.Error("重叠触发不应执行")
	}))

	close(release)
	wg.Wait()

	// 第一轮结束后恢复可用
	ran := false
	require.True(t, guard.tryRun(func() { ran = true }))
	require.True(t, ran)
}

// blockingAnomalyRepo 阻塞 ListRecent 直到被放行，统计调用次数
type blockingAnomalyRepo struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (r *blockingAnomalyRepo) Create(ctx context.Context, record *battle_runtime.AnomalyRecord) error {
	return nil
}

func (r *blockingAnomalyRepo) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*battle_runtime.AnomalyRecord, error) {
	return nil, nil
}

func (r *blockingAnomalyRepo) CountByAccount(ctx context.Context, accountID string) (int64, error) {
	return 0, nil
}

func (r *blockingAnomalyRepo) ListRecent(ctx context.Context, severities []battle_runtime.AnomalySeverity, since time.Time, limit int) ([]*battle_runtime.AnomalyRecord, error) {
	r.calls.Add(1)
	close(r.entered)
	<-r.release
	return nil, nil
}

func TestAnomalySweepSkipsWhilePreviousSweepRunning(t *testing.T) {
	repo := &blockingAnomalyRepo{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	task := NewAnomalySweepTask(repo, log.GetLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		task.sweep()
	}()

	// 第一轮卡在仓储查询上，此时的触发必须被跳过
	<-repo.entered
	task.sweep()
	require.Equal(t, int32(1), repo.calls.Load(), "慢巡检期间不允许并发再查")

	close(repo.release)
	wg.Wait()
}
