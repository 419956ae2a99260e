package tasks

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"tsu-battle/internal/entity/battle_runtime"
	"tsu-battle/internal/pkg/log"
	"tsu-battle/internal/repository/interfaces"
)

const anomalySweepBatchSize = 100

// AnomalySweepTask 异常巡检定时任务
// 每 5 分钟汇总一次新增的高危异常，供运营侧人工复核。
// 巡检只输出告警日志，不对账号做任何处置。
type AnomalySweepTask struct {
	anomalyRepo interfaces.AnomalyRepository
	logger      log.Logger
	cron        *cron.Cron
	guard       tickGuard

	// lastSweep 只在 guard 的临界区内读写
	lastSweep time.Time
}

// NewAnomalySweepTask 创建异常巡检任务实例
func NewAnomalySweepTask(anomalyRepo interfaces.AnomalyRepository, logger log.Logger) *AnomalySweepTask {
	return &AnomalySweepTask{
		anomalyRepo: anomalyRepo,
		logger:      logger,
		lastSweep:   time.Now(),
	}
}

// Start 启动定时任务
func (t *AnomalySweepTask) Start() {
	t.cron = cron.New(cron.WithSeconds())

	// 每 5 分钟执行一次
	// Cron 表达式: 秒 分 时 日 月 周
	_, err := t.cron.AddFunc("0 */5 * * * *", func() {
		t.sweep()
	})

	if err != nil {
		t.logger.Error("【反作弊定时任务】添加异常巡检任务失败", err)
		return
	}

	t.cron.Start()
	t.logger.Info("【反作弊定时任务】异常巡检任务已启动 - 每5分钟执行一次")
}

// sweep 汇总自上次巡检以来的高危异常，上一轮未结束时跳过本轮
func (t *AnomalySweepTask) sweep() {
	if !t.guard.tryRun(t.doSweep) {
		t.logger.Warn("【反作弊定时任务】上一轮巡检尚未结束，跳过本轮")
	}
}

func (t *AnomalySweepTask) doSweep() {
	ctx := context.Background()
	since := t.lastSweep
	t.lastSweep = time.Now()

	records, err := t.anomalyRepo.ListRecent(ctx,
		[]battle_runtime.AnomalySeverity{battle_runtime.SeverityHigh, battle_runtime.SeverityCritical},
		since, anomalySweepBatchSize)
	if err != nil {
		t.logger.Error("【反作弊定时任务】查询异常记录失败", err)
		return
	}
	if len(records) == 0 {
		t.logger.Debug("【反作弊定时任务】本周期无高危异常")
		return
	}

	criticalCount := 0
	for _, record := range records {
		if record.Severity == battle_runtime.SeverityCritical {
			criticalCount++
		}
		t.logger.Warn("【反作弊定时任务】待复核异常",
			"record_id", record.ID,
			"account_id", record.AccountID,
			"resource", record.Resource,
			"magnitude", record.Magnitude,
			"severity", record.Severity)
	}

	t.logger.Info("【反作弊定时任务】异常巡检完成",
		"total", len(records),
		"critical", criticalCount,
		"since", since.Format("2006-01-02 15:04:05"))
}

// Stop 停止定时任务（优雅关闭）
func (t *AnomalySweepTask) Stop() {
	if t.cron != nil {
		t.logger.Info("【反作弊定时任务】正在停止异常巡检任务...")
		ctx := t.cron.Stop()
		<-ctx.Done()
		t.logger.Info("【反作弊定时任务】异常巡检任务已停止")
	}
}
