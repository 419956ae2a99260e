package tasks

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"tsu-battle/internal/modules/battle/service"
	"tsu-battle/internal/pkg/log"
)

// 超过该时长无任何行动提交的会话视为废弃
const sessionIdleTimeout = 24 * time.Hour

// SessionExpireTask 会话过期定时任务
// 每小时检查一次，将长时间无活动的会话按平局终结并出具战报
type SessionExpireTask struct {
	sessionService *service.SessionService
	logger         log.Logger
	cron           *cron.Cron
	guard          tickGuard
}

// NewSessionExpireTask 创建会话过期任务实例
func NewSessionExpireTask(sessionService *service.SessionService, logger log.Logger) *SessionExpireTask {
	return &SessionExpireTask{
		sessionService: sessionService,
		logger:         logger,
	}
}

// Start 启动定时任务
func (t *SessionExpireTask) Start() {
	t.cron = cron.New(cron.WithSeconds())

	// 每小时的第10分0秒执行
	// Cron 表达式: 秒 分 时 日 月 周
	_, err := t.cron.AddFunc("0 10 * * * *", func() {
		t.logger.Info("【战斗定时任务】开始清理废弃会话")
		t.expireSessions()
		t.logger.Info("【战斗定时任务】废弃会话清理完成")
	})

	if err != nil {
		t.logger.Error("【战斗定时任务】添加会话过期任务失败", err)
		return
	}

	t.cron.Start()
	t.logger.Info("【战斗定时任务】会话过期任务已启动 - 每小时执行一次")
}

// expireSessions 终结并清除超时会话，上一轮未结束时跳过本轮
func (t *SessionExpireTask) expireSessions() {
	if !t.guard.tryRun(t.doExpire) {
		t.logger.Warn("【战斗定时任务】上一轮清理尚未结束，跳过本轮")
	}
}

func (t *SessionExpireTask) doExpire() {
	ctx := context.Background()

	expiredCount := t.sessionService.ExpireIdleSessions(ctx, sessionIdleTimeout)
	if expiredCount > 0 {
		t.logger.Info("【战斗定时任务】废弃会话清理成功",
			"expired_count", expiredCount,
			"idle_timeout", sessionIdleTimeout.String())
	} else {
		t.logger.Debug("【战斗定时任务】没有需要清理的会话")
	}
}

// Stop 停止定时任务（优雅关闭）
func (t *SessionExpireTask) Stop() {
	if t.cron != nil {
		t.logger.Info("【战斗定时任务】正在停止会话过期任务...")
		ctx := t.cron.Stop()
		<-ctx.Done()
		t.logger.Info("【战斗定时任务】会话过期任务已停止")
	}
}
