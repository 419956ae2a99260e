package service

import (
	"database/sql"
	"time"

	"tsu-battle/internal/domain/battle"
	"tsu-battle/internal/pkg/log"
	"tsu-battle/internal/pkg/redis"
	"tsu-battle/internal/repository/impl"
	"tsu-battle/internal/repository/interfaces"
)

// ServiceContainer 战斗服务容器 - 统一管理所有 Repository 和 Service
// 目的：避免重复创建 Repository，简化依赖注入
type ServiceContainer struct {
	// 所有 Repository（共享实例）
	accountRepo      interfaces.AccountRepository
	loadoutRepo      interfaces.LoadoutRepository
	snapshotRepo     interfaces.SnapshotRepository
	anomalyRepo      interfaces.AnomalyRepository
	battleReportRepo interfaces.BattleReportRepository

	// 会话存储（进程内,跨请求共享）
	Store *SessionStore

	// 所有 Service（共享实例）
	StatService      *StatService
	SessionService   *SessionService
	AntiCheatService *AntiCheatService
}

// NewServiceContainer 创建服务容器。
// cache 可为 nil,此时快照仓储退化为纯 Postgres。
func NewServiceContainer(db *sql.DB, cache *redis.Client, logger log.Logger) *ServiceContainer {
	c := &ServiceContainer{}

	// 初始化所有 Repository
	c.accountRepo = impl.NewAccountRepository(db)
	c.loadoutRepo = impl.NewLoadoutRepository(db)
	c.snapshotRepo = impl.NewGrowthSnapshotRepository(db, cache)
	c.anomalyRepo = impl.NewAnomalyRepository(db)
	c.battleReportRepo = impl.NewBattleReportRepository(db)

	c.Store = NewSessionStore()

	// AI 代打与回合判定共用一个进程级随机源
	rng := battle.NewSeededRand(time.Now().UnixNano())
	policy := battle.NewWeightedRandomPolicy(rng)

	c.StatService = NewStatService(c.accountRepo, c.loadoutRepo)
	c.SessionService = NewSessionService(
		c.Store,
		c.StatService,
		c.accountRepo,
		c.battleReportRepo,
		policy,
		rng,
		logger,
	)
	c.AntiCheatService = NewAntiCheatService(c.accountRepo, c.snapshotRepo, c.anomalyRepo, logger)

	return c
}

// AnomalyRepo 暴露给巡检任务使用
func (c *ServiceContainer) AnomalyRepo() interfaces.AnomalyRepository {
	return c.anomalyRepo
}
