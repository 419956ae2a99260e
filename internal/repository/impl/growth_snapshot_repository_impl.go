package impl

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/friendsofgo/errors"
	goredis "github.com/redis/go-redis/v9"

	"tsu-battle/internal/entity/battle_runtime"
	"tsu-battle/internal/pkg/redis"
	"tsu-battle/internal/repository/interfaces"
)

const snapshotCacheTTL = 10 * time.Minute

type growthSnapshotRepositoryImpl struct {
	db    *sql.DB
	cache *redis.Client
}

// NewGrowthSnapshotRepository 创建资源快照仓储实例。
// cache 可为 nil，此时退化为纯 Postgres 读写。
func NewGrowthSnapshotRepository(db *sql.DB, cache *redis.Client) interfaces.SnapshotRepository {
	return &growthSnapshotRepositoryImpl{db: db, cache: cache}
}

func snapshotCacheKey(accountID string) string {
	return fmt.Sprintf("anticheat:snapshot:%s", accountID)
}

// Save 写入一份快照并刷新缓存
func (r *growthSnapshotRepositoryImpl) Save(ctx context.Context, snapshot *battle_runtime.GrowthSnapshot) error {
	if snapshot == nil {
		return errors.New("快照为空")
	}

	resources, err := json.Marshal(snapshot.Resources)
	if err != nil {
		return errors.Wrap(err, "序列化快照资源失败")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO battle_runtime.growth_snapshots (account_id, resources, captured_at)
		VALUES ($1, $2, $3)
	`, snapshot.AccountID, resources, snapshot.CapturedAt)
	if err != nil {
		return errors.Wrap(err, "插入资源快照失败")
	}

	if r.cache != nil {
		payload, err := json.Marshal(snapshot)
		if err == nil {
			// 缓存失败不致命，下次读取回源即可
			_ = r.cache.SetWithTTL(ctx, snapshotCacheKey(snapshot.AccountID), payload, snapshotCacheTTL)
		}
	}
	return nil
}

type snapshotRow struct {
	AccountID  string    `boil:"account_id"`
	Resources  null.JSON `boil:"resources"`
	CapturedAt time.Time `boil:"captured_at"`
}

// Latest 返回账号最近一份快照，没有历史时返回 nil
func (r *growthSnapshotRepositoryImpl) Latest(ctx context.Context, accountID string) (*battle_runtime.GrowthSnapshot, error) {
	if r.cache != nil {
		raw, err := r.cache.GetString(ctx, snapshotCacheKey(accountID))
		if err == nil && raw != "" {
			var snapshot battle_runtime.GrowthSnapshot
			if err := json.Unmarshal([]byte(raw), &snapshot); err == nil {
				return &snapshot, nil
			}
		} else if err != nil && err != goredis.Nil {
			return nil, errors.Wrap(err, "读取快照缓存失败")
		}
	}

	var rows []snapshotRow
	err := queries.Raw(`
		SELECT account_id, resources, captured_at
		FROM battle_runtime.growth_snapshots
		WHERE account_id = $1
		ORDER BY captured_at DESC
		LIMIT 1
	`, accountID).Bind(ctx, r.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "查询资源快照失败")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	snapshot := &battle_runtime.GrowthSnapshot{
		AccountID:  row.AccountID,
		Resources:  map[battle_runtime.ResourceKind]int64{},
		CapturedAt: row.CapturedAt,
	}
	if row.Resources.Valid {
		if err := json.Unmarshal(row.Resources.JSON, &snapshot.Resources); err != nil {
			return nil, errors.Wrap(err, "解析快照资源失败")
		}
	}
	return snapshot, nil
}
