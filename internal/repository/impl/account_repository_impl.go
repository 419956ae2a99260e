package impl

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/friendsofgo/errors"

	"tsu-battle/internal/entity/battle_runtime"
	"tsu-battle/internal/repository/interfaces"
)

type accountRepositoryImpl struct {
	db *sql.DB
}

// NewAccountRepository 创建账号仓储实例
func NewAccountRepository(db *sql.DB) interfaces.AccountRepository {
	return &accountRepositoryImpl{db: db}
}

type accountRow struct {
	ID               string      `boil:"id"`
	Name             string      `boil:"name"`
	Race             null.String `boil:"race"`
	Rank             null.Int    `boil:"rank"`
	ProgressionIndex null.Int    `boil:"progression_index"`
	Attributes       null.JSON   `boil:"attributes"`
}

// GetAccount 读取账号的战斗相关切片
func (r *accountRepositoryImpl) GetAccount(ctx context.Context, accountID string) (*interfaces.Account, error) {
	var rows []accountRow
	err := queries.Raw(`
		SELECT id, name, race, rank, progression_index, attributes
		FROM game_runtime.accounts
		WHERE id = $1 AND deleted_at IS NULL
	`, accountID).Bind(ctx, r.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "查询账号失败")
	}
	if len(rows) == 0 {
		return nil, sql.ErrNoRows
	}

	row := rows[0]
	account := &interfaces.Account{
		ID:               row.ID,
		Name:             row.Name,
		Race:             row.Race.String,
		Rank:             row.Rank.Int,
		ProgressionIndex: row.ProgressionIndex.Int,
		Attributes:       map[string]int{},
	}
	if row.Attributes.Valid {
		if err := json.Unmarshal(row.Attributes.JSON, &account.Attributes); err != nil {
			return nil, errors.Wrap(err, "解析账号属性失败")
		}
	}
	return account, nil
}

type resourceRow struct {
	Resource string `boil:"resource"`
	Amount   int64  `boil:"amount"`
}

// GetResourceTotals 返回账号当前资源总量
func (r *accountRepositoryImpl) GetResourceTotals(ctx context.Context, accountID string) (map[battle_runtime.ResourceKind]int64, error) {
	var rows []resourceRow
	err := queries.Raw(`
		SELECT resource, amount
		FROM game_runtime.account_resources
		WHERE account_id = $1
	`, accountID).Bind(ctx, r.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "查询账号资源失败")
	}

	totals := make(map[battle_runtime.ResourceKind]int64, len(rows))
	for _, row := range rows {
		totals[battle_runtime.ResourceKind(row.Resource)] = row.Amount
	}
	return totals, nil
}

// UpdateResources 按增量更新资源，不存在的行自动补齐
func (r *accountRepositoryImpl) UpdateResources(ctx context.Context, accountID string, deltas map[battle_runtime.ResourceKind]int64) error {
	if len(deltas) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "开启资源更新事务失败")
	}
	defer tx.Rollback()

	for resource, delta := range deltas {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO game_runtime.account_resources (account_id, resource, amount, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (account_id, resource) DO UPDATE SET
				amount     = game_runtime.account_resources.amount + EXCLUDED.amount,
				updated_at = NOW()
		`, accountID, string(resource), delta)
		if err != nil {
			return errors.Wrapf(err, "更新资源 %s 失败", resource)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "提交资源更新事务失败")
	}
	return nil
}

// AdvanceProgression 推进 PvE 进度
func (r *accountRepositoryImpl) AdvanceProgression(ctx context.Context, accountID string, newIndex int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE game_runtime.accounts
		SET progression_index = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, accountID, newIndex)
	if err != nil {
		return errors.Wrap(err, "推进进度失败")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "读取进度更新结果失败")
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
