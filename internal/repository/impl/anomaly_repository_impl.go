package impl

import (
	"context"
	"database/sql"
	"time"

	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/aarondl/strmangle"
	"github.com/friendsofgo/errors"
	"github.com/google/uuid"

	"tsu-battle/internal/entity/battle_runtime"
	"tsu-battle/internal/repository/interfaces"
)

type anomalyRepositoryImpl struct {
	db *sql.DB
}

// NewAnomalyRepository 创建异常记录仓储实例
func NewAnomalyRepository(db *sql.DB) interfaces.AnomalyRepository {
	return &anomalyRepositoryImpl{db: db}
}

// Create 落库一条异常记录，ID 为空时自动生成
func (r *anomalyRepositoryImpl) Create(ctx context.Context, record *battle_runtime.AnomalyRecord) error {
	if record == nil {
		return errors.New("异常记录为空")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.DetectedAt.IsZero() {
		record.DetectedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO battle_runtime.anomaly_records (
			id, account_id, resource, kind, magnitude, severity, detected_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		record.ID,
		record.AccountID,
		string(record.Resource),
		record.Kind,
		record.Magnitude,
		string(record.Severity),
		record.DetectedAt,
	)
	if err != nil {
		return errors.Wrap(err, "插入异常记录失败")
	}
	return nil
}

type anomalyRow struct {
	ID         string    `boil:"id"`
	AccountID  string    `boil:"account_id"`
	Resource   string    `boil:"resource"`
	Kind       string    `boil:"kind"`
	Magnitude  int64     `boil:"magnitude"`
	Severity   string    `boil:"severity"`
	DetectedAt time.Time `boil:"detected_at"`
}

// ListByAccount 按时间倒序返回账号的异常记录
func (r *anomalyRepositoryImpl) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*battle_runtime.AnomalyRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []anomalyRow
	err := queries.Raw(`
		SELECT id, account_id, resource, kind, magnitude, severity, detected_at
		FROM battle_runtime.anomaly_records
		WHERE account_id = $1
		ORDER BY detected_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset).Bind(ctx, r.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "查询异常记录失败")
	}
	return convertAnomalyRows(rows), nil
}

// CountByAccount 统计账号的异常记录总数
func (r *anomalyRepositoryImpl) CountByAccount(ctx context.Context, accountID string) (int64, error) {
	var result struct {
		Total int64 `boil:"total"`
	}
	err := queries.Raw(`
		SELECT COUNT(*) AS total
		FROM battle_runtime.anomaly_records
		WHERE account_id = $1
	`, accountID).Bind(ctx, r.db, &result)
	if err != nil {
		return 0, errors.Wrap(err, "统计异常记录失败")
	}
	return result.Total, nil
}

// ListRecent 按严重级别过滤指定时间之后的记录
func (r *anomalyRepositoryImpl) ListRecent(ctx context.Context, severities []battle_runtime.AnomalySeverity, since time.Time, limit int) ([]*battle_runtime.AnomalyRecord, error) {
	if len(severities) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 200
	}

	args := make([]interface{}, 0, len(severities)+2)
	args = append(args, since)
	for _, severity := range severities {
		args = append(args, string(severity))
	}
	args = append(args, limit)

	// LIMIT 占位符编号紧跟在严重级别之后
	query := `
		SELECT id, account_id, resource, kind, magnitude, severity, detected_at
		FROM battle_runtime.anomaly_records
		WHERE detected_at >= $1
		  AND severity IN (` + strmangle.Placeholders(true, len(severities), 2, 1) + `)
		ORDER BY detected_at DESC
		LIMIT ` + strmangle.Placeholders(true, 1, len(severities)+2, 1)

	var rows []anomalyRow
	if err := queries.Raw(query, args...).Bind(ctx, r.db, &rows); err != nil {
		return nil, errors.Wrap(err, "查询近期异常记录失败")
	}
	return convertAnomalyRows(rows), nil
}

func convertAnomalyRows(rows []anomalyRow) []*battle_runtime.AnomalyRecord {
	records := make([]*battle_runtime.AnomalyRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, &battle_runtime.AnomalyRecord{
			ID:         row.ID,
			AccountID:  row.AccountID,
			Resource:   battle_runtime.ResourceKind(row.Resource),
			Kind:       row.Kind,
			Magnitude:  row.Magnitude,
			Severity:   battle_runtime.AnomalySeverity(row.Severity),
			DetectedAt: row.DetectedAt,
		})
	}
	return records
}
