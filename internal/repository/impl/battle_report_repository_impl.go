package impl

import (
	"context"
	"database/sql"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/friendsofgo/errors"

	"tsu-battle/internal/repository/interfaces"
)

type battleReportRepositoryImpl struct {
	db *sql.DB
}

// NewBattleReportRepository 创建战报仓储实例。
func NewBattleReportRepository(db *sql.DB) interfaces.BattleReportRepository {
	return &battleReportRepositoryImpl{db: db}
}

// Create 写入战报，重复写入按会话 ID 覆盖
func (r *battleReportRepositoryImpl) Create(ctx context.Context, report *interfaces.BattleReport) error {
	if report == nil {
		return errors.New("战报为空")
	}

	query := `
		INSERT INTO battle_runtime.battle_reports (
			session_id, mode, result_status, winner_id, rounds,
			reward_gold, participants, events
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (session_id) DO UPDATE SET
			mode          = EXCLUDED.mode,
			result_status = EXCLUDED.result_status,
			winner_id     = EXCLUDED.winner_id,
			rounds        = EXCLUDED.rounds,
			reward_gold   = EXCLUDED.reward_gold,
			participants  = EXCLUDED.participants,
			events        = EXCLUDED.events,
			updated_at    = NOW()
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		report.SessionID,
		report.Mode,
		report.ResultStatus,
		nullString(report.WinnerID),
		report.Rounds,
		report.RewardGold,
		nullJSON(report.Participants),
		nullJSON(report.Events),
	)
	if err != nil {
		return errors.Wrap(err, "插入战报失败")
	}
	return nil
}

type battleReportRow struct {
	SessionID    string      `boil:"session_id"`
	Mode         string      `boil:"mode"`
	ResultStatus string      `boil:"result_status"`
	WinnerID     null.String `boil:"winner_id"`
	Rounds       int         `boil:"rounds"`
	RewardGold   string      `boil:"reward_gold"`
	Participants null.JSON   `boil:"participants"`
	Events       null.JSON   `boil:"events"`
	CreatedAt    time.Time   `boil:"created_at"`
}

// GetBySessionID 按会话 ID 查询战报
func (r *battleReportRepositoryImpl) GetBySessionID(ctx context.Context, sessionID string) (*interfaces.BattleReport, error) {
	var rows []battleReportRow
	err := queries.Raw(`
		SELECT session_id, mode, result_status, winner_id, rounds,
		       reward_gold, participants, events, created_at
		FROM battle_runtime.battle_reports
		WHERE session_id = $1
	`, sessionID).Bind(ctx, r.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "查询战报失败")
	}
	if len(rows) == 0 {
		return nil, sql.ErrNoRows
	}

	row := rows[0]
	report := &interfaces.BattleReport{
		SessionID:    row.SessionID,
		Mode:         row.Mode,
		ResultStatus: row.ResultStatus,
		WinnerID:     row.WinnerID.String,
		Rounds:       row.Rounds,
		RewardGold:   row.RewardGold,
	}
	if row.Participants.Valid {
		report.Participants = row.Participants.JSON
	}
	if row.Events.Valid {
		report.Events = row.Events.JSON
	}
	return report, nil
}

func nullString(val string) interface{} {
	if val == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: val, Valid: true}
}

func nullJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
