package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tsu-battle/internal/domain/battle"
	"tsu-battle/internal/entity/battle_runtime"
	"tsu-battle/internal/pkg/log"
	"tsu-battle/internal/pkg/xerrors"
	"tsu-battle/internal/repository/interfaces"
)

type fakeAccountRepo struct {
	accounts  map[string]*interfaces.Account
	resources map[string]map[battle_runtime.ResourceKind]int64
	deltas    []map[battle_runtime.ResourceKind]int64
	advanced  map[string]int
}

func newFakeAccountRepo(accounts ...*interfaces.Account) *fakeAccountRepo {
	repo := &fakeAccountRepo{
		accounts:  make(map[string]*interfaces.Account),
		resources: make(map[string]map[battle_runtime.ResourceKind]int64),
		advanced:  make(map[string]int),
	}
	for _, account := range accounts {
		repo.accounts[account.ID] = account
	}
	return repo
}

func (f *fakeAccountRepo) GetAccount(ctx context.Context, accountID string) (*interfaces.Account, error) {
	account, ok := f.accounts[accountID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return account, nil
}

func (f *fakeAccountRepo) GetResourceTotals(ctx context.Context, accountID string) (map[battle_runtime.ResourceKind]int64, error) {
	totals := make(map[battle_runtime.ResourceKind]int64)
	for kind, amount := range f.resources[accountID] {
		totals[kind] = amount
	}
	return totals, nil
}

func (f *fakeAccountRepo) UpdateResources(ctx context.Context, accountID string, deltas map[battle_runtime.ResourceKind]int64) error {
	f.deltas = append(f.deltas, deltas)
	if f.resources[accountID] == nil {
		f.resources[accountID] = make(map[battle_runtime.ResourceKind]int64)
	}
	for kind, delta := range deltas {
		f.resources[accountID][kind] += delta
	}
	return nil
}

func (f *fakeAccountRepo) AdvanceProgression(ctx context.Context, accountID string, newIndex int) error {
	f.advanced[accountID] = newIndex
	return nil
}

type fakeLoadoutRepo struct{}

func (f *fakeLoadoutRepo) GetEquipment(ctx context.Context, accountID string) ([]*interfaces.EquippedItem, error) {
	return nil, nil
}

func (f *fakeLoadoutRepo) GetCompanions(ctx context.Context, accountID string) ([]*interfaces.Companion, error) {
	return nil, nil
}

func (f *fakeLoadoutRepo) GetAuxiliaryUnits(ctx context.Context, accountID string) ([]*interfaces.AuxiliaryUnit, error) {
	return nil, nil
}

type fakeReportRepo struct {
	reports []*interfaces.BattleReport
}

func (f *fakeReportRepo) Create(ctx context.Context, report *interfaces.BattleReport) error {
	f.reports = append(f.reports, report)
	return nil
}

func (f *fakeReportRepo) GetBySessionID(ctx context.Context, sessionID string) (*interfaces.BattleReport, error) {
	for _, r := range f.reports {
		if r.SessionID == sessionID {
			return r, nil
		}
	}
	return nil, sql.ErrNoRows
}

// serviceRand 固定随机源：默认不暴击、变动系数 1.0
type serviceRand struct {
	floats []float64
	ints   []int
}

func (r *serviceRand) Float64() float64 {
	if len(r.floats) > 0 {
		v := r.floats[0]
		r.floats = r.floats[1:]
		return v
	}
	return 0.5
}

func (r *serviceRand) Intn(n int) int {
	if len(r.ints) > 0 {
		v := r.ints[0] % n
		r.ints = r.ints[1:]
		return v
	}
	return 0
}

type fixedPolicy struct {
	action battle.Action
}

func (p *fixedPolicy) ChooseAction(self, opponent *battle.CombatProfile) battle.Action {
	return p.action
}

func testAccount(id, name string, attributes map[string]int) *interfaces.Account {
	return &interfaces.Account{ID: id, Name: name, Attributes: attributes}
}

func newTestService(rng battle.Rand, accounts ...*interfaces.Account) (*SessionService, *fakeAccountRepo, *fakeReportRepo) {
	accountRepo := newFakeAccountRepo(accounts...)
	reportRepo := &fakeReportRepo{}
	statService := NewStatService(accountRepo, &fakeLoadoutRepo{})
	svc := NewSessionService(
		NewSessionStore(),
		statService,
		accountRepo,
		reportRepo,
		&fixedPolicy{action: battle.ActionAttack},
		rng,
		log.GetLogger(),
	)
	return svc, accountRepo, reportRepo
}

func appErrCode(t *testing.T, err error) xerrors.ErrorCode {
	t.Helper()
	appErr, ok := err.(*xerrors.AppError)
	require.True(t, ok, "expected *xerrors.AppError, got %T: %v", err, err)
	return appErr.Code
}

func TestOpenSessionValidatesModeAndCount(t *testing.T) {
	svc, _, _ := newTestService(&serviceRand{},
		testAccount("a", "甲", nil),
		testAccount("b", "乙", nil),
	)
	ctx := context.Background()

	_, err := svc.OpenSession(ctx, &OpenSessionRequest{Mode: "fireball-contest"})
	require.Equal(t, xerrors.CodeInvalidBattleMode, appErrCode(t, err))

	_, err = svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:           battle_runtime.ModeDuel,
		ParticipantIDs: []string{"a"},
	})
	require.Equal(t, xerrors.CodeInvalidParams, appErrCode(t, err))

	_, err = svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:           battle_runtime.ModeRoyale,
		ParticipantIDs: []string{"a"},
	})
	require.Equal(t, xerrors.CodeInvalidParams, appErrCode(t, err))
}

func TestDuelRoundWaitsUntilBothSubmit(t *testing.T) {
	svc, _, _ := newTestService(&serviceRand{},
		testAccount("a", "甲", map[string]int{"strength": 50, "defense": 20}),
		testAccount("b", "乙", map[string]int{"strength": 30, "defense": 20}),
	)
	ctx := context.Background()

	session, err := svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:           battle_runtime.ModeDuel,
		ParticipantIDs: []string{"a", "b"},
	})
	require.NoError(t, err)
	require.Equal(t, battle_runtime.StatusActive, session.Status)

	first, err := svc.SubmitAction(ctx, session.ID, "a", "attack", 1)
	require.NoError(t, err)
	require.True(t, first.Waiting)
	require.Nil(t, first.Result)

	second, err := svc.SubmitAction(ctx, session.ID, "b", "attack", 1)
	require.NoError(t, err)
	require.False(t, second.Waiting)
	require.Len(t, second.Result.Damages, 2)

	// attack vs attack：伤害即对方力量值，血量同时生效
	view, err := svc.GetSession(session.ID)
	require.NoError(t, err)
	for _, p := range view.Participants {
		switch p.ID {
		case "a":
			require.Equal(t, p.MaxHP-30, p.HP)
		case "b":
			require.Equal(t, p.MaxHP-50, p.HP)
		}
	}
	require.Equal(t, 2, view.Round)
}

func TestDuelRejectsOutsidersAndDuplicates(t *testing.T) {
	svc, _, _ := newTestService(&serviceRand{},
		testAccount("a", "甲", nil),
		testAccount("b", "乙", nil),
	)
	ctx := context.Background()

	session, err := svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:           battle_runtime.ModeDuel,
		ParticipantIDs: []string{"a", "b"},
	})
	require.NoError(t, err)

	_, err = svc.SubmitAction(ctx, session.ID, "stranger", "attack", 1)
	require.Equal(t, xerrors.CodeInvalidParticipant, appErrCode(t, err))

	_, err = svc.SubmitAction(ctx, session.ID, "a", "attack", 1)
	require.NoError(t, err)
	_, err = svc.SubmitAction(ctx, session.ID, "a", "defend", 1)
	require.Equal(t, xerrors.CodeDuplicateSubmission, appErrCode(t, err))

	_, err = svc.SubmitAction(ctx, session.ID, "b", "fireball", 1)
	require.Equal(t, xerrors.CodeInvalidAction, appErrCode(t, err))
}

func TestResolvedRoundReplaysIdempotently(t *testing.T) {
	svc, _, _ := newTestService(&serviceRand{},
		testAccount("a", "甲", map[string]int{"strength": 20}),
		testAccount("b", "乙", map[string]int{"strength": 20}),
	)
	ctx := context.Background()

	session, err := svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:           battle_runtime.ModeDuel,
		ParticipantIDs: []string{"a", "b"},
	})
	require.NoError(t, err)

	_, err = svc.SubmitAction(ctx, session.ID, "a", "attack", 1)
	require.NoError(t, err)
	resolved, err := svc.SubmitAction(ctx, session.ID, "b", "attack", 1)
	require.NoError(t, err)

	// 已结算回合的重复提交原样返回当时的结果
	replay, err := svc.SubmitAction(ctx, session.ID, "b", "dodge", 1)
	require.NoError(t, err)
	require.Equal(t, resolved.Result, replay.Result)

	view, err := svc.GetSession(session.ID)
	require.NoError(t, err)
	require.Equal(t, 2, view.Round, "重放不应推进回合")
}

func TestDuelFinishesAndRejectsFurtherSubmissions(t *testing.T) {
	svc, _, reportRepo := newTestService(&serviceRand{},
		testAccount("a", "甲", map[string]int{"strength": 5000}),
		testAccount("b", "乙", map[string]int{"strength": 10}),
	)
	ctx := context.Background()

	session, err := svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:           battle_runtime.ModeDuel,
		ParticipantIDs: []string{"a", "b"},
	})
	require.NoError(t, err)

	_, err = svc.SubmitAction(ctx, session.ID, "a", "attack", 1)
	require.NoError(t, err)
	result, err := svc.SubmitAction(ctx, session.ID, "b", "attack", 1)
	require.NoError(t, err)

	require.True(t, result.Result.Finished)
	require.Equal(t, "a", result.Result.WinnerID)

	view, err := svc.GetSession(session.ID)
	require.NoError(t, err)
	require.Equal(t, string(battle_runtime.StatusFinished), view.Status)
	for _, p := range view.Participants {
		require.GreaterOrEqual(t, p.HP, int64(0), "血量永不为负")
	}

	_, err = svc.SubmitAction(ctx, session.ID, "a", "attack", 2)
	require.Equal(t, xerrors.CodeSessionNotActive, appErrCode(t, err))

	require.Len(t, reportRepo.reports, 1)
	require.Equal(t, "victory", reportRepo.reports[0].ResultStatus)
	require.Equal(t, "a", reportRepo.reports[0].WinnerID)
}

func TestPveLadderVictoryAdvancesExactlyOneStep(t *testing.T) {
	svc, accountRepo, reportRepo := newTestService(&serviceRand{},
		testAccount("p1", "挑战者", map[string]int{"strength": 5000, "defense": 50}),
	)
	ctx := context.Background()

	session, err := svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:           battle_runtime.ModePveLadder,
		ParticipantIDs: []string{"p1"},
	})
	require.NoError(t, err)
	require.NotNil(t, session.Pve)
	require.Equal(t, 1, session.Pve.Index)

	// 守卫由策略代打，单次提交即结算
	result, err := svc.SubmitAction(ctx, session.ID, "p1", "attack", 1)
	require.NoError(t, err)
	require.True(t, result.Result.Finished)
	require.Equal(t, "p1", result.Result.WinnerID)

	require.Equal(t, 1, accountRepo.advanced["p1"], "胜利恰好推进一层")

	// 变动系数固定为 1.0：第 1 层战力 10，金币 10/2=5，训练点 3，碎片 1
	require.Len(t, accountRepo.deltas, 1)
	require.EqualValues(t, 5, accountRepo.deltas[0][battle_runtime.ResourceGold])
	require.EqualValues(t, 3, accountRepo.deltas[0][battle_runtime.ResourceTrainingPoints])
	require.EqualValues(t, 1, accountRepo.deltas[0][battle_runtime.ResourceShards])

	require.Len(t, reportRepo.reports, 1)
	require.Equal(t, "5", reportRepo.reports[0].RewardGold)
}

func TestPveLadderDefeatLeavesIndexUnchanged(t *testing.T) {
	account := testAccount("p1", "挑战者", map[string]int{"strength": 1, "defense": 0})
	account.ProgressionIndex = 250 // 第 3 大层，守卫战力远超挑战者
	account.Rank = 5
	svc, accountRepo, _ := newTestService(&serviceRand{}, account)
	ctx := context.Background()

	session, err := svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:           battle_runtime.ModePveLadder,
		ParticipantIDs: []string{"p1"},
	})
	require.NoError(t, err)

	result, err := svc.SubmitAction(ctx, session.ID, "p1", "attack", 1)
	require.NoError(t, err)
	require.True(t, result.Result.Finished)
	require.NotEqual(t, "p1", result.Result.WinnerID)

	_, advanced := accountRepo.advanced["p1"]
	require.False(t, advanced, "失败不推进进度")
	require.Empty(t, accountRepo.deltas, "失败不发奖励")
}

func TestPveLadderEnforcesRankGate(t *testing.T) {
	account := testAccount("p1", "越级挑战者", nil)
	account.ProgressionIndex = 100
	account.Rank = 0
	svc, _, _ := newTestService(&serviceRand{}, account)

	_, err := svc.OpenSession(context.Background(), &OpenSessionRequest{
		Mode:           battle_runtime.ModePveLadder,
		ParticipantIDs: []string{"p1"},
	})
	require.Equal(t, xerrors.CodeRankGateViolation, appErrCode(t, err))
}

func TestRoyaleAssignsPlacementsOnce(t *testing.T) {
	svc, _, _ := newTestService(&serviceRand{},
		testAccount("strong", "强者", map[string]int{"strength": 5000}),
		testAccount("mid", "中坚", map[string]int{"strength": 10}),
		testAccount("weak", "弱者", map[string]int{"strength": 10}),
	)
	ctx := context.Background()

	session, err := svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:           battle_runtime.ModeRoyale,
		ParticipantIDs: []string{"strong", "mid", "weak"},
	})
	require.NoError(t, err)

	// 第 1 回合：目标偏移固定为 1，strong 秒掉 mid
	for _, id := range []string{"strong", "mid", "weak"} {
		_, err := svc.SubmitAction(ctx, session.ID, id, "attack", 1)
		require.NoError(t, err)
	}
	view, err := svc.GetSession(session.ID)
	require.NoError(t, err)
	for _, p := range view.Participants {
		if p.ID == "mid" {
			require.True(t, p.Eliminated)
			require.Equal(t, 3, p.Placement, "倒下时场上还剩 2 人，名次为 3")
		}
	}

	// 第 2 回合：strong 对剩下的 weak
	for _, id := range []string{"strong", "weak"} {
		_, err := svc.SubmitAction(ctx, session.ID, id, "attack", 2)
		require.NoError(t, err)
	}
	view, err = svc.GetSession(session.ID)
	require.NoError(t, err)
	require.Equal(t, string(battle_runtime.StatusFinished), view.Status)
	require.Equal(t, "strong", view.WinnerID)
	for _, p := range view.Participants {
		switch p.ID {
		case "strong":
			require.Equal(t, 1, p.Placement)
		case "weak":
			require.Equal(t, 2, p.Placement)
		case "mid":
			require.Equal(t, 3, p.Placement, "名次只赋值一次")
		}
	}
}

func TestRoyaleSafeZoneShrinksEveryThreeRounds(t *testing.T) {
	svc, _, _ := newTestService(&serviceRand{},
		testAccount("a", "甲", map[string]int{"defense": 0}),
		testAccount("b", "乙", map[string]int{"defense": 0}),
	)
	ctx := context.Background()

	session, err := svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:           battle_runtime.ModeRoyale,
		ParticipantIDs: []string{"a", "b"},
	})
	require.NoError(t, err)

	// 双方一直防御：只有安全区伤害在消耗血量（开场血量 120）。
	// 前 3 档满血者留在区内，第 4 档起门槛封顶、无人幸免，
	// 第 12/15/18/21/24 回合分别承受 20/25/30/35/40，累计 150 > 120
	round := 1
	for {
		view, err := svc.GetSession(session.ID)
		require.NoError(t, err)
		if view.Status == string(battle_runtime.StatusFinished) {
			break
		}
		require.Less(t, round, 30, "安全区必须在有限回合内终结战斗")
		for _, id := range []string{"a", "b"} {
			_, err := svc.SubmitAction(ctx, session.ID, id, "defend", round)
			require.NoError(t, err)
		}
		round++
	}

	view, err := svc.GetSession(session.ID)
	require.NoError(t, err)
	require.True(t, view.Draw, "同回合同时倒下为平局")
}

func TestRoyaleSafeZoneSparesParticipantsInsideThreshold(t *testing.T) {
	svc, _, _ := newTestService(&serviceRand{},
		testAccount("strong", "强者", map[string]int{"strength": 30, "defense": 0}),
		testAccount("weak", "弱者", map[string]int{"strength": 1, "defense": 0}),
	)
	ctx := context.Background()

	session, err := svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:           battle_runtime.ModeRoyale,
		ParticipantIDs: []string{"strong", "weak"},
	})
	require.NoError(t, err)

	// 3 回合互攻后 weak 恰好落到 25% 血量比，strong 几乎满血
	for round := 1; round <= 3; round++ {
		for _, id := range []string{"strong", "weak"} {
			_, err := svc.SubmitAction(ctx, session.ID, id, "attack", round)
			require.NoError(t, err)
		}
	}

	// 第 3 回合收缩至第 1 档（门槛 25%）：只有 weak 被挡在区外
	view, err := svc.GetSession(session.ID)
	require.NoError(t, err)
	for _, p := range view.Participants {
		switch p.ID {
		case "weak":
			require.Equal(t, p.MaxHP-95, p.HP, "区外存活者额外承受 5 点区域伤害")
		case "strong":
			require.Equal(t, p.MaxHP-3, p.HP, "区内存活者不受区域伤害")
		}
	}
}

func TestDuelEqualResidualIsDraw(t *testing.T) {
	svc, _, _ := newTestService(&serviceRand{},
		testAccount("a", "甲", map[string]int{"strength": 5000}),
		testAccount("b", "乙", map[string]int{"strength": 5000}),
	)
	ctx := context.Background()

	session, err := svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:           battle_runtime.ModeDuel,
		ParticipantIDs: []string{"a", "b"},
	})
	require.NoError(t, err)

	// 完全对称的档案互攻：双方同时倒下且钳制前血量相等
	_, err = svc.SubmitAction(ctx, session.ID, "a", "attack", 1)
	require.NoError(t, err)
	result, err := svc.SubmitAction(ctx, session.ID, "b", "attack", 1)
	require.NoError(t, err)
	require.True(t, result.Result.Finished)
	require.True(t, result.Result.Draw)
	require.Empty(t, result.Result.WinnerID)

	view, err := svc.GetSession(session.ID)
	require.NoError(t, err)
	require.Equal(t, string(battle_runtime.StatusFinished), view.Status)
	require.True(t, view.Draw)
	require.Empty(t, view.WinnerID)
	for _, p := range view.Participants {
		require.Zero(t, p.HP, "血量钳制为 0")
	}
}

func TestGetSessionIsConsistentDuringConcurrentRounds(t *testing.T) {
	svc, _, _ := newTestService(&serviceRand{},
		testAccount("a", "甲", nil),
		testAccount("b", "乙", nil),
	)
	ctx := context.Background()

	session, err := svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:           battle_runtime.ModeDuel,
		ParticipantIDs: []string{"a", "b"},
	})
	require.NoError(t, err)

	// 双方持续防御推进回合，另一侧同时高频读取状态视图。
	// 视图在会话锁内构建，-race 下不允许出现读写竞争。
	const rounds = 40
	done := make(chan struct{})
	go func() {
		defer close(done)
		for round := 1; round <= rounds; round++ {
			if _, err := svc.SubmitAction(ctx, session.ID, "a", "defend", round); err != nil {
				return
			}
			if _, err := svc.SubmitAction(ctx, session.ID, "b", "defend", round); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			view, err := svc.GetSession(session.ID)
			require.NoError(t, err)
			require.Equal(t, rounds+1, view.Round)
			return
		default:
			view, err := svc.GetSession(session.ID)
			require.NoError(t, err)
			require.Len(t, view.Participants, 2)
			require.Equal(t, string(battle_runtime.StatusActive), view.Status)
		}
	}
}

func TestTournamentAdvancesLoserIndexOnly(t *testing.T) {
	svc, _, _ := newTestService(&serviceRand{},
		testAccount("champ", "擂主", map[string]int{"strength": 5000}),
		testAccount("w1", "挑战一号", map[string]int{"strength": 10}),
		testAccount("w2", "挑战二号", map[string]int{"strength": 10}),
	)
	ctx := context.Background()

	session, err := svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:    battle_runtime.ModeTournament,
		Rosters: [2][]string{{"champ"}, {"w1", "w2"}},
	})
	require.NoError(t, err)

	// 第 1 场：champ 胜，败方出战位前移
	_, err = svc.SubmitAction(ctx, session.ID, "champ", "attack", 1)
	require.NoError(t, err)
	result, err := svc.SubmitAction(ctx, session.ID, "w1", "attack", 1)
	require.NoError(t, err)
	require.False(t, result.Result.Finished)

	peek, ok := svc.store.Peek(session.ID)
	require.True(t, ok)
	require.Equal(t, [2]int{0, 1}, peek.Tournament.FighterIndex, "胜方出战位不动")
	require.Equal(t, [2]int{1, 0}, peek.Tournament.Score)

	// 非当前出战位的选手不允许提交
	_, err = svc.SubmitAction(ctx, session.ID, "w1", "attack", 2)
	require.Equal(t, xerrors.CodeInvalidParticipant, appErrCode(t, err))

	// 第 2 场：连败 2 场后出战位等于 2，对局结束
	_, err = svc.SubmitAction(ctx, session.ID, "champ", "attack", 2)
	require.NoError(t, err)
	result, err = svc.SubmitAction(ctx, session.ID, "w2", "attack", 2)
	require.NoError(t, err)
	require.True(t, result.Result.Finished)
	require.Equal(t, "champ", result.Result.WinnerID)

	peek, ok = svc.store.Peek(session.ID)
	require.True(t, ok)
	require.Equal(t, 2, peek.Tournament.FighterIndex[1])
	require.Equal(t, [2]int{2, 0}, peek.Tournament.Score)
}

func TestTeamBattleAdvancesBothRosters(t *testing.T) {
	svc, _, _ := newTestService(&serviceRand{},
		testAccount("a1", "甲一", map[string]int{"strength": 5000}),
		testAccount("a2", "甲二", map[string]int{"strength": 5000}),
		testAccount("b1", "乙一", map[string]int{"strength": 10}),
		testAccount("b2", "乙二", map[string]int{"strength": 10}),
	)
	ctx := context.Background()

	session, err := svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:    battle_runtime.ModeTeam,
		Rosters: [2][]string{{"a1", "a2"}, {"b1", "b2"}},
	})
	require.NoError(t, err)

	_, err = svc.SubmitAction(ctx, session.ID, "a1", "attack", 1)
	require.NoError(t, err)
	result, err := svc.SubmitAction(ctx, session.ID, "b1", "attack", 1)
	require.NoError(t, err)
	require.False(t, result.Result.Finished)

	peek, ok := svc.store.Peek(session.ID)
	require.True(t, ok)
	require.Equal(t, [2]int{1, 1}, peek.Tournament.FighterIndex, "团战双方出战位同步前移")

	_, err = svc.SubmitAction(ctx, session.ID, "a2", "attack", 2)
	require.NoError(t, err)
	result, err = svc.SubmitAction(ctx, session.ID, "b2", "attack", 2)
	require.NoError(t, err)
	require.True(t, result.Result.Finished)
	require.Equal(t, "a1", result.Result.WinnerID, "按阵容首位代表胜方")
}

func TestForceFinishAndExpireIdleSessions(t *testing.T) {
	svc, _, reportRepo := newTestService(&serviceRand{},
		testAccount("a", "甲", nil),
		testAccount("b", "乙", nil),
	)
	ctx := context.Background()

	session, err := svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:           battle_runtime.ModeDuel,
		ParticipantIDs: []string{"a", "b"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.ForceFinish(ctx, session.ID, "测试强制结束"))
	view, err := svc.GetSession(session.ID)
	require.NoError(t, err)
	require.Equal(t, string(battle_runtime.StatusFinished), view.Status)
	require.Len(t, reportRepo.reports, 1)
	require.Equal(t, "expired", reportRepo.reports[0].ResultStatus)

	// 再次强制结束应当幂等
	require.NoError(t, svc.ForceFinish(ctx, session.ID, "重复调用"))
	require.Len(t, reportRepo.reports, 1)

	// 把会话标记为一天前活跃后触发清理
	second, err := svc.OpenSession(ctx, &OpenSessionRequest{
		Mode:           battle_runtime.ModeDuel,
		ParticipantIDs: []string{"a", "b"},
	})
	require.NoError(t, err)
	raw, ok := svc.store.Peek(second.ID)
	require.True(t, ok)
	raw.LastActivity = time.Now().Add(-25 * time.Hour)

	expired := svc.ExpireIdleSessions(ctx, 24*time.Hour)
	require.Equal(t, 1, expired)
	require.Equal(t, 1, svc.store.Count(), "仍然活跃的会话不受清理影响")
	_, ok = svc.store.Peek(second.ID)
	require.False(t, ok)
}
