package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"tsu-battle/internal/domain/battle"
	"tsu-battle/internal/domain/progression"
	"tsu-battle/internal/entity/battle_runtime"
	"tsu-battle/internal/pkg/log"
	"tsu-battle/internal/pkg/metrics"
	"tsu-battle/internal/pkg/notify"
	"tsu-battle/internal/pkg/xerrors"
	"tsu-battle/internal/repository/interfaces"
)

const (
	// 大逃杀安全区每 3 回合收缩一档，区外存活者承受 档数*5 的区域伤害。
	// 留在区内要求的血量比门槛随档数每次抬高 25%，
	// 第 4 档起无人能满足门槛，保证战斗在有限回合内收敛。
	royaleShrinkInterval       = 3
	royaleStageDamageFactor    = 5
	royaleSafeThresholdStepPct = 25

	// 奖励浮动区间 [0.7, 1.3]
	rewardVarianceMin  = 0.7
	rewardVarianceSpan = 0.6

	// 每个段位解锁一个进度大层（100 个小层）
	indexesPerRank = 100
)

// OpenSessionRequest 开启会话的入参。
// Rosters 只在擂台/团战模式使用；ParticipantIDs 顺序即出战顺序。
type OpenSessionRequest struct {
	Mode           battle_runtime.Mode
	ParticipantIDs []string
	Rosters        [2][]string
}

// SubmitResult 行动提交的出参：要么在等待其他行动，要么携带回合结算。
type SubmitResult struct {
	SessionID string                      `json:"session_id"`
	Round     int                         `json:"round"`
	Waiting   bool                        `json:"waiting"`
	Result    *battle_runtime.RoundResult `json:"result,omitempty"`
}

// SessionService 战斗会话编排：状态机推进、回合结算与终局判定。
// 单个会话的所有变更都在持有该会话锁时完成；
// 对外发布与落库在锁释放之后执行。
type SessionService struct {
	store            *SessionStore
	statService      *StatService
	accountRepo      interfaces.AccountRepository
	battleReportRepo interfaces.BattleReportRepository
	policy           battle.OpponentPolicy
	rng              battle.Rand
	logger           log.Logger
	clock            func() time.Time
}

// NewSessionService 构造函数。
func NewSessionService(
	store *SessionStore,
	statService *StatService,
	accountRepo interfaces.AccountRepository,
	battleReportRepo interfaces.BattleReportRepository,
	policy battle.OpponentPolicy,
	rng battle.Rand,
	logger log.Logger,
) *SessionService {
	return &SessionService{
		store:            store,
		statService:      statService,
		accountRepo:      accountRepo,
		battleReportRepo: battleReportRepo,
		policy:           policy,
		rng:              rng,
		logger:           logger.With("component", "session_service"),
		clock:            time.Now,
	}
}

// OpenSession 聚合所有参战者属性并开启会话。
// 返回会话 ID；会话进入 active 后才接受行动提交。
func (s *SessionService) OpenSession(ctx context.Context, req *OpenSessionRequest) (*battle_runtime.BattleSession, error) {
	if req == nil || !req.Mode.IsValid() {
		if req == nil {
			return nil, xerrors.New(xerrors.CodeInvalidParams, "请求不能为空")
		}
		return nil, xerrors.NewInvalidModeError(string(req.Mode))
	}

	now := s.clock()
	session := &battle_runtime.BattleSession{
		ID:           uuid.NewString(),
		Mode:         req.Mode,
		Status:       battle_runtime.StatusPending,
		Pending:      make(map[string]battle.Action),
		CreatedAt:    now,
		LastActivity: now,
	}

	var err error
	switch req.Mode {
	case battle_runtime.ModeDuel:
		err = s.populateDuel(ctx, session, req.ParticipantIDs)
	case battle_runtime.ModeRoyale:
		err = s.populateRoyale(ctx, session, req.ParticipantIDs)
	case battle_runtime.ModeTournament, battle_runtime.ModeTeam:
		err = s.populateRosters(ctx, session, req.Rosters)
	case battle_runtime.ModePveLadder:
		err = s.populateLadder(ctx, session, req.ParticipantIDs)
	}
	if err != nil {
		return nil, err
	}

	session.Status = battle_runtime.StatusActive
	session.Round = 1
	session.AppendLog(fmt.Sprintf("战斗开启：模式 %s，参战 %d 人", session.Mode, len(session.Participants)))

	if err := s.store.Put(session); err != nil {
		return nil, err
	}

	metrics.DefaultBusinessMetrics.RecordSessionOpened(string(session.Mode), metrics.GetServiceName())
	s.logger.InfoContext(ctx, "战斗会话已开启",
		"session_id", session.ID,
		"mode", session.Mode,
		"participants", len(session.Participants),
	)
	return session, nil
}

func (s *SessionService) populateDuel(ctx context.Context, session *battle_runtime.BattleSession, ids []string) error {
	if len(ids) != 2 {
		return xerrors.NewValidationError("participants", "决斗模式必须恰好 2 名参战者")
	}
	return s.appendAccounts(ctx, session, ids, 0)
}

func (s *SessionService) populateRoyale(ctx context.Context, session *battle_runtime.BattleSession, ids []string) error {
	if len(ids) < 2 {
		return xerrors.NewValidationError("participants", "大逃杀模式至少 2 名参战者")
	}
	session.Royale = &battle_runtime.RoyaleState{}
	return s.appendAccounts(ctx, session, ids, 0)
}

func (s *SessionService) populateRosters(ctx context.Context, session *battle_runtime.BattleSession, rosters [2][]string) error {
	if len(rosters[0]) == 0 || len(rosters[1]) == 0 {
		return xerrors.New(xerrors.CodeInvalidRoster, "双方阵容都不能为空")
	}
	if session.Mode == battle_runtime.ModeTeam && len(rosters[0]) != len(rosters[1]) {
		return xerrors.New(xerrors.CodeInvalidRoster, "固定阵容团战要求双方人数一致")
	}
	session.Tournament = &battle_runtime.TournamentState{}
	if err := s.appendAccounts(ctx, session, rosters[0], 0); err != nil {
		return err
	}
	return s.appendAccounts(ctx, session, rosters[1], 1)
}

func (s *SessionService) populateLadder(ctx context.Context, session *battle_runtime.BattleSession, ids []string) error {
	if len(ids) != 1 {
		return xerrors.NewValidationError("participants", "天梯模式只允许单人挑战")
	}

	account, err := s.accountRepo.GetAccount(ctx, ids[0])
	if err != nil {
		return xerrors.Wrap(err, xerrors.CodeDatabaseError, "读取挑战者账号失败")
	}

	// 挑战的是下一层；段位决定可挑战的上限
	index := account.ProgressionIndex + 1
	if index > (account.Rank+1)*indexesPerRank {
		return xerrors.NewRankGateError(account.ID, account.Rank, (index-1)/indexesPerRank)
	}

	if err := s.appendAccounts(ctx, session, ids, 0); err != nil {
		return err
	}

	opponent, hp, err := buildLadderOpponent(index)
	if err != nil {
		return err
	}
	session.Participants = append(session.Participants, &battle_runtime.Participant{
		Profile: opponent,
		HP:      hp,
		MaxHP:   hp,
		Roster:  1,
	})
	session.Pve = &battle_runtime.PveState{
		AccountID: account.ID,
		Index:     index,
	}
	return nil
}

func (s *SessionService) appendAccounts(ctx context.Context, session *battle_runtime.BattleSession, ids []string, roster int) error {
	for _, id := range ids {
		profile, err := s.statService.Aggregate(ctx, id)
		if err != nil {
			return err
		}
		hp := hitPointsFor(profile)
		session.Participants = append(session.Participants, &battle_runtime.Participant{
			Profile: profile,
			HP:      hp,
			MaxHP:   hp,
			Roster:  roster,
		})
	}
	return nil
}

// hitPointsFor 开场血量由防御与潜能决定
func hitPointsFor(profile *battle.CombatProfile) int64 {
	return 100 + 5*int64(profile.Defense) + 2*int64(profile.Potency)
}

// buildLadderOpponent 按进度层数生成天梯守卫。
// 守卫属性由该层战力派生，溢出时饱和在 int64 上限。
func buildLadderOpponent(index int) (*battle.CombatProfile, int64, error) {
	power, saturated, err := progression.PowerAtInt64(index)
	if err != nil {
		return nil, 0, xerrors.NewIndexOutOfRangeError(index)
	}
	if saturated {
		// 饱和说明已触发溢出保护，战力钳制在可表示上限
		log.Warn("天梯守卫战力已饱和", "index", index)
	}

	luck := 10 + index/20
	if luck > 50 {
		luck = 50
	}

	name := fmt.Sprintf("第 %d 层守卫", index)
	if index%indexesPerRank == 0 {
		name = fmt.Sprintf("第 %d 层护法", index)
	}

	profile := &battle.CombatProfile{
		ID:           fmt.Sprintf("npc-ladder-%d", index),
		Name:         name,
		Strength:     clampToInt(power / 2),
		Defense:      clampToInt(power / 4),
		Speed:        clampToInt(power / 8),
		Intellect:    clampToInt(power / 8),
		Luck:         luck,
		AIControlled: true,
	}
	return profile, power, nil
}

func clampToInt(v int64) int {
	if v < 1 {
		return 1
	}
	return int(v)
}

// SubmitAction 提交一个参战者在指定回合的行动。
// 对已结算回合的重复提交幂等返回原结果；
// 同一回合的二次提交返回 DuplicateSubmission。
func (s *SessionService) SubmitAction(ctx context.Context, sessionID, participantID, actionName string, round int) (*SubmitResult, error) {
	action, err := battle.ParseAction(actionName)
	if err != nil {
		return nil, xerrors.NewInvalidActionError(actionName)
	}

	session, unlock, err := s.store.Acquire(sessionID)
	if err != nil {
		return nil, err
	}

	result, after, err := s.submitLocked(session, participantID, action, round)
	unlock()
	if err != nil {
		return nil, err
	}
	// 外部 I/O 一律在锁外执行
	for _, fn := range after {
		fn(ctx)
	}
	return result, nil
}

type afterFunc func(ctx context.Context)

// submitLocked 在持有会话锁的前提下处理一次提交。
// 返回的 afterFunc 列表在释放锁之后执行。
func (s *SessionService) submitLocked(session *battle_runtime.BattleSession, participantID string, action battle.Action, round int) (*SubmitResult, []afterFunc, error) {
	// 幂等重放：已结算回合返回当时的结果
	if prior := session.ResultFor(round); prior != nil {
		return &SubmitResult{
			SessionID: session.ID,
			Round:     round,
			Result:    prior,
		}, nil, nil
	}

	if session.Status != battle_runtime.StatusActive {
		return nil, nil, xerrors.NewSessionNotActiveError(session.ID, string(session.Status))
	}
	if round != session.Round {
		return nil, nil, xerrors.NewValidationError("round", fmt.Sprintf("当前回合为 %d", session.Round))
	}

	participant := session.FindParticipant(participantID)
	if participant == nil || !participant.Alive() {
		return nil, nil, xerrors.NewInvalidParticipantError(session.ID, participantID)
	}
	if !s.isRequiredThisRound(session, participantID) {
		return nil, nil, xerrors.NewInvalidParticipantError(session.ID, participantID)
	}

	if _, dup := session.Pending[participantID]; dup {
		return nil, nil, xerrors.NewDuplicateSubmissionError(session.ID, participantID, round)
	}
	session.Pending[participantID] = action

	// AI 参战者只在尚未提交时才由策略代打
	required := s.requiredSubmitters(session)
	for _, p := range required {
		if _, ok := session.Pending[p.Profile.ID]; ok {
			continue
		}
		if p.Profile.AIControlled {
			session.Pending[p.Profile.ID] = s.policy.ChooseAction(p.Profile, s.opponentOf(session, p))
		}
	}

	for _, p := range required {
		if _, ok := session.Pending[p.Profile.ID]; !ok {
			return &SubmitResult{
				SessionID: session.ID,
				Round:     session.Round,
				Waiting:   true,
			}, nil, nil
		}
	}

	result, after := s.resolveRound(session)
	return &SubmitResult{
		SessionID: session.ID,
		Round:     result.Round,
		Result:    result,
	}, after, nil
}

// requiredSubmitters 当前回合必须提交行动的参战者
func (s *SessionService) requiredSubmitters(session *battle_runtime.BattleSession) []*battle_runtime.Participant {
	switch session.Mode {
	case battle_runtime.ModeTournament, battle_runtime.ModeTeam:
		a, b := s.activeFighters(session)
		return []*battle_runtime.Participant{a, b}
	default:
		var required []*battle_runtime.Participant
		for _, p := range session.Participants {
			if p.Alive() {
				required = append(required, p)
			}
		}
		return required
	}
}

func (s *SessionService) isRequiredThisRound(session *battle_runtime.BattleSession, participantID string) bool {
	for _, p := range s.requiredSubmitters(session) {
		if p.Profile.ID == participantID {
			return true
		}
	}
	return false
}

// activeFighters 擂台/团战模式下双方当前出战位的选手
func (s *SessionService) activeFighters(session *battle_runtime.BattleSession) (*battle_runtime.Participant, *battle_runtime.Participant) {
	var rosters [2][]*battle_runtime.Participant
	for _, p := range session.Participants {
		rosters[p.Roster] = append(rosters[p.Roster], p)
	}
	st := session.Tournament
	return rosters[0][st.FighterIndex[0]], rosters[1][st.FighterIndex[1]]
}

// opponentOf 为 AI 策略挑一个存活对手
func (s *SessionService) opponentOf(session *battle_runtime.BattleSession, self *battle_runtime.Participant) *battle.CombatProfile {
	for _, p := range session.Participants {
		if p != self && p.Alive() {
			return p.Profile
		}
	}
	return self.Profile
}

// resolveRound 结算当前回合。调用时必须持有会话锁。
func (s *SessionService) resolveRound(session *battle_runtime.BattleSession) (*battle_runtime.RoundResult, []afterFunc) {
	result := &battle_runtime.RoundResult{Round: session.Round}

	switch session.Mode {
	case battle_runtime.ModeDuel, battle_runtime.ModePveLadder:
		s.resolvePair(session, result)
	case battle_runtime.ModeRoyale:
		s.resolveRoyale(session, result)
	case battle_runtime.ModeTournament, battle_runtime.ModeTeam:
		s.resolveMatchup(session, result)
	}

	for _, dmg := range result.Damages {
		session.AppendLog(fmt.Sprintf("第 %d 回合：%s", result.Round, dmg.Narrative))
	}

	session.History = append(session.History, result)
	session.Pending = make(map[string]battle.Action)
	session.Round++

	metrics.DefaultBusinessMetrics.RecordRoundResolved(string(session.Mode), metrics.GetServiceName())

	after := []afterFunc{func(ctx context.Context) {
		event := &RoundEvent{
			SessionID: session.ID,
			Mode:      string(session.Mode),
			Round:     result.Round,
			Result:    result,
		}
		if err := notify.PublishBattleEvent(ctx, notify.SubjectBattleRound, event); err != nil {
			s.logger.WarnContext(ctx, "发布回合事件失败", "session_id", session.ID, "error", err)
		}
	}}

	if result.Finished {
		session.Status = battle_runtime.StatusFinished
		session.WinnerID = result.WinnerID
		session.Draw = result.Draw
		if result.Draw {
			session.AppendLog(fmt.Sprintf("第 %d 回合：战斗以平局收场", result.Round))
		} else if result.WinnerID != "" {
			winner := session.FindParticipant(result.WinnerID)
			session.AppendLog(fmt.Sprintf("第 %d 回合：%s 获胜", result.Round, winner.Profile.Name))
		}
		after = append(after, s.finishEffects(session, result)...)
	}

	return result, after
}

// resolvePair 1v1 结算：双向同时计算，血量同时生效。
func (s *SessionService) resolvePair(session *battle_runtime.BattleSession, result *battle_runtime.RoundResult) {
	a, b := session.Participants[0], session.Participants[1]
	actA, actB := session.Pending[a.Profile.ID], session.Pending[b.Profile.ID]

	dmgAB := battle.Resolve(a.Profile, b.Profile, actA, actB, s.rng)
	dmgBA := battle.Resolve(b.Profile, a.Profile, actB, actA, s.rng)
	result.Damages = append(result.Damages, dmgAB, dmgBA)

	// 钳制前的剩余血量，用于同时倒下时的判定
	residualA := a.HP - dmgBA.Amount
	residualB := b.HP - dmgAB.Amount
	b.ApplyDamage(dmgAB.Amount)
	a.ApplyDamage(dmgBA.Amount)

	switch {
	case !a.Alive() && !b.Alive():
		// 同时倒下按剩余血量判定，完全持平为平局
		result.Finished = true
		switch {
		case residualA == residualB:
			result.Draw = true
		case residualA > residualB:
			result.WinnerID = a.Profile.ID
		default:
			result.WinnerID = b.Profile.ID
		}
		result.Eliminated = append(result.Eliminated, a.Profile.ID, b.Profile.ID)
	case !b.Alive():
		result.Finished = true
		result.WinnerID = a.Profile.ID
		result.Eliminated = append(result.Eliminated, b.Profile.ID)
	case !a.Alive():
		result.Finished = true
		result.WinnerID = b.Profile.ID
		result.Eliminated = append(result.Eliminated, a.Profile.ID)
	}
}

// resolveRoyale 大逃杀结算：每名存活者随机选择目标，
// 伤害累积后统一生效，再施加安全区收缩伤害。
func (s *SessionService) resolveRoyale(session *battle_runtime.BattleSession, result *battle_runtime.RoundResult) {
	var alive []*battle_runtime.Participant
	for _, p := range session.Participants {
		if p.Alive() {
			alive = append(alive, p)
		}
	}

	damage := make(map[string]int64)
	for i, attacker := range alive {
		target := s.pickTarget(alive, i)
		if target == nil {
			continue
		}
		dmg := battle.Resolve(
			attacker.Profile, target.Profile,
			session.Pending[attacker.Profile.ID], session.Pending[target.Profile.ID],
			s.rng,
		)
		result.Damages = append(result.Damages, dmg)
		damage[target.Profile.ID] += dmg.Amount
	}
	for _, p := range alive {
		p.ApplyDamage(damage[p.Profile.ID])
	}

	// 安全区推进独立于玩家行动，只有被挡在区外的存活者受伤
	if session.Round%royaleShrinkInterval == 0 {
		session.Royale.Stage++
		zoneDamage := int64(session.Royale.Stage * royaleStageDamageFactor)
		session.AppendLog(fmt.Sprintf("第 %d 回合：安全区收缩至第 %d 档，区域伤害 %d", session.Round, session.Royale.Stage, zoneDamage))
		for _, p := range alive {
			if p.Alive() && outsideSafeZone(p, session.Royale.Stage) {
				p.ApplyDamage(zoneDamage)
			}
		}
	}

	aliveAfter := session.AliveCount()
	for _, p := range alive {
		if !p.Alive() && !p.Eliminated {
			p.Eliminated = true
			p.Placement = aliveAfter + 1
			result.Eliminated = append(result.Eliminated, p.Profile.ID)
			session.AppendLog(fmt.Sprintf("第 %d 回合：%s 被淘汰，名次 %d", session.Round, p.Profile.Name, p.Placement))
		}
	}

	switch aliveAfter {
	case 1:
		for _, p := range session.Participants {
			if p.Alive() {
				p.Placement = 1
				result.Finished = true
				result.WinnerID = p.Profile.ID
			}
		}
	case 0:
		result.Finished = true
		result.Draw = true
	}
}

// outsideSafeZone 判断存活者是否被挡在安全区外。
// 第 n 档安全区要求血量比严格高于 n*25%，重伤者挤不进区内；
// 门槛封顶 100%，满血者在第 4 档起也视为区外。
func outsideSafeZone(p *battle_runtime.Participant, stage int) bool {
	threshold := int64(stage) * royaleSafeThresholdStepPct
	if threshold > 100 {
		threshold = 100
	}
	return p.HP*100 <= p.MaxHP*threshold
}

// pickTarget 随机挑一个除自己外的存活目标
func (s *SessionService) pickTarget(alive []*battle_runtime.Participant, self int) *battle_runtime.Participant {
	if len(alive) < 2 {
		return nil
	}
	offset := 1 + s.rng.Intn(len(alive)-1)
	return alive[(self+offset)%len(alive)]
}

// resolveMatchup 擂台/团战结算：当前出战位按 1v1 规则对拼，
// 败者一方出战位前移；团战模式双方同时前移。
func (s *SessionService) resolveMatchup(session *battle_runtime.BattleSession, result *battle_runtime.RoundResult) {
	a, b := s.activeFighters(session)
	actA, actB := session.Pending[a.Profile.ID], session.Pending[b.Profile.ID]

	dmgAB := battle.Resolve(a.Profile, b.Profile, actA, actB, s.rng)
	dmgBA := battle.Resolve(b.Profile, a.Profile, actB, actA, s.rng)
	result.Damages = append(result.Damages, dmgAB, dmgBA)

	b.ApplyDamage(dmgAB.Amount)
	a.ApplyDamage(dmgBA.Amount)

	st := session.Tournament
	aDown, bDown := !a.Alive(), !b.Alive()
	if !aDown && !bDown {
		return
	}

	switch {
	case aDown && bDown:
		// 同时倒下不计胜场，双方都换人
		result.Eliminated = append(result.Eliminated, a.Profile.ID, b.Profile.ID)
		st.FighterIndex[0]++
		st.FighterIndex[1]++
	case bDown:
		result.Eliminated = append(result.Eliminated, b.Profile.ID)
		st.Score[0]++
		st.FighterIndex[1]++
		if session.Mode == battle_runtime.ModeTeam {
			st.FighterIndex[0]++
		}
		session.AppendLog(fmt.Sprintf("第 %d 回合：%s 赢下对局，比分 %d:%d", session.Round, a.Profile.Name, st.Score[0], st.Score[1]))
	case aDown:
		result.Eliminated = append(result.Eliminated, a.Profile.ID)
		st.Score[1]++
		st.FighterIndex[0]++
		if session.Mode == battle_runtime.ModeTeam {
			st.FighterIndex[1]++
		}
		session.AppendLog(fmt.Sprintf("第 %d 回合：%s 赢下对局，比分 %d:%d", session.Round, b.Profile.Name, st.Score[0], st.Score[1]))
	}

	var sizes [2]int
	for _, p := range session.Participants {
		sizes[p.Roster]++
	}
	if st.FighterIndex[0] >= sizes[0] || st.FighterIndex[1] >= sizes[1] {
		result.Finished = true
		switch {
		case st.Score[0] > st.Score[1]:
			result.WinnerID = s.rosterLeaderID(session, 0)
		case st.Score[1] > st.Score[0]:
			result.WinnerID = s.rosterLeaderID(session, 1)
		default:
			result.Draw = true
		}
	}
}

// rosterLeaderID 以阵容首位选手代表整个阵营
func (s *SessionService) rosterLeaderID(session *battle_runtime.BattleSession, roster int) string {
	for _, p := range session.Participants {
		if p.Roster == roster {
			return p.Profile.ID
		}
	}
	return ""
}

// finishEffects 终局后的外部副作用：发布事件、发放奖励、落库战报。
// 全部在锁外执行。
func (s *SessionService) finishEffects(session *battle_runtime.BattleSession, result *battle_runtime.RoundResult) []afterFunc {
	resultStatus := "victory"
	if result.Draw {
		resultStatus = "draw"
	}
	rounds := result.Round
	duration := s.clock().Sub(session.CreatedAt)
	rewardGold := "0"

	var rewardFn afterFunc
	if session.Mode == battle_runtime.ModePveLadder && session.Pve != nil && result.WinnerID == session.Pve.AccountID {
		rewardFn, rewardGold = s.ladderRewardEffect(session.Pve)
	}

	report := s.buildReport(session, resultStatus, rewardGold)

	var after []afterFunc
	if rewardFn != nil {
		after = append(after, rewardFn)
	}
	after = append(after, func(ctx context.Context) {
		metrics.DefaultBusinessMetrics.RecordSessionFinished(resultStatus, string(session.Mode), duration, metrics.GetServiceName())

		event := &FinishedEvent{
			SessionID: session.ID,
			Mode:      string(session.Mode),
			Rounds:    rounds,
			WinnerID:  result.WinnerID,
			Draw:      result.Draw,
			Result:    resultStatus,
		}
		if err := notify.PublishBattleEvent(ctx, notify.SubjectBattleFinished, event); err != nil {
			s.logger.WarnContext(ctx, "发布终局事件失败", "session_id", session.ID, "error", err)
		}

		if err := s.battleReportRepo.Create(ctx, report); err != nil {
			s.logger.ErrorContext(ctx, "落库战报失败", "session_id", session.ID, "error", err)
		}
	})
	return after
}

// ladderRewardEffect 计算天梯通关奖励并返回发放副作用。
// 浮动系数在定点化后只做一次取整，再进入大整数域。
func (s *SessionService) ladderRewardEffect(pve *battle_runtime.PveState) (afterFunc, string) {
	variance := rewardVarianceMin + rewardVarianceSpan*s.rng.Float64()
	isBoss := pve.Index%indexesPerRank == 0

	rewards, clamped, err := progression.RewardsAt(pve.Index, isBoss, variance)
	if err != nil {
		s.logger.Error("计算天梯奖励失败", err, "index", pve.Index)
		return nil, "0"
	}
	if clamped {
		s.logger.Warn("天梯奖励已触发溢出钳制",
			"index", pve.Index,
			"app_error", xerrors.NewOverflowGuardError("ladder_reward"))
	}

	goldDelta, ok := rewards.Gold.Int64()
	if !ok {
		// 金币超出 int64 可表示范围时钳制入账，差额记录在战报的十进制串里
		goldDelta = math.MaxInt64
		s.logger.Warn("天梯金币超出 int64，入账已钳制",
			"index", pve.Index, "gold", rewards.GoldString(),
			"app_error", xerrors.NewOverflowGuardError("gold_credit"))
	}

	accountID := pve.AccountID
	index := pve.Index
	fn := func(ctx context.Context) {
		deltas := map[battle_runtime.ResourceKind]int64{
			battle_runtime.ResourceGold:           goldDelta,
			battle_runtime.ResourceTrainingPoints: rewards.TrainingPoints,
			battle_runtime.ResourceShards:         rewards.Shards,
		}
		if err := s.accountRepo.UpdateResources(ctx, accountID, deltas); err != nil {
			s.logger.ErrorContext(ctx, "发放天梯奖励失败", "account_id", accountID, "error", err)
			return
		}
		// 胜利只推进一层，绝不跳层
		if err := s.accountRepo.AdvanceProgression(ctx, accountID, index); err != nil {
			s.logger.ErrorContext(ctx, "推进天梯进度失败", "account_id", accountID, "error", err)
		}
	}
	return fn, rewards.GoldString()
}

func (s *SessionService) buildReport(session *battle_runtime.BattleSession, resultStatus, rewardGold string) *interfaces.BattleReport {
	type participantView struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		HP        int64  `json:"hp"`
		MaxHP     int64  `json:"max_hp"`
		Roster    int    `json:"roster"`
		Placement int    `json:"placement,omitempty"`
	}
	views := make([]participantView, 0, len(session.Participants))
	for _, p := range session.Participants {
		views = append(views, participantView{
			ID:        p.Profile.ID,
			Name:      p.Profile.Name,
			HP:        p.HP,
			MaxHP:     p.MaxHP,
			Roster:    p.Roster,
			Placement: p.Placement,
		})
	}
	participants, _ := json.Marshal(views)
	events, _ := json.Marshal(session.History)

	return &interfaces.BattleReport{
		SessionID:    session.ID,
		Mode:         string(session.Mode),
		ResultStatus: resultStatus,
		WinnerID:     session.WinnerID,
		Rounds:       len(session.History),
		RewardGold:   rewardGold,
		Participants: participants,
		Events:       events,
	}
}

// GetSession 返回会话当前状态的只读视图。
// 视图在会话锁内构建，保证不读到结算中途的状态。
func (s *SessionService) GetSession(sessionID string) (*SessionView, error) {
	var view *SessionView
	ok := s.store.Inspect(sessionID, func(session *battle_runtime.BattleSession) {
		view = NewSessionView(session)
	})
	if !ok {
		return nil, xerrors.NewSessionNotFoundError(sessionID)
	}
	return view, nil
}

// GetReport 查询已落库的战报。
func (s *SessionService) GetReport(ctx context.Context, sessionID string) (*interfaces.BattleReport, error) {
	report, err := s.battleReportRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "查询战报失败")
	}
	return report, nil
}

// ForceFinish 将会话强制置为终局（无胜者）。
// 过期清理任务与运营后台的 RPC 都走这条路径。
func (s *SessionService) ForceFinish(ctx context.Context, sessionID, reason string) error {
	session, unlock, err := s.store.Acquire(sessionID)
	if err != nil {
		return err
	}

	if session.Status == battle_runtime.StatusFinished {
		unlock()
		return nil
	}

	session.Status = battle_runtime.StatusFinished
	session.Draw = true
	session.AppendLog(fmt.Sprintf("战斗被强制结束：%s", reason))
	duration := s.clock().Sub(session.CreatedAt)
	report := s.buildReport(session, "expired", "0")
	rounds := len(session.History)
	unlock()

	metrics.DefaultBusinessMetrics.RecordSessionFinished("expired", string(session.Mode), duration, metrics.GetServiceName())

	event := &FinishedEvent{
		SessionID: session.ID,
		Mode:      string(session.Mode),
		Rounds:    rounds,
		Draw:      true,
		Result:    "expired",
	}
	if err := notify.PublishBattleEvent(ctx, notify.SubjectBattleFinished, event); err != nil {
		s.logger.WarnContext(ctx, "发布终局事件失败", "session_id", session.ID, "error", err)
	}
	if err := s.battleReportRepo.Create(ctx, report); err != nil {
		s.logger.ErrorContext(ctx, "落库战报失败", "session_id", session.ID, "error", err)
	}

	s.logger.InfoContext(ctx, "会话被强制结束", "session_id", sessionID, "reason", reason)
	return nil
}

// ExpireIdleSessions 清理闲置超过 maxIdle 的会话，返回清理数量。
func (s *SessionService) ExpireIdleSessions(ctx context.Context, maxIdle time.Duration) int {
	cutoff := s.clock().Add(-maxIdle)
	ids := s.store.IdleSessionIDs(cutoff)
	expired := 0
	for _, id := range ids {
		if err := s.ForceFinish(ctx, id, "闲置超时"); err != nil {
			s.logger.WarnContext(ctx, "过期会话清理失败", "session_id", id, "error", err)
			continue
		}
		s.store.Delete(id)
		expired++
	}
	return expired
}
