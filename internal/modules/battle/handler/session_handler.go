package handler

import (
	"encoding/json"

	"github.com/labstack/echo/v4"

	"tsu-battle/internal/entity/battle_runtime"
	"tsu-battle/internal/modules/battle/service"
	"tsu-battle/internal/pkg/response"
)

// SessionHandler handles battle session HTTP requests
type SessionHandler struct {
	sessionService *service.SessionService
	respWriter     response.Writer
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(serviceContainer *service.ServiceContainer, respWriter response.Writer) *SessionHandler {
	return &SessionHandler{
		sessionService: serviceContainer.SessionService,
		respWriter:     respWriter,
	}
}

// ==================== HTTP Request/Response Models ====================

// OpenSessionRequest HTTP open session request
type OpenSessionRequest struct {
	Mode           string      `json:"mode" validate:"required"`
	ParticipantIDs []string    `json:"participant_ids,omitempty"`
	Rosters        [2][]string `json:"rosters,omitempty"`
}

// SubmitActionRequest HTTP submit action request
type SubmitActionRequest struct {
	Action string `json:"action" validate:"required,oneof=attack defend dodge trick"`
	Round  int    `json:"round" validate:"required,min=1"`
}

// BattleReportResponse HTTP battle report response
type BattleReportResponse struct {
	SessionID    string          `json:"session_id"`
	Mode         string          `json:"mode"`
	ResultStatus string          `json:"result_status"`
	WinnerID     string          `json:"winner_id,omitempty"`
	Rounds       int             `json:"rounds"`
	RewardGold   string          `json:"reward_gold"`
	Participants json.RawMessage `json:"participants"`
	Events       json.RawMessage `json:"events"`
}

// ==================== HTTP Handlers ====================

// OpenSession handles session creation
// @Summary 开启战斗会话
// @Description 按模式开启战斗会话并锁定参战者属性快照
// @Tags 战斗
// @Accept json
// @Produce json
// @Param request body OpenSessionRequest true "开启会话请求"
// @Success 200 {object} response.Response{data=service.SessionView} "开启成功"
// @Failure 400 {object} response.Response "请求参数错误"
// @Failure 500 {object} response.Response "服务器内部错误"
// @Router /battle/sessions [post]
func (h *SessionHandler) OpenSession(c echo.Context) error {
	var req OpenSessionRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}

	if err := c.Validate(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, err.Error())
	}

	userID := c.Get("user_id")
	if userID == nil {
		return response.EchoUnauthorized(c, h.respWriter, "未登录")
	}

	// 天梯模式默认以当前账号为挑战者
	participantIDs := req.ParticipantIDs
	if battle_runtime.Mode(req.Mode) == battle_runtime.ModePveLadder && len(participantIDs) == 0 {
		participantIDs = []string{userID.(string)}
	}

	session, err := h.sessionService.OpenSession(c.Request().Context(), &service.OpenSessionRequest{
		Mode:           battle_runtime.Mode(req.Mode),
		ParticipantIDs: participantIDs,
		Rosters:        req.Rosters,
	})
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	// 会话一旦入库即可能被并发结算，视图必须在会话锁内构建
	view, err := h.sessionService.GetSession(session.ID)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	return response.EchoOK(c, h.respWriter, view)
}

// SubmitAction handles per-round action submission
// @Summary 提交回合行动
// @Description 当前账号为指定回合提交行动，集齐后立即结算
// @Tags 战斗
// @Accept json
// @Produce json
// @Param session_id path string true "会话ID"
// @Param request body SubmitActionRequest true "行动请求"
// @Success 200 {object} response.Response{data=service.SubmitResult} "提交成功"
// @Failure 400 {object} response.Response "请求参数错误"
// @Failure 404 {object} response.Response "会话不存在"
// @Failure 409 {object} response.Response "会话已结束或重复提交"
// @Router /battle/sessions/{session_id}/actions [post]
func (h *SessionHandler) SubmitAction(c echo.Context) error {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return response.EchoBadRequest(c, h.respWriter, "会话ID不能为空")
	}

	var req SubmitActionRequest
	if err := c.Bind(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, "请求格式错误")
	}

	if err := c.Validate(&req); err != nil {
		return response.EchoBadRequest(c, h.respWriter, err.Error())
	}

	userID := c.Get("user_id")
	if userID == nil {
		return response.EchoUnauthorized(c, h.respWriter, "未登录")
	}

	result, err := h.sessionService.SubmitAction(c.Request().Context(), sessionID, userID.(string), req.Action, req.Round)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	return response.EchoOK(c, h.respWriter, result)
}

// GetSession handles session state queries
// @Summary 查询战斗会话
// @Description 查询会话当前状态、参战者血量与战斗日志
// @Tags 战斗
// @Produce json
// @Param session_id path string true "会话ID"
// @Success 200 {object} response.Response{data=service.SessionView} "查询成功"
// @Failure 404 {object} response.Response "会话不存在"
// @Router /battle/sessions/{session_id} [get]
func (h *SessionHandler) GetSession(c echo.Context) error {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return response.EchoBadRequest(c, h.respWriter, "会话ID不能为空")
	}

	view, err := h.sessionService.GetSession(sessionID)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	return response.EchoOK(c, h.respWriter, view)
}

// GetReport handles battle report queries
// @Summary 查询战报
// @Description 查询已结束会话的战报
// @Tags 战斗
// @Produce json
// @Param session_id path string true "会话ID"
// @Success 200 {object} response.Response{data=BattleReportResponse} "查询成功"
// @Failure 404 {object} response.Response "战报不存在"
// @Router /battle/sessions/{session_id}/report [get]
func (h *SessionHandler) GetReport(c echo.Context) error {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return response.EchoBadRequest(c, h.respWriter, "会话ID不能为空")
	}

	report, err := h.sessionService.GetReport(c.Request().Context(), sessionID)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	return response.EchoOK(c, h.respWriter, &BattleReportResponse{
		SessionID:    report.SessionID,
		Mode:         report.Mode,
		ResultStatus: report.ResultStatus,
		WinnerID:     report.WinnerID,
		Rounds:       report.Rounds,
		RewardGold:   report.RewardGold,
		Participants: report.Participants,
		Events:       report.Events,
	})
}
