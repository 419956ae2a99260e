package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"tsu-battle/internal/entity/battle_runtime"
	"tsu-battle/internal/modules/battle/service"
	"tsu-battle/internal/pkg/response"
	"tsu-battle/internal/repository/query"
)

// AntiCheatHandler handles resource growth monitoring HTTP requests
type AntiCheatHandler struct {
	antiCheatService *service.AntiCheatService
	respWriter       response.Writer
}

// NewAntiCheatHandler creates a new anti-cheat handler
func NewAntiCheatHandler(serviceContainer *service.ServiceContainer, respWriter response.Writer) *AntiCheatHandler {
	return &AntiCheatHandler{
		antiCheatService: serviceContainer.AntiCheatService,
		respWriter:       respWriter,
	}
}

// Snapshot handles growth snapshot capture
// @Summary 记录资源快照
// @Description 记录当前账号的资源总量，作为下次增长校验的基线
// @Tags 反作弊
// @Produce json
// @Success 200 {object} response.Response "记录成功"
// @Failure 401 {object} response.Response "未登录"
// @Router /battle/anticheat/snapshot [post]
func (h *AntiCheatHandler) Snapshot(c echo.Context) error {
	userID := c.Get("user_id")
	if userID == nil {
		return response.EchoUnauthorized(c, h.respWriter, "未登录")
	}

	snapshot, err := h.antiCheatService.Snapshot(c.Request().Context(), userID.(string))
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	return response.EchoOK(c, h.respWriter, snapshot)
}

// Verify handles growth verification
// @Summary 校验资源增长
// @Description 比对最近快照，对每个越限资源产出一条异常记录；只记录不拦截
// @Tags 反作弊
// @Produce json
// @Success 200 {object} response.Response{data=service.VerifyResult} "校验完成"
// @Failure 422 {object} response.Response "账号尚无资源快照"
// @Router /battle/anticheat/verify [post]
func (h *AntiCheatHandler) Verify(c echo.Context) error {
	userID := c.Get("user_id")
	if userID == nil {
		return response.EchoUnauthorized(c, h.respWriter, "未登录")
	}

	result, err := h.antiCheatService.Verify(c.Request().Context(), userID.(string))
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	return response.EchoOK(c, h.respWriter, result)
}

// AnomalyListResponse 异常记录分页响应
type AnomalyListResponse struct {
	Records    []*battle_runtime.AnomalyRecord `json:"records"`
	Pagination *query.PaginationResult         `json:"pagination"`
}

// ListAnomalies handles anomaly record queries
// @Summary 查询异常记录
// @Description 分页查询当前账号最近的资源增长异常
// @Tags 反作弊
// @Produce json
// @Param page query int false "页码，默认 1"
// @Param page_size query int false "每页条数，默认 20，最大 100"
// @Success 200 {object} response.Response{data=handler.AnomalyListResponse} "查询成功"
// @Failure 401 {object} response.Response "未登录"
// @Router /battle/anticheat/anomalies [get]
func (h *AntiCheatHandler) ListAnomalies(c echo.Context) error {
	userID := c.Get("user_id")
	if userID == nil {
		return response.EchoUnauthorized(c, h.respWriter, "未登录")
	}

	pagination := &query.Pagination{}
	if raw := c.QueryParam("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return response.EchoBadRequest(c, h.respWriter, "page 参数必须为整数")
		}
		pagination.Page = parsed
	}
	if raw := c.QueryParam("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return response.EchoBadRequest(c, h.respWriter, "page_size 参数必须为整数")
		}
		pagination.PageSize = parsed
	}

	records, pageResult, err := h.antiCheatService.ListAnomalies(c.Request().Context(), userID.(string), pagination)
	if err != nil {
		return response.EchoError(c, h.respWriter, err)
	}

	return response.EchoOK(c, h.respWriter, AnomalyListResponse{
		Records:    records,
		Pagination: pageResult,
	})
}
