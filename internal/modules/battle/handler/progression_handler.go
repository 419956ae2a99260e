package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"tsu-battle/internal/domain/progression"
	"tsu-battle/internal/pkg/response"
	"tsu-battle/internal/pkg/xerrors"
)

// ProgressionHandler 进度曲线查询接口。
// 曲线本身是纯函数，不依赖会话状态，直接调用 progression 包。
type ProgressionHandler struct {
	respWriter response.Writer
}

// NewProgressionHandler creates a new progression handler
func NewProgressionHandler(respWriter response.Writer) *ProgressionHandler {
	return &ProgressionHandler{respWriter: respWriter}
}

// PowerResponse HTTP power query response
type PowerResponse struct {
	Index   int    `json:"index"`
	Tier    int    `json:"tier"`
	Power   string `json:"power"`
	Clamped bool   `json:"clamped,omitempty"`
}

// RewardsResponse HTTP rewards query response
type RewardsResponse struct {
	Index          int    `json:"index"`
	Boss           bool   `json:"boss"`
	Gold           string `json:"gold"`
	TrainingPoints int64  `json:"training_points"`
	Shards         int64  `json:"shards"`
	Clamped        bool   `json:"clamped,omitempty"`
}

// GetPower handles power curve queries
// @Summary 查询指定层数的战力
// @Description 战力跟随十阶曲线增长，超出 int64 的数值以十进制字符串返回
// @Tags 进度
// @Produce json
// @Param index path int true "进度层数"
// @Success 200 {object} response.Response{data=PowerResponse} "查询成功"
// @Failure 422 {object} response.Response "层数越界"
// @Router /battle/progression/power/{index} [get]
func (h *ProgressionHandler) GetPower(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return response.EchoBadRequest(c, h.respWriter, "层数必须为整数")
	}

	power, clamped, err := progression.PowerAt(index)
	if err != nil {
		return response.EchoError(c, h.respWriter, xerrors.NewIndexOutOfRangeError(index))
	}

	tier, _ := progression.TierOf(index)
	return response.EchoOK(c, h.respWriter, &PowerResponse{
		Index:   index,
		Tier:    tier,
		Power:   power.String(),
		Clamped: clamped,
	})
}

// GetRewards handles reward preview queries
// @Summary 查询指定层数的讨伐奖励
// @Description 按修正系数 1.0 预览奖励，实际结算另行抽取系数
// @Tags 进度
// @Produce json
// @Param index path int true "进度层数"
// @Param boss query bool false "是否守卫层"
// @Success 200 {object} response.Response{data=RewardsResponse} "查询成功"
// @Failure 422 {object} response.Response "层数越界"
// @Router /battle/progression/rewards/{index} [get]
func (h *ProgressionHandler) GetRewards(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return response.EchoBadRequest(c, h.respWriter, "层数必须为整数")
	}

	isBoss := false
	if raw := c.QueryParam("boss"); raw != "" {
		isBoss, err = strconv.ParseBool(raw)
		if err != nil {
			return response.EchoBadRequest(c, h.respWriter, "boss 参数必须为布尔值")
		}
	}

	rewards, clamped, err := progression.RewardsAt(index, isBoss, 1.0)
	if err != nil {
		return response.EchoError(c, h.respWriter, xerrors.NewIndexOutOfRangeError(index))
	}

	return response.EchoOK(c, h.respWriter, &RewardsResponse{
		Index:          index,
		Boss:           isBoss,
		Gold:           rewards.GoldString(),
		TrainingPoints: rewards.TrainingPoints,
		Shards:         rewards.Shards,
		Clamped:        clamped,
	})
}
