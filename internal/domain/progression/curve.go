// Package progression 实现层数到战力/奖励的曲线计算。
// 高层的战力上限超出 float64 与 int64 的安全范围，所有乘加都在
// decimal 任意精度域内完成；浮点修正系数在进入 decimal 域之前
// 按统一的舍入规则（见 rounding.go）一次性定点化。
package progression

import (
	"math"

	"github.com/ericlagergren/decimal"
	"github.com/friendsofgo/errors"
)

// 每个阶层覆盖的层数与子刻度
const (
	IndexesPerTier = 100
	subIndexMax    = IndexesPerTier - 1
)

// decimal 计算上下文：50 位十进制精度，远超阶层上限所需
var decCtx = decimal.Context{Precision: 50}

// tierMaxima 各阶层的战力上限，按十进制两个数量级递增。
// 第 1 阶起点为 10；第 n 阶上限 = 10^(2n+1) - 1。
// 第 8 阶起超出 int64，必须全程留在 decimal 域。
var tierMaxima = []string{
	"999",                    // 第 1 阶
	"99999",                  // 第 2 阶
	"9999999",                // 第 3 阶
	"999999999",              // 第 4 阶
	"99999999999",            // 第 5 阶
	"9999999999999",          // 第 6 阶
	"999999999999999",        // 第 7 阶
	"99999999999999999",      // 第 8 阶
	"9999999999999999999",    // 第 9 阶（> int64 上限）
}

// TierCount 阶层总数
var TierCount = len(tierMaxima)

// MaxIndex 曲线覆盖的最大层数，超出后按上限截断并报告
var MaxIndex = TierCount * IndexesPerTier

// ErrIndexOutOfRange 层数不在曲线覆盖范围内（<= 0）
var ErrIndexOutOfRange = errors.New("进度层数必须为正数")

var tierFloor = "10"

// tierBounds 返回第 tier 阶（1 起）的 [min, max] 战力
func tierBounds(tier int) (*decimal.Big, *decimal.Big) {
	min := new(decimal.Big)
	if tier <= 1 {
		min.SetString(tierFloor)
	} else {
		min.SetString(tierMaxima[tier-2])
	}
	max := new(decimal.Big)
	max.SetString(tierMaxima[tier-1])
	return min, max
}

// TierOf 返回层数所属的阶层（1 起）与阶层内子刻度（0..99）
func TierOf(index int) (tier, subIndex int) {
	if index < 1 {
		return 1, 0
	}
	tier = (index-1)/IndexesPerTier + 1
	subIndex = (index - 1) % IndexesPerTier
	if tier > TierCount {
		tier = TierCount
		subIndex = subIndexMax
	}
	return tier, subIndex
}

// PowerAt 计算指定层数的对手战力。
// 阶层内按子刻度线性插值：power = min + (max-min) * sub / 99（向下取整）。
// clamped 为 true 表示层数超出曲线上限、结果被截断到最高阶上限，
// 调用方必须将其作为溢出保护事件上报，绝不允许静默回绕。
func PowerAt(index int) (power *decimal.Big, clamped bool, err error) {
	if index < 1 {
		return nil, false, ErrIndexOutOfRange
	}

	clamped = index > MaxIndex
	tier, sub := TierOf(index)
	min, max := tierBounds(tier)

	span := new(decimal.Big)
	decCtx.Sub(span, max, min)

	step := new(decimal.Big)
	decCtx.Mul(step, span, decimal.New(int64(sub), 0))
	step.QuoInt(step, decimal.New(subIndexMax, 0))

	result := new(decimal.Big)
	decCtx.Add(result, min, step)
	return result, clamped, nil
}

// PowerAtInt64 返回 int64 域内的战力，超出表示范围时饱和到 math.MaxInt64。
// 仅用于生成 NPC 属性快照等必须落在 int 域的场景。
func PowerAtInt64(index int) (value int64, saturated bool, err error) {
	power, clamped, err := PowerAt(index)
	if err != nil {
		return 0, false, err
	}
	v, ok := power.Int64()
	if !ok {
		return math.MaxInt64, true, nil
	}
	return v, clamped, nil
}
