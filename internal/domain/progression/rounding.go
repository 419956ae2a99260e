package progression

import "math"

// variancePermilleScale 浮点修正系数定点化的分母
const variancePermilleScale = 1000

// RoundHalfDown 统一的舍入规则：恰好 .5 时向下。
// 2.5 -> 2, 2.6 -> 3, -0.5 -> -1 的情形在本域不出现（系数恒为正）。
func RoundHalfDown(x float64) int64 {
	return int64(math.Ceil(x - 0.5))
}

// permilleOf 将 [0.7, 1.3] 区间的浮点修正系数一次性定点化为千分比。
// 这是浮点数进入 decimal 大整数域之前唯一一次舍入。
func permilleOf(variance float64) int64 {
	if variance <= 0 {
		return variancePermilleScale
	}
	return RoundHalfDown(variance * variancePermilleScale)
}
