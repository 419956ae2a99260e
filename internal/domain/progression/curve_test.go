package progression

import (
	"math"
	"testing"

	"github.com/ericlagergren/decimal"
	"github.com/stretchr/testify/require"
)

func powerInt(t *testing.T, index int) *decimal.Big {
	t.Helper()
	power, _, err := PowerAt(index)
	require.NoError(t, err)
	return power
}

func TestPowerAtTierBoundaries(t *testing.T) {
	// 第 1 阶起点
	require.Equal(t, "10", powerInt(t, 1).String())
	// 第 1 阶终点 = 第 2 阶起点
	require.Equal(t, "999", powerInt(t, 100).String())
	require.Equal(t, "999", powerInt(t, 101).String())
	// 第 2 阶终点
	require.Equal(t, "99999", powerInt(t, 200).String())
}

func TestPowerAtMidTierInterpolation(t *testing.T) {
	// 第 2 阶中段 (sub=50): 999 + (99999-999) * 50 / 99 = 50999（向下取整）
	require.Equal(t, "50999", powerInt(t, 151).String())

	// 非整除的插值向下取整: sub=33 -> 999 + 99000*33/99 = 33999
	require.Equal(t, "33999", powerInt(t, 134).String())
}

func TestPowerAtMonotonic(t *testing.T) {
	prev := powerInt(t, 1)
	for index := 2; index <= MaxIndex; index += 7 {
		current := powerInt(t, index)
		require.True(t, prev.Cmp(current) <= 0,
			"战力曲线必须单调不减: index=%d prev=%s current=%s", index, prev, current)
		prev = current
	}
}

func TestPowerAtBeyondInt64(t *testing.T) {
	// 最高阶上限超出 int64，decimal 域内保持精确
	power := powerInt(t, MaxIndex)
	require.Equal(t, "9999999999999999999", power.String())

	_, ok := power.Int64()
	require.False(t, ok, "最高阶战力不应落在 int64 域内")

	value, saturated, err := PowerAtInt64(MaxIndex)
	require.NoError(t, err)
	require.True(t, saturated)
	require.EqualValues(t, math.MaxInt64, value)
}

func TestPowerAtClampsAboveMaxIndex(t *testing.T) {
	power, clamped, err := PowerAt(MaxIndex + 500)
	require.NoError(t, err)
	require.True(t, clamped, "超出曲线范围必须显式报告截断")
	require.Equal(t, "9999999999999999999", power.String())
}

func TestPowerAtRejectsNonPositiveIndex(t *testing.T) {
	_, _, err := PowerAt(0)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, _, err = PowerAt(-3)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestRoundHalfDown(t *testing.T) {
	cases := []struct {
		in       float64
		expected int64
	}{
		{2.4, 2},
		{2.5, 2}, // 恰好 .5 向下
		{2.6, 3},
		{1299.5, 1299},
		{0.7, 1},
		{1.0, 1},
	}
	for _, tc := range cases {
		require.Equal(t, tc.expected, RoundHalfDown(tc.in), "RoundHalfDown(%v)", tc.in)
	}
}

func TestRewardsAtDeterministic(t *testing.T) {
	first, _, err := RewardsAt(150, false, 1.1)
	require.NoError(t, err)
	second, _, err := RewardsAt(150, false, 1.1)
	require.NoError(t, err)
	require.Equal(t, first.GoldString(), second.GoldString())
	require.Equal(t, first.TrainingPoints, second.TrainingPoints)
	require.Equal(t, first.Shards, second.Shards)
}

func TestRewardsAtFormulas(t *testing.T) {
	// index=1: power=10, gold = 10/2 = 5, 系数 1.0 不变
	rewards, clamped, err := RewardsAt(1, false, 1.0)
	require.NoError(t, err)
	require.False(t, clamped)
	require.Equal(t, "5", rewards.GoldString())
	require.EqualValues(t, 3, rewards.TrainingPoints)
	require.EqualValues(t, 1, rewards.Shards)

	// 守卫层金币 x5，碎片 x2
	boss, _, err := RewardsAt(1, true, 1.0)
	require.NoError(t, err)
	require.Equal(t, "25", boss.GoldString())
	require.EqualValues(t, 2, boss.Shards)
}

func TestRewardsVarianceFixedPointOnce(t *testing.T) {
	// variance=1.2995 -> 千分比 1299（.5 向下），gold = 5 * 1299 / 1000 = 6
	rewards, _, err := RewardsAt(1, false, 1.2995)
	require.NoError(t, err)
	require.Equal(t, "6", rewards.GoldString())
}

func TestRewardsAtHighTierStaysExact(t *testing.T) {
	rewards, _, err := RewardsAt(MaxIndex, false, 1.0)
	require.NoError(t, err)
	// 9999999999999999999 / 2 = 4999999999999999999（整数除法）
	require.Equal(t, "4999999999999999999", rewards.GoldString())
}
