package battle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fixedRand 以固定序列回放随机抽取，结果可复现。
type fixedRand struct {
	floats []float64
	ints   []int
	fi     int
	ii     int
}

func (r *fixedRand) Float64() float64 {
	if r.fi >= len(r.floats) {
		return 0.99
	}
	v := r.floats[r.fi]
	r.fi++
	return v
}

func (r *fixedRand) Intn(n int) int {
	if r.ii >= len(r.ints) {
		return 0
	}
	v := r.ints[r.ii] % n
	r.ii++
	return v
}

func newProfile(id string, str, def, spd, intellect, luck int) *CombatProfile {
	return &CombatProfile{
		ID:        id,
		Name:      id,
		Strength:  str,
		Defense:   def,
		Speed:     spd,
		Intellect: intellect,
		Luck:      luck,
	}
}

func TestResolveAttackVersusDefend(t *testing.T) {
	attacker := newProfile("a", 50, 0, 0, 0, 0)
	defender := newProfile("b", 0, 20, 0, 0, 0)

	result := Resolve(attacker, defender, ActionAttack, ActionDefend, &fixedRand{floats: []float64{0.99}})
	require.EqualValues(t, 30, result.Amount)
	require.False(t, result.Critical)
}

func TestResolveAttackVersusDefendMinimumOne(t *testing.T) {
	attacker := newProfile("a", 10, 0, 0, 0, 0)
	defender := newProfile("b", 0, 500, 0, 0, 0)

	result := Resolve(attacker, defender, ActionAttack, ActionDefend, &fixedRand{floats: []float64{0.99}})
	require.EqualValues(t, 1, result.Amount, "防御再高也至少受到 1 点伤害")
}

func TestResolveAttackVersusDodge(t *testing.T) {
	attacker := newProfile("a", 50, 0, 0, 0, 0)
	defender := newProfile("b", 0, 0, 50, 0, 0)

	// 闪避成功率 = 50/(50+50) = 0.5
	// 第一个抽取是暴击判定，第二个是闪避判定
	success := Resolve(attacker, defender, ActionAttack, ActionDodge, &fixedRand{floats: []float64{0.99, 0.4}})
	require.EqualValues(t, 0, success.Amount)

	failure := Resolve(attacker, defender, ActionAttack, ActionDodge, &fixedRand{floats: []float64{0.99, 0.6}})
	require.EqualValues(t, 50, failure.Amount)

	// Luck=100 的攻击方在同样的抽取下打出暴击 75
	lucky := newProfile("a", 50, 0, 0, 0, 100)
	crit := Resolve(lucky, defender, ActionAttack, ActionDodge, &fixedRand{floats: []float64{0.0, 0.6}})
	require.True(t, crit.Critical)
	require.EqualValues(t, 75, crit.Amount)
}

func TestResolveFullMatrixDeterministic(t *testing.T) {
	actions := []Action{ActionAttack, ActionDefend, ActionDodge, ActionTrick}
	attacker := newProfile("a", 40, 10, 30, 25, 50)
	defender := newProfile("b", 35, 15, 20, 30, 10)

	for _, aa := range actions {
		for _, da := range actions {
			first := Resolve(attacker, defender, aa, da, &fixedRand{floats: []float64{0.7, 0.7}})
			second := Resolve(attacker, defender, aa, da, &fixedRand{floats: []float64{0.7, 0.7}})
			require.Equal(t, first, second, "相同抽取必须产生相同结果: %s vs %s", aa, da)
			require.GreaterOrEqual(t, first.Amount, int64(0))
			if aa == ActionDefend {
				require.EqualValues(t, 0, first.Amount, "防御方不输出伤害")
			}
		}
	}
}

func TestResolveTrickBranches(t *testing.T) {
	attacker := newProfile("a", 50, 0, 0, 40, 0)
	defender := newProfile("b", 0, 30, 0, 0, 0)
	noCrit := &fixedRand{floats: []float64{0.99}}

	// 诡计无视防御: 40 * 1.2 = 48
	vsDefend := Resolve(attacker, defender, ActionTrick, ActionDefend, noCrit)
	require.EqualValues(t, 48, vsDefend.Amount)

	// 诡计 vs 闪避: 40 * 0.8 = 32
	vsDodge := Resolve(attacker, defender, ActionTrick, ActionDodge, &fixedRand{floats: []float64{0.99}})
	require.EqualValues(t, 32, vsDodge.Amount)

	// 诡计被攻击压制: 0
	vsAttack := Resolve(attacker, defender, ActionTrick, ActionAttack, &fixedRand{floats: []float64{0.99}})
	require.EqualValues(t, 0, vsAttack.Amount)

	// 诡计对拼: 40 * 0.5 = 20
	vsTrick := Resolve(attacker, defender, ActionTrick, ActionTrick, &fixedRand{floats: []float64{0.99}})
	require.EqualValues(t, 20, vsTrick.Amount)
}

func TestResolveDodgeCountersTrick(t *testing.T) {
	attacker := newProfile("a", 0, 0, 30, 0, 0)
	defender := newProfile("b", 0, 0, 0, 40, 0)

	counter := Resolve(attacker, defender, ActionDodge, ActionTrick, &fixedRand{floats: []float64{0.99}})
	require.EqualValues(t, 15, counter.Amount, "闪避反制诡计: 30 * 0.5")

	// 闪避面对其他动作没有输出
	idle := Resolve(attacker, defender, ActionDodge, ActionAttack, &fixedRand{floats: []float64{0.99}})
	require.EqualValues(t, 0, idle.Amount)
}

func TestResolveAttackBeatsTrick(t *testing.T) {
	attacker := newProfile("a", 50, 0, 0, 0, 0)
	defender := newProfile("b", 0, 0, 0, 40, 0)

	result := Resolve(attacker, defender, ActionAttack, ActionTrick, &fixedRand{floats: []float64{0.99}})
	require.EqualValues(t, 60, result.Amount, "攻击压制诡计: 50 * 1.2")
}

func TestCriticalChanceClamped(t *testing.T) {
	attacker := newProfile("a", 50, 0, 0, 0, 200)
	defender := newProfile("b", 0, 0, 0, 0, 0)

	// Luck=200 时暴击率 clamp 到 0.5
	crit := Resolve(attacker, defender, ActionAttack, ActionAttack, &fixedRand{floats: []float64{0.49}})
	require.True(t, crit.Critical)

	noCrit := Resolve(attacker, defender, ActionAttack, ActionAttack, &fixedRand{floats: []float64{0.51}})
	require.False(t, noCrit.Critical)
}

func TestElementalPowerSuppressedByImmunity(t *testing.T) {
	attacker := newProfile("a", 50, 0, 0, 0, 0)
	attacker.ElementalPower = map[Element]int{ElementFire: 20}

	vulnerable := newProfile("b", 0, 0, 0, 0, 0)
	result := Resolve(attacker, vulnerable, ActionAttack, ActionAttack, &fixedRand{floats: []float64{0.99}})
	require.EqualValues(t, 70, result.Amount, "未免疫时元素加成计入攻击力")

	immune := newProfile("c", 0, 0, 0, 0, 0)
	immune.Immunities = map[Element]bool{ElementFire: true}
	suppressed := Resolve(attacker, immune, ActionAttack, ActionAttack, &fixedRand{floats: []float64{0.99}})
	require.EqualValues(t, 50, suppressed.Amount, "免疫元素的加成压制为零")
}

func TestWeightedRandomPolicyDistribution(t *testing.T) {
	// 权重区间: attack [0,40) trick [40,65) defend [65,85) dodge [85,100)
	cases := []struct {
		roll     int
		expected Action
	}{
		{0, ActionAttack},
		{39, ActionAttack},
		{40, ActionTrick},
		{64, ActionTrick},
		{65, ActionDefend},
		{84, ActionDefend},
		{85, ActionDodge},
		{99, ActionDodge},
	}

	for _, tc := range cases {
		policy := NewWeightedRandomPolicy(&fixedRand{ints: []int{tc.roll}})
		require.Equal(t, tc.expected, policy.ChooseAction(nil, nil), "roll=%d", tc.roll)
	}
}

func TestParseAction(t *testing.T) {
	for _, name := range []string{"attack", "defend", "dodge", "trick"} {
		action, err := ParseAction(name)
		require.NoError(t, err)
		require.Equal(t, name, action.String())
	}

	_, err := ParseAction("fireball")
	require.Error(t, err)
}
