package battle

import (
	"fmt"
	"math"
)

// 暴击参数
const (
	critLuckDivisor = 100.0
	critMaxChance   = 0.5
	critMultiplier  = 1.5
)

// DamageResult 单方向的结算结果
type DamageResult struct {
	AttackerID string `json:"attacker_id"`
	DefenderID string `json:"defender_id"`
	Amount     int64  `json:"amount"`
	Critical   bool   `json:"critical"`
	Narrative  string `json:"narrative"`
}

// Resolve 结算一个方向的伤害：attacker 以 attackerAction 出招，defender 以 defenderAction 应对。
// 每回合对两个方向各调用一次，互不影响。
// 同样的输入和同样的随机抽取必定产生同样的结果。
func Resolve(attacker, defender *CombatProfile, attackerAction, defenderAction Action, rng Rand) DamageResult {
	result := DamageResult{
		AttackerID: attacker.ID,
		DefenderID: defender.ID,
	}

	// 防御方不输出伤害；闪避方只在反制诡计时输出伤害
	switch attackerAction {
	case ActionDefend:
		result.Narrative = fmt.Sprintf("%s 摆出防御姿态", attacker.Name)
		return result
	case ActionDodge:
		if defenderAction != ActionTrick {
			result.Narrative = fmt.Sprintf("%s 专注于闪避", attacker.Name)
			return result
		}
	}

	critical := rollCritical(attacker, rng)
	multiplier := 1.0
	if critical {
		multiplier = critMultiplier
	}

	str := attacker.EffectiveStrength(defender)

	var raw float64
	var verb string

	switch attackerAction {
	case ActionAttack:
		switch defenderAction {
		case ActionDefend:
			raw = math.Max(1, float64(str-defender.Defense)) * multiplier
			verb = "击穿了防御"
		case ActionDodge:
			dodgeChance := float64(defender.Speed) / float64(str+defender.Speed)
			if rng.Float64() < dodgeChance {
				result.Narrative = fmt.Sprintf("%s 的攻击被 %s 闪开了", attacker.Name, defender.Name)
				return result
			}
			raw = float64(str) * multiplier
			verb = "追上了闪避"
		case ActionTrick:
			// 攻击直接压制诡计
			raw = float64(str) * 1.2 * multiplier
			verb = "识破了诡计"
		case ActionAttack:
			raw = float64(str) * multiplier
			verb = "发起强攻"
		}

	case ActionTrick:
		switch defenderAction {
		case ActionDefend:
			// 诡计无视防御
			raw = float64(attacker.Intellect) * 1.2 * multiplier
			verb = "绕过了防御"
		case ActionDodge:
			raw = float64(attacker.Intellect) * 0.8 * multiplier
			verb = "算准了走位"
		case ActionAttack:
			// 诡计被攻击直接压制
			result.Narrative = fmt.Sprintf("%s 的诡计被 %s 的强攻打断", attacker.Name, defender.Name)
			return result
		case ActionTrick:
			raw = float64(attacker.Intellect) * 0.5 * multiplier
			verb = "与对方斗智"
		}

	case ActionDodge:
		// 仅剩 defenderAction == ActionTrick 的反制分支
		raw = float64(attacker.Speed) * 0.5 * multiplier
		verb = "反制了诡计"
	}

	result.Amount = roundDamage(raw)
	result.Critical = critical

	if critical {
		result.Narrative = fmt.Sprintf("%s %s，暴击造成 %d 点伤害", attacker.Name, verb, result.Amount)
	} else {
		result.Narrative = fmt.Sprintf("%s %s，造成 %d 点伤害", attacker.Name, verb, result.Amount)
	}
	return result
}

// rollCritical 暴击判定：概率 = min(Luck/100, 0.5)
func rollCritical(attacker *CombatProfile, rng Rand) bool {
	chance := math.Min(float64(attacker.Luck)/critLuckDivisor, critMaxChance)
	return rng.Float64() < chance
}

// roundDamage 四舍五入到最近的非负整数
func roundDamage(raw float64) int64 {
	if raw <= 0 {
		return 0
	}
	return int64(math.Round(raw))
}
