package battle

// OpponentPolicy 非玩家参战者的出招策略。
// 新的对手类型（脚本 Boss、镜像玩家等）通过实现该接口接入，编排层不需要改动。
type OpponentPolicy interface {
	ChooseAction(self, opponent *CombatProfile) Action
}

// WeightedRandomPolicy 默认的 AI 策略：按固定权重随机出招。
type WeightedRandomPolicy struct {
	rng Rand
}

// 默认权重：攻击 40 / 诡计 25 / 防御 20 / 闪避 15
var defaultActionWeights = []struct {
	action Action
	weight int
}{
	{ActionAttack, 40},
	{ActionTrick, 25},
	{ActionDefend, 20},
	{ActionDodge, 15},
}

// NewWeightedRandomPolicy 构造函数
func NewWeightedRandomPolicy(rng Rand) *WeightedRandomPolicy {
	return &WeightedRandomPolicy{rng: rng}
}

// ChooseAction 按权重抽取一个动作
func (p *WeightedRandomPolicy) ChooseAction(self, opponent *CombatProfile) Action {
	total := 0
	for _, entry := range defaultActionWeights {
		total += entry.weight
	}

	roll := p.rng.Intn(total)
	for _, entry := range defaultActionWeights {
		roll -= entry.weight
		if roll < 0 {
			return entry.action
		}
	}
	return ActionAttack
}
