package battle

// Element 元素类型
type Element string

const (
	ElementFire    Element = "fire"
	ElementWater   Element = "water"
	ElementWind    Element = "wind"
	ElementEarth   Element = "earth"
	ElementThunder Element = "thunder"
	ElementShadow  Element = "shadow"
)

// DefaultAttributeValue 属性缺失时的回退值（见聚合服务的文档化降级规则）
const DefaultAttributeValue = 10

// CombatProfile 参战者的战斗属性快照。
// 会话开启时由聚合服务构建，战斗期间不可变；重新聚合只发生在会话之间。
type CombatProfile struct {
	ID   string
	Name string

	Strength  int
	Defense   int
	Speed     int
	Intellect int
	Luck      int
	Potency   int

	// ElementalPower 按元素记录的宠物元素伤害加成。
	// 是否生效取决于对手的免疫声明，因此必须在结算时才折算进攻击力。
	ElementalPower map[Element]int

	// Immunities 元素免疫声明
	Immunities map[Element]bool

	// AIControlled 标记 AI 托管的参战者（NPC、逃跑代打等）
	AIControlled bool
}

// ImmuneTo 是否对指定元素免疫
func (p *CombatProfile) ImmuneTo(e Element) bool {
	return p.Immunities[e]
}

// EffectiveStrength 计算对指定防守方的有效攻击力：
// 基础力量 + 未被对方免疫吸收的元素加成。
func (p *CombatProfile) EffectiveStrength(defender *CombatProfile) int {
	str := p.Strength
	for element, power := range p.ElementalPower {
		if power <= 0 {
			continue
		}
		if defender != nil && defender.ImmuneTo(element) {
			continue // 免疫元素的加成压制为零
		}
		str += power
	}
	return str
}

// Clone 返回深拷贝，会话快照使用，避免共享 map。
func (p *CombatProfile) Clone() *CombatProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.ElementalPower = make(map[Element]int, len(p.ElementalPower))
	for k, v := range p.ElementalPower {
		cp.ElementalPower[k] = v
	}
	cp.Immunities = make(map[Element]bool, len(p.Immunities))
	for k, v := range p.Immunities {
		cp.Immunities[k] = v
	}
	return &cp
}
