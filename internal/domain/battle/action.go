// Package battle 包含战斗结算的纯领域逻辑：动作矩阵、暴击判定与出招策略。
// 该包不依赖任何外部资源，所有随机性都通过注入的 Rand 提供。
package battle

import "fmt"

// Action 回合动作（封闭枚举，保证结算矩阵可穷举）
type Action int

const (
	ActionAttack Action = iota // 攻击
	ActionDefend               // 防御
	ActionDodge                // 闪避
	ActionTrick                // 诡计
)

// actionNames 动作的线上协议表示
var actionNames = map[Action]string{
	ActionAttack: "attack",
	ActionDefend: "defend",
	ActionDodge:  "dodge",
	ActionTrick:  "trick",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(a))
}

// IsValid 检查动作是否在枚举范围内
func (a Action) IsValid() bool {
	_, ok := actionNames[a]
	return ok
}

// ParseAction 解析协议字符串为动作枚举
func ParseAction(s string) (Action, error) {
	switch s {
	case "attack":
		return ActionAttack, nil
	case "defend":
		return ActionDefend, nil
	case "dodge":
		return ActionDodge, nil
	case "trick":
		return ActionTrick, nil
	default:
		return 0, fmt.Errorf("未知的战斗动作: %q", s)
	}
}
