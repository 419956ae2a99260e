package progression

import (
	"github.com/ericlagergren/decimal"
)

// 奖励系数
const (
	goldDivisor          = 2 // 金币 = 战力 / 2
	trainingPerIndex     = 3 // 训练点 = 层数 * 3
	bossGoldMultiplier   = 5 // 守卫层金币倍率
	bossShardsMultiplier = 2 // 守卫层碎片倍率
)

// Rewards 单次讨伐的奖励。金币跟随战力曲线，高阶会超出 int64，
// 因此保留在 decimal 域；训练点与碎片是层数的线性函数，留在 int64。
type Rewards struct {
	Gold           *decimal.Big
	TrainingPoints int64
	Shards         int64
}

// GoldString 金币的十进制字符串表示（传输用）
func (r *Rewards) GoldString() string {
	if r.Gold == nil {
		return "0"
	}
	return r.Gold.String()
}

// RewardsAt 计算指定层数的讨伐奖励。
// variance 是调用方抽取的 [0.7, 1.3] 修正系数；同样的 (index, isBoss, variance)
// 必定产生同样的奖励。系数先按 RoundHalfDown 定点化为千分比，之后的乘除
// 全部在 decimal 整数域内完成。
// clamped 含义与 PowerAt 相同。
func RewardsAt(index int, isBoss bool, variance float64) (rewards *Rewards, clamped bool, err error) {
	power, clamped, err := PowerAt(index)
	if err != nil {
		return nil, false, err
	}

	gold := new(decimal.Big)
	gold.QuoInt(power, decimal.New(goldDivisor, 0))

	// 定点化修正系数，进入大整数域后只做整数乘除
	permille := permilleOf(variance)
	decCtx.Mul(gold, gold, decimal.New(permille, 0))
	gold.QuoInt(gold, decimal.New(variancePermilleScale, 0))

	tier, _ := TierOf(index)
	shards := int64(tier)

	if isBoss {
		decCtx.Mul(gold, gold, decimal.New(bossGoldMultiplier, 0))
		shards *= bossShardsMultiplier
	}

	return &Rewards{
		Gold:           gold,
		TrainingPoints: int64(index) * trainingPerIndex,
		Shards:         shards,
	}, clamped, nil
}
