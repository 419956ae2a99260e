package service

import (
	"context"
	"math"

	"tsu-battle/internal/domain/battle"
	"tsu-battle/internal/pkg/xerrors"
	"tsu-battle/internal/repository/interfaces"
)

// 种族属性修正，只作用于基础属性段。
// 装备、伙伴、辅助单位的加成不吃种族修正。
var raceModifiers = map[string]map[string]float64{
	"saiyan":  {"strength": 1.2, "speed": 1.1},
	"namek":   {"intellect": 1.2, "defense": 1.1},
	"android": {"defense": 1.3, "luck": 0.9},
	"majin":   {"potency": 1.3, "speed": 0.9},
}

// 种族自带的元素免疫
var raceImmunities = map[string][]battle.Element{
	"android": {battle.ElementThunder},
	"majin":   {battle.ElementShadow},
}

// StatService 将账号的基础属性、装备、伙伴与辅助单位
// 聚合为开场时的一份 CombatProfile 快照。
// 聚合只在会话开启时发生，会话进行中不重新聚合。
type StatService struct {
	accountRepo interfaces.AccountRepository
	loadoutRepo interfaces.LoadoutRepository
}

// NewStatService 构造函数。
func NewStatService(accountRepo interfaces.AccountRepository, loadoutRepo interfaces.LoadoutRepository) *StatService {
	return &StatService{
		accountRepo: accountRepo,
		loadoutRepo: loadoutRepo,
	}
}

// Aggregate 读取账号数据并聚合为战斗档案。
func (s *StatService) Aggregate(ctx context.Context, accountID string) (*battle.CombatProfile, error) {
	if accountID == "" {
		return nil, xerrors.NewValidationError("account_id", "账号 ID 不能为空")
	}

	account, err := s.accountRepo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "读取账号失败")
	}

	equipment, err := s.loadoutRepo.GetEquipment(ctx, accountID)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "读取装备失败")
	}
	companions, err := s.loadoutRepo.GetCompanions(ctx, accountID)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "读取伙伴失败")
	}
	units, err := s.loadoutRepo.GetAuxiliaryUnits(ctx, accountID)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeDatabaseError, "读取辅助单位失败")
	}

	return s.Build(account, equipment, companions, units)
}

// Build 是纯聚合逻辑，不做任何 I/O。
// 输入缺失必填字段时返回校验错误，属性缺省按 10 处理。
func (s *StatService) Build(
	account *interfaces.Account,
	equipment []*interfaces.EquippedItem,
	companions []*interfaces.Companion,
	units []*interfaces.AuxiliaryUnit,
) (*battle.CombatProfile, error) {
	if account == nil || account.ID == "" {
		return nil, xerrors.NewValidationError("account", "账号信息缺失")
	}
	if account.Name == "" {
		return nil, xerrors.NewValidationError("account.name", "账号名称缺失")
	}

	profile := &battle.CombatProfile{
		ID:             account.ID,
		Name:           account.Name,
		ElementalPower: make(map[battle.Element]int),
		Immunities:     make(map[battle.Element]bool),
	}

	// 基础属性段，种族修正只作用于这一段
	mods := raceModifiers[account.Race]
	profile.Strength = applyRaceModifier(baseAttribute(account.Attributes, "strength"), mods["strength"])
	profile.Defense = applyRaceModifier(baseAttribute(account.Attributes, "defense"), mods["defense"])
	profile.Speed = applyRaceModifier(baseAttribute(account.Attributes, "speed"), mods["speed"])
	profile.Intellect = applyRaceModifier(baseAttribute(account.Attributes, "intellect"), mods["intellect"])
	profile.Luck = applyRaceModifier(baseAttribute(account.Attributes, "luck"), mods["luck"])
	profile.Potency = applyRaceModifier(baseAttribute(account.Attributes, "potency"), mods["potency"])

	// 装备加成
	for _, item := range equipment {
		if item == nil || item.ItemID == "" {
			return nil, xerrors.NewValidationError("equipment", "装备条目缺失 item_id")
		}
		profile.Strength += item.Bonuses["strength"]
		profile.Defense += item.Bonuses["defense"]
		profile.Speed += item.Bonuses["speed"]
		profile.Intellect += item.Bonuses["intellect"]
		profile.Luck += item.Bonuses["luck"]
		profile.Potency += item.Bonuses["potency"]
	}

	// 伙伴加成，元素力量在结算时才根据对手免疫生效
	for _, companion := range companions {
		if companion == nil || companion.CompanionID == "" {
			return nil, xerrors.NewValidationError("companion", "伙伴条目缺失 companion_id")
		}
		profile.Strength += companion.Stats["strength"]
		profile.Defense += companion.Stats["defense"]
		profile.Speed += companion.Stats["speed"]
		profile.Intellect += companion.Stats["intellect"]
		profile.Luck += companion.Stats["luck"]
		profile.Potency += companion.Stats["potency"]
		if companion.Element != "" && companion.ElementalPower > 0 {
			profile.ElementalPower[companion.Element] += companion.ElementalPower
		}
	}

	// 辅助单位只贡献防御与速度
	for _, unit := range units {
		if unit == nil || unit.UnitID == "" {
			return nil, xerrors.NewValidationError("auxiliary_unit", "辅助单位缺失 unit_id")
		}
		profile.Defense += unit.Defense
		profile.Speed += unit.Speed
	}

	for _, element := range raceImmunities[account.Race] {
		profile.Immunities[element] = true
	}

	return profile, nil
}

// baseAttribute 读取基础属性，缺省按 10 处理
func baseAttribute(attributes map[string]int, name string) int {
	if value, ok := attributes[name]; ok {
		return value
	}
	return battle.DefaultAttributeValue
}

func applyRaceModifier(value int, modifier float64) int {
	if modifier == 0 {
		return value
	}
	return int(math.Round(float64(value) * modifier))
}
