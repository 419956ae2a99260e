package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tsu-battle/internal/domain/battle"
	"tsu-battle/internal/repository/interfaces"
)

func TestBuildUsesDefaultForMissingAttributes(t *testing.T) {
	svc := NewStatService(nil, nil)

	account := &interfaces.Account{ID: "acc-1", Name: "悟饭", Attributes: map[string]int{"strength": 30}}
	profile, err := svc.Build(account, nil, nil, nil)
	require.NoError(t, err)

	require.Equal(t, 30, profile.Strength)
	require.Equal(t, battle.DefaultAttributeValue, profile.Defense)
	require.Equal(t, battle.DefaultAttributeValue, profile.Speed)
	require.Equal(t, battle.DefaultAttributeValue, profile.Intellect)
	require.Equal(t, battle.DefaultAttributeValue, profile.Luck)
	require.Equal(t, battle.DefaultAttributeValue, profile.Potency)
}

func TestBuildAppliesRaceModifierToBaseOnly(t *testing.T) {
	svc := NewStatService(nil, nil)

	account := &interfaces.Account{
		ID:   "acc-1",
		Name: "卡卡罗特",
		Race: "saiyan", // strength ×1.2
		Attributes: map[string]int{
			"strength": 50,
		},
	}
	equipment := []*interfaces.EquippedItem{
		{ItemID: "item-1", Slot: "weapon", Bonuses: map[string]int{"strength": 10}},
	}

	profile, err := svc.Build(account, equipment, nil, nil)
	require.NoError(t, err)
	// 装备加成不吃种族修正：50×1.2 + 10
	require.Equal(t, 70, profile.Strength)
}

func TestBuildAddsCompanionAndAuxiliaryContributions(t *testing.T) {
	svc := NewStatService(nil, nil)

	account := &interfaces.Account{ID: "acc-1", Name: "贝吉塔", Attributes: map[string]int{}}
	companions := []*interfaces.Companion{
		{
			CompanionID:    "comp-1",
			Name:           "雷兽",
			Stats:          map[string]int{"strength": 5, "intellect": 3},
			Element:        battle.ElementThunder,
			ElementalPower: 12,
		},
	}
	units := []*interfaces.AuxiliaryUnit{
		{UnitID: "unit-1", Defense: 4, Speed: 6},
	}

	profile, err := svc.Build(account, nil, companions, units)
	require.NoError(t, err)
	require.Equal(t, 15, profile.Strength)
	require.Equal(t, 13, profile.Intellect)
	require.Equal(t, 14, profile.Defense)
	require.Equal(t, 16, profile.Speed)
	require.Equal(t, 12, profile.ElementalPower[battle.ElementThunder])
}

func TestBuildDerivesRaceImmunities(t *testing.T) {
	svc := NewStatService(nil, nil)

	account := &interfaces.Account{ID: "acc-1", Name: "十八号", Race: "android", Attributes: map[string]int{}}
	profile, err := svc.Build(account, nil, nil, nil)
	require.NoError(t, err)
	require.True(t, profile.ImmuneTo(battle.ElementThunder))
	require.False(t, profile.ImmuneTo(battle.ElementFire))
}

func TestBuildRejectsMalformedInput(t *testing.T) {
	svc := NewStatService(nil, nil)

	_, err := svc.Build(nil, nil, nil, nil)
	require.Error(t, err)

	_, err = svc.Build(&interfaces.Account{ID: "acc-1"}, nil, nil, nil)
	require.Error(t, err, "缺少名称应返回校验错误")

	account := &interfaces.Account{ID: "acc-1", Name: "测试", Attributes: map[string]int{}}
	_, err = svc.Build(account, []*interfaces.EquippedItem{{Slot: "weapon"}}, nil, nil)
	require.Error(t, err, "装备缺少 item_id 应返回校验错误")
}
