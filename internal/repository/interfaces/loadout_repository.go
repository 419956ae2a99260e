package interfaces

import (
	"context"

	"tsu-battle/internal/domain/battle"
)

// EquippedItem 已穿戴装备的属性加成切片
type EquippedItem struct {
	ItemID  string
	Slot    string
	Bonuses map[string]int
}

// Companion 出战宠物：属性加成与元素伤害
type Companion struct {
	CompanionID    string
	Name           string
	Stats          map[string]int
	Element        battle.Element
	ElementalPower int
}

// AuxiliaryUnit 辅助单位（护卫兽等），只贡献防御与速度
type AuxiliaryUnit struct {
	UnitID  string
	Defense int
	Speed   int
}

// LoadoutRepository 读取参战配置：装备、宠物、辅助单位。
type LoadoutRepository interface {
	GetEquipment(ctx context.Context, accountID string) ([]*EquippedItem, error)
	GetCompanions(ctx context.Context, accountID string) ([]*Companion, error)
	GetAuxiliaryUnits(ctx context.Context, accountID string) ([]*AuxiliaryUnit, error)
}
