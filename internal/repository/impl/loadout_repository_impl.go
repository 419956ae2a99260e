package impl

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/friendsofgo/errors"

	"tsu-battle/internal/domain/battle"
	"tsu-battle/internal/repository/interfaces"
)

type loadoutRepositoryImpl struct {
	db *sql.DB
}

// NewLoadoutRepository 创建装备/伙伴仓储实例
func NewLoadoutRepository(db *sql.DB) interfaces.LoadoutRepository {
	return &loadoutRepositoryImpl{db: db}
}

type equippedItemRow struct {
	ItemID  string    `boil:"item_id"`
	Slot    string    `boil:"slot"`
	Bonuses null.JSON `boil:"bonuses"`
}

// GetEquipment 返回账号已穿戴装备及其属性加成
func (r *loadoutRepositoryImpl) GetEquipment(ctx context.Context, accountID string) ([]*interfaces.EquippedItem, error) {
	var rows []equippedItemRow
	err := queries.Raw(`
		SELECT e.item_id, e.slot, i.bonuses
		FROM game_runtime.account_equipment e
		JOIN game_runtime.items i ON i.id = e.item_id
		WHERE e.account_id = $1 AND e.equipped = TRUE
	`, accountID).Bind(ctx, r.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "查询装备失败")
	}

	items := make([]*interfaces.EquippedItem, 0, len(rows))
	for _, row := range rows {
		item := &interfaces.EquippedItem{
			ItemID:  row.ItemID,
			Slot:    row.Slot,
			Bonuses: map[string]int{},
		}
		if row.Bonuses.Valid {
			if err := json.Unmarshal(row.Bonuses.JSON, &item.Bonuses); err != nil {
				return nil, errors.Wrapf(err, "解析装备 %s 加成失败", row.ItemID)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

type companionRow struct {
	CompanionID    string      `boil:"companion_id"`
	Name           string      `boil:"name"`
	Stats          null.JSON   `boil:"stats"`
	Element        null.String `boil:"element"`
	ElementalPower null.Int    `boil:"elemental_power"`
}

// GetCompanions 返回账号出战伙伴
func (r *loadoutRepositoryImpl) GetCompanions(ctx context.Context, accountID string) ([]*interfaces.Companion, error) {
	var rows []companionRow
	err := queries.Raw(`
		SELECT c.id AS companion_id, c.name, c.stats, c.element, c.elemental_power
		FROM game_runtime.companions c
		WHERE c.account_id = $1 AND c.active = TRUE
	`, accountID).Bind(ctx, r.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "查询伙伴失败")
	}

	companions := make([]*interfaces.Companion, 0, len(rows))
	for _, row := range rows {
		companion := &interfaces.Companion{
			CompanionID:    row.CompanionID,
			Name:           row.Name,
			Stats:          map[string]int{},
			Element:        battle.Element(row.Element.String),
			ElementalPower: row.ElementalPower.Int,
		}
		if row.Stats.Valid {
			if err := json.Unmarshal(row.Stats.JSON, &companion.Stats); err != nil {
				return nil, errors.Wrapf(err, "解析伙伴 %s 属性失败", row.CompanionID)
			}
		}
		companions = append(companions, companion)
	}
	return companions, nil
}

type auxiliaryUnitRow struct {
	UnitID  string `boil:"unit_id"`
	Defense int    `boil:"defense"`
	Speed   int    `boil:"speed"`
}

// GetAuxiliaryUnits 返回账号辅助单位
func (r *loadoutRepositoryImpl) GetAuxiliaryUnits(ctx context.Context, accountID string) ([]*interfaces.AuxiliaryUnit, error) {
	var rows []auxiliaryUnitRow
	err := queries.Raw(`
		SELECT id AS unit_id, defense, speed
		FROM game_runtime.auxiliary_units
		WHERE account_id = $1 AND active = TRUE
	`, accountID).Bind(ctx, r.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "查询辅助单位失败")
	}

	units := make([]*interfaces.AuxiliaryUnit, 0, len(rows))
	for _, row := range rows {
		units = append(units, &interfaces.AuxiliaryUnit{
			UnitID:  row.UnitID,
			Defense: row.Defense,
			Speed:   row.Speed,
		})
	}
	return units, nil
}
