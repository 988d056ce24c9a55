package models

import (
	"strings"
	"time"

	id "medledger/pkg/domain"
	dErrors "medledger/pkg/domain-errors"
	"medledger/pkg/money"
)

// InventoryItem lives only inside a hospital's inventory collection. Fully
// mutable and deletable; removal destroys the record.
type InventoryItem struct {
	ID        id.ItemID    `json:"id"`
	Name      string       `json:"name"`
	Quantity  uint64       `json:"quantity"`
	UnitPrice money.Amount `json:"unit_price"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ItemUpdate carries the mutable fields; nil means leave unchanged.
type ItemUpdate struct {
	Name      *string       `json:"name,omitempty"`
	Quantity  *uint64       `json:"quantity,omitempty"`
	UnitPrice *money.Amount `json:"unit_price,omitempty"`
}

func NewInventoryItem(itemID id.ItemID, name string, quantity uint64, unitPrice money.Amount, now time.Time) (*InventoryItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "inventory item name cannot be empty")
	}
	return &InventoryItem{
		ID:        itemID,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ApplyUpdate mutates the item fields in place.
func (i *InventoryItem) ApplyUpdate(update ItemUpdate, now time.Time) {
	if update.Name != nil {
		i.Name = strings.TrimSpace(*update.Name)
	}
	if update.Quantity != nil {
		i.Quantity = *update.Quantity
	}
	if update.UnitPrice != nil {
		i.UnitPrice = *update.UnitPrice
	}
	i.UpdatedAt = now
}

// Clone returns an independent copy.
func (i *InventoryItem) Clone() *InventoryItem {
	c := *i
	return &c
}
