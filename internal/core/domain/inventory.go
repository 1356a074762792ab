package domain

import "time"

type ItemStatus string

const (
	ItemStatusAvailable     ItemStatus = "AVAILABLE"
	ItemStatusLowStock      ItemStatus = "LOW_STOCK"
	ItemStatusOutOfStock    ItemStatus = "OUT_OF_STOCK"
	ItemStatusInMaintenance ItemStatus = "IN_MAINTENANCE"
)

type InventoryItem struct {
	ID                    string
	Title                 string
	Quantity              int
	MinimumStock          int
	InMaintenanceQuantity int
	Status                ItemStatus
	NextMaintenanceDate   *time.Time
	Version               int // optimistic locking
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// DeriveStatus is the only place an item's status is computed. Precedence:
// empty stock, then units held in maintenance, then the low-stock threshold.
func DeriveStatus(quantity, minimumStock, inMaintenanceQuantity int) ItemStatus {
	switch {
	case quantity == 0:
		return ItemStatusOutOfStock
	case inMaintenanceQuantity >= quantity:
		return ItemStatusInMaintenance
	case quantity <= minimumStock:
		return ItemStatusLowStock
	default:
		return ItemStatusAvailable
	}
}

// Refresh recomputes Status from the stock counters.
func (i *InventoryItem) Refresh() {
	i.Status = DeriveStatus(i.Quantity, i.MinimumStock, i.InMaintenanceQuantity)
}
