package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/internal/catalog"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

// RestockCompensator returns an order's units to stock when it is cancelled.
// It is only registered when BAKERY_RESTOCK_ON_CANCEL is set.
type RestockCompensator struct {
	inventory catalog.Inventory
}

func NewRestockCompensator(inventory catalog.Inventory) *RestockCompensator {
	return &RestockCompensator{inventory: inventory}
}

func (c *RestockCompensator) OnTransition(ctx context.Context, tx *gorm.DB, order *models.Order, _ enums.OrderStatus) error {
	for _, line := range aggregate(order.Items) {
		if err := c.inventory.Restock(ctx, tx, line.productID, line.quantity); err != nil {
			return err
		}
	}
	return nil
}
