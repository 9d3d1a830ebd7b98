package orders

import (
	"sort"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-backend/pkg/db/models"
)

type productQuantity struct {
	productID uuid.UUID
	quantity  int
}

// aggregate sums quantities per product, sorted by product id so concurrent
// checkouts lock stock rows in the same order.
func aggregate(items []models.OrderLineItem) []productQuantity {
	index := map[uuid.UUID]int{}
	var out []productQuantity
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			out[i].quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, productQuantity{productID: item.ProductID, quantity: item.Quantity})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].productID.String() < out[j].productID.String()
	})
	return out
}
