package cart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
)

// sizeMultipliers scale the catalog price of a custom cake.
var sizeMultipliers = map[string]decimal.Decimal{
	"small":  decimal.NewFromInt(1),
	"medium": decimal.RequireFromString("1.25"),
	"large":  decimal.RequireFromString("1.5"),
}

// extraPrices is the per-unit surcharge of each add-on a custom cake can carry.
var extraPrices = map[string]decimal.Decimal{
	"candles":        decimal.RequireFromString("1.50"),
	"sprinkles":      decimal.RequireFromString("1.00"),
	"fresh_berries":  decimal.RequireFromString("4.50"),
	"gold_leaf":      decimal.RequireFromString("6.00"),
	"edible_photo":   decimal.RequireFromString("8.00"),
	"extra_layer":    decimal.RequireFromString("12.00"),
	"fondant_figure": decimal.RequireFromString("9.50"),
}

// optionKey folds "Gold Leaf", "gold-leaf" and "gold_leaf" onto one key.
func optionKey(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(value)
}

// Priced returns a copy of c with the size multiplier and every extra price
// taken from the price list. Multipliers or prices already on c are ignored.
func (c CustomConfig) Priced() (*CustomConfig, error) {
	size := optionKey(c.Size)
	multiplier, ok := sizeMultipliers[size]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown cake size %q", c.Size)).
			WithDetails(map[string]any{"sizes": optionNames(sizeMultipliers)})
	}

	out := c.clone()
	out.Size = size
	out.SizeMultiplier = &multiplier
	for i, extra := range out.Extras {
		key := optionKey(extra.Name)
		price, ok := extraPrices[key]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown extra %q", extra.Name)).
				WithDetails(map[string]any{"extras": optionNames(extraPrices)})
		}
		out.Extras[i] = CustomExtra{Name: key, Price: price}
	}
	return out, nil
}

// Quote prices one unit of a custom line: base × size multiplier + Σ extras,
// rounded to cents. The returned config is the priced snapshot to store.
func (c CustomConfig) Quote(base decimal.Decimal) (*CustomConfig, decimal.Decimal, error) {
	priced, err := c.Priced()
	if err != nil {
		return nil, decimal.Zero, err
	}
	unit := base.Mul(*priced.SizeMultiplier)
	for _, extra := range priced.Extras {
		unit = unit.Add(extra.Price)
	}
	return priced, unit.Round(2), nil
}

// UnitPrice is Quote without the snapshot.
func (c CustomConfig) UnitPrice(base decimal.Decimal) (decimal.Decimal, error) {
	_, unit, err := c.Quote(base)
	return unit, err
}

func optionNames(table map[string]decimal.Decimal) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
