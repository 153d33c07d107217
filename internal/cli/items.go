package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/quoteflow/internal/core/quotation"
)

// parseItemSpec parses "PRODUCT:QTY[:UNIT[:PRICE]]" into a quotation line.
func parseItemSpec(spec string) (quotation.Item, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return quotation.Item{}, fmt.Errorf("invalid item %q: want PRODUCT:QTY[:UNIT[:PRICE]]", spec)
	}

	item := quotation.Item{ProductID: strings.TrimSpace(parts[0])}
	if item.ProductID == "" {
		return quotation.Item{}, fmt.Errorf("invalid item %q: product is empty", spec)
	}

	qty, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || qty <= 0 {
		return quotation.Item{}, fmt.Errorf("invalid item %q: quantity must be a positive number", spec)
	}
	item.Quantity = qty

	if len(parts) > 2 {
		item.Unit = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 {
		price, err := decimal.NewFromString(strings.TrimSpace(parts[3]))
		if err != nil {
			return quotation.Item{}, fmt.Errorf("invalid item %q: bad price: %w", spec, err)
		}
		item.Price = price
	}
	return item, nil
}

// parseQuotedSpec parses "PRODUCT:QTY:UNIT_PRICE" into a quoted line for ANALYZE.
func parseQuotedSpec(spec string) (quotation.QuotedItem, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return quotation.QuotedItem{}, fmt.Errorf("invalid quoted item %q: want PRODUCT:QTY:UNIT_PRICE", spec)
	}

	qty, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return quotation.QuotedItem{}, fmt.Errorf("invalid quoted item %q: bad quantity", spec)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
	if err != nil {
		return quotation.QuotedItem{}, fmt.Errorf("invalid quoted item %q: bad price: %w", spec, err)
	}
	return quotation.QuotedItem{
		ProductID: strings.TrimSpace(parts[0]),
		Quantity:  qty,
		UnitPrice: price,
	}, nil
}

func parseItemSpecs(specs []string) ([]quotation.Item, error) {
	items := make([]quotation.Item, 0, len(specs))
	for _, s := range specs {
		item, err := parseItemSpec(s)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func parseQuotedSpecs(specs []string) ([]quotation.QuotedItem, error) {
	items := make([]quotation.QuotedItem, 0, len(specs))
	for _, s := range specs {
		item, err := parseQuotedSpec(s)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
