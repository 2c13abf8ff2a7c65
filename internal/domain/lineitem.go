package domain

// LineItem is one purchasable unit to submit to the commerce cart.
type LineItem struct {
	Code      OptionCode
	VariantID string
	Quantity  int
}

// LineItems derives the ordered cart items for a configuration. The branching
// mirrors PriceOf exactly: every priced contribution yields one item and vice
// versa, except the bundle discount, which is price-only. An empty result
// means there is nothing to submit.
func LineItems(c Configuration, cat *Catalog) []LineItem {
	var items []LineItem
	switch v := c.(type) {
	case StradaleConfiguration:
		items = channelItems(v.Channel, cat)
	case MotardConfiguration:
		if v.Kits.Channel {
			items = channelItems(v.Channel, cat)
		}
		if v.Kits.Spokes {
			items = append(items, item(CodeKitSpokes, cat))
		}
		if v.Kits.Nipples {
			items = append(items, item(CodeKitNipples, cat))
		}
	}
	return items
}

func channelItems(o KitOptions, cat *Catalog) []LineItem {
	items := []LineItem{item(ChannelCode(o.Graphic), cat)}
	if code, ok := FinishCode(o.Finish); ok {
		items = append(items, item(code, cat))
	}
	return items
}

func item(code OptionCode, cat *Catalog) LineItem {
	id, _ := cat.VariantID(code)
	return LineItem{Code: code, VariantID: id, Quantity: 1}
}
