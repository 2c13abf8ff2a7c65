package domain

// bundleDiscountPct applies when all three Motard kits are active at once.
const bundleDiscountPct = 10

// PriceOf computes the total price of a configuration against the catalog.
// Pure; no hidden state.
func PriceOf(c Configuration, cat *Catalog) Cents {
	switch v := c.(type) {
	case StradaleConfiguration:
		return channelPrice(v.Channel, cat)
	case MotardConfiguration:
		var total Cents
		if v.Kits.Channel {
			total += channelPrice(v.Channel, cat)
		}
		if v.Kits.Spokes {
			total += cat.Price(CodeKitSpokes)
		}
		if v.Kits.Nipples {
			total += cat.Price(CodeKitNipples)
		}
		if v.Kits.All() {
			total = total.PercentOff(bundleDiscountPct)
		}
		return total
	}
	return 0
}

// channelPrice is the base price for the channel graphic plus the finish
// surcharge. Texture choice never affects price.
func channelPrice(o KitOptions, cat *Catalog) Cents {
	p := cat.Price(ChannelCode(o.Graphic))
	if code, ok := FinishCode(o.Finish); ok {
		p += cat.Price(code)
	}
	return p
}
