package domain

import "fmt"

// Cents is a monetary amount in euro cents. Pricing never touches floats,
// so repeated recomputation cannot drift.
type Cents int64

func (c Cents) String() string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// PercentOff returns c reduced by pct percent, truncated to the cent.
func (c Cents) PercentOff(pct int) Cents {
	return c * Cents(100-pct) / 100
}

type OptionCode string

const (
	CodeKitChannelHalf    OptionCode = "kit-channel-half"
	CodeKitChannelFull    OptionCode = "kit-channel-full"
	CodeKitSpokes         OptionCode = "kit-spokes"
	CodeKitNipples        OptionCode = "kit-nipples"
	CodeFinishMatte       OptionCode = "finish-matte"
	CodeFinishChrome      OptionCode = "finish-chrome"
	CodeFinishHolographic OptionCode = "finish-holographic"
	CodeFinishGlitter     OptionCode = "finish-glitter"
)

// OptionCodes lists every purchasable option, in catalog order.
func OptionCodes() []OptionCode {
	return []OptionCode{
		CodeKitChannelHalf, CodeKitChannelFull, CodeKitSpokes, CodeKitNipples,
		CodeFinishMatte, CodeFinishChrome, CodeFinishHolographic, CodeFinishGlitter,
	}
}

func ChannelCode(g GraphicType) OptionCode {
	if g == GraphicFull {
		return CodeKitChannelFull
	}
	return CodeKitChannelHalf
}

// FinishCode maps a finish to its surcharge code. Glossy is the stock finish
// and has no code.
func FinishCode(f Finish) (OptionCode, bool) {
	switch f {
	case FinishMatte:
		return CodeFinishMatte, true
	case FinishChrome:
		return CodeFinishChrome, true
	case FinishHolographic:
		return CodeFinishHolographic, true
	case FinishGlitter:
		return CodeFinishGlitter, true
	}
	return "", false
}

type PaletteColor struct {
	Name string
	Hex  string
}

// FinishParams are the PBR factors a finish maps to on the 3D material.
type FinishParams struct {
	Roughness float64
	Metallic  float64
}

// Catalog is the static reference data: prices and commerce variant IDs per
// option code, the swatch palette, and the finish parameter table. Loaded
// once at start, never mutated afterwards.
type Catalog struct {
	Prices     map[OptionCode]Cents
	VariantIDs map[OptionCode]string
	Palette    []PaletteColor
	Finishes   map[Finish]FinishParams
}

// Price resolves missing codes to zero; optional surcharge keys may
// legitimately be absent.
func (c *Catalog) Price(code OptionCode) Cents {
	return c.Prices[code]
}

func (c *Catalog) VariantID(code OptionCode) (string, bool) {
	id, ok := c.VariantIDs[code]
	return id, ok
}

func (c *Catalog) DefaultColor() string {
	if len(c.Palette) > 0 {
		return c.Palette[0].Hex
	}
	return "#000000"
}

func (c *Catalog) FinishParams(f Finish) FinishParams {
	if p, ok := c.Finishes[f]; ok {
		return p
	}
	return c.Finishes[FinishGlossy]
}

// DefaultCatalog is the shipped reference data, used to seed the database
// and as the fallback when no store is configured.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Prices: map[OptionCode]Cents{
			CodeKitChannelHalf:    4700,
			CodeKitChannelFull:    9700,
			CodeKitSpokes:         1490,
			CodeKitNipples:        2790,
			CodeFinishMatte:       2000,
			CodeFinishChrome:      4000,
			CodeFinishHolographic: 4000,
			CodeFinishGlitter:     4000,
		},
		VariantIDs: map[OptionCode]string{
			CodeKitChannelHalf:    "1234567890123",
			CodeKitChannelFull:    "1234567890124",
			CodeKitSpokes:         "1234567890125",
			CodeKitNipples:        "1234567890126",
			CodeFinishMatte:       "1234567890127",
			CodeFinishChrome:      "1234567890128",
			CodeFinishHolographic: "1234567890129",
			CodeFinishGlitter:     "1234567890130",
		},
		Palette: []PaletteColor{
			{Name: "Black", Hex: "#000000"},
			{Name: "Gray", Hex: "#808080"},
			{Name: "White", Hex: "#FFFFFF"},
			{Name: "Yellow", Hex: "#FFFF00"},
			{Name: "Orange", Hex: "#FFA500"},
			{Name: "Red", Hex: "#FF0000"},
			{Name: "Pink", Hex: "#FF69B4"},
			{Name: "Purple", Hex: "#8A2BE2"},
			{Name: "Blue", Hex: "#0000FF"},
			{Name: "Sky Blue", Hex: "#87CEEB"},
			{Name: "Green", Hex: "#00FF00"},
			{Name: "Petrol Green", Hex: "#008080"},
			{Name: "Beige", Hex: "#F5DEB3"},
			{Name: "Brown", Hex: "#8B4513"},
			{Name: "Rainbow", Hex: ColorRainbow},
		},
		Finishes: map[Finish]FinishParams{
			FinishGlossy:      {Roughness: 0.1, Metallic: 0.2},
			FinishMatte:       {Roughness: 0.9, Metallic: 0.1},
			FinishChrome:      {Roughness: 0.05, Metallic: 1.0},
			FinishHolographic: {Roughness: 0.2, Metallic: 1.0},
			FinishGlitter:     {Roughness: 0.4, Metallic: 0.8},
		},
	}
}
