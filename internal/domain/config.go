package domain

type Flow string

const (
	FlowStradale Flow = "stradale"
	FlowMotard   Flow = "motard"
)

func (f Flow) Valid() bool {
	return f == FlowStradale || f == FlowMotard
}

type GraphicType string

const (
	GraphicHalf GraphicType = "half"
	GraphicFull GraphicType = "full"
)

type Finish string

const (
	FinishGlossy      Finish = "glossy"
	FinishMatte       Finish = "matte"
	FinishChrome      Finish = "chrome"
	FinishHolographic Finish = "holographic"
	FinishGlitter     Finish = "glitter"
)

func Finishes() []Finish {
	return []Finish{FinishGlossy, FinishMatte, FinishChrome, FinishHolographic, FinishGlitter}
}

type Kit string

const (
	KitChannel Kit = "channel"
	KitSpokes  Kit = "spokes"
	KitNipples Kit = "nipples"
)

// ColorRainbow is a palette sentinel, not a real hex value. The 2D swatch
// shows a gradient; the 3D material degrades it to opaque white.
const ColorRainbow = "rainbow"

// TextureRef points at a stored upload. The configuration only holds the
// reference; the render binder owns the viewer-side resource derived from it.
type TextureRef struct {
	Name string
	Path string
}

// KitOptions is the option set of a channel-bearing surface. Shared between
// the Stradale kit and the Motard channel kit.
type KitOptions struct {
	Graphic        GraphicType
	PrimaryColor   string
	SecondaryColor string
	Finish         Finish
	Texture        *TextureRef
}

func defaultKitOptions(color string) KitOptions {
	return KitOptions{Graphic: GraphicHalf, PrimaryColor: color, Finish: FinishGlossy}
}

func (o KitOptions) WithGraphic(g GraphicType) KitOptions {
	o.Graphic = g
	return o
}

func (o KitOptions) WithPrimaryColor(hex string) KitOptions {
	o.PrimaryColor = hex
	return o
}

func (o KitOptions) WithSecondaryColor(hex string) KitOptions {
	o.SecondaryColor = hex
	return o
}

func (o KitOptions) WithFinish(f Finish) KitOptions {
	o.Finish = f
	return o
}

// WithTexture sets or, with nil, removes the uploaded texture.
func (o KitOptions) WithTexture(t *TextureRef) KitOptions {
	o.Texture = t
	return o
}

// Configuration is a sealed union: exactly StradaleConfiguration or
// MotardConfiguration. Update operations live on the concrete types, so an
// update for one flow cannot be applied to the other.
type Configuration interface {
	Flow() Flow
	sealed()
}

type StradaleConfiguration struct {
	Channel KitOptions
}

func NewStradaleConfiguration(defaultColor string) StradaleConfiguration {
	return StradaleConfiguration{Channel: defaultKitOptions(defaultColor)}
}

func (StradaleConfiguration) Flow() Flow { return FlowStradale }
func (StradaleConfiguration) sealed()    {}

func (c StradaleConfiguration) WithChannel(o KitOptions) StradaleConfiguration {
	c.Channel = o
	return c
}

type KitFlags struct {
	Channel bool
	Spokes  bool
	Nipples bool
}

func (f KitFlags) Count() int {
	n := 0
	for _, on := range []bool{f.Channel, f.Spokes, f.Nipples} {
		if on {
			n++
		}
	}
	return n
}

func (f KitFlags) All() bool { return f.Channel && f.Spokes && f.Nipples }

type MotardConfiguration struct {
	Kits KitFlags
	// Channel persists while Kits.Channel is off, so re-enabling the kit
	// restores the previous choices instead of resetting them.
	Channel      KitOptions
	SpokesColor  string
	NipplesColor string
}

func NewMotardConfiguration(defaultColor string) MotardConfiguration {
	return MotardConfiguration{
		Channel:      defaultKitOptions(defaultColor),
		SpokesColor:  defaultColor,
		NipplesColor: defaultColor,
	}
}

func (MotardConfiguration) Flow() Flow { return FlowMotard }
func (MotardConfiguration) sealed()    {}

func (c MotardConfiguration) WithKit(k Kit, on bool) MotardConfiguration {
	switch k {
	case KitChannel:
		c.Kits.Channel = on
	case KitSpokes:
		c.Kits.Spokes = on
	case KitNipples:
		c.Kits.Nipples = on
	}
	return c
}

func (c MotardConfiguration) WithChannel(o KitOptions) MotardConfiguration {
	c.Channel = o
	return c
}

func (c MotardConfiguration) WithSpokesColor(hex string) MotardConfiguration {
	c.SpokesColor = hex
	return c
}

func (c MotardConfiguration) WithNipplesColor(hex string) MotardConfiguration {
	c.NipplesColor = hex
	return c
}

// NewConfiguration builds the flow-specific default configuration.
func NewConfiguration(f Flow, cat *Catalog) Configuration {
	color := cat.DefaultColor()
	if f == FlowMotard {
		return NewMotardConfiguration(color)
	}
	return NewStradaleConfiguration(color)
}
