package domain

import "context"

// Per-flow 3D assets and the material slot names they expose.
const (
	StradaleModelURL = "/cerchiostradaleDEFF.glb"
	MotardModelURL   = "/cerchiomotardDEFF.glb"

	SlotChannelA = "Materiale_Canale_A"
	SlotChannelB = "Materiale_Canale_B"
	SlotSpokes   = "Materiale_Raggi"
	SlotNipples  = "Materiale_Nipples"
)

func ModelURL(f Flow) string {
	if f == FlowMotard {
		return MotardModelURL
	}
	return StradaleModelURL
}

// TextureID is a viewer-side texture resource handle. Created and released
// through the Viewer; owned exclusively by the render binder.
type TextureID string

type ViewerEventKind string

const (
	ViewerEventLoad     ViewerEventKind = "load"
	ViewerEventError    ViewerEventKind = "error"
	ViewerEventProgress ViewerEventKind = "progress"
)

type ViewerEvent struct {
	Kind     ViewerEventKind
	Detail   string
	Progress float64
}

// Viewer is the rendering capability boundary. Any renderer satisfying it is
// substitutable; the core never depends on a concrete engine.
//
// ApplyColor also unbinds any texture on the slot, matching the material
// model where a base color and a base color texture are exclusive.
// Mutations return ErrSlotNotFound for slots absent from the loaded asset
// and ErrViewerNotReady before the asset has loaded.
type Viewer interface {
	ApplyColor(ctx context.Context, slot, hex string) error
	ApplyFinish(ctx context.Context, slot string, p FinishParams) error
	ApplyTexture(ctx context.Context, slot string, tex TextureID) error
	CreateTexture(ctx context.Context, src *TextureRef) (TextureID, error)
	ReleaseTexture(ctx context.Context, tex TextureID) error
	Events() <-chan ViewerEvent
}
