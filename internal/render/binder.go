package render

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ruotalab/wheelstudio/internal/domain"
)

// neutralDark suppresses the secondary channel surface in half-graphic mode.
const neutralDark = "#1A1A1A"

// Status is a snapshot of the viewer lifecycle for the embedding UI.
type Status struct {
	Ready     bool
	Progress  float64
	LoadError string
	ModelURL  string
}

// Binder keeps the 3D viewer's materials synchronized with a configuration.
// It is a one-way idempotent projection: it never owns the configuration,
// only the viewer-side texture resource derived from it.
//
// All entry points and the event goroutine share one mutex, so mutations to
// a slot apply in configuration order with the last write winning.
type Binder struct {
	viewer  domain.Viewer
	catalog *domain.Catalog
	flow    domain.Flow

	mu       sync.Mutex
	ready    bool
	progress float64
	loadErr  string
	current  domain.Configuration

	texPath string
	tex     domain.TextureID

	done     chan struct{}
	stopOnce sync.Once
}

func NewBinder(flow domain.Flow, v domain.Viewer, cat *domain.Catalog) *Binder {
	b := &Binder{viewer: v, catalog: cat, flow: flow, done: make(chan struct{})}
	go b.watch()
	return b
}

func (b *Binder) watch() {
	for {
		select {
		case <-b.done:
			return
		case ev, ok := <-b.viewer.Events():
			if !ok {
				return
			}
			b.handleEvent(ev)
		}
	}
}

func (b *Binder) handleEvent(ev domain.ViewerEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch ev.Kind {
	case domain.ViewerEventLoad:
		b.ready = true
		b.loadErr = ""
		b.progress = 1
		// nothing applied while the asset was loading; replay everything
		if b.current != nil {
			b.apply(context.Background(), b.current)
		}
	case domain.ViewerEventError:
		b.ready = false
		b.loadErr = ev.Detail
		log.Error().Str("model", string(b.flow)).Str("detail", ev.Detail).Msg("model load failed")
	case domain.ViewerEventProgress:
		b.progress = ev.Progress
	}
}

// Sync records the snapshot and projects it onto the viewer. Before the
// asset has loaded the mutations are skipped, not queued; the load event
// replays the latest snapshot from scratch.
func (b *Binder) Sync(ctx context.Context, cfg domain.Configuration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = cfg
	if !b.ready {
		return
	}
	b.apply(ctx, cfg)
}

func (b *Binder) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{Ready: b.ready, Progress: b.progress, LoadError: b.loadErr, ModelURL: domain.ModelURL(b.flow)}
}

// Close releases the held texture resource and stops the event goroutine.
// Safe to call more than once.
func (b *Binder) Close() {
	b.mu.Lock()
	b.releaseTexture(context.Background())
	b.mu.Unlock()
	b.stopOnce.Do(func() { close(b.done) })
}

// apply runs with b.mu held.
func (b *Binder) apply(ctx context.Context, cfg domain.Configuration) {
	switch v := cfg.(type) {
	case domain.StradaleConfiguration:
		b.syncTexture(ctx, v.Channel.Texture)
		b.applyChannel(ctx, v.Channel)
	case domain.MotardConfiguration:
		// the resource tracks the texture selection, not the kit flag
		b.syncTexture(ctx, v.Channel.Texture)
		if v.Kits.Channel {
			b.applyChannel(ctx, v.Channel)
		}
		if v.Kits.Spokes {
			b.mutate(domain.SlotSpokes, b.viewer.ApplyColor(ctx, domain.SlotSpokes, renderHex(v.SpokesColor)))
		}
		if v.Kits.Nipples {
			b.mutate(domain.SlotNipples, b.viewer.ApplyColor(ctx, domain.SlotNipples, renderHex(v.NipplesColor)))
		}
	}
}

func (b *Binder) applyChannel(ctx context.Context, o domain.KitOptions) {
	if o.Texture != nil && b.tex != "" {
		b.mutate(domain.SlotChannelA, b.viewer.ApplyTexture(ctx, domain.SlotChannelA, b.tex))
	} else {
		b.mutate(domain.SlotChannelA, b.viewer.ApplyColor(ctx, domain.SlotChannelA, renderHex(o.PrimaryColor)))
		b.mutate(domain.SlotChannelA, b.viewer.ApplyFinish(ctx, domain.SlotChannelA, b.catalog.FinishParams(o.Finish)))
	}

	if o.Graphic == domain.GraphicFull {
		if o.Texture != nil && b.tex != "" {
			// one texture covers both surfaces; there is no independent
			// secondary texture
			b.mutate(domain.SlotChannelB, b.viewer.ApplyTexture(ctx, domain.SlotChannelB, b.tex))
			return
		}
		colorB := o.SecondaryColor
		if colorB == "" {
			colorB = o.PrimaryColor
		}
		b.mutate(domain.SlotChannelB, b.viewer.ApplyColor(ctx, domain.SlotChannelB, renderHex(colorB)))
		b.mutate(domain.SlotChannelB, b.viewer.ApplyFinish(ctx, domain.SlotChannelB, b.catalog.FinishParams(o.Finish)))
		return
	}

	// half graphic: force the secondary surface to the stock dark look so it
	// never keeps a stale prior value
	b.mutate(domain.SlotChannelB, b.viewer.ApplyColor(ctx, domain.SlotChannelB, neutralDark))
	b.mutate(domain.SlotChannelB, b.viewer.ApplyFinish(ctx, domain.SlotChannelB, b.catalog.FinishParams(domain.FinishGlossy)))
}

// syncTexture reconciles the single viewer texture resource with the wanted
// upload: replace-and-release on change, release on removal, reuse when the
// selection is unchanged. Runs with b.mu held.
func (b *Binder) syncTexture(ctx context.Context, want *domain.TextureRef) {
	if want == nil {
		b.releaseTexture(ctx)
		return
	}
	if b.tex != "" && b.texPath == want.Path {
		return
	}
	id, err := b.viewer.CreateTexture(ctx, want)
	if err != nil {
		log.Error().Err(err).Str("texture", want.Name).Msg("create texture")
		b.releaseTexture(ctx)
		return
	}
	b.releaseTexture(ctx)
	b.tex = id
	b.texPath = want.Path
}

func (b *Binder) releaseTexture(ctx context.Context) {
	if b.tex == "" {
		return
	}
	if err := b.viewer.ReleaseTexture(ctx, b.tex); err != nil {
		log.Warn().Err(err).Msg("release texture")
	}
	b.tex = ""
	b.texPath = ""
}

// mutate handles the outcome of one slot mutation: a missing slot is a
// recorded diagnostic that must not abort sibling mutations, and a not-ready
// viewer is silently skipped (the load replay covers it).
func (b *Binder) mutate(slot string, err error) {
	if err == nil || errors.Is(err, domain.ErrViewerNotReady) {
		return
	}
	if errors.Is(err, domain.ErrSlotNotFound) {
		log.Warn().Str("slot", slot).Msg("material slot missing from asset")
		return
	}
	log.Error().Err(err).Str("slot", slot).Msg("apply material mutation")
}

// renderHex degrades the rainbow swatch sentinel to opaque white; the
// renderer has no multi-color material.
func renderHex(hex string) string {
	if hex == domain.ColorRainbow {
		return "#FFFFFF"
	}
	return hex
}
