package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ruotalab/wheelstudio/internal/domain"
)

// Command is one material mutation for the browser-side model-viewer
// element. The client drains the queue in order and executes each command
// against the loaded model.
type Command struct {
	ID        string  `json:"id"`
	Op        string  `json:"op"`
	Slot      string  `json:"slot,omitempty"`
	Color     string  `json:"color,omitempty"`
	Roughness float64 `json:"roughness,omitempty"`
	Metallic  float64 `json:"metallic,omitempty"`
	Texture   string  `json:"texture,omitempty"`
	URL       string  `json:"url,omitempty"`
}

const (
	OpSetColor       = "set-color"
	OpSetFinish      = "set-finish"
	OpSetTexture     = "set-texture"
	OpCreateTexture  = "create-texture"
	OpReleaseTexture = "release-texture"
)

// Viewer implements domain.Viewer over a per-session command queue polled by
// the embedding page. Lifecycle signals travel the other way: the page posts
// load/error/progress events, which feed the binder through Events.
type Viewer struct {
	storage domain.FileStorage

	mu    sync.Mutex
	ready bool
	slots map[string]struct{} // nil until the load event reports them
	queue []Command
	files map[domain.TextureID]string

	events chan domain.ViewerEvent
	notify chan struct{}
}

func New(storage domain.FileStorage) *Viewer {
	return &Viewer{
		storage: storage,
		files:   map[domain.TextureID]string{},
		events:  make(chan domain.ViewerEvent, 32),
		notify:  make(chan struct{}, 1),
	}
}

func (v *Viewer) ApplyColor(ctx context.Context, slot, hex string) error {
	return v.enqueueSlot(slot, Command{Op: OpSetColor, Slot: slot, Color: hex})
}

func (v *Viewer) ApplyFinish(ctx context.Context, slot string, p domain.FinishParams) error {
	return v.enqueueSlot(slot, Command{Op: OpSetFinish, Slot: slot, Roughness: p.Roughness, Metallic: p.Metallic})
}

func (v *Viewer) ApplyTexture(ctx context.Context, slot string, tex domain.TextureID) error {
	return v.enqueueSlot(slot, Command{Op: OpSetTexture, Slot: slot, Texture: string(tex)})
}

// CreateTexture copies the stored upload into a viewer-scoped file and tells
// the client to build a texture from its URL. The copy gives the resource a
// lifetime independent of the configuration's upload.
func (v *Viewer) CreateTexture(ctx context.Context, src *domain.TextureRef) (domain.TextureID, error) {
	if src == nil {
		return "", fmt.Errorf("nil texture ref")
	}
	r, err := v.storage.Open(src.Path)
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", src.Path, err)
	}
	defer r.Close()
	stored, err := v.storage.Save("tex-"+src.Name, r)
	if err != nil {
		return "", err
	}
	id := domain.TextureID(uuid.New().String())
	v.mu.Lock()
	v.files[id] = stored
	v.push(Command{Op: OpCreateTexture, Texture: string(id), URL: v.storage.URL(stored)})
	v.mu.Unlock()
	return id, nil
}

func (v *Viewer) ReleaseTexture(ctx context.Context, tex domain.TextureID) error {
	v.mu.Lock()
	stored, ok := v.files[tex]
	if !ok {
		v.mu.Unlock()
		return fmt.Errorf("unknown texture handle %s", tex)
	}
	delete(v.files, tex)
	v.push(Command{Op: OpReleaseTexture, Texture: string(tex)})
	v.mu.Unlock()
	return v.storage.Remove(stored)
}

func (v *Viewer) Events() <-chan domain.ViewerEvent { return v.events }

// PushEvent records a lifecycle signal from the client. The load event may
// report the asset's material slot names; mutations for unknown slots then
// fail with ErrSlotNotFound.
func (v *Viewer) PushEvent(kind domain.ViewerEventKind, detail string, progress float64, slots []string) {
	v.mu.Lock()
	switch kind {
	case domain.ViewerEventLoad:
		v.ready = true
		if len(slots) > 0 {
			v.slots = map[string]struct{}{}
			for _, s := range slots {
				v.slots[s] = struct{}{}
			}
		}
	case domain.ViewerEventError:
		v.ready = false
	}
	v.mu.Unlock()

	select {
	case v.events <- domain.ViewerEvent{Kind: kind, Detail: detail, Progress: progress}:
	default:
		log.Warn().Str("kind", string(kind)).Msg("viewer event dropped")
	}
}

// Commands drains the queue. With wait it long-polls until a command
// arrives, the context ends, or the poll window closes.
func (v *Viewer) Commands(ctx context.Context, wait bool) []Command {
	if out := v.drain(); len(out) > 0 || !wait {
		return out
	}
	t := time.NewTimer(25 * time.Second)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	case <-v.notify:
	}
	return v.drain()
}

func (v *Viewer) drain() []Command {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.queue
	v.queue = nil
	return out
}

// enqueueSlot runs the ready/slot checks shared by all slot mutations.
func (v *Viewer) enqueueSlot(slot string, cmd Command) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.ready {
		return domain.ErrViewerNotReady
	}
	if v.slots != nil {
		if _, ok := v.slots[slot]; !ok {
			return domain.ErrSlotNotFound
		}
	}
	v.push(cmd)
	return nil
}

// push runs with v.mu held.
func (v *Viewer) push(cmd Command) {
	cmd.ID = uuid.New().String()
	v.queue = append(v.queue, cmd)
	select {
	case v.notify <- struct{}{}:
	default:
	}
}

var _ domain.Viewer = (*Viewer)(nil)
