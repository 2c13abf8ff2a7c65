package render

import (
	"context"
	"fmt"
	"testing"

	"github.com/ruotalab/wheelstudio/internal/domain"
)

// fakeViewer records every mutation as "op slot value" strings and counts
// texture resource creates and releases per handle.
type fakeViewer struct {
	calls    []string
	missing  map[string]bool
	nextTex  int
	creates  int
	releases map[domain.TextureID]int
	events   chan domain.ViewerEvent
}

func newFakeViewer() *fakeViewer {
	return &fakeViewer{
		missing:  map[string]bool{},
		releases: map[domain.TextureID]int{},
		events:   make(chan domain.ViewerEvent),
	}
}

func (f *fakeViewer) slotErr(slot string) error {
	if f.missing[slot] {
		return fmt.Errorf("apply %s: %w", slot, domain.ErrSlotNotFound)
	}
	return nil
}

func (f *fakeViewer) ApplyColor(_ context.Context, slot, hex string) error {
	f.calls = append(f.calls, "color "+slot+" "+hex)
	return f.slotErr(slot)
}

func (f *fakeViewer) ApplyFinish(_ context.Context, slot string, p domain.FinishParams) error {
	f.calls = append(f.calls, fmt.Sprintf("finish %s %.2f/%.2f", slot, p.Roughness, p.Metallic))
	return f.slotErr(slot)
}

func (f *fakeViewer) ApplyTexture(_ context.Context, slot string, tex domain.TextureID) error {
	f.calls = append(f.calls, "texture "+slot+" "+string(tex))
	return f.slotErr(slot)
}

func (f *fakeViewer) CreateTexture(_ context.Context, src *domain.TextureRef) (domain.TextureID, error) {
	f.creates++
	f.nextTex++
	return domain.TextureID(fmt.Sprintf("tex-%d", f.nextTex)), nil
}

func (f *fakeViewer) ReleaseTexture(_ context.Context, tex domain.TextureID) error {
	f.releases[tex]++
	return nil
}

func (f *fakeViewer) Events() <-chan domain.ViewerEvent { return f.events }

func loadedBinder(t *testing.T, flow domain.Flow) (*Binder, *fakeViewer) {
	t.Helper()
	fv := newFakeViewer()
	b := NewBinder(flow, fv, domain.DefaultCatalog())
	t.Cleanup(b.Close)
	// drive the lifecycle directly instead of racing the watch goroutine
	b.handleEvent(domain.ViewerEvent{Kind: domain.ViewerEventLoad})
	fv.calls = nil
	return b, fv
}

func hasCall(fv *fakeViewer, call string) bool {
	for _, c := range fv.calls {
		if c == call {
			return true
		}
	}
	return false
}

func TestSyncBeforeLoadIsReplayedOnLoad(t *testing.T) {
	fv := newFakeViewer()
	b := NewBinder(domain.FlowStradale, fv, domain.DefaultCatalog())
	defer b.Close()

	cfg := domain.NewStradaleConfiguration("#FF0000")
	b.Sync(context.Background(), cfg)
	if len(fv.calls) != 0 {
		t.Fatalf("mutations before load: %v", fv.calls)
	}
	if b.Status().Ready {
		t.Fatal("ready before load event")
	}

	b.handleEvent(domain.ViewerEvent{Kind: domain.ViewerEventLoad})
	if !b.Status().Ready {
		t.Fatal("not ready after load event")
	}
	if !hasCall(fv, "color "+domain.SlotChannelA+" #FF0000") {
		t.Errorf("snapshot not replayed on load, calls: %v", fv.calls)
	}
}

func TestHalfGraphicNeutralizesSecondarySlot(t *testing.T) {
	b, fv := loadedBinder(t, domain.FlowStradale)
	cfg := domain.NewStradaleConfiguration("#FF0000")
	cfg.Channel = cfg.Channel.WithSecondaryColor("#00FF00")
	b.Sync(context.Background(), cfg)

	if !hasCall(fv, "color "+domain.SlotChannelB+" #1A1A1A") {
		t.Errorf("secondary slot not forced dark, calls: %v", fv.calls)
	}
	if !hasCall(fv, "finish "+domain.SlotChannelB+" 0.10/0.20") {
		t.Errorf("secondary slot not forced glossy, calls: %v", fv.calls)
	}
	if hasCall(fv, "color "+domain.SlotChannelB+" #00FF00") {
		t.Error("secondary color leaked into half graphic")
	}
}

func TestFullGraphicSecondaryFallsBackToPrimary(t *testing.T) {
	b, fv := loadedBinder(t, domain.FlowStradale)
	cfg := domain.NewStradaleConfiguration("#FF0000")
	cfg.Channel = cfg.Channel.WithGraphic(domain.GraphicFull)
	b.Sync(context.Background(), cfg)

	if !hasCall(fv, "color "+domain.SlotChannelB+" #FF0000") {
		t.Errorf("secondary slot did not fall back to primary, calls: %v", fv.calls)
	}
}

func TestTextureCoversBothSlotsOnFullGraphic(t *testing.T) {
	b, fv := loadedBinder(t, domain.FlowStradale)
	cfg := domain.NewStradaleConfiguration("#000000")
	cfg.Channel = cfg.Channel.
		WithGraphic(domain.GraphicFull).
		WithTexture(&domain.TextureRef{Name: "carbon.png", Path: "up/carbon.png"})
	b.Sync(context.Background(), cfg)

	if fv.creates != 1 {
		t.Fatalf("creates = %d, want 1", fv.creates)
	}
	if !hasCall(fv, "texture "+domain.SlotChannelA+" tex-1") || !hasCall(fv, "texture "+domain.SlotChannelB+" tex-1") {
		t.Errorf("texture not applied to both slots, calls: %v", fv.calls)
	}
	if hasCall(fv, "color "+domain.SlotChannelA+" #000000") {
		t.Error("color applied alongside texture")
	}
}

func TestResyncSameTextureReusesHandle(t *testing.T) {
	b, fv := loadedBinder(t, domain.FlowStradale)
	cfg := domain.NewStradaleConfiguration("#000000")
	cfg.Channel = cfg.Channel.WithTexture(&domain.TextureRef{Name: "a.png", Path: "up/a.png"})
	b.Sync(context.Background(), cfg)
	b.Sync(context.Background(), cfg)

	if fv.creates != 1 {
		t.Errorf("creates = %d, want 1 (unchanged selection must reuse the handle)", fv.creates)
	}
	if n := fv.releases["tex-1"]; n != 0 {
		t.Errorf("releases = %d, want 0 while the texture is still selected", n)
	}
}

func TestReplacingTextureReleasesOldExactlyOnce(t *testing.T) {
	b, fv := loadedBinder(t, domain.FlowStradale)
	cfg := domain.NewStradaleConfiguration("#000000")
	cfg.Channel = cfg.Channel.WithTexture(&domain.TextureRef{Name: "a.png", Path: "up/a.png"})
	b.Sync(context.Background(), cfg)

	cfg.Channel = cfg.Channel.WithTexture(&domain.TextureRef{Name: "b.png", Path: "up/b.png"})
	b.Sync(context.Background(), cfg)

	if fv.creates != 2 {
		t.Fatalf("creates = %d, want 2", fv.creates)
	}
	if fv.releases["tex-1"] != 1 {
		t.Errorf("old handle released %d times, want 1", fv.releases["tex-1"])
	}
	if fv.releases["tex-2"] != 0 {
		t.Errorf("new handle released prematurely")
	}
	if !hasCall(fv, "texture "+domain.SlotChannelA+" tex-2") {
		t.Errorf("replacement texture not applied, calls: %v", fv.calls)
	}
}

func TestRemovingTextureReleasesAndRevertsToColor(t *testing.T) {
	b, fv := loadedBinder(t, domain.FlowStradale)
	cfg := domain.NewStradaleConfiguration("#FF0000")
	cfg.Channel = cfg.Channel.WithTexture(&domain.TextureRef{Name: "a.png", Path: "up/a.png"})
	b.Sync(context.Background(), cfg)

	fv.calls = nil
	cfg.Channel = cfg.Channel.WithTexture(nil)
	b.Sync(context.Background(), cfg)

	if fv.releases["tex-1"] != 1 {
		t.Errorf("released %d times, want 1", fv.releases["tex-1"])
	}
	if !hasCall(fv, "color "+domain.SlotChannelA+" #FF0000") {
		t.Errorf("slot did not revert to color, calls: %v", fv.calls)
	}
}

func TestMissingSlotSkipsButSiblingsProceed(t *testing.T) {
	b, fv := loadedBinder(t, domain.FlowMotard)
	fv.missing[domain.SlotSpokes] = true

	cfg := domain.NewMotardConfiguration("#0000FF").
		WithKit(domain.KitSpokes, true).
		WithKit(domain.KitNipples, true)
	b.Sync(context.Background(), cfg)

	if !hasCall(fv, "color "+domain.SlotNipples+" #0000FF") {
		t.Errorf("sibling mutation aborted by missing slot, calls: %v", fv.calls)
	}
}

func TestMotardKitsOffLeaveSlotsUntouched(t *testing.T) {
	b, fv := loadedBinder(t, domain.FlowMotard)
	b.Sync(context.Background(), domain.NewMotardConfiguration("#000000"))

	if len(fv.calls) != 0 {
		t.Fatalf("mutations with all kits off: %v", fv.calls)
	}
}

func TestRainbowDegradesToWhite(t *testing.T) {
	b, fv := loadedBinder(t, domain.FlowMotard)
	cfg := domain.NewMotardConfiguration("#000000").
		WithKit(domain.KitSpokes, true).
		WithSpokesColor(domain.ColorRainbow)
	b.Sync(context.Background(), cfg)

	if !hasCall(fv, "color "+domain.SlotSpokes+" #FFFFFF") {
		t.Errorf("rainbow not degraded to white, calls: %v", fv.calls)
	}
}

func TestLoadErrorReportedAndClearedByLoad(t *testing.T) {
	fv := newFakeViewer()
	b := NewBinder(domain.FlowStradale, fv, domain.DefaultCatalog())
	defer b.Close()

	b.handleEvent(domain.ViewerEvent{Kind: domain.ViewerEventError, Detail: "asset 404"})
	st := b.Status()
	if st.Ready || st.LoadError != "asset 404" {
		t.Fatalf("status after error: %+v", st)
	}

	b.handleEvent(domain.ViewerEvent{Kind: domain.ViewerEventLoad})
	st = b.Status()
	if !st.Ready || st.LoadError != "" {
		t.Fatalf("status after recovery: %+v", st)
	}
}

func TestProgressTracked(t *testing.T) {
	fv := newFakeViewer()
	b := NewBinder(domain.FlowStradale, fv, domain.DefaultCatalog())
	defer b.Close()

	b.handleEvent(domain.ViewerEvent{Kind: domain.ViewerEventProgress, Progress: 0.4})
	if got := b.Status().Progress; got != 0.4 {
		t.Errorf("progress = %v, want 0.4", got)
	}
	if got := b.Status().ModelURL; got != domain.StradaleModelURL {
		t.Errorf("model url = %q", got)
	}
}

func TestCloseReleasesTextureOnce(t *testing.T) {
	fv := newFakeViewer()
	b := NewBinder(domain.FlowStradale, fv, domain.DefaultCatalog())
	b.handleEvent(domain.ViewerEvent{Kind: domain.ViewerEventLoad})

	cfg := domain.NewStradaleConfiguration("#000000")
	cfg.Channel = cfg.Channel.WithTexture(&domain.TextureRef{Name: "a.png", Path: "up/a.png"})
	b.Sync(context.Background(), cfg)

	b.Close()
	b.Close()
	if fv.releases["tex-1"] != 1 {
		t.Errorf("released %d times across double close, want 1", fv.releases["tex-1"])
	}
}
