package domain

import "testing"

func TestDefaultsStradale(t *testing.T) {
	cat := DefaultCatalog()
	cfg := NewConfiguration(FlowStradale, cat)
	s, ok := cfg.(StradaleConfiguration)
	if !ok {
		t.Fatalf("expected StradaleConfiguration, got %T", cfg)
	}
	if s.Channel.Graphic != GraphicHalf {
		t.Errorf("default graphic = %q, want half", s.Channel.Graphic)
	}
	if s.Channel.Finish != FinishGlossy {
		t.Errorf("default finish = %q, want glossy", s.Channel.Finish)
	}
	if s.Channel.PrimaryColor != cat.Palette[0].Hex {
		t.Errorf("default primary = %q, want first palette entry %q", s.Channel.PrimaryColor, cat.Palette[0].Hex)
	}
	if s.Channel.Texture != nil {
		t.Error("default texture should be nil")
	}
}

func TestDefaultsMotard(t *testing.T) {
	cat := DefaultCatalog()
	cfg := NewConfiguration(FlowMotard, cat)
	m, ok := cfg.(MotardConfiguration)
	if !ok {
		t.Fatalf("expected MotardConfiguration, got %T", cfg)
	}
	if m.Kits.Count() != 0 {
		t.Errorf("default kit count = %d, want 0", m.Kits.Count())
	}
	if m.SpokesColor != cat.Palette[0].Hex || m.NipplesColor != cat.Palette[0].Hex {
		t.Error("spokes/nipples default to first palette entry")
	}
	if m.Channel.Graphic != GraphicHalf || m.Channel.Finish != FinishGlossy {
		t.Error("channel options default to half/glossy")
	}
}

func TestKitOptionsSingleFieldUpdates(t *testing.T) {
	o := defaultKitOptions("#000000").
		WithSecondaryColor("#FF0000").
		WithFinish(FinishChrome)

	got := o.WithPrimaryColor("#0000FF")
	if got.PrimaryColor != "#0000FF" {
		t.Errorf("primary = %q", got.PrimaryColor)
	}
	if got.SecondaryColor != "#FF0000" || got.Finish != FinishChrome || got.Graphic != GraphicHalf {
		t.Errorf("other fields changed: %+v", got)
	}
	// the original snapshot is untouched
	if o.PrimaryColor != "#000000" {
		t.Errorf("source mutated: %+v", o)
	}
}

func TestMotardChannelPersistsAcrossKitToggle(t *testing.T) {
	m := NewMotardConfiguration("#000000").
		WithKit(KitChannel, true).
		WithChannel(defaultKitOptions("#000000").WithGraphic(GraphicFull).WithFinish(FinishGlitter))

	m = m.WithKit(KitChannel, false)
	if m.Kits.Channel {
		t.Fatal("kit still on")
	}
	if m.Channel.Graphic != GraphicFull || m.Channel.Finish != FinishGlitter {
		t.Errorf("channel options reset while kit off: %+v", m.Channel)
	}

	m = m.WithKit(KitChannel, true)
	if m.Channel.Graphic != GraphicFull || m.Channel.Finish != FinishGlitter {
		t.Errorf("channel options lost after re-enable: %+v", m.Channel)
	}
}

func TestKitFlags(t *testing.T) {
	f := KitFlags{Channel: true, Nipples: true}
	if f.Count() != 2 || f.All() {
		t.Errorf("flags %+v: count=%d all=%v", f, f.Count(), f.All())
	}
	f.Spokes = true
	if !f.All() {
		t.Error("all three set, All() = false")
	}
}

func TestWithTextureSetAndRemove(t *testing.T) {
	ref := &TextureRef{Name: "flames.png", Path: "ab12-flames.png"}
	o := defaultKitOptions("#000000").WithTexture(ref)
	if o.Texture == nil || o.Texture.Path != ref.Path {
		t.Fatalf("texture not set: %+v", o.Texture)
	}
	o = o.WithTexture(nil)
	if o.Texture != nil {
		t.Error("texture not removed")
	}
}
