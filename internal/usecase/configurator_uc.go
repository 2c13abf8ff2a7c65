package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ruotalab/wheelstudio/internal/domain"
	"github.com/ruotalab/wheelstudio/internal/render"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotConfiguring  = errors.New("no flow selected")
	ErrAlreadyStarted  = errors.New("configuration already in progress")
)

const sessionTTL = 2 * time.Hour

// Option names accepted by Update.
type Option string

const (
	OptGraphic        Option = "graphic"
	OptPrimaryColor   Option = "primary-color"
	OptSecondaryColor Option = "secondary-color"
	OptFinish         Option = "finish"
	OptKit            Option = "kit"
	OptSpokesColor    Option = "spokes-color"
	OptNipplesColor   Option = "nipples-color"
)

// OptionUpdate changes exactly one configuration field. Kit and Enabled are
// meaningful only for OptKit.
type OptionUpdate struct {
	Option  Option
	Value   string
	Kit     domain.Kit
	Enabled bool
}

// Session is one configuration session: the state machine of §flow selection
// plus the single configuration instance and its render binder.
type Session struct {
	ID       uuid.UUID
	Config   domain.Configuration // nil while selecting a flow
	Binder   *render.Binder
	Viewer   domain.Viewer
	LastSeen time.Time
}

// ViewerFactory builds the per-session viewer transport for a flow's asset.
type ViewerFactory func(sessionID uuid.UUID, flow domain.Flow) domain.Viewer

// ConfiguratorUC owns all sessions. Every operation runs under one mutex:
// option updates, recomputation and render sync are serialized per process,
// matching the single-logical-thread model of the configurator.
type ConfiguratorUC struct {
	Catalogs  *CatalogUC
	Storage   domain.FileStorage
	NewViewer ViewerFactory

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	stop     chan struct{}
	stopOnce sync.Once
}

func NewConfiguratorUC(cat *CatalogUC, storage domain.FileStorage, vf ViewerFactory) *ConfiguratorUC {
	uc := &ConfiguratorUC{
		Catalogs:  cat,
		Storage:   storage,
		NewViewer: vf,
		sessions:  map[uuid.UUID]*Session{},
		stop:      make(chan struct{}),
	}
	go uc.sweep()
	return uc
}

func (uc *ConfiguratorUC) Close() {
	uc.stopOnce.Do(func() { close(uc.stop) })
	uc.mu.Lock()
	defer uc.mu.Unlock()
	for id, s := range uc.sessions {
		uc.teardown(s)
		delete(uc.sessions, id)
	}
}

func (uc *ConfiguratorUC) sweep() {
	t := time.NewTicker(10 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-uc.stop:
			return
		case <-t.C:
			uc.mu.Lock()
			for id, s := range uc.sessions {
				if time.Since(s.LastSeen) > sessionTTL {
					uc.teardown(s)
					delete(uc.sessions, id)
					log.Debug().Str("session", id.String()).Msg("session expired")
				}
			}
			uc.mu.Unlock()
		}
	}
}

func (uc *ConfiguratorUC) Create(ctx context.Context) uuid.UUID {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	s := &Session{ID: uuid.New(), LastSeen: time.Now()}
	uc.sessions[s.ID] = s
	return s.ID
}

// locked lookup; callers hold uc.mu.
func (uc *ConfiguratorUC) session(id uuid.UUID) (*Session, error) {
	s, ok := uc.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.LastSeen = time.Now()
	return s, nil
}

// SelectFlow transitions SelectingFlow → Configuring(flow), building the
// flow defaults and the render binder. Re-selecting without going back first
// is rejected; the back transition is the only way to discard a session's
// configuration.
func (uc *ConfiguratorUC) SelectFlow(ctx context.Context, id uuid.UUID, f domain.Flow) error {
	if !f.Valid() {
		return fmt.Errorf("unknown flow %q", f)
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	s, err := uc.session(id)
	if err != nil {
		return err
	}
	if s.Config != nil {
		return ErrAlreadyStarted
	}
	cat := uc.Catalogs.Current()
	s.Config = domain.NewConfiguration(f, cat)
	s.Viewer = uc.NewViewer(s.ID, f)
	s.Binder = render.NewBinder(f, s.Viewer, cat)
	s.Binder.Sync(ctx, s.Config)
	return nil
}

// Back transitions Configuring(_) → SelectingFlow, discarding the
// configuration and every resource derived from it.
func (uc *ConfiguratorUC) Back(ctx context.Context, id uuid.UUID) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	s, err := uc.session(id)
	if err != nil {
		return err
	}
	if s.Config == nil {
		return ErrNotConfiguring
	}
	uc.teardown(s)
	s.Config, s.Binder, s.Viewer = nil, nil, nil
	return nil
}

// teardown runs with uc.mu held.
func (uc *ConfiguratorUC) teardown(s *Session) {
	if s.Binder != nil {
		s.Binder.Close()
	}
	if ref := textureOf(s.Config); ref != nil && uc.Storage != nil {
		if err := uc.Storage.Remove(ref.Path); err != nil {
			log.Warn().Err(err).Str("path", ref.Path).Msg("remove stored texture")
		}
	}
}

func textureOf(c domain.Configuration) *domain.TextureRef {
	switch v := c.(type) {
	case domain.StradaleConfiguration:
		return v.Channel.Texture
	case domain.MotardConfiguration:
		return v.Channel.Texture
	}
	return nil
}

// Update applies one option change. Updates aimed at the other flow's fields
// return domain.ErrVariantMismatch: a caller contract violation, surfaced so
// it cannot pass as a silent no-op.
func (uc *ConfiguratorUC) Update(ctx context.Context, id uuid.UUID, upd OptionUpdate) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	s, err := uc.session(id)
	if err != nil {
		return err
	}
	if s.Config == nil {
		return ErrNotConfiguring
	}
	next, err := uc.applyUpdate(s.Config, upd)
	if err != nil {
		return err
	}
	s.Config = next
	s.Binder.Sync(ctx, next)
	return nil
}

func (uc *ConfiguratorUC) applyUpdate(cfg domain.Configuration, upd OptionUpdate) (domain.Configuration, error) {
	cat := uc.Catalogs.Current()
	switch v := cfg.(type) {
	case domain.StradaleConfiguration:
		switch upd.Option {
		case OptGraphic, OptPrimaryColor, OptSecondaryColor, OptFinish:
			ch, err := applyKitOption(v.Channel, upd, cat)
			if err != nil {
				return nil, err
			}
			return v.WithChannel(ch), nil
		case OptKit, OptSpokesColor, OptNipplesColor:
			return nil, domain.ErrVariantMismatch
		}
	case domain.MotardConfiguration:
		switch upd.Option {
		case OptGraphic, OptPrimaryColor, OptSecondaryColor, OptFinish:
			ch, err := applyKitOption(v.Channel, upd, cat)
			if err != nil {
				return nil, err
			}
			return v.WithChannel(ch), nil
		case OptKit:
			switch upd.Kit {
			case domain.KitChannel, domain.KitSpokes, domain.KitNipples:
				return v.WithKit(upd.Kit, upd.Enabled), nil
			}
			return nil, fmt.Errorf("unknown kit %q", upd.Kit)
		case OptSpokesColor:
			if err := validColor(cat, upd.Value); err != nil {
				return nil, err
			}
			return v.WithSpokesColor(upd.Value), nil
		case OptNipplesColor:
			if err := validColor(cat, upd.Value); err != nil {
				return nil, err
			}
			return v.WithNipplesColor(upd.Value), nil
		}
	}
	return nil, fmt.Errorf("unknown option %q", upd.Option)
}

func applyKitOption(o domain.KitOptions, upd OptionUpdate, cat *domain.Catalog) (domain.KitOptions, error) {
	switch upd.Option {
	case OptGraphic:
		g := domain.GraphicType(upd.Value)
		if g != domain.GraphicHalf && g != domain.GraphicFull {
			return o, fmt.Errorf("unknown graphic type %q", upd.Value)
		}
		return o.WithGraphic(g), nil
	case OptPrimaryColor:
		if err := validColor(cat, upd.Value); err != nil {
			return o, err
		}
		return o.WithPrimaryColor(upd.Value), nil
	case OptSecondaryColor:
		if err := validColor(cat, upd.Value); err != nil {
			return o, err
		}
		return o.WithSecondaryColor(upd.Value), nil
	case OptFinish:
		f := domain.Finish(upd.Value)
		for _, known := range domain.Finishes() {
			if f == known {
				return o.WithFinish(f), nil
			}
		}
		return o, fmt.Errorf("unknown finish %q", upd.Value)
	}
	return o, fmt.Errorf("unknown option %q", upd.Option)
}

func validColor(cat *domain.Catalog, hex string) error {
	for _, p := range cat.Palette {
		if p.Hex == hex {
			return nil
		}
	}
	return fmt.Errorf("color %q not in palette", hex)
}

// SetTexture attaches a stored upload to the channel surface, removing the
// previously stored file. The viewer-side resource swap happens inside the
// binder on sync.
func (uc *ConfiguratorUC) SetTexture(ctx context.Context, id uuid.UUID, ref domain.TextureRef) error {
	return uc.swapTexture(ctx, id, &ref)
}

// RemoveTexture reverts the channel surface to color-based rendering.
func (uc *ConfiguratorUC) RemoveTexture(ctx context.Context, id uuid.UUID) error {
	return uc.swapTexture(ctx, id, nil)
}

func (uc *ConfiguratorUC) swapTexture(ctx context.Context, id uuid.UUID, ref *domain.TextureRef) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	s, err := uc.session(id)
	if err != nil {
		return err
	}
	if s.Config == nil {
		return ErrNotConfiguring
	}
	prev := textureOf(s.Config)
	switch v := s.Config.(type) {
	case domain.StradaleConfiguration:
		s.Config = v.WithChannel(v.Channel.WithTexture(ref))
	case domain.MotardConfiguration:
		s.Config = v.WithChannel(v.Channel.WithTexture(ref))
	}
	s.Binder.Sync(ctx, s.Config)
	if prev != nil && (ref == nil || prev.Path != ref.Path) && uc.Storage != nil {
		if err := uc.Storage.Remove(prev.Path); err != nil {
			log.Warn().Err(err).Str("path", prev.Path).Msg("remove stored texture")
		}
	}
	return nil
}

// Summary is the derived view the UI renders after every change.
type Summary struct {
	State          string               `json:"state"`
	Flow           domain.Flow          `json:"flow,omitempty"`
	ModelURL       string               `json:"model_url,omitempty"`
	Price          domain.Cents         `json:"price_cents"`
	PriceText      string               `json:"price"`
	Items          []domain.LineItem    `json:"items"`
	CanSubmit      bool                 `json:"can_submit"`
	BundleDiscount bool                 `json:"bundle_discount"`
	TextureName    string               `json:"texture_name,omitempty"`
	Viewer         *render.Status       `json:"viewer,omitempty"`
	Config         domain.Configuration `json:"config,omitempty"`
}

func (uc *ConfiguratorUC) Summary(ctx context.Context, id uuid.UUID) (*Summary, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	if s.Config == nil {
		return &Summary{State: "selecting-flow", Items: []domain.LineItem{}}, nil
	}
	cat := uc.Catalogs.Current()
	items := domain.LineItems(s.Config, cat)
	if items == nil {
		items = []domain.LineItem{}
	}
	price := domain.PriceOf(s.Config, cat)
	sum := &Summary{
		State:     "configuring",
		Flow:      s.Config.Flow(),
		ModelURL:  domain.ModelURL(s.Config.Flow()),
		Price:     price,
		PriceText: price.String(),
		Items:     items,
		CanSubmit: len(items) > 0,
		Config:    s.Config,
	}
	if m, ok := s.Config.(domain.MotardConfiguration); ok {
		sum.BundleDiscount = m.Kits.All()
	}
	if ref := textureOf(s.Config); ref != nil {
		sum.TextureName = ref.Name
	}
	if s.Binder != nil {
		st := s.Binder.Status()
		sum.Viewer = &st
	}
	return sum, nil
}

// CheckoutItems returns the line items to submit, or ErrNothingToSubmit when
// no selection is purchasable.
func (uc *ConfiguratorUC) CheckoutItems(ctx context.Context, id uuid.UUID) ([]domain.LineItem, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	if s.Config == nil {
		return nil, ErrNotConfiguring
	}
	items := domain.LineItems(s.Config, uc.Catalogs.Current())
	if len(items) == 0 {
		return nil, domain.ErrNothingToSubmit
	}
	return items, nil
}

// SessionViewer exposes the per-session viewer transport to the HTTP layer.
func (uc *ConfiguratorUC) SessionViewer(id uuid.UUID) (domain.Viewer, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	s, err := uc.session(id)
	if err != nil {
		return nil, err
	}
	if s.Viewer == nil {
		return nil, ErrNotConfiguring
	}
	return s.Viewer, nil
}
