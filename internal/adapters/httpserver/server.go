package httpserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"golang.org/x/oauth2"

	"github.com/ruotalab/wheelstudio/internal/adapters/commerce/shopify"
	"github.com/ruotalab/wheelstudio/internal/adapters/viewer/stream"
	"github.com/ruotalab/wheelstudio/internal/domain"
	"github.com/ruotalab/wheelstudio/internal/usecase"
)

const maxTextureUpload = 10 << 20

type Server struct {
	mux          *http.ServeMux
	configurator *usecase.ConfiguratorUC
	catalogs     *usecase.CatalogUC
	storage      domain.FileStorage
	shop         *shopify.Client
	oauthCfg     *oauth2.Config

	adminAllowed map[string]struct{}
	adminSecret  []byte
}

func New(cfg *usecase.ConfiguratorUC, cat *usecase.CatalogUC, storage domain.FileStorage, shop *shopify.Client, oauthCfg *oauth2.Config) http.Handler {
	s := &Server{
		mux:          http.NewServeMux(),
		configurator: cfg,
		catalogs:     cat,
		storage:      storage,
		shop:         shop,
		oauthCfg:     oauthCfg,
	}

	allowed := map[string]struct{}{}
	if raw := os.Getenv("ADMIN_ALLOWED_EMAILS"); raw != "" {
		for _, e := range strings.Split(raw, ",") {
			e = strings.ToLower(strings.TrimSpace(e))
			if e != "" {
				allowed[e] = struct{}{}
			}
		}
	}
	s.adminAllowed = allowed
	sec := os.Getenv("SECRET_KEY")
	if sec == "" {
		sec = "dev-admin-secret"
	}
	s.adminSecret = []byte(sec)

	s.routes()
	return Chain(s.mux,
		RequestID,
		Logging,
		Recovery,
	)
}

func (s *Server) routes() {
	s.mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsDir()))))

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.mux.HandleFunc("GET /api/catalog", s.apiCatalog)

	s.mux.HandleFunc("POST /api/sessions", s.apiSessionCreate)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.apiSummary)
	s.mux.HandleFunc("POST /api/sessions/{id}/flow", s.apiSelectFlow)
	s.mux.HandleFunc("POST /api/sessions/{id}/back", s.apiBack)
	s.mux.HandleFunc("POST /api/sessions/{id}/options", s.apiUpdateOption)
	s.mux.HandleFunc("POST /api/sessions/{id}/texture", s.apiTextureUpload)
	s.mux.HandleFunc("DELETE /api/sessions/{id}/texture", s.apiTextureRemove)
	s.mux.HandleFunc("POST /api/sessions/{id}/checkout", s.apiCheckout)
	s.mux.HandleFunc("GET /api/sessions/{id}/viewer/commands", s.apiViewerCommands)
	s.mux.HandleFunc("POST /api/sessions/{id}/viewer/events", s.apiViewerEvents)

	// host-frame height signal: best effort, out of core scope
	s.mux.HandleFunc("POST /api/frame/height", s.apiFrameHeight)

	s.mux.HandleFunc("GET /admin/login", s.handleAdminLogin)
	s.mux.HandleFunc("GET /auth/google/callback", s.handleGoogleCallback)
	s.mux.HandleFunc("GET /admin/logout", s.handleAdminLogout)
	s.mux.HandleFunc("PUT /admin/prices/{code}", s.handleAdminPriceUpdate)
	s.mux.HandleFunc("GET /admin/export/prices", s.handleAdminExportPrices)
}

func uploadsDir() string {
	dir := os.Getenv("STORAGE_DIR")
	if dir == "" {
		dir = "uploads"
	}
	return dir
}

// --- JSON plumbing ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrSessionNotFound), errors.Is(err, domain.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrVariantMismatch), errors.Is(err, usecase.ErrAlreadyStarted), errors.Is(err, usecase.ErrNotConfiguring):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNothingToSubmit):
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		jsonError(w, http.StatusBadRequest, err.Error())
	}
}

func sessionID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

// --- catalog ---

func (s *Server) apiCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.catalogs.Current()
	prices := map[string]string{}
	for _, code := range domain.OptionCodes() {
		prices[string(code)] = cat.Price(code).String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prices":   prices,
		"palette":  cat.Palette,
		"finishes": cat.Finishes,
	})
}

// --- sessions ---

func (s *Server) apiSessionCreate(w http.ResponseWriter, r *http.Request) {
	id := s.configurator.Create(r.Context())
	writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (s *Server) apiSummary(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad session id")
		return
	}
	sum, err := s.configurator.Summary(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) apiSelectFlow(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad session id")
		return
	}
	var body struct {
		Flow domain.Flow `json:"flow"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, http.StatusBadRequest, "bad body")
		return
	}
	if err := s.configurator.SelectFlow(r.Context(), id, body.Flow); err != nil {
		s.fail(w, err)
		return
	}
	sum, err := s.configurator.Summary(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) apiBack(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad session id")
		return
	}
	if err := s.configurator.Back(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiUpdateOption(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad session id")
		return
	}
	var body struct {
		Option  string `json:"option"`
		Value   string `json:"value"`
		Kit     string `json:"kit"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, http.StatusBadRequest, "bad body")
		return
	}
	upd := usecase.OptionUpdate{
		Option:  usecase.Option(body.Option),
		Value:   body.Value,
		Kit:     domain.Kit(body.Kit),
		Enabled: body.Enabled,
	}
	if err := s.configurator.Update(r.Context(), id, upd); err != nil {
		s.fail(w, err)
		return
	}
	sum, err := s.configurator.Summary(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// --- textures ---

var textureExts = map[string]struct{}{".png": {}, ".jpg": {}, ".jpeg": {}, ".webp": {}}

func (s *Server) apiTextureUpload(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad session id")
		return
	}
	if err := r.ParseMultipartForm(maxTextureUpload); err != nil {
		jsonError(w, http.StatusBadRequest, "bad multipart body")
		return
	}
	file, hdr, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()
	ext := strings.ToLower(filepath.Ext(hdr.Filename))
	if _, ok := textureExts[ext]; !ok {
		jsonError(w, http.StatusUnsupportedMediaType, "unsupported image type")
		return
	}
	stored, err := s.storage.Save(hdr.Filename, file)
	if err != nil {
		log.Error().Err(err).Str("file", hdr.Filename).Msg("store texture upload")
		jsonError(w, http.StatusInternalServerError, "store upload")
		return
	}
	ref := domain.TextureRef{Name: hdr.Filename, Path: stored}
	if err := s.configurator.SetTexture(r.Context(), id, ref); err != nil {
		_ = s.storage.Remove(stored)
		s.fail(w, err)
		return
	}
	sum, err := s.configurator.Summary(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) apiTextureRemove(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad session id")
		return
	}
	if err := s.configurator.RemoveTexture(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- checkout ---

func (s *Server) apiCheckout(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad session id")
		return
	}
	var body struct {
		Mode string `json:"mode"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	items, err := s.configurator.CheckoutItems(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if body.Mode == "cart" {
		if err := s.shop.AddToCart(r.Context(), items); err != nil {
			log.Error().Err(err).Str("session", id.String()).Msg("cart add")
			jsonError(w, http.StatusBadGateway, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	link, err := s.shop.PermalinkURL(items)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"checkout_url": link})
}

// --- viewer transport ---

func (s *Server) sessionStream(r *http.Request) (*stream.Viewer, error) {
	id, err := sessionID(r)
	if err != nil {
		return nil, fmt.Errorf("bad session id")
	}
	v, err := s.configurator.SessionViewer(id)
	if err != nil {
		return nil, err
	}
	sv, ok := v.(*stream.Viewer)
	if !ok {
		return nil, fmt.Errorf("session viewer is not a command stream")
	}
	return sv, nil
}

func (s *Server) apiViewerCommands(w http.ResponseWriter, r *http.Request) {
	sv, err := s.sessionStream(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	wait := r.URL.Query().Get("wait") == "1"
	cmds := sv.Commands(r.Context(), wait)
	if cmds == nil {
		cmds = []stream.Command{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"commands": cmds})
}

func (s *Server) apiViewerEvents(w http.ResponseWriter, r *http.Request) {
	sv, err := s.sessionStream(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	var body struct {
		Kind     string   `json:"kind"`
		Detail   string   `json:"detail"`
		Progress float64  `json:"progress"`
		Slots    []string `json:"slots"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, http.StatusBadRequest, "bad body")
		return
	}
	kind := domain.ViewerEventKind(body.Kind)
	switch kind {
	case domain.ViewerEventLoad, domain.ViewerEventError, domain.ViewerEventProgress:
	default:
		jsonError(w, http.StatusBadRequest, "unknown event kind")
		return
	}
	sv.PushEvent(kind, body.Detail, body.Progress, body.Slots)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) apiFrameHeight(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Height int `json:"height"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	log.Debug().Int("height", body.Height).Msg("frame height signal")
	w.WriteHeader(http.StatusNoContent)
}

// --- admin ---

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		jsonError(w, http.StatusServiceUnavailable, "oauth not configured")
		return
	}
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: state, Path: "/", HttpOnly: true, MaxAge: 600})
	http.Redirect(w, r, s.oauthCfg.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		jsonError(w, http.StatusServiceUnavailable, "oauth not configured")
		return
	}
	st, err := r.Cookie("oauth_state")
	if err != nil || st.Value == "" || st.Value != r.URL.Query().Get("state") {
		jsonError(w, http.StatusBadRequest, "bad oauth state")
		return
	}
	tok, err := s.oauthCfg.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		log.Error().Err(err).Msg("exchange oauth")
		jsonError(w, http.StatusBadGateway, "oauth exchange failed")
		return
	}
	client := s.oauthCfg.Client(r.Context(), tok)
	res, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		log.Error().Err(err).Msg("userinfo")
		jsonError(w, http.StatusBadGateway, "userinfo failed")
		return
	}
	defer res.Body.Close()
	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		jsonError(w, http.StatusBadGateway, "userinfo decode failed")
		return
	}
	email := strings.ToLower(strings.TrimSpace(info.Email))
	if _, ok := s.adminAllowed[email]; !ok {
		jsonError(w, http.StatusForbidden, "not an admin")
		return
	}
	token, exp := s.issueAdminToken(email, 12*time.Hour)
	http.SetCookie(w, &http.Cookie{Name: "admin_session", Value: token, Path: "/", HttpOnly: true, Expires: exp})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "admin_session", Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) issueAdminToken(email string, dur time.Duration) (string, time.Time) {
	exp := time.Now().Add(dur)
	payload := fmt.Sprintf("%s|%d", email, exp.Unix())
	mac := hmac.New(sha256.New, s.adminSecret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + hex.EncodeToString(mac.Sum(nil)), exp
}

func (s *Server) verifyAdminToken(tok string) (string, error) {
	parts := strings.SplitN(tok, ".", 2)
	if len(parts) != 2 {
		return "", errors.New("malformed token")
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", errors.New("malformed token")
	}
	mac := hmac.New(sha256.New, s.adminSecret)
	mac.Write(raw)
	if !hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(parts[1])) {
		return "", errors.New("bad signature")
	}
	fields := strings.SplitN(string(raw), "|", 2)
	if len(fields) != 2 {
		return "", errors.New("malformed token")
	}
	var expUnix int64
	if _, err := fmt.Sscanf(fields[1], "%d", &expUnix); err != nil || time.Now().Unix() > expUnix {
		return "", errors.New("token expired")
	}
	return fields[0], nil
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	c, err := r.Cookie("admin_session")
	if err != nil || c.Value == "" {
		jsonError(w, http.StatusUnauthorized, "admin login required")
		return false
	}
	if _, err := s.verifyAdminToken(c.Value); err != nil {
		jsonError(w, http.StatusUnauthorized, "admin login required")
		return false
	}
	return true
}

func (s *Server) handleAdminPriceUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	code := domain.OptionCode(r.PathValue("code"))
	var body struct {
		Cents int64 `json:"cents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, http.StatusBadRequest, "bad body")
		return
	}
	if err := s.catalogs.UpdatePrice(r.Context(), code, domain.Cents(body.Cents)); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminExportPrices(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	cat := s.catalogs.Current()
	f := excelize.NewFile()
	const sheet = "Prices"
	f.SetSheetName("Sheet1", sheet)
	_ = f.SetSheetRow(sheet, "A1", &[]any{"Code", "Price EUR", "Shopify Variant ID"})
	row := 2
	for _, code := range domain.OptionCodes() {
		id, _ := cat.VariantID(code)
		cell := fmt.Sprintf("A%d", row)
		_ = f.SetSheetRow(sheet, cell, &[]any{string(code), cat.Price(code).String(), id})
		row++
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="prices.xlsx"`)
	if err := f.Write(w); err != nil {
		log.Error().Err(err).Msg("write prices export")
	}
}
