package handlers

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"
	"time"

	"post-reorder-backend/pkg/config"
	"post-reorder-backend/pkg/database"
	"post-reorder-backend/pkg/editor"
	"post-reorder-backend/pkg/middleware"
	"post-reorder-backend/pkg/models"
	"post-reorder-backend/pkg/utils"
	"post-reorder-backend/pkg/web"

	chiRoute "github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Admin URL layout shared by the pages, the menu and the router.
const (
	AdminPrefix = "/admin"
	AjaxPath    = AdminPrefix + "/ajax"
	AssetPrefix = AdminPrefix + "/assets"
	PagePrefix  = AdminPrefix + "/reorder/"
)

// SessionValidator checks a session token before it is stored in a cookie.
type SessionValidator interface {
	ValidateToken(token string) (*models.TokenClaims, error)
}

// AdminHandler renders the reorder pages and the menu they are listed in.
type AdminHandler struct {
	config   *config.Config
	db       database.DatabaseInterface
	nonces   *utils.NonceService
	sessions SessionValidator
	logger   *zap.Logger
}

func NewAdminHandler(cfg *config.Config, db database.DatabaseInterface, nonces *utils.NonceService, sessions SessionValidator, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{config: cfg, db: db, nonces: nonces, sessions: sessions, logger: logger}
}

// MenuEntries lists the pages a user may open, one per configured target.
func (h *AdminHandler) MenuEntries(user *models.User) []models.MenuEntry {
	entries := []models.MenuEntry{}
	if !user.Can(models.CapabilityEditPosts) {
		return entries
	}
	for _, t := range h.config.Targets {
		entries = append(entries, models.MenuEntry{
			ParentSlug: t.ParentSlug(),
			PageTitle:  t.Heading,
			MenuTitle:  t.MenuLabel,
			Capability: models.CapabilityEditPosts,
			MenuSlug:   t.MenuSlug(),
			URL:        PagePrefix + t.MenuSlug(),
		})
	}
	return entries
}

// Menu GET /admin/menu
func (h *AdminHandler) Menu(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUserFromContext(r.Context())
	utils.WriteSuccessResponse(w, h.MenuEntries(user))
}

// Index GET /admin/
func (h *AdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUserFromContext(r.Context())
	h.render(w, "index.html", map[string]interface{}{
		"AssetBase": AssetPrefix,
		"Entries":   h.MenuEntries(user),
	})
}

type pageData struct {
	Target    models.ReorderTarget
	Nonce     string
	Action    string
	AjaxURL   string
	AssetBase string
	Initial   template.HTML
	Final     template.HTML
	Nodes     []*editor.Node
}

// Page GET /admin/reorder/{slug}
func (h *AdminHandler) Page(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	target, ok := h.config.TargetBySlug(chiRoute.URLParam(r, "slug"))
	if !ok {
		utils.WriteNotFoundResponse(w, "Reorder page not found")
		return
	}

	items, err := h.db.ListItems(r.Context(), target.ListQuery())
	if err != nil {
		h.logger.Error("failed to list items", zap.String("post_type", target.PostType), zap.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Failed to load items")
		return
	}
	nonce, err := h.nonces.Create(user.ID, utils.SortNonceAction)
	if err != nil {
		h.logger.Error("failed to issue nonce", zap.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Failed to issue security token")
		return
	}

	tree := editor.NewTree(items, target.MaxLevels)
	h.render(w, "reorder.html", pageData{
		Target:    target,
		Nonce:     nonce,
		Action:    editor.SortAction,
		AjaxURL:   AjaxPath,
		AssetBase: AssetPrefix,
		// page fragments come from operator configuration
		Initial: template.HTML(target.Initial),
		Final:   template.HTML(target.Final),
		Nodes:   tree.Roots,
	})
}

func (h *AdminHandler) render(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := web.Templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Session GET /admin/session?token=&next=
// Stores a session token in a cookie so the browser pages can authenticate.
func (h *AdminHandler) Session(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		utils.WriteBadRequestResponse(w, "token required")
		return
	}
	claims, err := h.sessions.ValidateToken(token)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid token: "+err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     AdminPrefix,
		Expires:  time.Unix(claims.Exp, 0),
		HttpOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, safeRedirect(r.URL.Query().Get("next")), http.StatusFound)
}

// safeRedirect only follows local absolute paths.
func safeRedirect(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return AdminPrefix + "/"
	}
	return next
}

// Assets serves the embedded script and stylesheet.
func Assets() http.Handler {
	return http.StripPrefix(AssetPrefix, http.FileServer(http.FS(web.Static)))
}
