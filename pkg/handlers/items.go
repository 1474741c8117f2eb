package handlers

import (
	"net/http"
	"strings"

	"post-reorder-backend/pkg/config"
	"post-reorder-backend/pkg/database"
	"post-reorder-backend/pkg/middleware"
	"post-reorder-backend/pkg/models"
	"post-reorder-backend/pkg/utils"

	"go.uber.org/zap"
)

// ItemsHandler exposes the listing and nonce endpoints used by clients.
type ItemsHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	nonces *utils.NonceService
	logger *zap.Logger
}

func NewItemsHandler(cfg *config.Config, db database.DatabaseInterface, nonces *utils.NonceService, logger *zap.Logger) *ItemsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemsHandler{config: cfg, db: db, nonces: nonces, logger: logger}
}

// ListItems GET /api/items?post_type=&status=&orderby=&order=
// Unset parameters fall back to the post type's reorder page settings.
func (h *ItemsHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	postType := utils.GetQueryParam(r, "post_type", "post")
	q := models.ListQuery{PostType: postType}
	if t, ok := h.config.Target(postType); ok {
		q = t.ListQuery()
	}
	if v := r.URL.Query().Get("status"); v != "" {
		q.PostStatus = v
	}
	if v := r.URL.Query().Get("orderby"); v != "" {
		q.OrderBy = strings.ToLower(v)
	}
	if v := r.URL.Query().Get("order"); v != "" {
		q.Direction = strings.ToUpper(v)
	}

	items, err := h.db.ListItems(r.Context(), q.Normalized())
	if err != nil {
		h.logger.Error("failed to list items", zap.String("post_type", postType), zap.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Failed to list items")
		return
	}
	utils.WriteSuccessResponse(w, items)
}

// Nonce GET /api/nonce?post_type=
func (h *ItemsHandler) Nonce(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	postType := utils.GetQueryParam(r, "post_type", "post")
	if _, ok := h.config.Target(postType); !ok {
		utils.WriteNotFoundResponse(w, "No reorder page for post type "+postType)
		return
	}
	nonce, err := h.nonces.Create(user.ID, utils.SortNonceAction)
	if err != nil {
		h.logger.Error("failed to issue nonce", zap.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Failed to issue security token")
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"nonce":      nonce,
		"action":     utils.SortNonceAction,
		"post_type":  postType,
		"expires_in": int64(h.nonces.TTL().Seconds()),
	})
}
