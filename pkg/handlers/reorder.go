package handlers

import (
	"errors"
	"net/http"

	"post-reorder-backend/pkg/middleware"
	"post-reorder-backend/pkg/reorder"
	"post-reorder-backend/pkg/utils"

	"go.uber.org/zap"
)

// ReorderHandler serves the post_sort ajax action.
type ReorderHandler struct {
	persister *reorder.Persister
	logger    *zap.Logger
}

func NewReorderHandler(persister *reorder.Persister, logger *zap.Logger) *ReorderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReorderHandler{persister: persister, logger: logger}
}

// PostSort 保存拖拽后的排序
// params: nonce, order, post_type
func (h *ReorderHandler) PostSort(w http.ResponseWriter, r *http.Request, params AjaxParams) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	report, err := h.persister.Persist(r.Context(), reorder.PersistRequest{
		UserID:   user.ID,
		Nonce:    params.Get("nonce"),
		Order:    params.Get("order"),
		PostType: params.Get("post_type"),
	})
	if err == nil {
		utils.WriteSuccessResponse(w, report)
		return
	}

	if scopeErr, ok := reorder.IsOutOfScope(err); ok {
		utils.WriteErrorResponseWithData(w, http.StatusUnprocessableEntity, "OUT_OF_SCOPE", scopeErr.Error(),
			map[string]interface{}{"ids": scopeErr.IDs})
		return
	}
	switch {
	case errors.Is(err, reorder.ErrInvalidToken):
		utils.WriteErrorResponseWithCode(w, http.StatusForbidden, "INVALID_NONCE", "Security check failed, reload the page and try again", "")
	case errors.Is(err, reorder.ErrMalformedOrder):
		utils.WriteErrorResponseWithCode(w, http.StatusBadRequest, "MALFORMED_ORDER", err.Error(), "")
	case errors.Is(err, reorder.ErrUnknownTarget):
		utils.WriteErrorResponseWithCode(w, http.StatusBadRequest, "UNKNOWN_POST_TYPE", err.Error(), "")
	case errors.Is(err, reorder.ErrPartialWrite):
		utils.WriteErrorResponseWithData(w, http.StatusMultiStatus, "PARTIALLY_WRITTEN", err.Error(), report)
	case errors.Is(err, reorder.ErrNothingWritten):
		utils.WriteErrorResponseWithData(w, http.StatusInternalServerError, "NOTHING_WRITTEN", err.Error(), report)
	default:
		h.logger.Error("post_sort failed", zap.String("user", user.ID), zap.Error(err))
		utils.WriteInternalServerErrorResponse(w, "Failed to save the order")
	}
}
