package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ianjiteshan/ShareSYNC/internal/apperr"
	"github.com/ianjiteshan/ShareSYNC/internal/dto"
	"github.com/ianjiteshan/ShareSYNC/internal/repo"
)

// ListFiles implements GET /files: the authenticated owner's shares,
// paginated (spec §4.3 list_shares_by_owner).
func (h *Handler) ListFiles(c *gin.Context) {
	ownerID, _, err := h.resolveOwner(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if ownerID == nil {
		respondError(c, apperr.New(apperr.Unauthenticated, "authentication required"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := repo.ShareListFilter{
		OrderBy:   c.DefaultQuery("order_by", "created_at"),
		OrderDesc: c.DefaultQuery("order", "desc") != "asc",
		Page:      page,
		PageSize:  pageSize,
	}

	shares, err := h.Shares.ListOwned(c.Request.Context(), *ownerID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]dto.ShareListItem, 0, len(shares))
	for _, s := range shares {
		items = append(items, dto.ShareListItem{
			ShareID:       s.ShareID,
			OriginalName:  s.OriginalName,
			SizeBytes:     s.SizeBytes,
			State:         string(s.State),
			CreatedAt:     s.CreatedAt,
			ExpiresAt:     s.ExpiresAt,
			DownloadCount: s.DownloadCount,
		})
	}

	c.JSON(200, dto.ShareListResponse{Shares: items, Page: page})
}

// RevokeFile implements DELETE /files/{share_id}: owner-only,
// immediate transition out of availability regardless of expiry.
func (h *Handler) RevokeFile(c *gin.Context) {
	shareID := c.Param("share_id")
	ownerID, _, err := h.resolveOwner(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if ownerID == nil {
		respondError(c, apperr.New(apperr.Unauthenticated, "authentication required"))
		return
	}

	if err := h.Shares.Revoke(c.Request.Context(), shareID, ownerID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(204)
}
