package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ianjiteshan/ShareSYNC/internal/apperr"
	"github.com/ianjiteshan/ShareSYNC/internal/dto"
	"github.com/ianjiteshan/ShareSYNC/utils"
)

// GetShareMetadata implements GET /share/{share_id}: a metadata-only
// view with no presigned URL (spec §4.6).
func (h *Handler) GetShareMetadata(c *gin.Context) {
	shareID := c.Param("share_id")
	if shareID == "" {
		respondValidation(c, "share_id is required")
		return
	}

	share, err := h.Repo.GetShareByID(c.Request.Context(), shareID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, dto.ShareMetadataResponse{
		ShareID:      share.ShareID,
		OriginalName: share.OriginalName,
		SizeBytes:    share.SizeBytes,
		MimeType:     share.MimeType,
		ExpiresAt:    share.ExpiresAt,
		HasPassword:  share.HasPassword(),
	})
}

// DownloadShare implements POST /share/{share_id}/download.
func (h *Handler) DownloadShare(c *gin.Context) {
	shareID := c.Param("share_id")
	if shareID == "" {
		respondValidation(c, "share_id is required")
		return
	}

	var req dto.DownloadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, "invalid request body")
			return
		}
	}

	result, err := h.Shares.IssueDownload(c.Request.Context(), shareID, req.Password, utils.ClientIPHash(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, dto.DownloadResponse{
		DownloadURL: result.DownloadURL,
		Filename:    result.Filename,
		Size:        result.Size,
		ExpiresAt:   result.ExpiresAt,
	})
}

// SetSharePassword implements password-gating an owned share. Owner-
// only, mirroring Revoke's authorization check.
func (h *Handler) SetSharePassword(c *gin.Context) {
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

	share, err := h.Repo.GetShareByID(c.Request.Context(), shareID)
	if err != nil {
		respondError(c, err)
		return
	}
	if share.OwnerUserID == nil || *share.OwnerUserID != *ownerID {
		respondError(c, apperr.New(apperr.Forbidden, "only the owner may set a password"))
		return
	}

	var req dto.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid request body")
		return
	}

	if err := h.Shares.SetPassword(c.Request.Context(), shareID, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.Status(204)
}
