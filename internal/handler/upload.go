package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ianjiteshan/ShareSYNC/internal/dto"
)

// PresignUpload implements POST /upload/presign.
func (h *Handler) PresignUpload(c *gin.Context) {
	var req dto.PresignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid request body")
		return
	}

	ownerID, usedSpace, err := h.resolveOwner(c)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.Shares.IssueUpload(
		c.Request.Context(),
		ownerID,
		usedSpace,
		req.OriginalName,
		req.SizeBytes,
		req.MimeType,
		time.Duration(req.ExpirySeconds)*time.Second,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, dto.PresignUploadResponse{
		ShareID:      result.ShareID,
		UploadURL:    result.UploadURL,
		UploadMethod: "POST",
		ExpiresAt:    result.ExpiresAt,
		UploadFields: result.UploadFields,
	})
}

// FinalizeUpload implements POST /upload/finalize.
func (h *Handler) FinalizeUpload(c *gin.Context) {
	var req dto.FinalizeUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid request body")
		return
	}

	share, err := h.Shares.FinalizeUpload(c.Request.Context(), req.ShareID, req.ActualSize)
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
