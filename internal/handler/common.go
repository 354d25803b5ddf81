// Package handler implements the public API surface (spec §4.6):
// request decoding, admission/principal composition, and response
// shaping over internal/service's ShareService. Grounded on teacher's
// internal/handler/share_file.go and internal/handler/minio.go
// (gin.Context + ShouldBindJSON + c.Get-for-principal shape), adapted
// so every response carries JSON rather than streamed bytes.
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ianjiteshan/ShareSYNC/internal/apperr"
	"github.com/ianjiteshan/ShareSYNC/internal/dto"
	"github.com/ianjiteshan/ShareSYNC/internal/logging"
	"github.com/ianjiteshan/ShareSYNC/internal/metrics"
	"github.com/ianjiteshan/ShareSYNC/internal/repo"
	"github.com/ianjiteshan/ShareSYNC/internal/service"
	"github.com/ianjiteshan/ShareSYNC/utils"
)

// Handler groups the dependencies every route needs: the share
// service for the four gateway operations, the repository directly
// for principal-to-user resolution, and the principal/IP-hash helpers
// threaded through gin's context by utils.ResolvePrincipal.
type Handler struct {
	Shares *service.ShareService
	Repo   repo.ShareRepository
}

// New wires a Handler.
func New(shares *service.ShareService, shareRepo repo.ShareRepository) *Handler {
	return &Handler{Shares: shares, Repo: shareRepo}
}

// resolveOwner upserts the authenticated principal into the user
// table and returns its id, or nil for an anonymous caller.
func (h *Handler) resolveOwner(c *gin.Context) (*uint64, int64, error) {
	principal := utils.CurrentPrincipal(c)
	if !principal.Authenticated {
		return nil, 0, nil
	}
	user, err := h.Repo.UpsertUser(c.Request.Context(), principal.ExternalID, principal.Email, principal.DisplayName)
	if err != nil {
		return nil, 0, err
	}
	return &user.ID, user.UsedSpace, nil
}

// respondError renders any error through the typed taxonomy, so every
// handler surfaces the same {error: {code, message}} shape (spec §6).
func respondError(c *gin.Context, err error) {
	appErr := apperr.As(err)
	metrics.ShareErrors.WithLabelValues(string(appErr.Code)).Inc()
	logging.From(c.Request.Context()).WithError(appErr).WithField("code", appErr.Code).Warn("request failed")
	c.AbortWithStatusJSON(apperr.StatusFor(appErr.Code), dto.ErrorResponse{
		Error: dto.ErrorBody{Code: string(appErr.Code), Message: appErr.Message},
	})
}

func respondValidation(c *gin.Context, message string) {
	respondError(c, apperr.New(apperr.ValidationFailed, message))
}
