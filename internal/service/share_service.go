// Package service composes the metadata repository, the object-
// storage gateway, and the policy parameters from config into the
// four operations spec §4.2 names: issue_upload, finalize_upload,
// issue_download, revoke. Grounded on teacher's
// internal/service/share_file.go's CreateShare/CheckShare and
// internal/service/minio.go's GetDownloadURL presign pattern,
// generalized to spec's fuller Share state machine and policy set.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/ianjiteshan/ShareSYNC/internal/apperr"
	"github.com/ianjiteshan/ShareSYNC/internal/logging"
	"github.com/ianjiteshan/ShareSYNC/internal/metrics"
	"github.com/ianjiteshan/ShareSYNC/internal/repo"
	"github.com/ianjiteshan/ShareSYNC/internal/storage"
	"github.com/ianjiteshan/ShareSYNC/internal/sweep"
	"github.com/ianjiteshan/ShareSYNC/model"
	"github.com/ianjiteshan/ShareSYNC/utils"
)

// Policy carries the object-storage gateway's configurable
// parameters (spec §4.2 "Policy parameters").
type Policy struct {
	Bucket                 string
	MaxObjectSizeBytes     int64
	AllowedMIMEPrefixes    []string
	BlockedMIMEPrefixes    []string
	AllowedExpiryDurations []time.Duration
	UploadURLTTL           time.Duration
	DownloadURLTTL         time.Duration
	PerUserQuotaBytes      int64
	PerUserInFlightCap     int
	AllowAnonymousShares   bool
	MQURL                  string
}

// ShareService implements the object-storage gateway's client-facing
// operations on top of the metadata repository and the object store.
type ShareService struct {
	repo   repo.ShareRepository
	store  storage.Store
	policy Policy
}

// NewShareService wires the repository, object store, and policy.
func NewShareService(shareRepo repo.ShareRepository, store storage.Store, policy Policy) *ShareService {
	return &ShareService{repo: shareRepo, store: store, policy: policy}
}

// IssueUploadResult is issue_upload's return shape. UploadFields are
// the form fields the client must submit alongside the object body in
// the multipart POST to UploadURL; the policy embedded in them is
// what actually enforces the size/content-type constraint, not the
// URL itself.
type IssueUploadResult struct {
	ShareID      string
	UploadURL    string
	ExpiresAt    time.Time
	UploadFields map[string]string
}

// IssueUpload validates the request against policy, allocates a
// share_id and storage_key, inserts a pending_upload Share, and
// returns a presigned POST URL and form fields scoped to that single
// object.
func (s *ShareService) IssueUpload(ctx context.Context, ownerUserID *uint64, ownerUsedSpace int64, originalName string, size int64, mime string, expiry time.Duration) (*IssueUploadResult, error) {
	if ownerUserID == nil && !s.policy.AllowAnonymousShares {
		return nil, apperr.New(apperr.Unauthenticated, "anonymous shares are disabled")
	}
	if originalName == "" || size <= 0 {
		return nil, apperr.New(apperr.ValidationFailed, "original_name and size are required")
	}
	if s.policy.MaxObjectSizeBytes > 0 && size > s.policy.MaxObjectSizeBytes {
		return nil, apperr.New(apperr.Oversize, "object exceeds the maximum allowed size")
	}
	if !s.mimeAllowed(mime) {
		return nil, apperr.New(apperr.UnsupportedMedia, "mime type is not permitted")
	}
	if !s.expiryAllowed(expiry) {
		return nil, apperr.New(apperr.ValidationFailed, "expiry duration is not one of the allowed choices")
	}
	if ownerUserID != nil && s.policy.PerUserQuotaBytes > 0 && ownerUsedSpace+size > s.policy.PerUserQuotaBytes {
		return nil, apperr.New(apperr.QuotaExceeded, "upload would exceed the per-user storage quota")
	}
	if ownerUserID != nil && s.policy.PerUserInFlightCap > 0 {
		inFlight, err := s.repo.CountPendingUploads(ctx, *ownerUserID)
		if err != nil {
			return nil, err
		}
		if inFlight >= int64(s.policy.PerUserInFlightCap) {
			return nil, apperr.New(apperr.QuotaExceeded, "too many uploads in flight")
		}
	}

	shareID, err := utils.NewShareID()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "generate share id", err)
	}
	storageKey := shareID + "/" + utils.SanitizeStorageKeyName(originalName)

	now := time.Now()
	share := &model.Share{
		ShareID:      shareID,
		OwnerUserID:  ownerUserID,
		StorageKey:   storageKey,
		OriginalName: originalName,
		SizeBytes:    size,
		MimeType:     mime,
		IsPublic:     true,
		CreatedAt:    now,
		ExpiresAt:    now.Add(expiry),
	}
	if err := s.repo.CreateSharePending(ctx, share); err != nil {
		return nil, err
	}

	uploadURL, formFields, err := s.store.PresignedPutObject(ctx, s.policy.Bucket, storageKey, s.policy.UploadURLTTL, storage.PresignPutOptions{
		ContentType:  mime,
		MaxSizeBytes: size,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "presign upload", err)
	}
	metrics.PresignsIssued.WithLabelValues("upload").Inc()

	return &IssueUploadResult{
		ShareID:      shareID,
		UploadURL:    uploadURL,
		ExpiresAt:    now.Add(s.policy.UploadURLTTL),
		UploadFields: formFields,
	}, nil
}

// FinalizeUpload verifies the object landed in the store at the size
// declared by issue_upload and within the size policy, then
// transitions the share to available. Idempotent: a second call
// after success is a no-op (spec §4.2).
func (s *ShareService) FinalizeUpload(ctx context.Context, shareID string, actualSize int64) (*model.Share, error) {
	share, err := s.repo.GetShareByID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if share.State == model.ShareStateAvailable {
		return share, nil
	}
	if share.State != model.ShareStatePendingUpload {
		return nil, apperr.New(apperr.InvalidState, "share is not pending upload")
	}

	info, err := s.store.StatObject(ctx, s.policy.Bucket, share.StorageKey)
	oversize := s.policy.MaxObjectSizeBytes > 0 && actualSize > s.policy.MaxObjectSizeBytes
	if err != nil || info.Size != actualSize || actualSize != share.SizeBytes || oversize {
		if failErr := s.repo.FailUpload(ctx, shareID); failErr != nil {
			logging.From(ctx).WithError(failErr).Warn("failed to mark upload as failed")
		}
		if oversize {
			return nil, apperr.New(apperr.Oversize, "object exceeds the maximum allowed size")
		}
		return nil, apperr.New(apperr.NotFound, "upload_not_found")
	}

	if err := s.repo.MarkShareAvailable(ctx, shareID, actualSize); err != nil {
		return nil, err
	}
	return s.repo.GetShareByID(ctx, shareID)
}

// IssueDownloadResult is issue_download's return shape.
type IssueDownloadResult struct {
	DownloadURL string
	Filename    string
	Size        int64
	ExpiresAt   time.Time
}

// IssueDownload validates the share's availability, password, and
// download-limit state, then atomically increments download_count
// and issues a presigned GET URL.
func (s *ShareService) IssueDownload(ctx context.Context, shareID, password, requesterHash string) (*IssueDownloadResult, error) {
	share, err := s.repo.GetShareByID(ctx, shareID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if share.IsExpiredAt(now) {
		return nil, apperr.New(apperr.Expired, "share has expired")
	}
	if share.State != model.ShareStateAvailable {
		return nil, apperr.New(apperr.Gone, "share is not available")
	}
	if share.HasPassword() {
		if password == "" {
			return nil, apperr.New(apperr.PasswordRequired, "password is required")
		}
		ok, err := utils.CheckSharePassword(password, share.PasswordHash)
		if err != nil || !ok {
			return nil, apperr.New(apperr.PasswordIncorrect, "password is incorrect")
		}
	}

	updated, err := s.repo.IncrementDownloadCount(ctx, shareID, now)
	if err != nil {
		return nil, err
	}

	downloadURL, err := s.store.PresignedGetObject(ctx, s.policy.Bucket, updated.StorageKey, s.policy.DownloadURLTTL, utils.SanitizeHeaderFilename(updated.OriginalName))
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "presign download", err)
	}
	metrics.PresignsIssued.WithLabelValues("download").Inc()

	if err := s.repo.AppendDownloadEvent(ctx, updated.ID, requesterHash, now); err != nil {
		logging.From(ctx).WithError(err).Warn("failed to append download event")
	}

	return &IssueDownloadResult{
		DownloadURL: downloadURL,
		Filename:    updated.OriginalName,
		Size:        updated.SizeBytes,
		ExpiresAt:   now.Add(s.policy.DownloadURLTTL),
	}, nil
}

// Revoke is owner-only: it transitions the share to deleted
// immediately and enqueues the same object-deletion task the sweeper
// would emit for a naturally expired share, so the backing object is
// removed by the deletion worker regardless of which path produced
// the deleted state.
func (s *ShareService) Revoke(ctx context.Context, shareID string, callerUserID *uint64) error {
	share, err := s.repo.Revoke(ctx, shareID, callerUserID)
	if err != nil {
		return err
	}
	if err := sweep.EnqueueDeletion(ctx, s.policy.MQURL, share.ShareID, share.StorageKey); err != nil {
		logging.From(ctx).WithError(err).WithField("share_id", share.ShareID).Warn("failed to enqueue deletion task for revoked share")
	}
	return nil
}

// SetPassword hashes and stores a Share password (spec §3's optional
// password gate), using argon2id rather than the teacher's bcrypt
// since this guards a share, not a login.
func (s *ShareService) SetPassword(ctx context.Context, shareID, password string) error {
	hash, err := utils.HashSharePassword(password)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "hash password", err)
	}
	return s.repo.SetPasswordHash(ctx, shareID, hash)
}

// ListOwned lists the shares owned by a user (the GET /files surface).
func (s *ShareService) ListOwned(ctx context.Context, ownerUserID uint64, filter repo.ShareListFilter) ([]model.Share, error) {
	return s.repo.ListSharesByOwner(ctx, ownerUserID, filter)
}

func (s *ShareService) mimeAllowed(mime string) bool {
	for _, blocked := range s.policy.BlockedMIMEPrefixes {
		if strings.HasPrefix(mime, blocked) {
			return false
		}
	}
	if len(s.policy.AllowedMIMEPrefixes) == 0 {
		return true
	}
	for _, allowed := range s.policy.AllowedMIMEPrefixes {
		if strings.HasPrefix(mime, allowed) {
			return true
		}
	}
	return false
}

func (s *ShareService) expiryAllowed(expiry time.Duration) bool {
	if len(s.policy.AllowedExpiryDurations) == 0 {
		return true
	}
	for _, allowed := range s.policy.AllowedExpiryDurations {
		if allowed == expiry {
			return true
		}
	}
	return false
}
