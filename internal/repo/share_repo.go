package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ianjiteshan/ShareSYNC/internal/apperr"
	"github.com/ianjiteshan/ShareSYNC/model"
)

// ShareListFilter narrows list_shares_by_owner (spec §4.3).
type ShareListFilter struct {
	OrderBy   string
	OrderDesc bool
	Page      int
	PageSize  int
}

// ShareRepository is the metadata repository's operation set as spec
// §4.3 enumerates it, plus FailUpload, Revoke and CountPendingUploads.
type ShareRepository interface {
	UpsertUser(ctx context.Context, externalID, email, displayName string) (*model.User, error)
	CreateSharePending(ctx context.Context, share *model.Share) error
	MarkShareAvailable(ctx context.Context, shareID string, actualSize int64) error
	FailUpload(ctx context.Context, shareID string) error
	GetShareByID(ctx context.Context, shareID string) (*model.Share, error)
	ListSharesByOwner(ctx context.Context, ownerUserID uint64, filter ShareListFilter) ([]model.Share, error)
	IncrementDownloadCount(ctx context.Context, shareID string, now time.Time) (*model.Share, error)
	SetPasswordHash(ctx context.Context, shareID, hash string) error
	TransitionToExpired(ctx context.Context, batchSize int, grace time.Duration, now time.Time) ([]model.Share, error)
	TransitionToDeleted(ctx context.Context, shareID string) error
	HardDelete(ctx context.Context, olderThan time.Time) (int64, error)
	AppendDownloadEvent(ctx context.Context, shareID uint64, requesterHash string, at time.Time) error
	Revoke(ctx context.Context, shareID string, ownerExternalID *uint64) (*model.Share, error)
	CountPendingUploads(ctx context.Context, ownerUserID uint64) (int64, error)
}

// GormShareRepository is the GORM/MySQL-backed ShareRepository,
// grounded on the teacher's internal/repo/mysql.go connection setup
// and internal/service/share_file.go / file_object.go's atomic
// gorm.Expr update pattern.
type GormShareRepository struct {
	db *gorm.DB
}

// NewGormShareRepository wraps an open *gorm.DB.
func NewGormShareRepository(db *gorm.DB) *GormShareRepository {
	return &GormShareRepository{db: db}
}

func (r *GormShareRepository) UpsertUser(ctx context.Context, externalID, email, displayName string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error
	if err == nil {
		updates := map[string]interface{}{}
		if email != "" && email != user.Email {
			updates["email"] = email
		}
		if displayName != "" && displayName != user.DisplayName {
			updates["display_name"] = displayName
		}
		if len(updates) > 0 {
			if err := r.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
				return nil, apperr.Wrap(apperr.Unavailable, "update user", err)
			}
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.Unavailable, "lookup user", err)
	}

	user = model.User{ExternalID: externalID, Email: email, DisplayName: displayName}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "create user", err)
	}
	return &user, nil
}

func (r *GormShareRepository) CreateSharePending(ctx context.Context, share *model.Share) error {
	share.State = model.ShareStatePendingUpload
	if err := r.db.WithContext(ctx).Create(share).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return apperr.New(apperr.Internal, "share_id collision: id generator misconfigured")
		}
		return apperr.Wrap(apperr.Unavailable, "create pending share", err)
	}
	return nil
}

func (r *GormShareRepository) MarkShareAvailable(ctx context.Context, shareID string, actualSize int64) error {
	result := r.db.WithContext(ctx).Model(&model.Share{}).
		Where("share_id = ? AND state = ?", shareID, model.ShareStatePendingUpload).
		Updates(map[string]interface{}{
			"state":      model.ShareStateAvailable,
			"size_bytes": actualSize,
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return apperr.Wrap(apperr.Unavailable, "mark share available", result.Error)
	}
	if result.RowsAffected == 0 {
		// finalize_upload is idempotent: a second call after success
		// is a no-op, not an error, as long as the share exists.
		var share model.Share
		if err := r.db.WithContext(ctx).Where("share_id = ?", shareID).First(&share).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "share not found")
			}
			return apperr.Wrap(apperr.Unavailable, "lookup share", err)
		}
		if share.State == model.ShareStateAvailable {
			return nil
		}
		return apperr.New(apperr.InvalidState, "share is not pending upload")
	}
	return nil
}

// FailUpload transitions a share straight from pending_upload to
// deleted, used when finalize_upload finds the object missing or
// size-mismatched (spec §4.2: "fails with upload_not_found"). Unlike
// the sweeper's expired->deleted path, no object deletion task is
// enqueued here, so an object that did land at a mismatched or
// oversize size stays in the object store.
func (r *GormShareRepository) FailUpload(ctx context.Context, shareID string) error {
	result := r.db.WithContext(ctx).Model(&model.Share{}).
		Where("share_id = ? AND state = ?", shareID, model.ShareStatePendingUpload).
		Updates(map[string]interface{}{
			"state":      model.ShareStateDeleted,
			"deleted_at": timeNow(),
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return apperr.Wrap(apperr.Unavailable, "fail upload", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "share not found or not pending upload")
	}
	return nil
}

func (r *GormShareRepository) GetShareByID(ctx context.Context, shareID string) (*model.Share, error) {
	var share model.Share
	err := r.db.WithContext(ctx).Where("share_id = ?", shareID).First(&share).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "share not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "lookup share", err)
	}
	return &share, nil
}

func (r *GormShareRepository) ListSharesByOwner(ctx context.Context, ownerUserID uint64, filter ShareListFilter) ([]model.Share, error) {
	orderCol := sanitizeOrderBy(filter.OrderBy)
	if orderCol == "" {
		orderCol = "created_at"
	}
	direction := "asc"
	if filter.OrderDesc {
		direction = "desc"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}

	var shares []model.Share
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ? AND state != ?", ownerUserID, model.ShareStateDeleted).
		Order(orderCol + " " + direction).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&shares).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "list shares", err)
	}
	return shares, nil
}

// IncrementDownloadCount performs spec §4.3's transactional guard:
// inside one transaction the row is read and its state, expiry and
// download limit are checked, then the increment is a conditional
// UPDATE guarded by the version that was read, so a concurrent sweeper
// transition and a concurrent download never interleave unsafely.
func (r *GormShareRepository) IncrementDownloadCount(ctx context.Context, shareID string, now time.Time) (*model.Share, error) {
	var updated model.Share
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var share model.Share
		if err := tx.Where("share_id = ?", shareID).First(&share).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "share not found")
			}
			return apperr.Wrap(apperr.Unavailable, "lookup share", err)
		}
		if share.State != model.ShareStateAvailable {
			return apperr.New(apperr.Gone, "share is not available")
		}
		if share.IsExpiredAt(now) {
			return apperr.New(apperr.Expired, "share has expired")
		}
		if share.DownloadLimitReached() {
			return apperr.New(apperr.QuotaExceeded, "download limit reached")
		}

		result := tx.Model(&model.Share{}).
			Where("share_id = ? AND version = ?", shareID, share.Version).
			Updates(map[string]interface{}{
				"download_count": gorm.Expr("download_count + 1"),
				"version":        gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return apperr.Wrap(apperr.Unavailable, "increment download count", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.Unavailable, "concurrent update, retry")
		}
		if err := tx.Where("share_id = ?", shareID).First(&updated).Error; err != nil {
			return apperr.Wrap(apperr.Unavailable, "reload share", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *GormShareRepository) SetPasswordHash(ctx context.Context, shareID, hash string) error {
	result := r.db.WithContext(ctx).Model(&model.Share{}).
		Where("share_id = ?", shareID).
		Updates(map[string]interface{}{"password_hash": hash, "version": gorm.Expr("version + 1")})
	if result.Error != nil {
		return apperr.Wrap(apperr.Unavailable, "set password hash", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "share not found")
	}
	return nil
}

// TransitionToExpired selects a bounded batch with
// SELECT ... FOR UPDATE SKIP LOCKED so concurrent sweeper instances
// never contend for the same rows (spec §4.4 idempotence note).
func (r *GormShareRepository) TransitionToExpired(ctx context.Context, batchSize int, grace time.Duration, now time.Time) ([]model.Share, error) {
	var batch []model.Share
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cutoff := now.Add(-grace)
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("state IN ? AND expires_at <= ?", []model.ShareState{model.ShareStatePendingUpload, model.ShareStateAvailable}, cutoff).
			Order("expires_at asc").
			Limit(batchSize).
			Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]uint64, 0, len(batch))
		for i := range batch {
			batch[i].State = model.ShareStateExpired
			ids = append(ids, batch[i].ID)
		}
		return tx.Model(&model.Share{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{"state": model.ShareStateExpired, "version": gorm.Expr("version + 1")}).Error
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "transition to expired", err)
	}
	return batch, nil
}

func (r *GormShareRepository) TransitionToDeleted(ctx context.Context, shareID string) error {
	now := timeNow()
	result := r.db.WithContext(ctx).Model(&model.Share{}).
		Where("share_id = ? AND state = ?", shareID, model.ShareStateExpired).
		Updates(map[string]interface{}{"state": model.ShareStateDeleted, "deleted_at": now, "version": gorm.Expr("version + 1")})
	if result.Error != nil {
		return apperr.Wrap(apperr.Unavailable, "transition to deleted", result.Error)
	}
	return nil
}

func (r *GormShareRepository) HardDelete(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("state = ? AND deleted_at <= ?", model.ShareStateDeleted, olderThan).
		Delete(&model.Share{})
	if result.Error != nil {
		return 0, apperr.Wrap(apperr.Unavailable, "hard delete", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *GormShareRepository) AppendDownloadEvent(ctx context.Context, shareID uint64, requesterHash string, at time.Time) error {
	event := model.DownloadEvent{ShareID: shareID, RequesterHash: requesterHash, At: at}
	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		return apperr.Wrap(apperr.Unavailable, "append download event", err)
	}
	return nil
}

// Revoke is owner-only: ownerUserID nil means the caller is
// anonymous, which can never revoke an owned share. The returned share
// reflects its storage_key and share_id as they stood immediately
// before the transition, so the caller can enqueue the matching
// object-deletion task.
func (r *GormShareRepository) Revoke(ctx context.Context, shareID string, ownerUserID *uint64) (*model.Share, error) {
	share, err := r.GetShareByID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if share.OwnerUserID == nil || ownerUserID == nil || *share.OwnerUserID != *ownerUserID {
		return nil, apperr.New(apperr.Forbidden, "only the owner may revoke a share")
	}
	if share.State == model.ShareStateDeleted {
		return nil, apperr.New(apperr.InvalidState, "share already deleted")
	}
	result := r.db.WithContext(ctx).Model(&model.Share{}).
		Where("share_id = ? AND version = ?", shareID, share.Version).
		Updates(map[string]interface{}{"state": model.ShareStateDeleted, "deleted_at": timeNow(), "version": gorm.Expr("version + 1")})
	if result.Error != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "revoke share", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.New(apperr.Unavailable, "concurrent update, retry")
	}
	share.State = model.ShareStateDeleted
	return share, nil
}

// CountPendingUploads backs the per-user in-flight upload cap (spec
// §4.2 policy parameters).
func (r *GormShareRepository) CountPendingUploads(ctx context.Context, ownerUserID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Share{}).
		Where("owner_user_id = ? AND state = ?", ownerUserID, model.ShareStatePendingUpload).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Wrap(apperr.Unavailable, "count pending uploads", err)
	}
	return count, nil
}

func isDuplicateKeyErr(err error) bool {
	return err != nil && (errors.Is(err, gorm.ErrDuplicatedKey))
}

// timeNow is a seam so tests could substitute a fixed clock; kept as
// a direct call in production code paths.
func timeNow() time.Time { return time.Now() }
