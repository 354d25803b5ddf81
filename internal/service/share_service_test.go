package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ianjiteshan/ShareSYNC/internal/apperr"
	"github.com/ianjiteshan/ShareSYNC/internal/repo"
	"github.com/ianjiteshan/ShareSYNC/internal/storage"
	"github.com/ianjiteshan/ShareSYNC/model"
)

// fakeRepo is an in-memory stand-in for repo.ShareRepository, keyed
// by share_id, good enough to exercise every ShareService branch
// without a database.
type fakeRepo struct {
	mu      sync.Mutex
	shares  map[string]*model.Share
	users   map[string]*model.User
	nextID  uint64
	pending map[uint64]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		shares:  make(map[string]*model.Share),
		users:   make(map[string]*model.User),
		pending: make(map[uint64]int),
	}
}

func (r *fakeRepo) UpsertUser(_ context.Context, externalID, email, displayName string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[externalID]; ok {
		return u, nil
	}
	r.nextID++
	u := &model.User{ID: r.nextID, ExternalID: externalID, Email: email, DisplayName: displayName}
	r.users[externalID] = u
	return u, nil
}

func (r *fakeRepo) CreateSharePending(_ context.Context, share *model.Share) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	share.State = model.ShareStatePendingUpload
	r.nextID++
	share.ID = r.nextID
	cp := *share
	r.shares[share.ShareID] = &cp
	if share.OwnerUserID != nil {
		r.pending[*share.OwnerUserID]++
	}
	return nil
}

func (r *fakeRepo) MarkShareAvailable(_ context.Context, shareID string, actualSize int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	share, ok := r.shares[shareID]
	if !ok {
		return apperr.New(apperr.NotFound, "share not found")
	}
	if share.State != model.ShareStatePendingUpload {
		return apperr.New(apperr.InvalidState, "share is not pending upload")
	}
	share.State = model.ShareStateAvailable
	share.SizeBytes = actualSize
	return nil
}

func (r *fakeRepo) FailUpload(_ context.Context, shareID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	share, ok := r.shares[shareID]
	if !ok || share.State != model.ShareStatePendingUpload {
		return apperr.New(apperr.NotFound, "share not found or not pending upload")
	}
	share.State = model.ShareStateDeleted
	return nil
}

func (r *fakeRepo) GetShareByID(_ context.Context, shareID string) (*model.Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	share, ok := r.shares[shareID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "share not found")
	}
	cp := *share
	return &cp, nil
}

func (r *fakeRepo) ListSharesByOwner(_ context.Context, ownerUserID uint64, _ repo.ShareListFilter) ([]model.Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Share
	for _, s := range r.shares {
		if s.OwnerUserID != nil && *s.OwnerUserID == ownerUserID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeRepo) IncrementDownloadCount(_ context.Context, shareID string, now time.Time) (*model.Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	share, ok := r.shares[shareID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "share not found")
	}
	if share.State != model.ShareStateAvailable {
		return nil, apperr.New(apperr.Gone, "share is not available")
	}
	if share.IsExpiredAt(now) {
		return nil, apperr.New(apperr.Expired, "share has expired")
	}
	share.DownloadCount++
	cp := *share
	return &cp, nil
}

func (r *fakeRepo) SetPasswordHash(_ context.Context, shareID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	share, ok := r.shares[shareID]
	if !ok {
		return apperr.New(apperr.NotFound, "share not found")
	}
	share.PasswordHash = hash
	return nil
}

func (r *fakeRepo) TransitionToExpired(context.Context, int, time.Duration, time.Time) ([]model.Share, error) {
	return nil, nil
}

func (r *fakeRepo) TransitionToDeleted(_ context.Context, shareID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	share, ok := r.shares[shareID]
	if !ok {
		return nil
	}
	share.State = model.ShareStateDeleted
	return nil
}

func (r *fakeRepo) HardDelete(context.Context, time.Time) (int64, error) { return 0, nil }

func (r *fakeRepo) AppendDownloadEvent(context.Context, uint64, string, time.Time) error { return nil }

func (r *fakeRepo) Revoke(_ context.Context, shareID string, ownerUserID *uint64) (*model.Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	share, ok := r.shares[shareID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "share not found")
	}
	if share.OwnerUserID == nil || ownerUserID == nil || *share.OwnerUserID != *ownerUserID {
		return nil, apperr.New(apperr.Forbidden, "only the owner may revoke a share")
	}
	share.State = model.ShareStateDeleted
	cp := *share
	return &cp, nil
}

func (r *fakeRepo) CountPendingUploads(_ context.Context, ownerUserID uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(r.pending[ownerUserID]), nil
}

// fakeStore is an in-memory stand-in for storage.Store.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]int64)}
}

func (s *fakeStore) putObject(key string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = size
}

func (s *fakeStore) PresignedPutObject(_ context.Context, _, object string, _ time.Duration, _ storage.PresignPutOptions) (string, map[string]string, error) {
	return "https://upload.example/" + object, map[string]string{"key": object}, nil
}

func (s *fakeStore) PresignedGetObject(_ context.Context, _, object string, _ time.Duration, _ string) (string, error) {
	return "https://download.example/" + object, nil
}

func (s *fakeStore) StatObject(_ context.Context, _, object string) (storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	size, ok := s.objects[object]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrNotExist
	}
	return storage.ObjectInfo{Size: size}, nil
}

func (s *fakeStore) RemoveObject(_ context.Context, _, object string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, object)
	return nil
}

func testPolicy() Policy {
	return Policy{
		Bucket:                 "test-bucket",
		MaxObjectSizeBytes:     1024,
		AllowedExpiryDurations: []time.Duration{time.Hour, 24 * time.Hour},
		UploadURLTTL:           15 * time.Minute,
		DownloadURLTTL:         5 * time.Minute,
		PerUserQuotaBytes:      10 * 1024,
		PerUserInFlightCap:     2,
		AllowAnonymousShares:   true,
	}
}

func TestIssueUploadRejectsOversize(t *testing.T) {
	svc := NewShareService(newFakeRepo(), newFakeStore(), testPolicy())
	_, err := svc.IssueUpload(context.Background(), nil, 0, "big.bin", 2048, "application/octet-stream", time.Hour)
	appErr := apperr.As(err)
	if appErr == nil || appErr.Code != apperr.Oversize {
		t.Fatalf("expected Oversize, got %v", err)
	}
}

func TestIssueUploadRejectsDisallowedExpiry(t *testing.T) {
	svc := NewShareService(newFakeRepo(), newFakeStore(), testPolicy())
	_, err := svc.IssueUpload(context.Background(), nil, 0, "a.txt", 10, "text/plain", 10*time.Minute)
	appErr := apperr.As(err)
	if appErr == nil || appErr.Code != apperr.ValidationFailed {
		t.Fatalf("expected ValidationFailed for a non-whitelisted expiry, got %v", err)
	}
}

func TestIssueUploadRejectsAnonymousWhenDisabled(t *testing.T) {
	policy := testPolicy()
	policy.AllowAnonymousShares = false
	svc := NewShareService(newFakeRepo(), newFakeStore(), policy)
	_, err := svc.IssueUpload(context.Background(), nil, 0, "a.txt", 10, "text/plain", time.Hour)
	appErr := apperr.As(err)
	if appErr == nil || appErr.Code != apperr.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}

func TestIssueUploadEnforcesPerUserQuota(t *testing.T) {
	svc := NewShareService(newFakeRepo(), newFakeStore(), testPolicy())
	owner := uint64(1)
	_, err := svc.IssueUpload(context.Background(), &owner, 9*1024+1, "a.txt", 1024, "text/plain", time.Hour)
	appErr := apperr.As(err)
	if appErr == nil || appErr.Code != apperr.QuotaExceeded {
		t.Fatalf("expected QuotaExceeded, got %v", err)
	}
}

func TestIssueUploadEnforcesInFlightCap(t *testing.T) {
	fr := newFakeRepo()
	svc := NewShareService(fr, newFakeStore(), testPolicy())
	owner := uint64(1)

	for i := 0; i < 2; i++ {
		if _, err := svc.IssueUpload(context.Background(), &owner, 0, "a.txt", 10, "text/plain", time.Hour); err != nil {
			t.Fatalf("warm-up upload %d failed: %v", i, err)
		}
	}

	_, err := svc.IssueUpload(context.Background(), &owner, 0, "a.txt", 10, "text/plain", time.Hour)
	appErr := apperr.As(err)
	if appErr == nil || appErr.Code != apperr.QuotaExceeded {
		t.Fatalf("expected the third in-flight upload to be rejected, got %v", err)
	}
}

func TestFinalizeUploadHappyPath(t *testing.T) {
	fr := newFakeRepo()
	fs := newFakeStore()
	svc := NewShareService(fr, fs, testPolicy())

	result, err := svc.IssueUpload(context.Background(), nil, 0, "a.txt", 10, "text/plain", time.Hour)
	if err != nil {
		t.Fatalf("issue upload: %v", err)
	}

	share, _ := fr.GetShareByID(context.Background(), result.ShareID)
	fs.putObject(share.StorageKey, 10)

	finalized, err := svc.FinalizeUpload(context.Background(), result.ShareID, 10)
	if err != nil {
		t.Fatalf("finalize upload: %v", err)
	}
	if finalized.State != model.ShareStateAvailable {
		t.Fatalf("expected state available, got %s", finalized.State)
	}
}

func TestFinalizeUploadMissingObjectFailsUpload(t *testing.T) {
	fr := newFakeRepo()
	svc := NewShareService(fr, newFakeStore(), testPolicy())

	result, err := svc.IssueUpload(context.Background(), nil, 0, "a.txt", 10, "text/plain", time.Hour)
	if err != nil {
		t.Fatalf("issue upload: %v", err)
	}

	_, err = svc.FinalizeUpload(context.Background(), result.ShareID, 10)
	appErr := apperr.As(err)
	if appErr == nil || appErr.Code != apperr.NotFound {
		t.Fatalf("expected NotFound (upload_not_found), got %v", err)
	}

	share, _ := fr.GetShareByID(context.Background(), result.ShareID)
	if share.State != model.ShareStateDeleted {
		t.Fatalf("expected share to transition to deleted on failed finalize, got %s", share.State)
	}
}

func TestFinalizeUploadIsIdempotent(t *testing.T) {
	fr := newFakeRepo()
	fs := newFakeStore()
	svc := NewShareService(fr, fs, testPolicy())

	result, _ := svc.IssueUpload(context.Background(), nil, 0, "a.txt", 10, "text/plain", time.Hour)
	share, _ := fr.GetShareByID(context.Background(), result.ShareID)
	fs.putObject(share.StorageKey, 10)

	if _, err := svc.FinalizeUpload(context.Background(), result.ShareID, 10); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if _, err := svc.FinalizeUpload(context.Background(), result.ShareID, 10); err != nil {
		t.Fatalf("second (idempotent) finalize: %v", err)
	}
}

func TestIssueDownloadRequiresPassword(t *testing.T) {
	fr := newFakeRepo()
	fs := newFakeStore()
	svc := NewShareService(fr, fs, testPolicy())

	result, _ := svc.IssueUpload(context.Background(), nil, 0, "a.txt", 10, "text/plain", time.Hour)
	share, _ := fr.GetShareByID(context.Background(), result.ShareID)
	fs.putObject(share.StorageKey, 10)
	svc.FinalizeUpload(context.Background(), result.ShareID, 10)
	if err := svc.SetPassword(context.Background(), result.ShareID, "sekret"); err != nil {
		t.Fatalf("set password: %v", err)
	}

	_, err := svc.IssueDownload(context.Background(), result.ShareID, "", "hashed-ip")
	appErr := apperr.As(err)
	if appErr == nil || appErr.Code != apperr.PasswordRequired {
		t.Fatalf("expected PasswordRequired, got %v", err)
	}

	_, err = svc.IssueDownload(context.Background(), result.ShareID, "wrong", "hashed-ip")
	appErr = apperr.As(err)
	if appErr == nil || appErr.Code != apperr.PasswordIncorrect {
		t.Fatalf("expected PasswordIncorrect, got %v", err)
	}

	dl, err := svc.IssueDownload(context.Background(), result.ShareID, "sekret", "hashed-ip")
	if err != nil {
		t.Fatalf("expected correct password to succeed, got %v", err)
	}
	if dl.Filename != "a.txt" {
		t.Fatalf("expected filename a.txt, got %s", dl.Filename)
	}
}

func TestIssueDownloadRejectsExpiredShare(t *testing.T) {
	fr := newFakeRepo()
	fs := newFakeStore()
	svc := NewShareService(fr, fs, testPolicy())

	result, _ := svc.IssueUpload(context.Background(), nil, 0, "a.txt", 10, "text/plain", time.Hour)
	share, _ := fr.GetShareByID(context.Background(), result.ShareID)
	fs.putObject(share.StorageKey, 10)
	svc.FinalizeUpload(context.Background(), result.ShareID, 10)

	fr.mu.Lock()
	fr.shares[result.ShareID].ExpiresAt = time.Now().Add(-time.Minute)
	fr.mu.Unlock()

	_, err := svc.IssueDownload(context.Background(), result.ShareID, "", "hashed-ip")
	appErr := apperr.As(err)
	if appErr == nil || appErr.Code != apperr.Expired {
		t.Fatalf("expected Expired, got %v", err)
	}
}

func TestRevokeRejectsNonOwner(t *testing.T) {
	fr := newFakeRepo()
	svc := NewShareService(fr, newFakeStore(), testPolicy())

	owner := uint64(1)
	result, _ := svc.IssueUpload(context.Background(), &owner, 0, "a.txt", 10, "text/plain", time.Hour)

	stranger := uint64(2)
	err := svc.Revoke(context.Background(), result.ShareID, &stranger)
	appErr := apperr.As(err)
	if appErr == nil || appErr.Code != apperr.Forbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}
