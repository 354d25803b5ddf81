package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements Store against a MinIO/S3-compatible cluster.
type MinioStore struct {
	client *minio.Client
}

// NewMinioStore builds a Store from an already-dialed MinIO client.
func NewMinioStore(client *minio.Client) *MinioStore {
	return &MinioStore{client: client}
}

// Dial connects to the object store and ensures bucket exists,
// mirroring the teacher's InitMinio bucket-create-if-missing logic.
func Dial(ctx context.Context, endpoint, accessKey, secretKey string, useTLS bool, bucket string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useTLS,
	})
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return NewMinioStore(client), nil
}

// PresignedPutObject returns a presigned POST policy scoped to
// exactly one object, one content-length range, and (if set) a
// content-type, per spec §4.2/§6's "content-length-range and optional
// content-type constraint". minio-go's PresignedPutObject takes no
// such constraint; PresignedPostPolicy is the library's mechanism for
// embedding one into the credential itself, so the client's upload is
// rejected by the object store rather than trusted to be honest.
func (s *MinioStore) PresignedPutObject(ctx context.Context, bucket, object string, expiry time.Duration, opts PresignPutOptions) (string, map[string]string, error) {
	policy := minio.NewPostPolicy()
	if err := policy.SetBucket(bucket); err != nil {
		return "", nil, err
	}
	if err := policy.SetKey(object); err != nil {
		return "", nil, err
	}
	if err := policy.SetExpires(time.Now().UTC().Add(expiry)); err != nil {
		return "", nil, err
	}
	if opts.ContentType != "" {
		if err := policy.SetContentType(opts.ContentType); err != nil {
			return "", nil, err
		}
	}
	if opts.MaxSizeBytes > 0 {
		if err := policy.SetContentLengthRange(1, opts.MaxSizeBytes); err != nil {
			return "", nil, err
		}
	}

	u, formData, err := s.client.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return "", nil, err
	}
	return u.String(), formData, nil
}

// PresignedGetObject returns a presigned GET URL, optionally
// overriding the filename the browser sees via
// response-content-disposition (spec §6).
func (s *MinioStore) PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, responseFilename string) (string, error) {
	var reqParams url.Values
	if responseFilename != "" {
		reqParams = url.Values{}
		reqParams.Set("response-content-disposition", fmt.Sprintf(`attachment; filename="%s"`, responseFilename))
	}
	u, err := s.client.PresignedGetObject(ctx, bucket, object, expiry, reqParams)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// StatObject implements Exists/HEAD: finalize_upload uses this to
// confirm the upload landed at the expected size. The deletion worker
// does not call it; it relies on RemoveObject succeeding for a
// missing key.
func (s *MinioStore) StatObject(ctx context.Context, bucket, object string) (ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, bucket, object, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ObjectInfo{}, ErrNotExist
		}
		return ObjectInfo{}, err
	}
	return ObjectInfo{Size: info.Size}, nil
}

// RemoveObject deletes an object; deleting a nonexistent object is
// success per spec §4.4's idempotence requirement (minio-go does not
// error on a missing key for RemoveObject).
func (s *MinioStore) RemoveObject(ctx context.Context, bucket, object string) error {
	return s.client.RemoveObject(ctx, bucket, object, minio.RemoveObjectOptions{})
}
