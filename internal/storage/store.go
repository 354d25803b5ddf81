// Package storage defines the narrow S3-like capability the object-
// storage gateway consumes: presigned upload (a POST policy) and GET,
// existence check, and delete. The external object store itself is out of scope (spec §1);
// this package only speaks to it through minio-go.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotExist is returned by StatObject when the object is absent;
// finalize_upload treats this as upload_not_found, and a sweeper
// deletion retry treats it as success (spec §4.4 idempotence).
var ErrNotExist = errors.New("object does not exist")

// ObjectInfo is the subset of object metadata the gateway needs from
// a HEAD/Stat call.
type ObjectInfo struct {
	Size int64
}

// PresignPutOptions scopes an upload presign to exactly one object,
// one content-length range, and an optional content-type constraint,
// per spec §4.2's "presign PUT (with content-length-range and
// optional content-type constraint)".
type PresignPutOptions struct {
	ContentType string
	MaxSizeBytes int64
}

// Store abstracts the object store behind exactly the four operations
// spec §1 names: PresignPut, PresignGet, Delete, Exists (Exists here
// being StatObject, which also yields size for finalize_upload).
//
// PresignedPutObject returns a POST url plus the form fields the
// caller must submit alongside the object body: S3-compatible
// presigned PUT URLs carry no content-length-range or content-type
// constraint, so the upload credential that actually enforces
// PresignPutOptions is a presigned POST policy instead.
type Store interface {
	PresignedPutObject(ctx context.Context, bucket, object string, expiry time.Duration, opts PresignPutOptions) (url string, formFields map[string]string, err error)
	PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, responseFilename string) (string, error)
	StatObject(ctx context.Context, bucket, object string) (ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, object string) error
}
