// Package dto holds the public API's request/response shapes,
// validated with go-playground/validator/v10 via gin's binding tags,
// grounded on teacher's internal/dto request/response structs.
package dto

import "time"

// PresignUploadRequest is POST /upload/presign's body.
type PresignUploadRequest struct {
	OriginalName string `json:"original_name" binding:"required"`
	SizeBytes    int64  `json:"size_bytes" binding:"required,gt=0"`
	MimeType     string `json:"mime_type" binding:"required"`
	ExpirySeconds int64 `json:"expiry_seconds" binding:"required,gt=0"`
}

// PresignUploadResponse is issue_upload's wire shape. The client
// submits the object as a multipart/form-data POST to UploadURL,
// with UploadFields included as additional form fields ahead of the
// file field itself; the object store rejects the upload if it
// violates the size/content-type constraint embedded in those fields.
type PresignUploadResponse struct {
	ShareID      string            `json:"share_id"`
	UploadURL    string            `json:"upload_url"`
	UploadMethod string            `json:"upload_method"`
	ExpiresAt    time.Time         `json:"expires_at"`
	UploadFields map[string]string `json:"upload_fields"`
}

// FinalizeUploadRequest is POST /upload/finalize's body.
type FinalizeUploadRequest struct {
	ShareID    string `json:"share_id" binding:"required"`
	ActualSize int64  `json:"actual_size" binding:"required,gt=0"`
}

// ShareMetadataResponse is GET /share/{share_id}'s body: metadata
// only, never a presigned URL.
type ShareMetadataResponse struct {
	ShareID      string    `json:"share_id"`
	OriginalName string    `json:"original_name"`
	SizeBytes    int64     `json:"size_bytes"`
	MimeType     string    `json:"mime_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	HasPassword  bool      `json:"has_password"`
}

// DownloadRequest is POST /share/{share_id}/download's body.
type DownloadRequest struct {
	Password string `json:"password,omitempty"`
}

// DownloadResponse is issue_download's wire shape.
type DownloadResponse struct {
	DownloadURL string    `json:"download_url"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ShareListItem is one row of GET /files.
type ShareListItem struct {
	ShareID       string    `json:"share_id"`
	OriginalName  string    `json:"original_name"`
	SizeBytes     int64     `json:"size_bytes"`
	State         string    `json:"state"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	DownloadCount int64     `json:"download_count"`
}

// ShareListResponse is GET /files's body.
type ShareListResponse struct {
	Shares []ShareListItem `json:"shares"`
	Page   int             `json:"page"`
}

// SetPasswordRequest lets an owner gate a share with a password.
type SetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=4"`
}

// ErrorResponse is the uniform error envelope spec §6 requires:
// {error: {code, message}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the taxonomy code and a human-readable message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
