package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"waccamaw/internal/config"
	"waccamaw/internal/domain/facefocus"
)

// PhotoUploader forwards a photo to the API.
type PhotoUploader interface {
	UploadPhoto(ctx context.Context, filename, contentType string, r io.Reader) error
}

// FocusInvalidator forgets a memoised focus position.
type FocusInvalidator interface {
	Invalidate(key string)
}

// Domain errors
var (
	ErrPhotoDisabled = errors.New("Photo upload is not available.")
	ErrPhotoMissing  = errors.New("Please select a photo to upload.")
	ErrPhotoType     = errors.New("invalid photo type")
	ErrPhotoTooLarge = errors.New("photo too large")
)

// PhotoRejectedError is a validation failure with the message to show.
// It unwraps to ErrPhotoType or ErrPhotoTooLarge.
type PhotoRejectedError struct {
	Reason  error
	Message string
}

func (e *PhotoRejectedError) Error() string { return e.Message }

func (e *PhotoRejectedError) Unwrap() error { return e.Reason }

// UploadPhotoInput carries one uploaded file.
type UploadPhotoInput struct {
	MemberID    string
	Filename    string
	ContentType string
	Size        int64
	File        io.Reader
}

// UploadPhotoDeps holds dependencies for UploadPhoto.
type UploadPhotoDeps struct {
	API      PhotoUploader
	Focus    FocusInvalidator
	Features config.Features
}

// ExecuteUploadPhoto validates and forwards a member photo.
// PRE: the caller's context carries the session token
// POST: on success the member's focus position is recomputed on next view
func ExecuteUploadPhoto(ctx context.Context, input UploadPhotoInput, deps UploadPhotoDeps) error {
	if !deps.Features.PhotoUpload {
		return ErrPhotoDisabled
	}
	if input.File == nil || input.Size == 0 {
		return ErrPhotoMissing
	}
	if !deps.Features.AllowsPhotoType(input.ContentType) {
		return &PhotoRejectedError{
			Reason:  ErrPhotoType,
			Message: "Invalid file type. Please upload: " + strings.Join(deps.Features.PhotoAllowedTypes, ", "),
		}
	}
	if input.Size > deps.Features.PhotoMaxSize {
		mb := strconv.FormatFloat(float64(deps.Features.PhotoMaxSize)/(1024*1024), 'f', -1, 64)
		return &PhotoRejectedError{
			Reason:  ErrPhotoTooLarge,
			Message: fmt.Sprintf("File too large. Maximum size is %sMB.", mb),
		}
	}

	// Guard against a Size header that understates the body.
	body := io.LimitReader(input.File, deps.Features.PhotoMaxSize+1)
	if err := deps.API.UploadPhoto(ctx, input.Filename, input.ContentType, body); err != nil {
		slog.Warn("photo_upload_failed", "member_id", input.MemberID, "error", err)
		return err
	}
	if deps.Focus != nil && input.MemberID != "" {
		deps.Focus.Invalidate(facefocus.MemberKey(input.MemberID))
	}
	slog.Info("photo_uploaded", "member_id", input.MemberID, "bytes", input.Size)
	return nil
}
