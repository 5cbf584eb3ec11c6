package service

import (
	"fmt"
	"strings"

	"github.com/hexacorn/hexacorn-api/internal/models"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
)

// UploadPolicy is the effective upload constraint derived from system settings.
type UploadPolicy struct {
	MaxBytes     int64
	AllowedTypes map[string]struct{}
}

// PolicyFromSettings builds the policy from the settings row. An empty allowed
// list admits any type; a non-positive size falls back to 10 MB.
func PolicyFromSettings(settings *models.SystemSettings) UploadPolicy {
	maxMB := 10
	allowed := ""
	if settings != nil {
		if settings.UploadMaxSizeMB > 0 {
			maxMB = settings.UploadMaxSizeMB
		}
		allowed = settings.UploadAllowedMimeTypes
	}
	policy := UploadPolicy{MaxBytes: int64(maxMB) * 1024 * 1024}
	for _, part := range strings.Split(allowed, ",") {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed == "" {
			continue
		}
		if policy.AllowedTypes == nil {
			policy.AllowedTypes = make(map[string]struct{})
		}
		policy.AllowedTypes[trimmed] = struct{}{}
	}
	return policy
}

// Check validates an upload before anything is written. It returns
// FILE_TOO_LARGE or INVALID_FILE_TYPE so a rejected upload leaves no blob and
// no metadata row.
func (p UploadPolicy) Check(size int64, mimeType string) error {
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return appErrors.WithDetails(appErrors.ErrFileTooLarge, map[string]interface{}{
			"max_bytes": p.MaxBytes,
			"size":      size,
		})
	}
	if len(p.AllowedTypes) == 0 {
		return nil
	}
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(normalized, ";"); idx >= 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	if _, ok := p.AllowedTypes[normalized]; !ok {
		return appErrors.WithDetails(appErrors.ErrInvalidFileType, map[string]interface{}{
			"mime_type": mimeType,
		})
	}
	return nil
}

// MaxMB reports the limit in whole megabytes for display purposes.
func (p UploadPolicy) MaxMB() string {
	return fmt.Sprintf("%dMB", p.MaxBytes/(1024*1024))
}
