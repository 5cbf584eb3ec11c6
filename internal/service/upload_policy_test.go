package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexacorn/hexacorn-api/internal/models"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
)

func TestPolicyFromSettings(t *testing.T) {
	settings := &models.SystemSettings{
		UploadMaxSizeMB:        5,
		UploadAllowedMimeTypes: "application/pdf, image/png",
	}
	policy := PolicyFromSettings(settings)
	assert.Equal(t, int64(5*1024*1024), policy.MaxBytes)
	assert.Len(t, policy.AllowedTypes, 2)

	fallback := PolicyFromSettings(nil)
	assert.Equal(t, int64(10*1024*1024), fallback.MaxBytes)
	assert.Empty(t, fallback.AllowedTypes)
}

func TestUploadPolicyCheck(t *testing.T) {
	policy := PolicyFromSettings(&models.SystemSettings{
		UploadMaxSizeMB:        1,
		UploadAllowedMimeTypes: "application/pdf",
	})

	require.NoError(t, policy.Check(512, "application/pdf"))
	require.NoError(t, policy.Check(512, "Application/PDF; charset=binary"))

	err := policy.Check(2*1024*1024, "application/pdf")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFileTooLarge.Code, appErrors.FromError(err).Code)

	err = policy.Check(512, "application/zip")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidFileType.Code, appErrors.FromError(err).Code)
}

func TestUploadPolicyCheckOpenList(t *testing.T) {
	policy := PolicyFromSettings(&models.SystemSettings{UploadMaxSizeMB: 1})
	assert.NoError(t, policy.Check(512, "application/anything"))
}
