// Package generation turns entitlement-checked requests into rendered
// images. The provider boundary is a single call; everything about quotas,
// debits and records stays in the entitlement ledger.
package generation

import (
	"context"
	"errors"
)

// ErrProviderUnavailable wraps failures of the image provider API.
var ErrProviderUnavailable = errors.New("image provider unavailable")

// GenerateInput is a single provider request. The reference image, when
// present, is base64 without a data-URL prefix.
type GenerateInput struct {
	Prompt         string
	ReferenceImage string
	MimeType       string
}

// Image is a provider result.
type Image struct {
	Data     string
	MimeType string
	Text     string
}

// ImageProvider renders one image per call.
type ImageProvider interface {
	Generate(ctx context.Context, input GenerateInput) (*Image, error)
	Model() string
}
