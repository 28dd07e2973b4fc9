package ai

import (
	"context"
	"errors"

	"wastewatch/pkg/types"
)

// Verify submits a completion proof. IsResolved=false comes back as a value,
// never as an error.
func (c *Client) Verify(ctx context.Context, request types.VerificationRequest) (*types.VerificationResult, error) {
	if request.OriginalImage == "" || request.ProofImage == "" {
		return nil, errors.New("original and proof images are required")
	}

	var out types.VerificationResult
	if err := c.post(ctx, "verify", c.verifyURL, request, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
