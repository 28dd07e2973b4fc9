package ai

import (
	"context"
	"encoding/base64"
	"errors"

	"wastewatch/pkg/types"
)

type classifyRequest struct {
	ImageBase64 string `json:"imageBase64"`
}

// Classify asks whether image shows waste and which categories fit. A
// rejection is a normal result carried in the Classification.
func (c *Client) Classify(ctx context.Context, image []byte) (*types.Classification, error) {
	if len(image) == 0 {
		return nil, errors.New("image is required")
	}

	var out types.Classification
	err := c.post(ctx, "classify", c.classifyURL, classifyRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(image),
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.TopCategories == nil {
		out.TopCategories = []string{}
	}

	return &out, nil
}
