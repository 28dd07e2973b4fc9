package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
)

type transcribeRequest struct {
	AudioBase64 string `json:"audioBase64"`
}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
}

func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("audio is required")
	}

	var out transcribeResponse
	err := c.post(ctx, "transcribe", c.transcribeURL, transcribeRequest{
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
	}, &out)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(out.Transcript), nil
}
