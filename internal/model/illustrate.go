package model

import (
	"context"
	"encoding/base64"

	"google.golang.org/genai"
)

// GenerateIllustration renders a simple explanatory image for the prompt and
// returns it as a data URL.
//
// An empty URL with a nil error means the model produced no image; from the
// caller's perspective absence is a normal outcome, not a fault. Errors are
// reserved for client construction and transport failures.
func (c *Client) GenerateIllustration(ctx context.Context, prompt string) (string, error) {
	api, err := c.ensureAPI(ctx)
	if err != nil {
		return "", err
	}
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	resp, err := api.Models.GenerateContent(ctx, c.cfg.ImageModel, genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE"},
		})
	if err != nil {
		return "", err
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data), nil
		}
	}

	c.logger.Warn("illustration model returned no image", "model", c.cfg.ImageModel)
	return "", nil
}
