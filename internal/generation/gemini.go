package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/glowlens/glowlens-api/internal/config"
)

// defaultMimeType is assumed for reference images sent without one.
const defaultMimeType = "image/jpeg"

// geminiSystemInstruction steers the model toward usable renders.
const geminiSystemInstruction = "You are an expert AI image generator. Create high-quality, detailed, visually stunning images based on user prompts. Focus on artistic composition, vivid colors, and creative interpretation."

// GeminiProvider calls the Gemini generateContent REST API.
type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiProvider builds the provider. Model, base URL and timeout carry
// defaults from the config loader.
func NewGeminiProvider(cfg config.GenerationConfig) (*GeminiProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("generation requires an api key")
	}
	return &GeminiProvider{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Model returns the model identifier stamped on generation records.
func (p *GeminiProvider) Model() string { return p.model }

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// Generate renders one image. Transport errors, non-2xx statuses and
// imageless responses all surface as ErrProviderUnavailable.
func (p *GeminiProvider) Generate(ctx context.Context, input GenerateInput) (*Image, error) {
	parts := []geminiPart{{Text: input.Prompt}}
	if strings.TrimSpace(input.ReferenceImage) != "" {
		mime := strings.TrimSpace(input.MimeType)
		if mime == "" {
			mime = defaultMimeType
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: mime, Data: input.ReferenceImage}})
	}
	payload := geminiRequest{
		Contents:          []geminiContent{{Role: "user", Parts: parts}},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: geminiSystemInstruction}}},
		GenerationConfig:  &geminiGenerationConfig{ResponseModalities: []string{"IMAGE", "TEXT"}},
	}
	body, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return nil, fmt.Errorf("generation: marshal request: %w", errMarshal)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model)
	req, errRequest := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if errRequest != nil {
		return nil, fmt.Errorf("generation: build request: %w", errRequest)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, errDo := p.client.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, errDo)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.WithError(errClose).Warn("generation: close response body failed")
		}
	}()

	raw, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProviderUnavailable, errRead)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var parsed geminiResponse
	if errUnmarshal := json.Unmarshal(raw, &parsed); errUnmarshal != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrProviderUnavailable, errUnmarshal)
	}

	image := &Image{}
	for _, candidate := range parsed.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" && image.Data == "" {
				image.Data = part.InlineData.Data
				image.MimeType = part.InlineData.MimeType
			}
			if part.Text != "" && image.Text == "" {
				image.Text = part.Text
			}
		}
	}
	if image.Data == "" {
		return nil, fmt.Errorf("%w: no image in response", ErrProviderUnavailable)
	}
	if image.MimeType == "" {
		image.MimeType = "image/png"
	}
	return image, nil
}
