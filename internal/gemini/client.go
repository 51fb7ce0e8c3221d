// Package gemini adapts core.SpeechRequest to the Gemini generative speech API.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/core"
	"google.golang.org/genai"
)

const generatorName = "gemini"

// Static errors.
var (
	ErrAPIKeyMissing = errors.New("gemini api key is not configured")
	ErrNoCandidates  = errors.New("no candidates")
	ErrNoParts       = errors.New("first candidate has no content parts")
	ErrNoInlineData  = errors.New("first part has no inline audio data")
)

// Config holds the settings needed to reach the upstream service.
type Config struct {
	APIKey  string
	BaseURL string
}

// Client generates speech through the Gemini API. It holds only the credential
// and is safe for concurrent use.
type Client struct {
	models *genai.Models
	log    *logger.Logger
}

// NewClient builds a Client. A missing API key is not fatal here: every
// Generate call then fails with ErrUpstreamCall.
func NewClient(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		log.Warn("Gemini API key is empty; speech generation requests will fail")

		return &Client{models: nil, log: log}, nil
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{models: client.Models, log: log}, nil
}

// Name identifies the generator in logs.
func (c *Client) Name() string { return generatorName }

// Generate sends req upstream and returns the raw PCM of the first audio part.
// There is no retry and no timeout beyond what ctx carries.
func (c *Client) Generate(ctx context.Context, req core.SpeechRequest) ([]byte, error) {
	if c.models == nil {
		return nil, core.NewUpstreamError(ErrAPIKeyMissing)
	}

	resp, err := c.models.GenerateContent(ctx, req.Model, genai.Text(req.Contents), GenerateConfig(req))
	if err != nil {
		return nil, core.NewUpstreamError(err)
	}

	return ExtractAudio(resp)
}

// GenerateConfig builds the SDK request config: AUDIO output with a multi-speaker
// voice config, even when there are zero or one bindings.
func GenerateConfig(req core.SpeechRequest) *genai.GenerateContentConfig {
	speakerConfigs := make([]*genai.SpeakerVoiceConfig, 0, len(req.SpeakerVoices))

	for _, binding := range req.SpeakerVoices {
		speakerConfigs = append(speakerConfigs, &genai.SpeakerVoiceConfig{
			Speaker: binding.Speaker,
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: binding.VoiceName,
				},
			},
		})
	}

	return &genai.GenerateContentConfig{
		ResponseModalities: []string{core.ResponseModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			MultiSpeakerVoiceConfig: &genai.MultiSpeakerVoiceConfig{
				SpeakerVoiceConfigs: speakerConfigs,
			},
		},
	}
}

// ExtractAudio returns the inline data of the first candidate's first part.
func ExtractAudio(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUpstreamResponse, ErrNoCandidates)
	}

	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0] == nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUpstreamResponse, ErrNoParts)
	}

	inline := content.Parts[0].InlineData
	if inline == nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUpstreamResponse, ErrNoInlineData)
	}

	return inline.Data, nil
}
