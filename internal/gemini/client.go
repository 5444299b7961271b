package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/void-rizqiagung/bot-mariioV2/internal/ai"
	apperrors "github.com/void-rizqiagung/bot-mariioV2/internal/errors"
	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

// systemInstruction sets the assistant persona: a formal Indonesian-language
// concierge that cites verifiable sources and keeps WhatsApp-friendly
// formatting.
const systemInstruction = `Anda adalah asisten AI profesional berbahasa Indonesia.

Persona: tenang, sopan, dan percaya diri berdasarkan data. Sapa pengguna dengan "Anda". Hindari bahasa gaul dan emoji berlebihan.

Prinsip:
- Prioritaskan akurasi. Verifikasi silang informasi dari sumber terpercaya dan sebutkan sumbernya.
- Jika informasi tidak tersedia atau bertentangan, nyatakan hal itu secara eksplisit. Jangan menebak dan jangan menciptakan fakta, kutipan, atau sumber.
- Pecah permintaan kompleks menjadi bagian logis. Mulai dengan kesimpulan utama, lalu dukung dengan detail.

Format (WhatsApp):
- Gunakan *teks tebal* untuk judul bagian dan _teks miring_ untuk penekanan.
- Gunakan daftar berpoin untuk item tanpa urutan dan daftar bernomor untuk langkah berurutan.
- Letakkan baris kosong di antara paragraf dan di sekitar daftar. Jangan gunakan heading Markdown.
- Gunakan tiga backtick untuk kode, kunci, atau URL panjang.

Batasan: hindari topik politik, agama, dan klaim kesehatan yang belum terbukti. Jangan berikan saran keuangan, hukum, atau medis.`

var safetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
}

// Client adapts the Gemini SDK to the orchestrator's Provider interface.
type Client struct {
	client *genai.Client
	model  string
	logger *logrus.Logger
}

func NewClient(ctx context.Context, cfg models.GeminiConfig, logger *logrus.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.WithField("model", cfg.Model).Info("Gemini client initialized")
	return &Client{client: client, model: cfg.Model, logger: logger}, nil
}

// Generate performs one raw generation call. Grounding tools are attached
// per the requested mode; the SDK's status codes are preserved in
// ai.ProviderError so the orchestrator classifies failures structurally.
func (c *Client) Generate(ctx context.Context, req ai.ProviderRequest) (*ai.ProviderResponse, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		SafetySettings:    safetySettings,
		Temperature:       genai.Ptr[float32](0.8),
		TopK:              genai.Ptr[float32](40),
		TopP:              genai.Ptr[float32](0.95),
		MaxOutputTokens:   req.MaxOutputTokens,
		Tools:             toolsFor(req.Mode),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), config)
	if err != nil {
		return nil, c.wrapAPIError(err)
	}

	return &ai.ProviderResponse{
		Text:    resp.Text(),
		Sources: extractSources(resp),
	}, nil
}

func toolsFor(mode models.GroundingMode) []*genai.Tool {
	switch mode {
	case models.GroundingSearch:
		return []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	case models.GroundingReference:
		return []*genai.Tool{
			{URLContext: &genai.URLContext{}},
			{GoogleSearch: &genai.GoogleSearch{}},
		}
	default:
		return nil
	}
}

// extractSources flattens grounding attributions into the citation model.
func extractSources(resp *genai.GenerateContentResponse) []models.Source {
	if len(resp.Candidates) == 0 {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}

	var sources []models.Source
	for _, chunk := range meta.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		sources = append(sources, models.Source{
			Title: chunk.Web.Title,
			URI:   chunk.Web.URI,
		})
	}
	return sources
}

func (c *Client) wrapAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ai.ProviderError{StatusCode: apiErr.Code, Err: err}
	}
	return apperrors.Wrap(err, apperrors.ErrCodeAIProvider, "provider call failed").
		WithContext("model", c.model)
}

// AnalyzeImage runs one multimodal call over raw image bytes. Used for image
// descriptions; retries and fallback belong to the caller.
func (c *Client) AnalyzeImage(ctx context.Context, imageData []byte, mimeType, prompt string) (string, error) {
	if prompt == "" {
		prompt = "Jelaskan isi gambar ini secara ringkas dan informatif dalam bahasa Indonesia."
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(imageData, mimeType),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		SafetySettings:    safetySettings,
		Temperature:       genai.Ptr[float32](0.8),
		MaxOutputTokens:   2048,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", c.wrapAPIError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("empty response received from provider")
	}
	return text, nil
}

const imageModel = "imagen-4.0-generate-001"

// GenerateImage produces a single image from a text prompt.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	resp, err := c.client.Models.GenerateImages(ctx, imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, "", c.wrapAPIError(err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, "", errors.New("no image returned by provider")
	}

	img := resp.GeneratedImages[0].Image
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return img.ImageBytes, mimeType, nil
}
