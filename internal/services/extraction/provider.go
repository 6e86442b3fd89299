package extraction

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

// generateRequest describes one schema-constrained backend call.
type generateRequest struct {
	prompt string
	// schema is enforced server-side by Gemini. Compliance is
	// advisory; responses are re-validated after decoding.
	schema *genai.Schema
	// format is a JSON example embedded into the prompt for backends
	// without native schema enforcement.
	format string
	image  []byte
	mime   string
}

// generator is one extraction backend. Implementations return the raw
// response text; decoding and validation happen in the service.
type generator interface {
	generate(ctx context.Context, req generateRequest) (string, error)
	name() string
}

type geminiProvider struct {
	client *genai.Client
	model  string
}

func newGeminiProvider(ctx context.Context, apiKey, model string) (*geminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &geminiProvider{client: client, model: model}, nil
}

func (p *geminiProvider) name() string { return "gemini" }

func (p *geminiProvider) generate(ctx context.Context, req generateRequest) (string, error) {
	model := p.client.GenerativeModel(p.model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = req.schema

	parts := []genai.Part{genai.Text(req.prompt)}
	if len(req.image) > 0 {
		format := mimeSubtype(req.mime)
		parts = append([]genai.Part{genai.ImageData(format, req.image)}, parts...)
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part type %T", resp.Candidates[0].Content.Parts[0])
	}
	return string(text), nil
}

// mimeSubtype converts "image/jpeg" to the subtype genai.ImageData expects.
func mimeSubtype(mime string) string {
	for i := 0; i < len(mime); i++ {
		if mime[i] == '/' {
			return mime[i+1:]
		}
	}
	return mime
}

type openaiProvider struct {
	client *openai.Client
}

func newOpenAIProvider(apiKey string) *openaiProvider {
	return &openaiProvider{client: openai.NewClient(apiKey)}
}

func (p *openaiProvider) name() string { return "openai" }

func (p *openaiProvider) generate(ctx context.Context, req generateRequest) (string, error) {
	prompt := req.prompt
	if req.format != "" {
		prompt += "\n\nCRITICAL JSON FORMAT REQUIREMENTS:\n" +
			"- Your response MUST be a single valid JSON object\n" +
			"- Do not include any markdown formatting or explanatory text\n" +
			"- The JSON must have exactly this shape:\n" + req.format
	}

	content := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: prompt},
	}
	if len(req.image) > 0 {
		dataURL := fmt.Sprintf("data:%s;base64,%s", req.mime, base64.StdEncoding.EncodeToString(req.image))
		content = append(content, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4VisionPreview,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: content},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
