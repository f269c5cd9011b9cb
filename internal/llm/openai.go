package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

// OpenAIProvider calls the OpenAI Responses API with a JSON schema output format.
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider creates a provider. baseURL is optional and points the client at a
// compatible gateway. SDK retries are disabled; RateLimitedCall owns retrying.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{client: openai.NewClient(opts...)}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Extract(ctx context.Context, req Request) ([]byte, error) {
	content := responses.ResponseInputMessageContentListParam{}
	if req.InputMode == InputFile {
		if len(req.PDF) == 0 {
			return nil, errors.New("file input mode requires PDF bytes")
		}
		content = append(content, responses.ResponseInputContentUnionParam{
			OfInputFile: &responses.ResponseInputFileParam{
				FileData: openai.String("data:application/pdf;base64," + base64.StdEncoding.EncodeToString(req.PDF)),
				Filename: openai.String(pdfFilename(req.Label)),
			},
		})
	}
	content = append(content, responses.ResponseInputContentParamOfInputText(BuildPrompt(req)))

	format := responses.ResponseFormatTextConfigParamOfJSONSchema("vet_record", BuildRecordSchema(req.SchemaMode))
	if format.OfJSONSchema != nil {
		format.OfJSONSchema.Strict = openai.Bool(req.SchemaMode != SchemaLenient)
	}

	response, err := p.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: req.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(content, "user"),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	})
	if err != nil {
		return nil, err
	}

	out := strings.TrimSpace(response.OutputText())
	if out == "" {
		return nil, errors.New("openai returned no output text")
	}
	return []byte(out), nil
}

func pdfFilename(label string) string {
	if strings.HasSuffix(strings.ToLower(label), ".pdf") {
		return label
	}
	return label + ".pdf"
}
