// Package gateway is the client for the remote classification service. All
// ingredient interpretation happens on the remote side; this package only
// builds prompts, ships payloads, and enforces the response schema. It never
// retries on its own; retry is a user-initiated re-submission.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	apperrors "github.com/WahaajTauqir/hallal-classifier/internal/errors"
	"github.com/WahaajTauqir/hallal-classifier/internal/logger"
	"github.com/WahaajTauqir/hallal-classifier/pkg/models"
)

const missingKeyMessage = "API Key is not configured. This app must be run in an environment where the API key is provided, as it cannot be entered manually for security reasons."

const retryMessage = "The AI model could not process the request. Please try again."

// Classifier is the surface the coordinator depends on.
type Classifier interface {
	ClassifyImage(ctx context.Context, processedB64, originalB64 string) (*models.AnalysisResult, error)
	ClassifyBarcode(ctx context.Context, code string) (*models.AnalysisResult, error)
}

// Client talks to the generative-language REST API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
	ecodeTable string

	chats *chatRegistry
}

// NewClient creates a gateway client. ecodeTable is the verbatim reference
// table embedded into every classification prompt.
func NewClient(apiKey, model, baseURL string, timeout time.Duration, ecodeTable string) *Client {
	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Transport: transport, Timeout: timeout},
		validate:   validator.New(),
		ecodeTable: ecodeTable,
		chats:      newChatRegistry(),
	}
}

// ensureKey fails before any network attempt when no credential is
// configured. This is the fatal deployment-level error of the taxonomy.
func (c *Client) ensureKey() error {
	if c.apiKey == "" {
		return apperrors.NewConfigError(missingKeyMessage)
	}
	return nil
}

// ClassifyImage submits the preprocessed/original image pair for ingredient
// and logo analysis.
func (c *Client) ClassifyImage(ctx context.Context, processedB64, originalB64 string) (*models.AnalysisResult, error) {
	if err := c.ensureKey(); err != nil {
		return nil, err
	}

	req := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: imagePrompt(c.ecodeTable)},
				{InlineData: &inlineData{MimeType: "image/jpeg", Data: processedB64}},
				{InlineData: &inlineData{MimeType: "image/jpeg", Data: originalB64}},
			},
		}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   responseSchema,
		},
	}
	return c.generate(ctx, req)
}

// ClassifyBarcode submits a scanned barcode for product resolution and
// ingredient analysis. "Product Not Found" is a successful outcome here, not
// an error.
func (c *Client) ClassifyBarcode(ctx context.Context, code string) (*models.AnalysisResult, error) {
	if err := c.ensureKey(); err != nil {
		return nil, err
	}

	req := generateRequest{
		Contents: []content{{
			Parts: []part{{Text: barcodePrompt(c.ecodeTable, code)}},
		}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   responseSchema,
		},
	}
	return c.generate(ctx, req)
}

func (c *Client) generate(ctx context.Context, reqBody generateRequest) (*models.AnalysisResult, error) {
	text, err := c.post(ctx, c.endpoint("generateContent"), reqBody)
	if err != nil {
		return nil, err
	}
	return c.parseResult(text)
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:%s", c.baseURL, c.model, method)
}

// post sends one generateContent call and returns the first candidate's text.
func (c *Client) post(ctx context.Context, url string, reqBody generateRequest) (string, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", apperrors.NewServiceRequestError(retryMessage, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.NewServiceRequestError(retryMessage, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewServiceRequestError(retryMessage, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", apperrors.NewServiceRequestError(retryMessage, err)
	}
	if res.StatusCode != http.StatusOK {
		return "", apperrors.NewServiceRequestError(retryMessage,
			fmt.Errorf("status %d: %s", res.StatusCode, string(body)))
	}

	var genRes generateResponse
	if err := json.Unmarshal(body, &genRes); err != nil {
		return "", apperrors.NewServiceRequestError(retryMessage, err)
	}
	if len(genRes.Candidates) == 0 || len(genRes.Candidates[0].Content.Parts) == 0 {
		return "", apperrors.NewServiceRequestError(retryMessage, fmt.Errorf("empty candidate list"))
	}
	return genRes.Candidates[0].Content.Parts[0].Text, nil
}

// wireResult mirrors AnalysisResult but keeps halalLogoDetected as a pointer
// so a missing required boolean is detectable after unmarshalling.
type wireResult struct {
	OverallStatus     string              `json:"overallStatus" validate:"required"`
	Ingredients       []models.Ingredient `json:"ingredients" validate:"required,dive"`
	HalalLogoDetected *bool               `json:"halalLogoDetected" validate:"required"`
}

// parseResult decodes and schema-validates the model's JSON reply.
func (c *Client) parseResult(text string) (*models.AnalysisResult, error) {
	raw := stripFences([]byte(text))

	var wire wireResult
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, apperrors.NewServiceRequestError(retryMessage, fmt.Errorf("parse: %w | raw: %s", err, raw))
	}
	if err := c.validate.Struct(&wire); err != nil {
		return nil, apperrors.NewServiceRequestError(retryMessage, fmt.Errorf("schema: %w", err))
	}

	result := &models.AnalysisResult{
		OverallStatus:     wire.OverallStatus,
		Ingredients:       wire.Ingredients,
		HalalLogoDetected: *wire.HalalLogoDetected,
	}
	logger.WithField("overall_status", result.OverallStatus).Debug("classification received")
	return result, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one despite the schema constraint.
func stripFences(b []byte) []byte {
	b = bytes.TrimSpace(b)
	b = bytes.TrimPrefix(b, []byte("```json"))
	b = bytes.TrimPrefix(b, []byte("```"))
	b = bytes.TrimSuffix(b, []byte("```"))
	return bytes.TrimSpace(b)
}
