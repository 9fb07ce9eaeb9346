package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"
)

// OCRSpaceClient posts JPEG images to the ocr.space parse endpoint.
type OCRSpaceClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	tracker    IUsageTracker
}

type OCRSpaceClientOption = func(c *OCRSpaceClient) error

const defaultOCRSpaceKey = "helloworld"

func NewOCRSpaceClient(apiKey string, opts ...OCRSpaceClientOption) (*OCRSpaceClient, error) {
	if apiKey == "" {
		apiKey = defaultOCRSpaceKey
	}
	c := &OCRSpaceClient{
		apiKey:     apiKey,
		baseURL:    "https://api.ocr.space/parse/image",
		httpClient: defaultHTTPClient(60 * time.Second),
		tracker:    noopTracker{},
	}
	if err := applyFuncOptions(c, opts...); err != nil {
		return nil, fmt.Errorf("failed to apply options: %w", err)
	}
	return c, nil
}

func WithOCRSpaceBaseURL(url string) OCRSpaceClientOption {
	return func(c *OCRSpaceClient) error {
		if url != "" {
			c.baseURL = url
		}
		return nil
	}
}

func WithOCRSpaceUsageTracker(tracker IUsageTracker) OCRSpaceClientOption {
	return func(c *OCRSpaceClient) error {
		c.tracker = tracker
		return nil
	}
}

type ocrSpaceResponse struct {
	ParsedResults []struct {
		ParsedText   string `json:"ParsedText"`
		ErrorMessage string `json:"ErrorMessage"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

func (c *OCRSpaceClient) Name() string { return "ocrspace" }

// Recognize returns the text of the first parsed result.
func (c *OCRSpaceClient) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("apikey", c.apiKey); err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	if language != "" {
		if err := w.WriteField("language", language); err != nil {
			return "", fmt.Errorf("failed to build request: %w", err)
		}
	}
	part, err := w.CreateFormFile("file", "screenshot.jpg")
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", newStatusError("ocrspace", resp)
	}

	var parsed ocrSpaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", newDecodeError("ocrspace", err)
	}
	c.tracker.AddOCRPages(ctx, 1)

	if len(parsed.ParsedResults) == 0 {
		msg := "no parsed results"
		if parsed.IsErroredOnProcessing && len(parsed.ErrorMessage) > 0 {
			msg = string(parsed.ErrorMessage)
		}
		return "", &ServiceError{Service: "ocrspace", Body: msg}
	}
	return parsed.ParsedResults[0].ParsedText, nil
}
