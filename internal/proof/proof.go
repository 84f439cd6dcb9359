package proof

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// Result is the outcome of analyzing a payment receipt image.
// Success is false when no reference number could be extracted, the caller
// then falls back to asking the user for the reference manually.
type Result struct {
	Success     bool
	ReferenceID string
}

// Resolver extracts a payment reference from a receipt image on disk.
type Resolver interface {
	Resolve(ctx context.Context, imagePath string) (Result, error)
}

// Unavailable is a resolver used when no OCR service is configured. Every
// receipt falls back to manual reference entry.
type Unavailable struct{}

func (Unavailable) Resolve(context.Context, string) (Result, error) {
	return Result{}, nil
}

// referenceRe matches the first long digit run in OCR output. Venezuelan
// bank references are 6 or more digits.
var referenceRe = regexp.MustCompile(`\d{6,}`)

// OCRResolver sends the image to an OCR HTTP API and scans the recognized
// text for a reference number.
type OCRResolver struct {
	URL    string
	APIKey string
	Client *http.Client
}

// NewOCRResolver builds a resolver with a default 30s timeout, OCR is slow.
func NewOCRResolver(url, apiKey string) *OCRResolver {
	return &OCRResolver{
		URL:    url,
		APIKey: apiKey,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

type ocrResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool   `json:"IsErroredOnProcessing"`
	ErrorMessage          any    `json:"ErrorMessage"`
	OCRExitCode           int    `json:"OCRExitCode"`
	ErrorDetails          string `json:"ErrorDetails"`
}

// Resolve uploads the image and extracts the reference from recognized text.
// An unreadable receipt yields Success=false without an error.
func (r *OCRResolver) Resolve(ctx context.Context, imagePath string) (Result, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return Result{}, fmt.Errorf("proof: open image: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return Result{}, fmt.Errorf("proof: build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return Result{}, fmt.Errorf("proof: copy image: %w", err)
	}
	if err := writer.WriteField("language", "spa"); err != nil {
		return Result{}, fmt.Errorf("proof: build form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Result{}, fmt.Errorf("proof: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, &buf)
	if err != nil {
		return Result{}, fmt.Errorf("proof: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if r.APIKey != "" {
		req.Header.Set("apikey", r.APIKey)
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("proof: ocr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("proof: ocr status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Result{}, fmt.Errorf("proof: read response: %w", err)
	}

	var parsed ocrResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("proof: decode response: %w", err)
	}
	if parsed.IsErroredOnProcessing {
		return Result{}, nil
	}

	for _, pr := range parsed.ParsedResults {
		if ref := referenceRe.FindString(pr.ParsedText); ref != "" {
			return Result{Success: true, ReferenceID: ref}, nil
		}
	}
	return Result{}, nil
}
