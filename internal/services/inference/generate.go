package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type generateRequest struct {
	SystemInstruction *content        `json:"systemInstruction,omitempty"`
	Contents          []content       `json:"contents"`
	GenerationConfig  generationParam `json:"generationConfig"`
}

type generationParam struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	FileData   *fileData   `json:"fileData,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type fileData struct {
	MimeType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type emptyContentError struct {
	FinishReason string
	BlockReason  string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("empty content (finish_reason=%q, block_reason=%q)", e.FinishReason, e.BlockReason)
}

func textPart(text string) part {
	return part{Text: text}
}

func filePart(file File) part {
	return part{FileData: &fileData{MimeType: file.MimeType, FileURI: file.URI}}
}

func imagePart(data []byte, mimeType string) part {
	return part{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}}
}

// generate issues a JSON-mode generateContent request and returns the text of
// the first candidate.
func (c *Client) generate(ctx context.Context, op, system string, parts ...part) (string, error) {
	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationParam{
			Temperature:      0,
			ResponseMimeType: "application/json",
		},
	}
	if strings.TrimSpace(system) != "" {
		payload.SystemInstruction = &content{Parts: []part{textPart(system)}}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	body, err := c.doWithRetry(ctx, op, func() (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodPost, "/v1beta/models/"+c.cfg.Model+":generateContent", bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w (payload snippet: %s)", err, summarizePayloadSnippet(string(body)))
	}
	text, finish := extractCandidateText(parsed)
	if text == "" {
		emptyErr := &emptyContentError{FinishReason: finish}
		if parsed.PromptFeedback != nil {
			emptyErr.BlockReason = parsed.PromptFeedback.BlockReason
		}
		return "", emptyErr
	}
	return text, nil
}

func extractCandidateText(resp generateResponse) (string, string) {
	var finishReason string
	for _, candidate := range resp.Candidates {
		if finishReason == "" {
			finishReason = strings.TrimSpace(candidate.FinishReason)
		}
		var b strings.Builder
		for _, p := range candidate.Content.Parts {
			b.WriteString(p.Text)
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			return text, finishReason
		}
	}
	return "", finishReason
}

// IsEmptyContent reports whether err came from a response with no text.
func IsEmptyContent(err error) bool {
	var target *emptyContentError
	return errors.As(err, &target)
}
