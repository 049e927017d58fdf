// Package llm wraps the Groq completion provider behind a small client.
// Groq speaks the OpenAI wire protocol, so the client rides on the OpenAI
// SDK with a swapped base URL.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"callcast/internal/config"

	"github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// Message is one chat turn sent to the completion provider.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// Options tunes a single completion request. Zero values fall back to
// provider defaults (temperature 0.7, 2048 max tokens).
type Options struct {
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// Completer is the narrow chat interface domain packages depend on.
type Completer interface {
	ChatCompletion(ctx context.Context, messages []Message, opts Options) (string, error)
}

// Speaker converts text to a playable audio payload.
type Speaker interface {
	Speech(ctx context.Context, text string) (string, error)
}

// Client issues chat-completion and text-to-speech requests to Groq.
type Client struct {
	api      *openai.Client
	model    string
	ttsModel string
	ttsVoice string
	log      *slog.Logger
}

func NewClient(cfg config.GroqConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = groqBaseURL
	return &Client{
		api:      openai.NewClientWithConfig(oc),
		model:    cfg.Model,
		ttsModel: cfg.TTSModel,
		ttsVoice: cfg.TTSVoice,
		log:      log,
	}
}

// ChatCompletion requests a single completion and returns the first
// choice's text.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, opts Options) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if req.Temperature == 0 {
		req.Temperature = 0.7
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 2048
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.log.Error("chat completion failed", "model", c.model, "err", err)
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: chat completion returned no choices")
	}
	c.log.Debug("chat completion",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"tokens", resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}

// Speech synthesizes text into WAV audio and returns it as a base64 data
// URI, the form the audio store and serving endpoint expect.
func (c *Client) Speech(ctx context.Context, text string) (string, error) {
	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.ttsModel),
		Input:          text,
		Voice:          openai.SpeechVoice(c.ttsVoice),
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		c.log.Error("speech synthesis failed", "model", c.ttsModel, "err", err)
		return "", fmt.Errorf("llm: speech synthesis: %w", err)
	}
	defer resp.Close()

	raw, err := io.ReadAll(resp)
	if err != nil {
		return "", fmt.Errorf("llm: reading speech payload: %w", err)
	}
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(raw), nil
}
