package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// languageVersions maps each supported language to the execution API's
// versionIndex for it. Unknown languages are rejected before any upstream
// call is made.
var languageVersions = map[string]string{
	"python3": "3",
	"java":    "3",
	"cpp":     "4",
	"nodejs":  "3",
	"c":       "4",
	"ruby":    "3",
	"go":      "3",
	"scala":   "3",
	"bash":    "3",
	"sql":     "3",
	"pascal":  "2",
	"csharp":  "3",
	"php":     "3",
	"swift":   "3",
	"rust":    "3",
	"r":       "3",
}

var (
	ErrInvalidRequest  = errors.New("invalid execute request")
	ErrUnknownLanguage = errors.New("unsupported language")
)

type ExecuteRequest struct {
	Code     string `json:"code" validate:"required"`
	Language string `json:"language" validate:"required"`
}

// Executor proxies code to the remote execution API. It holds no room
// state; a failed run never touches the hub.
type Executor struct {
	cfg      *Config
	client   *http.Client
	validate *validator.Validate
}

func NewExecutor(cfg *Config) *Executor {
	return &Executor{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.ExecuteTimeout},
		validate: validator.New(),
	}
}

// Run validates the request, resolves the language version, and passes the
// upstream response through opaquely.
func (e *Executor) Run(ctx context.Context, req *ExecuteRequest) (json.RawMessage, error) {
	if err := e.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	version, ok := languageVersions[req.Language]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, req.Language)
	}

	body, err := json.Marshal(map[string]string{
		"script":       req.Code,
		"language":     req.Language,
		"versionIndex": version,
		"clientId":     e.cfg.ExecuteClientID,
		"clientSecret": e.cfg.ExecuteClientSecret,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.ExecuteURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute upstream: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("execute upstream read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("execute upstream status %d", resp.StatusCode)
	}
	return out, nil
}
