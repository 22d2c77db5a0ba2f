package ai

import (
	"Painter/core"
	"Painter/lib/sl"
	"Painter/metrics"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL      = "https://api-key.fusionbrain.ai/"
	DefaultPollAttempts = 10
	DefaultPollInterval = 10 * time.Second

	maxResponseSize = 64 << 20
)

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

type Options struct {
	BaseURL      string
	ApiKey       string
	SecretKey    string
	HTTPClient   *http.Client
	Timeout      time.Duration
	PollAttempts int
	PollInterval time.Duration
	Metrics      metrics.Metrics
	Sleeper      Sleeper
}

// Kandinsky is a client for the FusionBrain text2image API
type Kandinsky struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	secretKey  string
	attempts   int
	interval   time.Duration
	sleep      Sleeper
	metrics    metrics.Metrics
	log        *slog.Logger
}

var _ core.Generator = (*Kandinsky)(nil)

func NewKandinsky(opts Options, log *slog.Logger) *Kandinsky {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	k := &Kandinsky{
		httpClient: client,
		baseURL:    base,
		apiKey:     strings.TrimSpace(opts.ApiKey),
		secretKey:  strings.TrimSpace(opts.SecretKey),
		attempts:   opts.PollAttempts,
		interval:   opts.PollInterval,
		sleep:      opts.Sleeper,
		metrics:    opts.Metrics,
		log:        log.With(sl.Module("kandinsky")),
	}
	if k.attempts <= 0 {
		k.attempts = DefaultPollAttempts
	}
	if k.interval <= 0 {
		k.interval = DefaultPollInterval
	}
	if k.sleep == nil {
		k.sleep = sleepContext
	}
	if k.metrics == nil {
		k.metrics = metrics.NewNoopMetrics()
	}
	return k
}

// ResolveModel returns the id of the first model in the listing
func (k *Kandinsky) ResolveModel(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.baseURL+"key/api/v1/models", nil)
	if err != nil {
		return "", fmt.Errorf("making request: %w", err)
	}

	var models []Model
	if err = k.do(req, "models", &models); err != nil {
		return "", err
	}
	if len(models) == 0 || models[0].ID == "" {
		return "", &Error{Kind: KindNoModels, Op: "models"}
	}

	k.log.With(
		slog.String("model", string(models[0].ID)),
		slog.String("name", models[0].Name),
		slog.Int("available", len(models)),
	).Debug("model resolved")
	return string(models[0].ID), nil
}

// Submit starts a generation job and returns its id
func (k *Kandinsky) Submit(ctx context.Context, request core.GenerationRequest, modelId string) (string, error) {
	params, err := json.Marshal(NewParams(request))
	if err != nil {
		return "", fmt.Errorf("marshalling params: %w", err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err = w.WriteField("model_id", modelId); err != nil {
		return "", fmt.Errorf("writing model_id: %w", err)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="params"`)
	h.Set("Content-Type", "application/json")
	part, err := w.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("creating params part: %w", err)
	}
	if _, err = part.Write(params); err != nil {
		return "", fmt.Errorf("writing params: %w", err)
	}
	if err = w.Close(); err != nil {
		return "", fmt.Errorf("closing multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+"key/api/v1/text2image/run", &body)
	if err != nil {
		return "", fmt.Errorf("making request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var run RunResponse
	if err = k.do(req, "run", &run); err != nil {
		return "", err
	}
	if strings.TrimSpace(run.UUID) == "" {
		return "", &Error{Kind: KindSubmission, Op: "run", Description: "response has no uuid"}
	}

	k.log.With(
		slog.String("job", run.UUID),
		slog.String("style", string(request.Style)),
	).Info("generation submitted")
	return run.UUID, nil
}

// Poll waits for the job with the configured attempts and interval
func (k *Kandinsky) Poll(ctx context.Context, jobId string) ([]image.Image, error) {
	return k.PollWith(ctx, jobId, k.attempts, k.interval)
}

// PollWith requests the job status up to maxAttempts times, sleeping interval
// between attempts. A terminal status stops polling at once.
func (k *Kandinsky) PollWith(ctx context.Context, jobId string, maxAttempts int, interval time.Duration) ([]image.Image, error) {
	endpoint := k.baseURL + "key/api/v1/text2image/status/" + url.PathEscape(jobId)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("making request: %w", err)
		}

		var status StatusResponse
		if err = k.do(req, "status", &status); err != nil {
			return nil, err
		}

		switch status.Status {
		case StatusDone:
			files := status.Files()
			if len(files) == 0 {
				return nil, &Error{Kind: KindEmptyResult, Op: "status"}
			}
			return DecodeImages(files)
		case StatusFail:
			return nil, &Error{Kind: KindGenerationFailed, Op: "status", Description: status.ErrorDescription}
		}

		k.log.With(
			slog.String("job", jobId),
			slog.String("status", status.Status),
			slog.Int("attempt", attempt),
		).Debug("generation in progress")

		if attempt < maxAttempts {
			if err = k.sleep(ctx, interval); err != nil {
				return nil, fmt.Errorf("waiting for %s: %w", jobId, err)
			}
		}
	}

	return nil, &Error{Kind: KindTimeout, Op: "status", Description: fmt.Sprintf("%d attempts", maxAttempts)}
}

// Persist saves images as numbered png files
func (k *Kandinsky) Persist(images []image.Image, dir string) ([]string, error) {
	return SaveImages(images, dir)
}

func (k *Kandinsky) do(req *http.Request, endpoint string, out any) error {
	req.Header.Set("X-Key", "Key "+k.apiKey)
	req.Header.Set("X-Secret", "Secret "+k.secretKey)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		k.metrics.ObserveProviderRequest(endpoint, 0)
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", endpoint, ctxErr)
		}
		return &Error{Kind: KindTransport, Op: endpoint, Err: err}
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			k.log.Error("closing response body", sl.Err(err))
		}
	}(resp.Body)
	k.metrics.ObserveProviderRequest(endpoint, resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &Error{Kind: KindTransport, Op: endpoint, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := KindTransport
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = KindAuth
		}
		return &Error{Kind: kind, Op: endpoint, Status: resp.StatusCode, Description: snippet(body)}
	}

	if err = json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindTransport, Op: endpoint, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
