package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/TIANLI0/AttackLens/config"
	"github.com/TIANLI0/AttackLens/model"
	"github.com/TIANLI0/AttackLens/utils"
	"go.uber.org/zap"
)

// Attacker runs one adversarial attack.
type Attacker interface {
	Attack(ctx context.Context, req model.AttackRequest) (*model.AttackResult, error)
}

// StatusError is returned when the attack service answers with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Request failed: %d", e.Code)
}

// AttackClient talks to the external attack service over HTTP.
type AttackClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAttackClient(cfg *config.APIConfig) *AttackClient {
	return &AttackClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func (c *AttackClient) WithHTTPClient(hc *http.Client) *AttackClient {
	c.httpClient = hc
	return c
}

// Endpoint returns the attack URL.
func (c *AttackClient) Endpoint() string {
	return c.baseURL + "/attack"
}

// Attack posts the image and epsilon as multipart/form-data and returns the
// validated result.
func (c *AttackClient) Attack(ctx context.Context, req model.AttackRequest) (*model.AttackResult, error) {
	body, contentType, err := encodeAttackForm(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attack form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	attackLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		attackRequests.WithLabelValues(outcomeTransportError).Inc()
		return nil, transportCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		attackRequests.WithLabelValues(outcomeHTTPError).Inc()
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var payload model.AttackResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		attackRequests.WithLabelValues(outcomeInvalidResponse).Inc()
		return nil, fmt.Errorf("failed to decode attack response: %w", err)
	}
	if err := payload.Validate(); err != nil {
		attackRequests.WithLabelValues(outcomeInvalidResponse).Inc()
		return nil, err
	}

	attackRequests.WithLabelValues(outcomeSuccess).Inc()
	result := payload.Result(req.Epsilon)

	utils.Logger.Debug("attack completed",
		zap.String("clean_prediction", result.CleanPrediction),
		zap.String("adversarial_prediction", result.AdversarialPrediction),
		zap.Bool("attack_success", result.AttackSuccess),
		zap.Duration("cost", time.Since(start)))

	return result, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeAttackForm builds the body: the raw file under "image" and the
// epsilon string under "epsilon".
func encodeAttackForm(req model.AttackRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := req.Filename
	if filename == "" {
		filename = "image"
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(req.Image)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("epsilon", model.FormatEpsilon(req.Epsilon)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}

// transportCause strips the `Post "<url>":` wrapper so the page shows the
// underlying failure.
func transportCause(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}
