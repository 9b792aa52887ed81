package workflows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AI-Template-SDK/visibility-workflows/internal/providers"
	"github.com/AI-Template-SDK/visibility-workflows/services"
)

// ErrSlackNotConfigured is returned when no webhook URL is set.
var ErrSlackNotConfigured = errors.New("SLACK_WEBHOOK_URL is not set")

type SlackPayload struct {
	Text string `json:"text"`
}

// SlackAlerter posts pipeline failures to an incoming webhook.
type SlackAlerter struct {
	webhookURL string
	client     *http.Client
	now        func() time.Time
}

func NewSlackAlerter(webhookURL string) *SlackAlerter {
	return &SlackAlerter{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
		now:        time.Now,
	}
}

// ReportError posts an error message to the scan alerts channel.
func (a *SlackAlerter) ReportError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if a == nil || a.webhookURL == "" {
		return ErrSlackNotConfigured
	}
	message := fmt.Sprintf(
		":rotating_light: *Visibility Scan Error*\n"+
			"*Time:* %s\n"+
			"*Error:* ```%s```",
		a.now().UTC().Format(time.RFC3339),
		providers.RedactSecrets(err.Error()),
	)
	return a.post(ctx, message)
}

// ReportScanFailures posts one alert listing every failed platform of a scan run,
// with the classified kind and a fix hint for each.
func (a *SlackAlerter) ReportScanFailures(ctx context.Context, pipeline, queryID string, failed []services.PlatformResult) error {
	if len(failed) == 0 {
		return nil
	}
	if a == nil || a.webhookURL == "" {
		return ErrSlackNotConfigured
	}
	return a.post(ctx, scanFailureMessage(a.now(), pipeline, queryID, failed))
}

func scanFailureMessage(now time.Time, pipeline, queryID string, failed []services.PlatformResult) string {
	if pipeline == "" {
		pipeline = "unknown"
	}
	var b strings.Builder
	fmt.Fprintf(&b, ":rotating_light: *Visibility Scan Failure*\n*Time:* %s\n*Pipeline:* %s\n*Query:* %s\n",
		now.UTC().Format(time.RFC3339), pipeline, queryID)
	for _, r := range failed {
		kind := r.ErrorKind
		if kind == "" {
			kind = "unknown"
		}
		fmt.Fprintf(&b, "• *%s* (%s", r.Platform, kind)
		if r.StatusCode != nil {
			fmt.Fprintf(&b, ", status %d", *r.StatusCode)
		}
		fmt.Fprintf(&b, "): ```%s```\n", providers.RedactSecrets(r.Error))
		if r.Hint != "" {
			fmt.Fprintf(&b, "  _Fix:_ %s\n", r.Hint)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *SlackAlerter) post(ctx context.Context, message string) error {
	if a == nil || a.webhookURL == "" {
		return ErrSlackNotConfigured
	}

	body, err := json.Marshal(SlackPayload{Text: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func failedResults(results []services.PlatformResult) []services.PlatformResult {
	var failed []services.PlatformResult
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}
