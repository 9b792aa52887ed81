package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// ErrorKind is the uniform taxonomy every provider failure is mapped into.
type ErrorKind string

const (
	KindAuth           ErrorKind = "auth"
	KindQuota          ErrorKind = "quota"
	KindRateLimit      ErrorKind = "rate_limit"
	KindBilling        ErrorKind = "billing"
	KindInvalidRequest ErrorKind = "invalid_request"
	KindNetwork        ErrorKind = "network"
	KindServer         ErrorKind = "server"
	KindUnknown        ErrorKind = "unknown"
)

// Retryable reports whether failures of this kind are expected to be transient.
func (k ErrorKind) Retryable() bool {
	return k == KindRateLimit || k == KindServer || k == KindNetwork
}

// ProviderError is a classified provider failure. It is created once per failed
// call and never mutated afterwards.
type ProviderError struct {
	Provider     ProviderID
	Kind         ErrorKind
	Message      string
	StatusCode   *int
	ProviderCode string
	Retryable    bool

	cause error
}

// ProviderErrorParams builds a ProviderError directly, bypassing classification.
type ProviderErrorParams struct {
	Provider     ProviderID
	Kind         ErrorKind
	Message      string
	StatusCode   *int
	ProviderCode string
	Retryable    bool
	Cause        error
}

func NewProviderError(p ProviderErrorParams) *ProviderError {
	return &ProviderError{
		Provider:     p.Provider,
		Kind:         p.Kind,
		Message:      p.Message,
		StatusCode:   p.StatusCode,
		ProviderCode: p.ProviderCode,
		Retryable:    p.Retryable,
		cause:        p.Cause,
	}
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Status returns the HTTP status code or 0 when the failure had none.
func (e *ProviderError) Status() int {
	if e == nil || e.StatusCode == nil {
		return 0
	}
	return *e.StatusCode
}

// rawFailure is the normalized view of whatever shape a provider call failed with.
type rawFailure struct {
	status    *int
	message   string
	code      string
	transport bool
}

// Classify maps an arbitrary provider failure into a ProviderError. An error that
// already is (or wraps) a ProviderError is returned unchanged.
func Classify(provider ProviderID, err error) *ProviderError {
	var existing *ProviderError
	if errors.As(err, &existing) {
		return existing
	}

	raw := inspect(err)
	if strings.TrimSpace(raw.message) == "" {
		raw.message = fmt.Sprintf("Failed to query %s API", provider)
	}

	kind := classifyKind(raw.status, raw.message, raw.transport)

	parts := []string{fmt.Sprintf("%s %s", strings.ToUpper(string(provider)), strings.Replace(string(kind), "_", " ", 1))}
	if raw.status != nil && *raw.status != 0 {
		parts = append(parts, fmt.Sprintf("status %d", *raw.status))
	}
	if raw.code != "" {
		parts = append(parts, "code "+raw.code)
	}

	return &ProviderError{
		Provider:     provider,
		Kind:         kind,
		Message:      strings.Join(parts, ", ") + ": " + RedactSecrets(raw.message),
		StatusCode:   raw.status,
		ProviderCode: raw.code,
		Retryable:    kind.Retryable(),
		cause:        err,
	}
}

var quotaSignals = []string{
	"quota",
	"insufficient_quota",
	"quota exceeded",
	"limit: 0",
	"free_tier",
	"exceeded your current quota",
}

// classifyKind applies the precedence rules; the first match wins.
func classifyKind(status *int, rawMessage string, transport bool) ErrorKind {
	message := strings.ToLower(rawMessage)
	code := 0
	if status != nil {
		code = *status
	}

	switch {
	case code == 401 || code == 403 || containsAny(message, "api key", "unauthorized"):
		return KindAuth
	case containsAny(message, quotaSignals...):
		return KindQuota
	case code == 429:
		return KindRateLimit
	case containsAny(message, "billing", "payment", "credit"):
		return KindBilling
	case code == 400 || code == 404 || containsAny(message, "invalid", "bad request"):
		return KindInvalidRequest
	case code >= 500:
		return KindServer
	case transport || containsAny(message, "fetch failed", "network", "timeout", "econn"):
		return KindNetwork
	default:
		return KindUnknown
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

type statusCoder interface {
	StatusCode() int
}

type providerCoder interface {
	ProviderCode() string
}

func inspect(err error) rawFailure {
	if err == nil {
		return rawFailure{}
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return fromOpenAI(oaiErr)
	}
	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return fromAnthropic(antErr)
	}
	var genErr genai.APIError
	if errors.As(err, &genErr) {
		return fromGenAI(genErr)
	}
	var genErrPtr *genai.APIError
	if errors.As(err, &genErrPtr) && genErrPtr != nil {
		return fromGenAI(*genErrPtr)
	}

	raw := rawFailure{message: err.Error(), transport: isTransport(err)}
	var sc statusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code != 0 {
			raw.status = &code
		}
	}
	var pc providerCoder
	if errors.As(err, &pc) {
		raw.code = pc.ProviderCode()
	}
	return raw
}

func fromOpenAI(e *openai.Error) rawFailure {
	raw := rawFailure{message: e.Message, code: e.Code}
	if raw.code == "" {
		raw.code = e.Type
	}
	if e.StatusCode != 0 {
		status := e.StatusCode
		raw.status = &status
	}
	if raw.message == "" && e.Request != nil && e.Response != nil {
		raw.message = e.Error()
	}
	return raw
}

// anthropicEnvelope is the JSON error body the Messages API returns.
type anthropicEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func fromAnthropic(e *anthropic.Error) rawFailure {
	var raw rawFailure
	if e.StatusCode != 0 {
		status := e.StatusCode
		raw.status = &status
	}
	var env anthropicEnvelope
	if body := e.RawJSON(); body != "" && json.Unmarshal([]byte(body), &env) == nil {
		raw.message = env.Error.Message
		raw.code = env.Error.Type
	}
	if raw.message == "" && e.Request != nil && e.Response != nil {
		raw.message = e.Error()
	}
	return raw
}

func fromGenAI(e genai.APIError) rawFailure {
	raw := rawFailure{message: e.Message, code: e.Status}
	if e.Code != 0 {
		status := e.Code
		raw.status = &status
	}
	// Gemini puts the cooldown ("retryDelay":"37s") in the details; keep it in the
	// message so the retry loop can honour it.
	if len(e.Details) > 0 {
		if details, err := json.Marshal(e.Details); err == nil {
			raw.message = strings.TrimSpace(raw.message + " " + string(details))
		}
	}
	return raw
}

func isTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

var fixHints = map[ErrorKind]string{
	KindAuth:           "Check API key validity, project permissions, and whether the key is loaded in env.",
	KindQuota:          "Quota is exhausted or disabled. Enable billing/increase quota or switch provider/model.",
	KindRateLimit:      "You are being rate-limited. Add retry/backoff or lower request frequency.",
	KindBilling:        "Check billing status and payment method on provider account.",
	KindInvalidRequest: "Check model name and request payload format for provider compatibility.",
	KindNetwork:        "Check network/connectivity and try again.",
	KindServer:         "Provider service is unstable; retry shortly.",
}

// FixHint returns a human readable suggestion for the error's kind. It plays no
// part in retry decisions.
func FixHint(e *ProviderError) string {
	if e != nil {
		if hint, ok := fixHints[e.Kind]; ok {
			return hint
		}
	}
	return "Inspect provider dashboard logs and raw SDK error details."
}

var (
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)
	apiKeyKVRe    = regexp.MustCompile(`(?i)\b(api[_-]?key|gemini[_-]?api[_-]?key)\b\s*[:=]\s*[^\s"']+`)
	openAIKeyRe   = regexp.MustCompile(`\bsk-[A-Za-z0-9_*\-]{6,}`)
	googleKeyRe   = regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{10,}`)
)

// RedactSecrets strips obvious credentials from upstream messages before they are
// stored or shown.
func RedactSecrets(s string) string {
	if s == "" {
		return ""
	}
	out := bearerTokenRe.ReplaceAllString(s, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	out = openAIKeyRe.ReplaceAllString(out, "sk-<redacted>")
	out = googleKeyRe.ReplaceAllString(out, "<redacted_key>")
	return strings.TrimSpace(out)
}

// HTTPStatusError is returned by providers that talk HTTP without an SDK error type.
type HTTPStatusError struct {
	Code   int
	Body   string
	Detail string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return "provider returned status " + strconv.Itoa(e.Code)
	}
	return e.Body
}

func (e *HTTPStatusError) StatusCode() int { return e.Code }

func (e *HTTPStatusError) ProviderCode() string { return e.Detail }
