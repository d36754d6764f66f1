package probe

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/nightwatch/monitor/pkg/config"
)

const userAgent = "monitoring-client"

// Client performs HTTP probes. The zero value is ready to use.
type Client struct {
	// HTTPClient is overridable for tests; a nil value falls back to
	// http.DefaultClient's transport with a per-call deadline.
	HTTPClient *http.Client
}

// NewClient returns a Client using a fresh http.Client per probe timeout.
func NewClient() *Client {
	return &Client{}
}

// Probe issues one HTTP request for svc and classifies the result into an
// Outcome. It never returns an error and never panics on ordinary probe
// failure (transport, TLS, DNS, timeout, or body-read failures are all
// encoded into the outcome); this preserves the one-probe-one-outcome
// invariant the scheduler's cadence depends on.
//
// An invalid method or non-positive timeout is a programmer error — svc is
// expected to have already passed config.ServiceDescriptor.Validate() — and
// panics synchronously rather than producing a bogus outcome.
func (c *Client) Probe(ctx context.Context, svc *config.ServiceDescriptor) Outcome {
	if !isSupportedMethod(svc.Method) {
		panic(fmt.Sprintf("probe: unsupported method %q", svc.Method))
	}
	if svc.TimeoutSec <= 0 {
		panic(fmt.Sprintf("probe: timeout must be greater than zero, got %d", svc.TimeoutSec))
	}

	traceID := uuid.NewString()
	requestTimestamp := time.Now().UTC()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(svc.TimeoutSec)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, svc.Method, svc.URL, nil)
	if err != nil {
		return c.failure(svc, requestTimestamp, traceID, err)
	}
	req.Header.Set("User-Agent", userAgent)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return c.failure(svc, requestTimestamp, traceID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.failure(svc, requestTimestamp, traceID, fmt.Errorf("reading response body: %w", err))
	}

	responseTimestamp := time.Now().UTC()
	statusCode := resp.StatusCode

	outcome := Outcome{
		URL:                svc.URL,
		Method:             svc.Method,
		RequestTimestamp:   requestTimestamp,
		ResponseTimestamp:  responseTimestamp,
		StatusCode:         &statusCode,
		RegexCheckRequired: svc.CheckRegex,
		Regex:              svc.Regex,
	}

	if svc.CheckRegex {
		outcome.ContainsRegex = matchesRegex(svc.Regex, body)
	}

	log.Printf("INFO | probe | trace=%s success | %d | %q | %q", traceID, statusCode, svc.Method, svc.URL)
	return outcome
}

func (c *Client) failure(svc *config.ServiceDescriptor, requestTimestamp time.Time, traceID string, cause error) Outcome {
	log.Printf("INFO | probe | trace=%s failure | XXX | %q | %q | %q", traceID, svc.Method, svc.URL, cause)
	return Outcome{
		URL:                svc.URL,
		Method:             svc.Method,
		RequestTimestamp:   requestTimestamp,
		ResponseTimestamp:  time.Now().UTC(),
		RegexCheckRequired: svc.CheckRegex,
		Regex:              svc.Regex,
		ContainsException:  true,
		Exception:          cause.Error(),
	}
}

func matchesRegex(pattern string, body []byte) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.Match(body)
}

func isSupportedMethod(method string) bool {
	for _, m := range config.SupportedMethods {
		if m == method {
			return true
		}
	}
	return false
}
