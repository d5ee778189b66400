package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Method is the set of verbs the backend accepts.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

var ErrUnknownMethod = errors.New("unknown http method")

func (that Method) valid() bool {
	switch that {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	default:
		return false
	}
}

// RetryPolicy controls how transport failures are retried.
// The delay before retry i (counted from 0) is InitialDelay * 2^i.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
}

// DefaultRetryPolicy is used by calls that don't override the policy.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:   5,
	InitialDelay: 200 * time.Millisecond,
}

// TransportError - the request never produced a usable response:
// connection failure, timeout, non-2xx status or an unreadable body.
// Transport errors are retried according to the call's RetryPolicy.
type TransportError struct {
	Status int // zero when no status was received
	Err    error
}

func (that *TransportError) Error() string {
	if that.Status != 0 {
		return fmt.Sprintf("transport failure: status %d: %v", that.Status, that.Err)
	}

	return fmt.Sprintf("transport failure: %v", that.Err)
}

func (that *TransportError) Unwrap() error { return that.Err }

// SemanticError - the backend answered 2xx but the body carries a
// business rejection in its top-level errors array. Never retried.
type SemanticError struct {
	Messages []string
}

func (that *SemanticError) Error() string {
	return fmt.Sprintf("rejected by backend: %s", strings.Join(that.Messages, "; "))
}

// Client - issues JSON requests against a single backend and keeps its
// session cookies across calls.
type Client struct {
	logger  *slog.Logger
	baseURL string
	policy  RetryPolicy
	http    *http.Client
}

// New - returns a Client bound to baseURL with the given per-attempt
// timeout and default retry policy.
func New(logger *slog.Logger, baseURL string, timeout time.Duration, policy RetryPolicy) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		logger:  logger.With("component", "rest"),
		baseURL: strings.TrimRight(baseURL, "/"),
		policy:  policy,
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}, nil
}

type callOptions struct {
	policy RetryPolicy
	query  url.Values
}

// CallOption overrides per-call behavior of Do.
type CallOption func(*callOptions)

// WithRetryPolicy replaces the client's default policy for one call.
func WithRetryPolicy(policy RetryPolicy) CallOption {
	return func(that *callOptions) {
		that.policy = policy
	}
}

// WithQuery appends an encoded query string to the request URL.
func WithQuery(query url.Values) CallOption {
	return func(that *callOptions) {
		that.query = query
	}
}

// Do - performs one logical request and decodes the successful body
// into T. Transport failures are retried with exponential backoff;
// semantic rejections abort immediately. On failure the zero T is
// returned together with the error of the last attempt.
func Do[T any](ctx context.Context, client *Client, method Method, path string, body any, opts ...CallOption) (T, error) {
	var zero T

	if !method.valid() {
		return zero, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	options := callOptions{policy: client.policy}
	for _, opt := range opts {
		opt(&options)
	}

	var payload []byte
	if body != nil {
		var err error

		payload, err = json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	logger := client.logger.With("method", string(method), "path", path)

	var result T
	operation := func() error {
		result = zero

		data, err := client.roundTrip(ctx, method, path, payload, options.query)
		if err != nil {
			return err
		}

		if messages := semanticErrors(data); len(messages) > 0 {
			return backoff.Permanent(&SemanticError{Messages: messages})
		}

		if len(data) == 0 {
			return nil
		}

		if err = json.Unmarshal(data, &result); err != nil {
			return &TransportError{Err: fmt.Errorf("failed to unmarshal response: %w", err)}
		}

		return nil
	}

	notify := func(err error, delay time.Duration) {
		logger.Warn("attempt failed, retrying", "error", err, "delay", delay)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(newBackOff(options.policy), ctx), notify); err != nil {
		logger.Error("request failed", "error", err)
		return zero, err
	}

	return result, nil
}

// newBackOff - doubling intervals starting at InitialDelay, no jitter,
// at most MaxRetries retries after the first attempt. A negative
// MaxRetries would wrap the uint64 conversion into a practically
// unbounded retry count, so it is treated as zero.
func newBackOff(policy RetryPolicy) backoff.BackOff {
	retries := policy.MaxRetries
	if retries < 0 {
		retries = 0
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = policy.InitialDelay
	expo.RandomizationFactor = 0
	expo.Multiplier = 2
	expo.MaxInterval = time.Hour
	expo.MaxElapsedTime = 0
	expo.Reset()

	return backoff.WithMaxRetries(expo, uint64(retries))
}

func (that *Client) roundTrip(ctx context.Context, method Method, path string, payload []byte, query url.Values) ([]byte, error) {
	endpoint := that.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, string(method), endpoint, body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to build request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := that.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &TransportError{Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	return data, nil
}

// semanticErrors extracts rejection messages from a 2xx body that
// carries a non-empty top-level errors array.
func semanticErrors(data []byte) []string {
	var envelope struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope.Errors) == 0 {
		return nil
	}

	messages := make([]string, 0, len(envelope.Errors))
	for _, item := range envelope.Errors {
		messages = append(messages, item.Message)
	}

	return messages
}
