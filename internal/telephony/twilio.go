// Package telephony owns the Twilio boundary: the REST client that places
// and inspects outbound calls, the webhook forms Twilio posts back, the
// TwiML builder, and the webhook handlers that drive a call's
// conversational turns.
package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"callcast/internal/config"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// Call is the subset of Twilio's call resource this system reads.
type Call struct {
	SID       string `json:"sid"`
	To        string `json:"to"`
	From      string `json:"from"`
	Status    string `json:"status"`
	Direction string `json:"direction"`
	Duration  string `json:"duration"`
}

// MakeCallParams configures one outbound call.
type MakeCallParams struct {
	To   string
	From string

	// URL is the TwiML webhook driving the call's turns.
	URL    string
	Method string

	StatusCallback       string
	StatusCallbackMethod string
	StatusCallbackEvents []string

	Record                        bool
	RecordingStatusCallback       string
	RecordingStatusCallbackMethod string
}

// APIError is a decoded Twilio error payload.
type APIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio error %d: %s", e.Code, e.Message)
}

// ErrInvalidNumber wraps Twilio's invalid-destination error (code 21211)
// so callers can surface a friendly message.
var ErrInvalidNumber = errors.New("telephony: destination number is not valid")

const codeInvalidToNumber = 21211

// Client is a minimal Twilio REST client. No provider SDK; calls are plain
// form-encoded POSTs with basic auth, which is all this system needs.
type Client struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a Twilio client from config. baseURL overrides the
// production API host; pass "" outside of tests.
func NewClient(cfg config.TwilioConfig, baseURL string) *Client {
	if baseURL == "" {
		baseURL = twilioBaseURL
	}
	return &Client{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// MakeCall places an outbound call and returns the provider's call record,
// including the CallSid every later webhook is keyed by.
func (c *Client) MakeCall(ctx context.Context, params MakeCallParams) (*Call, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", c.baseURL, c.accountSID)

	data := url.Values{}
	data.Set("To", params.To)
	data.Set("From", params.From)
	data.Set("Url", params.URL)
	if params.Method != "" {
		data.Set("Method", params.Method)
	}
	if params.StatusCallback != "" {
		data.Set("StatusCallback", params.StatusCallback)
		if params.StatusCallbackMethod != "" {
			data.Set("StatusCallbackMethod", params.StatusCallbackMethod)
		}
	}
	for _, ev := range params.StatusCallbackEvents {
		data.Add("StatusCallbackEvent", ev)
	}
	if params.Record {
		data.Set("Record", "true")
		if params.RecordingStatusCallback != "" {
			data.Set("RecordingStatusCallback", params.RecordingStatusCallback)
		}
		if params.RecordingStatusCallbackMethod != "" {
			data.Set("RecordingStatusCallbackMethod", params.RecordingStatusCallbackMethod)
		}
	}

	var call Call
	if err := c.post(ctx, endpoint, data, &call); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == codeInvalidToNumber {
			return nil, fmt.Errorf("%w: %s", ErrInvalidNumber, params.To)
		}
		return nil, err
	}
	return &call, nil
}

// GetCall fetches the current provider-side state of a call.
func (c *Client) GetCall(ctx context.Context, callSID string) (*Call, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls/%s.json", c.baseURL, c.accountSID, callSID)

	var call Call
	if err := c.get(ctx, endpoint, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

func (c *Client) get(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, endpoint string, data url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telephony: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telephony: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr APIError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return &apiErr
		}
		return fmt.Errorf("telephony: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("telephony: decoding response: %w", err)
		}
	}
	return nil
}
