// Package payment integrates the Zibal gateway: creating payment links,
// verifying callbacks server-side, and upgrading the payer's tier exactly
// once per settled attempt.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://gateway.zibal.ir"

	// Zibal result codes.
	resultOK              = 100
	resultAlreadyVerified = 201
)

// ZibalClient is a thin REST client for the two gateway calls the bot makes.
type ZibalClient struct {
	merchant string
	http     *http.Client

	// BaseURL is overridable for tests.
	BaseURL string
}

func NewZibalClient(merchant string, timeout time.Duration) *ZibalClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ZibalClient{
		merchant: merchant,
		http:     &http.Client{Timeout: timeout},
		BaseURL:  defaultBaseURL,
	}
}

type requestPayload struct {
	Merchant    string `json:"merchant"`
	Amount      int64  `json:"amount"`
	CallbackURL string `json:"callbackUrl"`
	Description string `json:"description"`
	OrderID     string `json:"orderId"`
}

type requestResponse struct {
	Result  int    `json:"result"`
	TrackID int64  `json:"trackId"`
	Message string `json:"message"`
}

// Request registers a payment and returns its track id.
func (c *ZibalClient) Request(ctx context.Context, amount int64, callbackURL, description, orderID string) (string, error) {
	var resp requestResponse
	err := c.post(ctx, "/v1/request", requestPayload{
		Merchant:    c.merchant,
		Amount:      amount,
		CallbackURL: callbackURL,
		Description: description,
		OrderID:     orderID,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Result != resultOK {
		return "", fmt.Errorf("zibal request rejected: result=%d message=%q", resp.Result, resp.Message)
	}
	return fmt.Sprintf("%d", resp.TrackID), nil
}

// PaymentURL is the page the user is sent to for an issued track id.
func (c *ZibalClient) PaymentURL(trackID string) string {
	return c.BaseURL + "/start/" + trackID
}

type verifyPayload struct {
	Merchant string `json:"merchant"`
	TrackID  string `json:"trackId"`
}

// VerifyResult is the gateway's answer to a verification call.
type VerifyResult struct {
	Result    int    `json:"result"`
	Amount    int64  `json:"amount"`
	RefNumber int64  `json:"refNumber"`
	Message   string `json:"message"`
}

// Paid reports whether the gateway considers the attempt settled. Result 201
// means a verify replay of an already-settled payment; the money moved either
// way.
func (v *VerifyResult) Paid() bool {
	return v.Result == resultOK || v.Result == resultAlreadyVerified
}

// Verify asks the gateway for the authoritative outcome of an attempt.
// Callback parameters are never trusted on their own.
func (c *ZibalClient) Verify(ctx context.Context, trackID string) (*VerifyResult, error) {
	var resp VerifyResult
	err := c.post(ctx, "/v1/verify", verifyPayload{Merchant: c.merchant, TrackID: trackID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ZibalClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("zibal returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
