package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/danielfabbri/logzone-api/internal/errs"
)

type GatewayClient struct {
	baseURL string
	client  *http.Client
}

func NewGatewayClient(baseURL string) *GatewayClient {
	return &GatewayClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates against the gateway and returns the bearer
// token. Gateways report the token under a handful of field names, so
// all of them are tried before giving up.
func (c *GatewayClient) Login(ctx context.Context, email, password string) (string, error) {
	reqBody, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &errs.ServiceError{Service: "gateway login", Status: resp.StatusCode, Body: string(body)}
	}

	var parsed struct {
		Token        string `json:"token"`
		AccessToken  string `json:"access_token"`
		AccessToken2 string `json:"accessToken"`
		Data         struct {
			Token       string `json:"token"`
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &errs.ProtocolError{Service: "gateway login", Detail: "invalid json: " + err.Error()}
	}

	for _, tok := range []string{parsed.Token, parsed.AccessToken, parsed.AccessToken2, parsed.Data.Token, parsed.Data.AccessToken} {
		if tok != "" {
			return tok, nil
		}
	}
	return "", &errs.ProtocolError{Service: "gateway login", Detail: "token not found in response"}
}

type sendTextRequest struct {
	Number     string `json:"number"`
	Text       string `json:"text"`
	TimeTyping int    `json:"time_typing"`
}

type SendResult struct {
	MessageID string
	Status    string
}

// SendText submits one outbound text. Status defaults to "sent" when
// the gateway omits it.
func (c *GatewayClient) SendText(ctx context.Context, bearer, deviceToken, number, text string, timeTyping int) (*SendResult, error) {
	reqBody, err := json.Marshal(sendTextRequest{Number: number, Text: text, TimeTyping: timeTyping})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/whatsapp/sendText", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("DeviceToken", deviceToken)
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &errs.ServiceError{Service: "gateway send", Status: resp.StatusCode, Body: string(body)}
	}

	var parsed struct {
		ID        string `json:"id"`
		MessageID string `json:"messageId"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &errs.ProtocolError{Service: "gateway send", Detail: "invalid json: " + err.Error()}
	}

	out := &SendResult{MessageID: parsed.ID, Status: parsed.Status}
	if out.MessageID == "" {
		out.MessageID = parsed.MessageID
	}
	if out.Status == "" {
		out.Status = "sent"
	}
	return out, nil
}
