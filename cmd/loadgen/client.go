package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// envelope is how the node wraps every game API answer
type envelope struct {
	Data json.RawMessage `json:"data"`
}

type TxResponse struct {
	TxHash      string `json:"tx_hash"`
	BlockHeight int64  `json:"block_height"`
	Events      []struct {
		Type       string            `json:"type"`
		Attributes map[string]string `json:"attributes"`
	} `json:"events"`
}

// Attribute returns the first value of key on an event of the given type
func (r *TxResponse) Attribute(eventType, key string) (string, bool) {
	for _, ev := range r.Events {
		if ev.Type != eventType {
			continue
		}
		if v, ok := ev.Attributes[key]; ok {
			return v, true
		}
	}
	return "", false
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) GET(endpoint string) (*http.Response, error) {
	url := c.baseURL + endpoint
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "*/*")
	req.Header.Set("Cache-Control", "no-cache")

	return c.client.Do(req)
}

func (c *HTTPClient) POST(endpoint string, body interface{}) (*http.Response, error) {
	url := c.baseURL + endpoint

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest("POST", url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Cache-Control", "no-cache")

	return c.client.Do(req)
}

// UnmarshalBody decodes the data field of a game API answer into v
func UnmarshalBody(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return err
	}
	return json.Unmarshal(env.Data, v)
}
