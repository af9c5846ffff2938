// Package monday is a minimal GraphQL client for the project-management service.
package monday

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"branch-tracker/internal/errors"
)

const serviceName = "monday"

// DefaultURL is the GraphQL endpoint.
const DefaultURL = "https://api.monday.com/v2"

// Client talks to the GraphQL API with a personal token.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. An empty baseURL selects DefaultURL.
func NewClient(token, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		token:      token,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// Do executes a GraphQL request and unmarshals its data into result.
func (c *Client) Do(ctx context.Context, operation, query string, variables map[string]interface{}, result interface{}) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeValidation, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return errors.NewNetworkError(serviceName, operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.NewTimeoutError(operation, ctx.Err())
		}
		return errors.NewNetworkError(serviceName, operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewNetworkError(serviceName, operation, err)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.NewRemoteError(serviceName, operation, resp.StatusCode, string(respBody))
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return errors.NewRemoteError(serviceName, operation, resp.StatusCode, "malformed response")
	}
	if len(gqlResp.Errors) > 0 {
		return errors.NewRemoteError(serviceName, operation, resp.StatusCode, gqlResp.Errors[0].Message)
	}

	if result != nil {
		if err := json.Unmarshal(gqlResp.Data, result); err != nil {
			return errors.NewRemoteError(serviceName, operation, resp.StatusCode, fmt.Sprintf("unexpected data: %v", err))
		}
	}
	return nil
}

// GetItem returns the id and name of an item.
func (c *Client) GetItem(ctx context.Context, id string) (*Item, error) {
	var result struct {
		Items []Item `json:"items"`
	}
	if err := c.Do(ctx, "get item", queryItem, map[string]interface{}{"ids": []string{id}}, &result); err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, errors.NewNotFoundError("item", id)
	}
	return &result.Items[0], nil
}

// GetItemDetails returns an item with its board, group, status column and url.
func (c *Client) GetItemDetails(ctx context.Context, id string) (*ItemDetails, error) {
	var result struct {
		Items []itemDetailsResponse `json:"items"`
	}
	if err := c.Do(ctx, "get item details", queryItemDetails, map[string]interface{}{"ids": []string{id}}, &result); err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, errors.NewNotFoundError("item", id)
	}
	return result.Items[0].toDetails(), nil
}
