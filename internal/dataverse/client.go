package dataverse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const apiPath = "/api/data/v9.2/"

// DefaultPageSize is sent as odata.maxpagesize
const DefaultPageSize = 5000

// Client talks to the Dataverse Web API
type Client struct {
	BaseURL  string
	Token    string
	PageSize int
	HTTP     *http.Client
}

// NewClient returns a client for the environment at baseURL
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Token:    token,
		PageSize: DefaultPageSize,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

type collection struct {
	Value    []Record `json:"value"`
	NextLink string   `json:"@odata.nextLink"`
}

// RetrieveMultiple fetches one page. A query starting with "http" is taken
// as a continuation link and requested verbatim.
func (c *Client) RetrieveMultiple(ctx context.Context, entity, query string) (Page, error) {
	u := query
	if !strings.HasPrefix(query, "http") {
		u = c.BaseURL + apiPath + EntitySet(entity) + query
	}

	var body collection
	if err := c.do(ctx, http.MethodGet, u, nil, &body); err != nil {
		return Page{}, err
	}
	return Page{Entities: body.Value, NextLink: body.NextLink}, nil
}

// RetrieveRecord fetches a single row by id
func (c *Client) RetrieveRecord(ctx context.Context, entity, id, query string) (Record, error) {
	u := fmt.Sprintf("%s%s%s(%s)%s", c.BaseURL, apiPath, EntitySet(entity), id, query)
	var rec Record
	if err := c.do(ctx, http.MethodGet, u, nil, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateRecord PATCHes the given fields. If-Match stops the request from
// creating the row when it no longer exists.
func (c *Client) UpdateRecord(ctx context.Context, entity, id string, patch Record) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}
	u := fmt.Sprintf("%s%s%s(%s)", c.BaseURL, apiPath, EntitySet(entity), id)
	return c.do(ctx, http.MethodPatch, u, data, nil)
}

func (c *Client) do(ctx context.Context, method, u string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	if method == http.MethodGet && c.PageSize > 0 {
		req.Header.Set("Prefer", fmt.Sprintf(`odata.maxpagesize=%d,odata.include-annotations="%s"`,
			c.PageSize, strings.TrimPrefix(FormattedValueSuffix, "@")))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("If-Match", "*")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) == nil {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	return apiErr
}
