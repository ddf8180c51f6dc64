package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const registryContentType = "application/vnd.schemaregistry.v1+json"

// RegistryError is a non-2xx answer from Schema Registry.
type RegistryError struct {
	StatusCode int
	ErrorCode  int    `json:"error_code"`
	Message    string `json:"message"`
}

func (e *RegistryError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("schema registry: http %d", e.StatusCode)
	}
	return fmt.Sprintf("schema registry: %s (code %d)", e.Message, e.ErrorCode)
}

func (e *RegistryError) notFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// SchemaRegistryClient resolves the schema id that frames activity events.
type SchemaRegistryClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSchemaRegistryClient constructs a client for the registry at baseURL.
func NewSchemaRegistryClient(baseURL string) *SchemaRegistryClient {
	return &SchemaRegistryClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// EnsureSchema returns the id of schema under subject, registering it when
// the subject does not know this exact schema yet. Lookup is by schema text,
// so a newer incompatible version under the same subject is never reused.
func (c *SchemaRegistryClient) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	path := "/subjects/" + url.PathEscape(subject)

	id, err := c.postSchema(ctx, path, schema)
	var regErr *RegistryError
	if err == nil || !errors.As(err, &regErr) || !regErr.notFound() {
		return id, err
	}
	return c.postSchema(ctx, path+"/versions", schema)
}

func (c *SchemaRegistryClient) postSchema(ctx context.Context, path, schema string) (int, error) {
	body, err := json.Marshal(map[string]string{
		"schemaType": "JSON",
		"schema":     schema,
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", registryContentType)
	req.Header.Set("Accept", registryContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		regErr := &RegistryError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(regErr)
		return 0, regErr
	}

	var payload struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode schema registry response: %w", err)
	}
	return payload.ID, nil
}
