package schema

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// FetchError reports a non-200 response from the schema introspection
// endpoint, per spec.md §6/§7 (schema_fetch_failed).
type FetchError struct {
	Status int
	Body   string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("schema: fetch failed with status %d: %s", e.Status, e.Body)
}

// Fetch retrieves and parses the module schema from
// GET {scheme}://{host}/v1/database/{database}/schema?version=9, validating
// the raw document against the embedded JSON Schema before parsing it.
func Fetch(ctx context.Context, client *http.Client, scheme, host, database string) (*Schema, error) {
	if client == nil {
		client = http.DefaultClient
	}
	url := fmt.Sprintf("%s://%s/v1/database/%s/schema?version=9", scheme, host, database)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("schema: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schema: fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("schema: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := Validate(body); err != nil {
		return nil, err
	}
	return Parse(body)
}
