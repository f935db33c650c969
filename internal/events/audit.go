package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/google/uuid"
)

var ErrAuditDisabled = errors.New("audit index disabled")

const indexMapping = `{
  "mappings": {
    "properties": {
      "type":       {"type": "keyword"},
      "account_id": {"type": "keyword"},
      "username":   {"type": "keyword"},
      "reason":     {"type": "keyword"},
      "at":         {"type": "date"}
    }
  }
}`

// AuditIndex stores every event as a document so admins can read an
// account's recent history.
type AuditIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewAuditIndex(es *elasticsearch.Client, index string) *AuditIndex {
	return &AuditIndex{es: es, index: index}
}

func (a *AuditIndex) Enabled() bool {
	return a != nil && a.es != nil
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (a *AuditIndex) EnsureIndex(ctx context.Context) error {
	if !a.Enabled() {
		return nil
	}

	res, err := a.es.Indices.Exists([]string{a.index}, a.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("audit: exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = a.es.Indices.Create(a.index,
		a.es.Indices.Create.WithContext(ctx),
		a.es.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return fmt.Errorf("audit: create index: %w", err)
	}
	defer res.Body.Close()
	return responseErr("create index", res)
}

func (a *AuditIndex) Publish(ctx context.Context, e Event) error {
	if !a.Enabled() {
		return nil
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshal: %w", err)
	}

	res, err := a.es.Index(a.index, bytes.NewReader(body), a.es.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("audit: index: %w", err)
	}
	defer res.Body.Close()
	return responseErr("index", res)
}

// Recent returns up to n of the account's events, newest first.
func (a *AuditIndex) Recent(ctx context.Context, accountID uuid.UUID, n int) ([]Event, error) {
	if !a.Enabled() {
		return nil, ErrAuditDisabled
	}
	if n <= 0 {
		n = 20
	}

	query := map[string]any{
		"query": map[string]any{
			"term": map[string]any{"account_id": accountID.String()},
		},
		"sort": []any{
			map[string]any{"at": map[string]any{"order": "desc"}},
		},
		"size": n,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("audit: encode query: %w", err)
	}

	res, err := a.es.Search(
		a.es.Search.WithContext(ctx),
		a.es.Search.WithIndex(a.index),
		a.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("audit: search: %w", err)
	}
	defer res.Body.Close()
	if err := responseErr("search", res); err != nil {
		return nil, err
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source Event `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("audit: decode: %w", err)
	}

	out := make([]Event, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		out[i] = hit.Source
	}
	return out, nil
}

func responseErr(op string, res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("audit: %s: %s: %s", op, res.Status(), body)
}
