// Package elastic implements the document store on top of the Elasticsearch
// REST API. Collections are indices; the schema definition lives in the
// index under the "schema" type and entities under the "entity" type.
package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/cmdb-registry-server/internal/httpclient"
	"github.com/stacklok/cmdb-registry-server/internal/model"
	"github.com/stacklok/cmdb-registry-server/internal/otel"
	"github.com/stacklok/cmdb-registry-server/internal/store"
)

const (
	schemaType = "schema"
	entityType = "entity"

	// DefaultMaxRetries is the number of retries after the first attempt of a request
	DefaultMaxRetries uint = 3

	// DefaultRetryInterval is the initial backoff between attempts
	DefaultRetryInterval = 100 * time.Millisecond

	// maxErrorBody caps how much of an error response ends up in error messages
	maxErrorBody = 512
)

// Store is an Elasticsearch backed store.Store
type Store struct {
	endpoint      string
	client        httpclient.Client
	maxRetries    uint
	retryInterval time.Duration
	tracer        trace.Tracer
}

var _ store.Store = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithClient sets the HTTP client used for requests
func WithClient(client httpclient.Client) Option {
	return func(s *Store) {
		s.client = client
	}
}

// WithMaxRetries sets how many times a transient failure is retried
func WithMaxRetries(n uint) Option {
	return func(s *Store) {
		s.maxRetries = n
	}
}

// WithRetryInterval sets the initial backoff interval
func WithRetryInterval(d time.Duration) Option {
	return func(s *Store) {
		s.retryInterval = d
	}
}

// WithTracer sets the tracer used to create spans around store requests
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		s.tracer = tracer
	}
}

// New creates a store talking to the Elasticsearch instance at endpoint
func New(endpoint string, opts ...Option) (*Store, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid elasticsearch endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid elasticsearch endpoint %q: must be an http(s) URL", endpoint)
	}

	s := &Store{
		endpoint:      strings.TrimRight(endpoint, "/"),
		maxRetries:    DefaultMaxRetries,
		retryInterval: DefaultRetryInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = httpclient.NewDefaultClient(0)
	}
	return s, nil
}

// HeadCollection reports whether the index for collection exists
func (s *Store) HeadCollection(ctx context.Context, collection string) (exists bool, err error) {
	ctx, span := s.startSpan(ctx, "elastic.HeadCollection", collection)
	defer func() { endSpan(span, err) }()

	resp, err := s.do(ctx, "head", collection, http.MethodHead, s.url(collection), nil)
	if err != nil {
		return false, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case isSuccess(resp.StatusCode):
		return true, nil
	default:
		return false, s.statusError("head", collection, resp)
	}
}

// GetSchemaDocument returns the schema document stored in the collection's index
func (s *Store) GetSchemaDocument(ctx context.Context, collection string) (doc *store.Document, err error) {
	ctx, span := s.startSpan(ctx, "elastic.GetSchemaDocument", collection)
	defer func() { endSpan(span, err) }()

	return s.get(ctx, "get-schema", collection, s.url(collection, schemaType, collection))
}

// GetDocument returns the entity stored under key
func (s *Store) GetDocument(ctx context.Context, collection, key string) (doc *store.Document, err error) {
	ctx, span := s.startSpan(ctx, "elastic.GetDocument", collection)
	span.SetAttributes(otel.AttrEntityKey.String(key))
	defer func() { endSpan(span, err) }()

	return s.get(ctx, "get-entity", collection, s.url(collection, entityType, key))
}

// QueryByTerm runs a term query against the collection's entities. A
// missing index yields an empty result.
func (s *Store) QueryByTerm(ctx context.Context, collection, field string, value any) (result *store.TermResult, err error) {
	ctx, span := s.startSpan(ctx, "elastic.QueryByTerm", collection)
	span.SetAttributes(otel.AttrField.String(field))
	defer func() {
		if result != nil {
			span.SetAttributes(otel.AttrResultCount.Int(result.Total))
		}
		endSpan(span, err)
	}()

	body, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"term": map[string]any{field: value},
		},
	})
	if err != nil {
		return nil, store.NewError("search", collection, 0, fmt.Errorf("failed to encode query: %w", err))
	}

	resp, err := s.do(ctx, "search", collection, http.MethodPost, s.url(collection, entityType, "_search"), body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return &store.TermResult{}, nil
	}
	if !isSuccess(resp.StatusCode) {
		return nil, s.statusError("search", collection, resp)
	}
	return parseSearchResponse(collection, resp.Body)
}

// Ping checks that the cluster answers on its root endpoint
func (s *Store) Ping(ctx context.Context) (err error) {
	ctx, span := s.startSpan(ctx, "elastic.Ping", "")
	defer func() { endSpan(span, err) }()

	resp, err := s.do(ctx, "ping", "", http.MethodGet, s.endpoint+"/", nil)
	if err != nil {
		return err
	}
	if !isSuccess(resp.StatusCode) {
		return s.statusError("ping", "", resp)
	}
	return nil
}

// PutSchema indexes the schema definition. The index is created on first write.
func (s *Store) PutSchema(ctx context.Context, schema *model.Schema) (err error) {
	ctx, span := s.startSpan(ctx, "elastic.PutSchema", schema.Name)
	defer func() { endSpan(span, err) }()

	return s.put(ctx, "put-schema", schema.Name, s.url(schema.Name, schemaType, schema.Name), schema.Document())
}

// PutEntity indexes doc under key
func (s *Store) PutEntity(ctx context.Context, collection, key string, doc map[string]any) (err error) {
	ctx, span := s.startSpan(ctx, "elastic.PutEntity", collection)
	span.SetAttributes(otel.AttrEntityKey.String(key))
	defer func() { endSpan(span, err) }()

	return s.put(ctx, "put-entity", collection, s.url(collection, entityType, key), doc)
}

func (s *Store) get(ctx context.Context, op, collection, u string) (*store.Document, error) {
	resp, err := s.do(ctx, op, collection, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, store.ErrNotFound
	}
	if !isSuccess(resp.StatusCode) {
		return nil, s.statusError(op, collection, resp)
	}

	parsed := gjson.ParseBytes(resp.Body)
	if found := parsed.Get("found"); found.Exists() && !found.Bool() {
		return nil, store.ErrNotFound
	}
	source, err := decodeSource(parsed.Get("_source"))
	if err != nil {
		return nil, store.NewError(op, collection, resp.StatusCode, err)
	}
	return &store.Document{ID: parsed.Get("_id").String(), Source: source}, nil
}

func (s *Store) put(ctx context.Context, op, collection, u string, doc map[string]any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return store.NewError(op, collection, 0, fmt.Errorf("failed to encode document: %w", err))
	}
	resp, err := s.do(ctx, op, collection, http.MethodPut, u+"?refresh=wait_for", body)
	if err != nil {
		return err
	}
	if !isSuccess(resp.StatusCode) {
		return s.statusError(op, collection, resp)
	}
	return nil
}

// do sends a request, retrying network errors and transient statuses with
// exponential backoff. Any other response is returned to the caller.
func (s *Store) do(ctx context.Context, op, collection, method, u string, body []byte) (*httpclient.Response, error) {
	operation := func() (*httpclient.Response, error) {
		resp, err := s.client.Do(ctx, method, u, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if httpErr := httpclient.NewHTTPError(resp.StatusCode, u, errorSnippet(resp.Body)); httpErr.Transient() {
			return nil, httpErr
		}
		return resp, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.maxRetries+1),
	)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			return nil, store.NewError(op, collection, httpErr.StatusCode, err)
		}
		return nil, store.NewError(op, collection, 0, err)
	}
	return resp, nil
}

func (*Store) statusError(op, collection string, resp *httpclient.Response) error {
	reason := gjson.GetBytes(resp.Body, "error.reason").String()
	if reason == "" {
		reason = errorSnippet(resp.Body)
	}
	return store.NewError(op, collection, resp.StatusCode, errors.New(reason))
}

// url joins path segments onto the endpoint, escaping each one
func (s *Store) url(segments ...string) string {
	var b strings.Builder
	b.WriteString(s.endpoint)
	for _, seg := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}

func (s *Store) startSpan(ctx context.Context, name, collection string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{otel.AttrStoreType.String("elasticsearch")}
	if collection != "" {
		attrs = append(attrs, otel.AttrCollection.String(collection))
	}
	return otel.StartSpan(ctx, s.tracer, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func endSpan(span trace.Span, err error) {
	if !errors.Is(err, store.ErrNotFound) {
		otel.RecordError(span, err)
	}
	span.End()
}

func parseSearchResponse(collection string, body []byte) (*store.TermResult, error) {
	parsed := gjson.ParseBytes(body)

	// hits.total is a number before Elasticsearch 7 and {"value": n} after
	total := parsed.Get("hits.total")
	if total.IsObject() {
		total = total.Get("value")
	}
	if !total.Exists() {
		return nil, store.NewError("search", collection, http.StatusOK, errors.New("response has no hits.total"))
	}

	result := &store.TermResult{Total: int(total.Int())}
	for _, hit := range parsed.Get("hits.hits").Array() {
		source, err := decodeSource(hit.Get("_source"))
		if err != nil {
			return nil, store.NewError("search", collection, http.StatusOK, err)
		}
		result.Hits = append(result.Hits, store.Document{ID: hit.Get("_id").String(), Source: source})
	}
	return result, nil
}

// decodeSource decodes a _source object keeping numbers as json.Number
func decodeSource(source gjson.Result) (map[string]any, error) {
	if !source.IsObject() {
		return nil, errors.New("response has no _source object")
	}
	return model.DecodeJSONBytes([]byte(source.Raw))
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func errorSnippet(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}
