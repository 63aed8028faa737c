package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/aalemi-dev/portmeta/observability"
	"github.com/aalemi-dev/portmeta/tracer"
	"github.com/google/uuid"
)

const contentType = "application/json"

// Authority provides an interface for talking to a central metadata authority.
// It pushes newly observed fields and reads back everything the authority knows.
type Authority interface {
	metadata.Updater
	metadata.Loader

	// Get retrieves the metadata of a single type
	Get(ctx context.Context, typeID metadata.TypeID) (metadata.TypeUpdate, error)

	// Version returns the authority's current metadata version
	Version(ctx context.Context) (int64, error)
}

// Client is the default implementation of Authority
// that communicates with the authority over HTTP.
type Client struct {
	url        string
	httpClient *http.Client

	// Fields already accepted by the authority, by type
	accepted      map[metadata.TypeID]map[metadata.FieldID]struct{}
	acceptedMutex sync.RWMutex

	// Authentication
	username    string
	password    string
	tokenSecret string
	tokenTTL    time.Duration
	subject     string

	// observer provides optional observability hooks for tracking operations
	observer observability.Observer

	// logger provides optional context-aware logging capabilities
	logger Logger

	// tracer propagates trace context in request headers when set
	tracer tracer.Tracer
}

// NewClient creates a new authority client.
// Returns the concrete *Client type.
func NewClient(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("authority URL is required")
	}

	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.TokenTTL == 0 {
		config.TokenTTL = DefaultTokenTTL
	}
	if config.Subject == "" {
		config.Subject = DefaultSubject
	}

	return &Client{
		url: strings.TrimRight(config.URL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		accepted:    make(map[metadata.TypeID]map[metadata.FieldID]struct{}),
		username:    config.Username,
		password:    config.Password,
		tokenSecret: config.TokenSecret,
		tokenTTL:    config.TokenTTL,
		subject:     config.Subject,
	}, nil
}

// WithObserver attaches an observer to the client.
func (c *Client) WithObserver(observer observability.Observer) *Client {
	c.observer = observer
	return c
}

// WithLogger attaches a logger to the client.
func (c *Client) WithLogger(logger Logger) *Client {
	c.logger = logger
	return c
}

// WithTracer makes the client forward trace context to the authority.
func (c *Client) WithTracer(t tracer.Tracer) *Client {
	c.tracer = t
	return c
}

// Push sends the new fields of every type to the authority, one request per type,
// in ascending type id order. Fields the authority already accepted from this client
// are not sent again. The first failing type aborts the push.
func (c *Client) Push(ctx context.Context, updates map[metadata.TypeID]metadata.TypeUpdate) error {
	ids := make([]metadata.TypeID, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err := c.pushType(ctx, updates[id]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) pushType(ctx context.Context, u metadata.TypeUpdate) error {
	start := time.Now()
	typeID := strconv.FormatInt(int64(u.TypeID), 10)

	fields := c.unaccepted(u)
	if len(fields) == 0 {
		c.observeOperation("push", u.TypeName, typeID, time.Since(start), nil, 0, map[string]interface{}{
			"cache_hit": true,
		})
		return nil
	}

	body, err := json.Marshal(pushRequest{TypeName: u.TypeName, Fields: fields})
	if err != nil {
		c.observeOperation("push", u.TypeName, typeID, time.Since(start), err, 0, nil)
		return metadata.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	var result pushResponse
	err = c.do(ctx, http.MethodPost, "/types/"+typeID+"/fields", body, &result)
	if err != nil {
		c.observeOperation("push", u.TypeName, typeID, time.Since(start), err, int64(len(fields)), nil)
		if IsRetryableError(err) {
			c.logWarn(ctx, "Authority push failed", err, map[string]interface{}{
				"type_id":   u.TypeID,
				"type_name": u.TypeName,
			})
		} else {
			c.logError(ctx, "Authority rejected push", err, map[string]interface{}{
				"type_id":   u.TypeID,
				"type_name": u.TypeName,
			})
		}
		return err
	}

	c.markAccepted(u.TypeID, fields)

	c.observeOperation("push", u.TypeName, typeID, time.Since(start), nil, int64(len(fields)), map[string]interface{}{
		"cache_hit": false,
		"version":   result.Version,
		"added":     result.Added,
	})
	return nil
}

// Load returns every type known to the authority.
func (c *Client) Load(ctx context.Context) ([]metadata.TypeUpdate, error) {
	start := time.Now()

	var result typesResponse
	if err := c.do(ctx, http.MethodGet, "/types", nil, &result); err != nil {
		c.observeOperation("load", "registry", "", time.Since(start), err, 0, nil)
		return nil, err
	}

	for _, u := range result.Types {
		c.markAccepted(u.TypeID, u.Fields)
	}

	c.observeOperation("load", "registry", strconv.FormatInt(result.Version, 10), time.Since(start), nil, int64(len(result.Types)), nil)
	return result.Types, nil
}

// Get retrieves the metadata of a single type. Unknown types yield ErrTypeNotFound.
func (c *Client) Get(ctx context.Context, typeID metadata.TypeID) (metadata.TypeUpdate, error) {
	start := time.Now()
	id := strconv.FormatInt(int64(typeID), 10)

	var result metadata.TypeUpdate
	if err := c.do(ctx, http.MethodGet, "/types/"+id, nil, &result); err != nil {
		c.observeOperation("get", "registry", id, time.Since(start), err, 0, nil)
		return metadata.TypeUpdate{}, err
	}

	c.observeOperation("get", result.TypeName, id, time.Since(start), nil, int64(len(result.Fields)), nil)
	return result, nil
}

// Version returns the authority's current metadata version.
func (c *Client) Version(ctx context.Context) (int64, error) {
	start := time.Now()

	var result struct {
		Version int64 `json:"version"`
	}
	if err := c.do(ctx, http.MethodGet, "/version", nil, &result); err != nil {
		c.observeOperation("version", "registry", "", time.Since(start), err, 0, nil)
		return 0, err
	}

	c.observeOperation("version", "registry", strconv.FormatInt(result.Version, 10), time.Since(start), nil, 0, nil)
	return result.Version, nil
}

// do sends one request and decodes a 2xx JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, reader)
	if err != nil {
		return metadata.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	if err := c.authorize(req); err != nil {
		return metadata.Permanent(err)
	}
	req.Header.Set("Accept", contentType)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}
	if c.tracer != nil {
		for k, v := range c.tracer.GetCarrier(ctx) {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		message := strings.TrimSpace(string(respBody))
		var er errorResponse
		if json.Unmarshal(respBody, &er) == nil && er.Error != "" {
			message = er.Error
		}
		return TranslateStatus(resp.StatusCode, message)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) error {
	switch {
	case c.tokenSecret != "":
		token, err := signToken(c.tokenSecret, c.subject, c.tokenTTL)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	}
	return nil
}

func (c *Client) unaccepted(u metadata.TypeUpdate) []metadata.Field {
	c.acceptedMutex.RLock()
	defer c.acceptedMutex.RUnlock()

	known := c.accepted[u.TypeID]
	fields := make([]metadata.Field, 0, len(u.Fields))
	for _, f := range u.Fields {
		if _, ok := known[f.ID]; !ok {
			fields = append(fields, f)
		}
	}
	return fields
}

func (c *Client) markAccepted(typeID metadata.TypeID, fields []metadata.Field) {
	c.acceptedMutex.Lock()
	defer c.acceptedMutex.Unlock()

	known, ok := c.accepted[typeID]
	if !ok {
		known = make(map[metadata.FieldID]struct{}, len(fields))
		c.accepted[typeID] = known
	}
	for _, f := range fields {
		known[f.ID] = struct{}{}
	}
}
