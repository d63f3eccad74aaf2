package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/totegamma/taxonomy-sync"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "taxonomy-sync"
	apiPrefix        = "/v1"
)

var tracer = otel.Tracer("taxonomy-client")

type Client struct {
	client    *http.Client
	transport http.RoundTripper
	apiRoot   string
	userAgent string
}

type Option func(*Client)

// WithTimeout bounds each request, including reading the response body.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		if transport != nil {
			c.transport = transport
		}
	}
}

// New creates a client for the taxonomy service rooted at apiRoot, e.g. "https://api.test.ndla.no/taxonomy".
func New(apiRoot string, opts ...Option) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    &httpClient,
		transport: http.DefaultTransport,
		apiRoot:   strings.TrimSuffix(apiRoot, "/"),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return c.transport.RoundTrip(req)
}

type request struct {
	method  string
	path    string
	version string
	query   url.Values
	body    any
}

// do performs one call and decodes a 200 body into response.
//
// 204 is an empty success. 201 yields the id from the Location header.
// Non-2xx answers become *taxonomy.APIError. Nothing is retried.
func (c *Client) do(ctx context.Context, r request, response any) (string, error) {
	endpoint := c.apiRoot + apiPrefix + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return "", errors.Wrap(err, "failed to encode request body")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	version := r.version
	if version == "" {
		version = taxonomy.DefaultVersion
	}
	req.Header.Set(taxonomy.VersionHeader, version)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "%s %s", r.method, r.path)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return "", nil
	case resp.StatusCode == http.StatusCreated:
		location := resp.Header.Get("Location")
		id, err := taxonomy.IDFromLocation(location)
		if err != nil {
			return "", errors.Wrapf(err, "%s %s", r.method, r.path)
		}
		return id, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		raw, _ := io.ReadAll(resp.Body)
		return "", taxonomy.ParseAPIError(resp.StatusCode, raw)
	}

	if response == nil {
		return "", nil
	}
	err = json.NewDecoder(resp.Body).Decode(response)
	if err != nil && err != io.EOF {
		return "", errors.Wrapf(err, "failed to decode response of %s %s", r.method, r.path)
	}
	return "", nil
}

func (c *Client) call(ctx context.Context, op string, r request, response any) (string, error) {
	ctx, span := tracer.Start(ctx, "Taxonomy.Client."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("http.method", r.method),
		attribute.String("taxonomy.path", r.path),
		attribute.String("taxonomy.version", r.version),
	)

	id, err := c.do(ctx, r, response)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return id, nil
}

func segment(id string) string {
	return url.PathEscape(id)
}

func languageQuery(language string) url.Values {
	q := url.Values{}
	if language != "" {
		q.Set("language", language)
	}
	return q
}

// nodes

func (c *Client) GetNode(ctx context.Context, version, id, language string) (taxonomy.Node, error) {
	var node taxonomy.Node
	_, err := c.call(ctx, "GetNode", request{
		method:  http.MethodGet,
		path:    "/nodes/" + segment(id),
		version: version,
		query:   languageQuery(language),
	}, &node)
	return node, err
}

func (c *Client) GetNodes(ctx context.Context, version string, query taxonomy.NodeQuery) ([]taxonomy.Node, error) {
	q := languageQuery(query.Language)
	if query.NodeType != "" {
		q.Set("nodeType", string(query.NodeType))
	}
	if query.Key != "" {
		q.Set("key", query.Key)
	}
	if query.Value != "" {
		q.Set("value", query.Value)
	}

	nodes := []taxonomy.Node{}
	_, err := c.call(ctx, "GetNodes", request{
		method:  http.MethodGet,
		path:    "/nodes",
		version: version,
		query:   q,
	}, &nodes)
	return nodes, err
}

// PostNode creates a node and returns its id.
func (c *Client) PostNode(ctx context.Context, version string, body taxonomy.NodePostPut) (string, error) {
	return c.call(ctx, "PostNode", request{
		method:  http.MethodPost,
		path:    "/nodes",
		version: version,
		body:    body,
	}, nil)
}

func (c *Client) UpdateNodeMetadata(ctx context.Context, version, id string, patch taxonomy.MetadataPatch) (taxonomy.Metadata, error) {
	var metadata taxonomy.Metadata
	_, err := c.call(ctx, "UpdateNodeMetadata", request{
		method:  http.MethodPatch,
		path:    "/nodes/" + segment(id) + "/metadata",
		version: version,
		body:    patch,
	}, &metadata)
	return metadata, err
}

func (c *Client) DeleteNode(ctx context.Context, version, id string) error {
	_, err := c.call(ctx, "DeleteNode", request{
		method:  http.MethodDelete,
		path:    "/nodes/" + segment(id),
		version: version,
	}, nil)
	return err
}

func (c *Client) GetNodeConnections(ctx context.Context, version, id string) ([]taxonomy.Connection, error) {
	connections := []taxonomy.Connection{}
	_, err := c.call(ctx, "GetNodeConnections", request{
		method:  http.MethodGet,
		path:    "/nodes/" + segment(id) + "/connections",
		version: version,
	}, &connections)
	return connections, err
}

func (c *Client) GetChildNodes(ctx context.Context, version, id string, recursive bool, language string) ([]taxonomy.NodeChild, error) {
	q := languageQuery(language)
	q.Set("recursive", strconv.FormatBool(recursive))

	children := []taxonomy.NodeChild{}
	_, err := c.call(ctx, "GetChildNodes", request{
		method:  http.MethodGet,
		path:    "/nodes/" + segment(id) + "/nodes",
		version: version,
		query:   q,
	}, &children)
	return children, err
}

func (c *Client) GetNodeResources(ctx context.Context, version, id, language string) ([]taxonomy.NodeResource, error) {
	resources := []taxonomy.NodeResource{}
	_, err := c.call(ctx, "GetNodeResources", request{
		method:  http.MethodGet,
		path:    "/nodes/" + segment(id) + "/resources",
		version: version,
		query:   languageQuery(language),
	}, &resources)
	return resources, err
}

// node-connections

func (c *Client) PostNodeConnection(ctx context.Context, version string, body taxonomy.NodeConnectionPost) (string, error) {
	return c.call(ctx, "PostNodeConnection", request{
		method:  http.MethodPost,
		path:    "/node-connections",
		version: version,
		body:    body,
	}, nil)
}

func (c *Client) PutNodeConnection(ctx context.Context, version, id string, body taxonomy.ConnectionPut) error {
	_, err := c.call(ctx, "PutNodeConnection", request{
		method:  http.MethodPut,
		path:    "/node-connections/" + segment(id),
		version: version,
		body:    body,
	}, nil)
	return err
}

func (c *Client) DeleteNodeConnection(ctx context.Context, version, id string) error {
	_, err := c.call(ctx, "DeleteNodeConnection", request{
		method:  http.MethodDelete,
		path:    "/node-connections/" + segment(id),
		version: version,
	}, nil)
	return err
}

// node-resources

func (c *Client) PostNodeResource(ctx context.Context, version string, body taxonomy.NodeResourcePost) (string, error) {
	return c.call(ctx, "PostNodeResource", request{
		method:  http.MethodPost,
		path:    "/node-resources",
		version: version,
		body:    body,
	}, nil)
}

func (c *Client) PutNodeResource(ctx context.Context, version, id string, body taxonomy.ConnectionPut) error {
	_, err := c.call(ctx, "PutNodeResource", request{
		method:  http.MethodPut,
		path:    "/node-resources/" + segment(id),
		version: version,
		body:    body,
	}, nil)
	return err
}

func (c *Client) DeleteNodeResource(ctx context.Context, version, id string) error {
	_, err := c.call(ctx, "DeleteNodeResource", request{
		method:  http.MethodDelete,
		path:    "/node-resources/" + segment(id),
		version: version,
	}, nil)
	return err
}

// resource types

func (c *Client) GetResourceResourceTypes(ctx context.Context, version, resourceID, language string) ([]taxonomy.ResourceTypeConnection, error) {
	types := []taxonomy.ResourceTypeConnection{}
	_, err := c.call(ctx, "GetResourceResourceTypes", request{
		method:  http.MethodGet,
		path:    "/resources/" + segment(resourceID) + "/resource-types",
		version: version,
		query:   languageQuery(language),
	}, &types)
	return types, err
}

func (c *Client) PostResourceResourceType(ctx context.Context, version string, body taxonomy.ResourceResourceTypePost) (string, error) {
	return c.call(ctx, "PostResourceResourceType", request{
		method:  http.MethodPost,
		path:    "/resource-resourcetypes",
		version: version,
		body:    body,
	}, nil)
}

func (c *Client) DeleteResourceResourceType(ctx context.Context, version, id string) error {
	_, err := c.call(ctx, "DeleteResourceResourceType", request{
		method:  http.MethodDelete,
		path:    "/resource-resourcetypes/" + segment(id),
		version: version,
	}, nil)
	return err
}

// filters

func (c *Client) GetResourceFilters(ctx context.Context, version, resourceID, language string) ([]taxonomy.FilterConnection, error) {
	filters := []taxonomy.FilterConnection{}
	_, err := c.call(ctx, "GetResourceFilters", request{
		method:  http.MethodGet,
		path:    "/resources/" + segment(resourceID) + "/filters",
		version: version,
		query:   languageQuery(language),
	}, &filters)
	return filters, err
}

func (c *Client) PostResourceFilter(ctx context.Context, version string, body taxonomy.ResourceFilterPost) (string, error) {
	return c.call(ctx, "PostResourceFilter", request{
		method:  http.MethodPost,
		path:    "/resource-filters",
		version: version,
		body:    body,
	}, nil)
}

func (c *Client) PutResourceFilter(ctx context.Context, version, id string, body taxonomy.ResourceFilterPut) error {
	_, err := c.call(ctx, "PutResourceFilter", request{
		method:  http.MethodPut,
		path:    "/resource-filters/" + segment(id),
		version: version,
		body:    body,
	}, nil)
	return err
}

func (c *Client) DeleteResourceFilter(ctx context.Context, version, id string) error {
	_, err := c.call(ctx, "DeleteResourceFilter", request{
		method:  http.MethodDelete,
		path:    "/resource-filters/" + segment(id),
		version: version,
	}, nil)
	return err
}
