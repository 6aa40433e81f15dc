package testserver

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/mohae/deepcopy"
)

// RequestOptions describes one request. Defaults are GET with the server
// headers; options apply over them in order.
type RequestOptions struct {
	Method  string
	Header  http.Header
	Body    Body
	Query   url.Values
	Editors []func(*http.Request) error
}

// RequestOption configures a single request.
type RequestOption interface {
	Apply(o *RequestOptions)
}

// RequestOptionFunc adapts a function to RequestOption.
type RequestOptionFunc func(*RequestOptions)

func (f RequestOptionFunc) Apply(o *RequestOptions) { f(o) }

var defaultRequestOptions = &RequestOptions{
	Method: http.MethodGet,
	Header: http.Header{},
	Query:  url.Values{},
}

func (s *Server) newRequestOptions(opts ...RequestOption) *RequestOptions {
	o := deepcopy.Copy(defaultRequestOptions).(*RequestOptions)
	for key, value := range s.opts.Headers {
		o.Header.Set(key, value)
	}
	for _, opt := range opts {
		if opt != nil {
			opt.Apply(o)
		}
	}
	if o.Header == nil {
		o.Header = http.Header{}
	}
	return o
}

// WithMethod sets the request method, upper-cased. The verb shorthands
// override it.
func WithMethod(method string) RequestOption {
	return RequestOptionFunc(func(o *RequestOptions) {
		o.Method = strings.ToUpper(method)
	})
}

// WithRequestHeader adds a value to the request header.
func WithRequestHeader(key, value string) RequestOption {
	return RequestOptionFunc(func(o *RequestOptions) {
		if o.Header == nil {
			o.Header = http.Header{}
		}
		o.Header.Add(key, value)
	})
}

// WithRequestHeaders replaces the whole request header, server headers included.
func WithRequestHeaders(header http.Header) RequestOption {
	return RequestOptionFunc(func(o *RequestOptions) {
		o.Header = header.Clone()
	})
}

// WithBody sets the request body. Its Content-Type, if any, replaces the
// header's.
func WithBody(body Body) RequestOption {
	return RequestOptionFunc(func(o *RequestOptions) {
		o.Body = body
	})
}

// WithJSON is shorthand for WithBody(JSON(v)).
func WithJSON(v any) RequestOption {
	return WithBody(JSON(v))
}

// WithQuery appends key=value to the query string of the path.
func WithQuery(key, value string) RequestOption {
	return RequestOptionFunc(func(o *RequestOptions) {
		if o.Query == nil {
			o.Query = url.Values{}
		}
		o.Query.Add(key, value)
	})
}

// WithRequestEditor runs fn on the outgoing request right before it is sent.
func WithRequestEditor(fn func(*http.Request) error) RequestOption {
	return RequestOptionFunc(func(o *RequestOptions) {
		o.Editors = append(o.Editors, fn)
	})
}

// Request binds the server if needed and sends a request for path. The
// response is returned as the client produced it; errors are not translated.
func (s *Server) Request(ctx context.Context, path string, opts ...RequestOption) (*http.Response, error) {
	if err := s.Listen(ctx); err != nil {
		return nil, err
	}

	o := s.newRequestOptions(opts...)

	var payload []byte
	if o.Body != nil {
		data, contentType, err := o.Body.Encode()
		if err != nil {
			return nil, err
		}
		if contentType != "" {
			o.Header.Set("Content-Type", contentType)
		}
		payload = data
	}

	target := s.URL(path)
	if len(o.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + o.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, o.Method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header = o.Header

	for _, edit := range o.Editors {
		if err := edit(req); err != nil {
			return nil, err
		}
	}

	s.opts.Logger.Debug().
		Str("trace_id", uuid.NewString()).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Interface("header", req.Header).
		Int("body_bytes", len(payload)).
		Msg("request")

	return s.opts.HTTPClient.Do(req)
}

// Delete sends a DELETE request for path.
func (s *Server) Delete(ctx context.Context, path string, opts ...RequestOption) (*http.Response, error) {
	return s.verb(ctx, http.MethodDelete, path, opts)
}

// Get sends a GET request for path.
func (s *Server) Get(ctx context.Context, path string, opts ...RequestOption) (*http.Response, error) {
	return s.verb(ctx, http.MethodGet, path, opts)
}

// Head sends a HEAD request for path.
func (s *Server) Head(ctx context.Context, path string, opts ...RequestOption) (*http.Response, error) {
	return s.verb(ctx, http.MethodHead, path, opts)
}

// Options sends a OPTIONS request for path.
func (s *Server) Options(ctx context.Context, path string, opts ...RequestOption) (*http.Response, error) {
	return s.verb(ctx, http.MethodOptions, path, opts)
}

// Patch sends a PATCH request for path.
func (s *Server) Patch(ctx context.Context, path string, opts ...RequestOption) (*http.Response, error) {
	return s.verb(ctx, http.MethodPatch, path, opts)
}

// Post sends a POST request for path.
func (s *Server) Post(ctx context.Context, path string, opts ...RequestOption) (*http.Response, error) {
	return s.verb(ctx, http.MethodPost, path, opts)
}

// Put sends a PUT request for path.
func (s *Server) Put(ctx context.Context, path string, opts ...RequestOption) (*http.Response, error) {
	return s.verb(ctx, http.MethodPut, path, opts)
}

func (s *Server) verb(ctx context.Context, method, path string, opts []RequestOption) (*http.Response, error) {
	return s.Request(ctx, path, append(opts[:len(opts):len(opts)], WithMethod(method))...)
}
