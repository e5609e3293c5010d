package executor

import (
	"context"
	"net/http"
)

type requestHeaderKey struct{}

// SetRequestHeaderToContext attaches the inbound request's HTTP header to ctx
// so that downstream subgraph requests can propagate selected headers
// (e.g. Authorization, traceparent) through the execution path.
func SetRequestHeaderToContext(ctx context.Context, h http.Header) context.Context {
	return context.WithValue(ctx, requestHeaderKey{}, h)
}

// RequestHeaderFromContext returns the header stashed by
// SetRequestHeaderToContext, or nil if none was set.
func RequestHeaderFromContext(ctx context.Context) http.Header {
	h, _ := ctx.Value(requestHeaderKey{}).(http.Header)
	return h
}
