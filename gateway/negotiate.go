package gateway

import (
	"sort"
	"strconv"
	"strings"

	"github.com/n9te9/federation-core/federation/errs"
)

// ResponseFormat is the wire format a response should be encoded in,
// negotiated from the request's Accept header. Grounded on
// original_source/crates/engine/src/graphql_over_http/format.rs's
// ResponseFormat/CompleteResponseFormat/StreamingResponseFormat split.
type ResponseFormat int

const (
	// FormatJSON is the default: a plain "application/json" envelope.
	FormatJSON ResponseFormat = iota
	// FormatGraphQLResponseJSON is "application/graphql-response+json" per
	// the GraphQL-over-HTTP spec.
	FormatGraphQLResponseJSON
	// FormatMultipart is incremental delivery over multipart/mixed.
	FormatMultipart
	// FormatEventStream is GraphQL-over-SSE.
	FormatEventStream
)

// ContentType returns the header value a response in this format is sent
// with.
func (f ResponseFormat) ContentType() string {
	switch f {
	case FormatGraphQLResponseJSON:
		return "application/graphql-response+json"
	case FormatMultipart:
		return "multipart/mixed"
	case FormatEventStream:
		return "text/event-stream"
	default:
		return "application/json"
	}
}

// Streaming reports whether this format requires delivering more than one
// chunk over the wire.
func (f ResponseFormat) Streaming() bool {
	return f == FormatMultipart || f == FormatEventStream
}

type weightedMediaType struct {
	essence string
	q       float64
}

// NegotiateResponseFormat picks the ResponseFormat an Accept header asks
// for, by essence (type/subtype, parameters besides q ignored) and
// quality value, highest q first. An empty or all-"*/*" Accept header
// (or its absence) means FormatJSON, the gateway's default. Only
// FormatJSON and FormatGraphQLResponseJSON are fully implemented; asking
// for multipart or event-stream gets a BAD_REQUEST error instead of a
// silent fallback, since this gateway doesn't implement incremental
// delivery or subscriptions transport.
func NegotiateResponseFormat(accept string) (ResponseFormat, *errs.GraphQLError) {
	accept = strings.TrimSpace(accept)
	if accept == "" {
		return FormatJSON, nil
	}

	candidates := parseAccept(accept)
	if len(candidates) == 0 {
		return FormatJSON, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].q > candidates[j].q
	})

	for _, c := range candidates {
		switch c.essence {
		case "*/*", "application/*":
			return FormatJSON, nil
		case "application/json":
			return FormatJSON, nil
		case "application/graphql-response+json":
			return FormatGraphQLResponseJSON, nil
		case "multipart/mixed":
			return 0, errs.New(errs.CodeBadRequest, "incremental delivery (multipart/mixed) is not supported")
		case "text/event-stream":
			return 0, errs.New(errs.CodeBadRequest, "GraphQL over SSE (text/event-stream) is not supported")
		}
	}

	return 0, errs.New(errs.CodeBadRequest, "none of the requested media types in Accept are supported")
}

func parseAccept(header string) []weightedMediaType {
	var out []weightedMediaType
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		segments := strings.Split(part, ";")
		essence := strings.ToLower(strings.TrimSpace(segments[0]))
		q := 1.0
		for _, param := range segments[1:] {
			name, val, ok := strings.Cut(param, "=")
			if !ok || strings.ToLower(strings.TrimSpace(name)) != "q" {
				continue
			}
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
				q = parsed
			}
		}
		out = append(out, weightedMediaType{essence: essence, q: q})
	}
	return out
}
