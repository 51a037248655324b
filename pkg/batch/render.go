package batch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/odatakit/odata-client/pkg/headers"
)

const crlf = "\r\n"

// ErrMissingHost is returned when a part's request has neither a Host
// header nor an absolute URL. The resulting batch would be malformed on
// the wire, so rendering fails up front rather than producing a body the
// server will reject.
var ErrMissingHost = errors.New("batch part request requires a Host header or an absolute URL")

// ContentType returns the media type to send with a rendered body.
func ContentType(m Multipart) string {
	return "multipart/mixed; boundary=" + m.Boundary
}

// Render serializes a Multipart into its wire body. Each part is preceded
// by CRLF "--" boundary CRLF and the set is closed by CRLF "--" boundary
// "--" CRLF. Ordering is significant and preserved exactly.
func Render(m Multipart) (string, error) {
	var sb strings.Builder

	for _, p := range m.Parts {
		sb.WriteString(crlf + "--" + m.Boundary + crlf)
		rendered, err := renderPart(p)
		if err != nil {
			return "", err
		}
		sb.WriteString(rendered)
	}
	sb.WriteString(crlf + "--" + m.Boundary + "--" + crlf)

	return sb.String(), nil
}

func renderPart(p Part) (string, error) {
	switch part := p.(type) {
	case SinglePart:
		return renderSingle(part)
	case ChangeSet:
		return renderChangeSet(part)
	case EmptyPart:
		return "", nil
	default:
		return "", fmt.Errorf("render: unknown part type %T", p)
	}
}

// renderSingle emits the standard part headers merged with the part's
// extras, a blank line, the request line, the request headers, a blank
// line, and the body.
func renderSingle(p SinglePart) (string, error) {
	req := p.Request

	if !req.Headers.Has("Host") && !isAbsoluteURL(req.URL) {
		return "", fmt.Errorf("%w: %s %s", ErrMissingHost, req.Method, req.URL)
	}

	partHeaders := headers.Pairs(
		"Content-Transfer-Encoding", "binary",
		"Content-Type", "application/http",
	).Merge(p.Headers)

	var sb strings.Builder
	partHeaders.Write(&sb)
	sb.WriteString(crlf)
	sb.WriteString(req.Method + " " + req.URL + " HTTP/1.1")
	sb.WriteString(crlf)
	req.Headers.Write(&sb)
	sb.WriteString(crlf)
	sb.WriteString(req.Body)

	return sb.String(), nil
}

// renderChangeSet emits the changeset's multipart/mixed header, then each
// inner part behind the changeset's own delimiter, then the closing
// delimiter. Content-IDs are injected at render time and never stored back
// into the value, so re-rendering the same ChangeSet yields fresh IDs.
func renderChangeSet(cs ChangeSet) (string, error) {
	partHeaders := headers.Pairs(
		"Content-Type", "multipart/mixed; boundary="+cs.Boundary,
	).Merge(cs.Headers)

	var sb strings.Builder
	partHeaders.Write(&sb)

	for _, inner := range cs.Parts {
		rendered, err := renderSingle(prepareChangeSetPart(inner))
		if err != nil {
			return "", err
		}
		sb.WriteString(crlf + "--" + cs.Boundary + crlf)
		sb.WriteString(rendered)
	}
	sb.WriteString(crlf + "--" + cs.Boundary + "--" + crlf)

	return sb.String(), nil
}

// prepareChangeSetPart returns a copy of the part with a Content-ID
// injected when missing and the request's Content-Type normalized to carry
// a type=entry parameter.
func prepareChangeSetPart(p SinglePart) SinglePart {
	partHeaders := p.Headers.Clone()
	if !partHeaders.Has("Content-ID") {
		partHeaders.Set("Content-ID", uuid.NewString())
	}

	reqHeaders := p.Request.Headers.Clone()
	normalizeContentType(reqHeaders)

	prepared := p
	prepared.Headers = partHeaders
	prepared.Request.Headers = reqHeaders
	return prepared
}

// normalizeContentType appends "; type=entry" when a Content-Type is
// present without a type parameter, and sets the JSON default when absent.
// The check is a naive substring search on the parameter list; servers
// already in production depend on this exact byte layout.
func normalizeContentType(h *headers.Headers) {
	ct, ok := h.Get("Content-Type")
	if !ok {
		h.Set("Content-Type", "application/json; type=entry")
		return
	}
	if !strings.Contains(ct, "type=") {
		h.Set("Content-Type", ct+"; type=entry")
	}
}

// isAbsoluteURL reports whether the URL begins with a scheme.
func isAbsoluteURL(u string) bool {
	return strings.Contains(u, "://")
}
