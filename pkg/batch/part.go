// Package batch implements the OData $batch multipart wire format: the
// part model, boundary generation, and the renderer. Servers validate the
// MIME structure strictly, so the renderer reproduces the byte layout
// exactly: delimiter, part headers, blank line, payload, at every nesting
// level.
package batch

import (
	"github.com/google/uuid"

	"github.com/odatakit/odata-client/pkg/headers"
	"github.com/odatakit/odata-client/pkg/transport"
)

// Part is one section of a multipart batch body. The variant is closed:
// SinglePart, ChangeSet, or EmptyPart.
type Part interface {
	part()
}

// SinglePart wraps one logical HTTP request plus headers emitted after the
// boundary but outside the request itself.
type SinglePart struct {
	Request transport.Request
	Headers *headers.Headers
}

func (SinglePart) part() {}

// ChangeSet is an ordered group of write operations the server must apply
// atomically. Only SinglePart may appear inside a changeset; changesets do
// not nest.
type ChangeSet struct {
	Parts    []SinglePart
	Boundary string
	Headers  *headers.Headers
}

func (ChangeSet) part() {}

// EmptyPart renders to the empty string. Useful as a neutral placeholder.
type EmptyPart struct{}

func (EmptyPart) part() {}

// Multipart is the top-level batch body: an ordered sequence of parts
// delimited by one boundary. The top-level boundary and any changeset
// boundaries carry distinct prefixes, so freshly generated values never
// collide with each other.
type Multipart struct {
	Boundary string
	Parts    []Part
}

// NewMultipart creates a Multipart with a fresh top-level boundary.
func NewMultipart(parts ...Part) Multipart {
	return Multipart{
		Boundary: NewBoundary(),
		Parts:    parts,
	}
}

// NewChangeSet creates a ChangeSet with a fresh changeset boundary.
// extra may be nil.
func NewChangeSet(parts []SinglePart, extra *headers.Headers) ChangeSet {
	return ChangeSet{
		Parts:    parts,
		Boundary: NewChangeSetBoundary(),
		Headers:  extra,
	}
}

// NewBoundary generates a top-level batch boundary token.
func NewBoundary() string {
	return "boundary_" + uuid.NewString()
}

// NewChangeSetBoundary generates a changeset boundary token.
func NewChangeSetBoundary() string {
	return "changeset_" + uuid.NewString()
}
