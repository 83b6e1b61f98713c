package interfaces

import (
	"context"
	"io"
	"regexp"

	"github.com/customeros/mailcodec/internal/models"
)

// AttachmentFile is an outbound attachment source: a file name carrying the
// media type extension and a reader consumed exactly once per build.
type AttachmentFile struct {
	Name   string
	Reader io.Reader
}

// ItemCodec maps an application item to mail content and back. Every hook is
// pure given the item. Applications embed codec.DefaultCodec and override the
// hooks their item type needs.
type ItemCodec interface {
	// ID returns the stable identifier correlating replies to the item.
	ID(item interface{}) string
	// HumanID returns the short display identifier used in the subject tag.
	HumanID(item interface{}) string
	// ExternalID returns a cross-system reference, empty when there is none.
	ExternalID(item interface{}) string
	Issuer(item interface{}) string
	Recipient(item interface{}) string
	Subject(item interface{}) string
	// Context returns the serializable view of the item, either a
	// map[string]string or a plain string.
	Context(item interface{}) interface{}
	TextTemplate(item interface{}) string
	HTMLTemplate(item interface{}) string
	// RenderTemplate substitutes the context into a {}-style template,
	// by key when the context is a mapping and positionally otherwise.
	RenderTemplate(template string, context interface{}) string
	// TextToHTML renders lightweight markup to HTML for the alternative body.
	TextToHTML(text string) string
	Attachments(item interface{}) []AttachmentFile
	// UpdateItem post-processes a freshly parsed record in place.
	UpdateItem(record *models.InboundMessage) error

	// NewMarker matches the token flagging a message as a new item.
	NewMarker() *regexp.Regexp
	// ExternalIDMarker matches an external-reference marker plus its token.
	ExternalIDMarker() *regexp.Regexp
	// ReferenceMarker matches the inline session reference used only when
	// neither the address nor In-Reply-To carried an identifier.
	ReferenceMarker() *regexp.Regexp
}

// Identified is implemented by items that carry their own identifier.
type Identified interface {
	ItemID() string
}

// ExternallyIdentified is implemented by items that carry a cross-system
// reference.
type ExternallyIdentified interface {
	ItemExternalID() string
}

// ContextProvider is implemented by items that expose a mapping view of
// themselves for serialization.
type ContextProvider interface {
	ItemContext() map[string]string
}

// GeoJSONDecoder is the optional collaborator for application/geo+json parts.
// A nil decoder disables that classification branch.
type GeoJSONDecoder interface {
	Decode(payload []byte) (interface{}, error)
}

// MessageCodec turns items into MIME messages and raw MIME messages into
// normalized records. Implementations hold no cross-call state and are safe
// for concurrent use.
type MessageCodec interface {
	BuildMessage(ctx context.Context, item interface{}, itemCodec ItemCodec) ([]byte, error)
	ParseMessage(ctx context.Context, raw []byte, itemCodec ItemCodec) (*models.InboundMessage, error)
}
