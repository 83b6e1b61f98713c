package codec

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
	"golang.org/x/crypto/sha3"

	"github.com/customeros/mailcodec/config"
	"github.com/customeros/mailcodec/interfaces"
	"github.com/customeros/mailcodec/internal/models"
)

const humanIDLength = 13

var (
	defaultNewMarker        = regexp.MustCompile(`(?i)\bnew\b`)
	defaultExternalIDMarker = regexp.MustCompile(`(?i)\bx[-\s]?ref(?:erence)?\s+(\S+)`)
	defaultReferenceMarker  = regexp.MustCompile(`(?i)\bref(?:erence)?\s+([0-9a-f-]+)`)
)

// DefaultCodec implements interfaces.ItemCodec with the stock hook behavior.
// Applications embed it and override the hooks their item type needs.
type DefaultCodec struct {
	IssuerAddress    string
	RecipientAddress string
}

func NewDefaultCodec(cfg *config.CodecConfig) *DefaultCodec {
	return &DefaultCodec{
		IssuerAddress:    cfg.DefaultIssuer,
		RecipientAddress: cfg.DefaultRecipient,
	}
}

// ID returns the item's own identifier when it exposes one, otherwise the
// first 32 hex characters of the SHA3-256 hash of the item's string form.
// The hash truncation is a wire contract: stored references depend on it.
func (c *DefaultCodec) ID(item interface{}) string {
	if identified, ok := item.(interfaces.Identified); ok {
		return identified.ItemID()
	}
	sum := sha3.Sum256([]byte(itemString(item)))
	return hex.EncodeToString(sum[:])[:32]
}

// HumanID is the 13-character prefix of ID, short enough for a subject tag.
func (c *DefaultCodec) HumanID(item interface{}) string {
	id := c.ID(item)
	if len(id) > humanIDLength {
		id = id[:humanIDLength]
	}
	return id
}

func (c *DefaultCodec) ExternalID(item interface{}) string {
	if identified, ok := item.(interfaces.ExternallyIdentified); ok {
		return identified.ItemExternalID()
	}
	return ""
}

func (c *DefaultCodec) Issuer(item interface{}) string {
	return c.IssuerAddress
}

func (c *DefaultCodec) Recipient(item interface{}) string {
	return c.RecipientAddress
}

func (c *DefaultCodec) Subject(item interface{}) string {
	return itemString(item)
}

func (c *DefaultCodec) Context(item interface{}) interface{} {
	if provider, ok := item.(interfaces.ContextProvider); ok {
		return provider.ItemContext()
	}
	if mapping, ok := item.(map[string]string); ok {
		return mapping
	}
	return itemString(item)
}

func (c *DefaultCodec) TextTemplate(item interface{}) string {
	return "{}"
}

// HTMLTemplate receives {markup, context}, where markup is the HTML rendering
// of the already-rendered text body.
func (c *DefaultCodec) HTMLTemplate(item interface{}) string {
	return "<container>{markup}</container>"
}

func (c *DefaultCodec) RenderTemplate(template string, context interface{}) string {
	switch mapping := context.(type) {
	case map[string]string:
		rendered := template
		for key, value := range mapping {
			rendered = strings.ReplaceAll(rendered, "{"+key+"}", value)
		}
		return rendered
	case map[string]interface{}:
		rendered := template
		for key, value := range mapping {
			rendered = strings.ReplaceAll(rendered, "{"+key+"}", itemString(value))
		}
		return rendered
	default:
		return strings.ReplaceAll(template, "{}", itemString(context))
	}
}

func (c *DefaultCodec) TextToHTML(text string) string {
	return strings.TrimSpace(string(blackfriday.Run([]byte(text))))
}

func (c *DefaultCodec) Attachments(item interface{}) []interfaces.AttachmentFile {
	return nil
}

func (c *DefaultCodec) UpdateItem(record *models.InboundMessage) error {
	return nil
}

func (c *DefaultCodec) NewMarker() *regexp.Regexp {
	return defaultNewMarker
}

func (c *DefaultCodec) ExternalIDMarker() *regexp.Regexp {
	return defaultExternalIDMarker
}

func (c *DefaultCodec) ReferenceMarker() *regexp.Regexp {
	return defaultReferenceMarker
}

func itemString(item interface{}) string {
	switch value := item.(type) {
	case string:
		return value
	case fmt.Stringer:
		return value.String()
	default:
		return fmt.Sprintf("%v", item)
	}
}
