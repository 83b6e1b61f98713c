package codec

import (
	"github.com/pkg/errors"

	"github.com/customeros/mailcodec/interfaces"
	"github.com/customeros/mailcodec/internal/logger"
)

var (
	ErrMalformedAddress           = errors.New("malformed e-mail address")
	ErrUnresolvableAttachmentType = errors.New("no media type for attachment filename")
)

const (
	contentTypeAlternative = "multipart/alternative"
	contentTypeMixed       = "multipart/mixed"
	contentTypeTextPlain   = "text/plain"
	contentTypeTextHTML    = "text/html"
	contentTypeJSON        = "application/json"
	contentTypeGeoJSON     = "application/geo+json"
	contentTypeBinary      = "application/octet-stream"
)

// markerNew is the literal In-Reply-To identifier flagging a new item rather
// than a session reference.
const markerNew = "new"

type codecService struct {
	log     logger.Logger
	geoJSON interfaces.GeoJSONDecoder
}

// NewCodecService returns the message codec. geoJSON may be nil, which
// disables application/geo+json decoding on inbound messages.
func NewCodecService(log logger.Logger, geoJSON interfaces.GeoJSONDecoder) interfaces.MessageCodec {
	return &codecService{
		log:     log,
		geoJSON: geoJSON,
	}
}
