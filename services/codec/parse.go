package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"net/mail"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailcodec/interfaces"
	"github.com/customeros/mailcodec/internal/models"
	"github.com/customeros/mailcodec/internal/tracing"
	"github.com/customeros/mailcodec/internal/utils"
)

// signaturePattern matches the conventional signature delimiter line,
// including the trailing carriage return of CRLF-terminated bodies.
var signaturePattern = regexp.MustCompile(`(?m)^--[ \t\r]*$`)

// ParseMessage decodes a raw MIME message into a normalized record. Header
// failures (unparseable From/To) abort; body anomalies never do. The decoder
// is total over any syntactically valid message and degrades to empty or
// neutral fields.
func (s *codecService) ParseMessage(ctx context.Context, raw []byte, itemCodec interfaces.ItemCodec) (*models.InboundMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CodecService.ParseMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		err = errors.Wrap(err, "read envelope")
		tracing.TraceErr(span, err)
		return nil, err
	}

	record, err := s.parseHeaders(envelope, itemCodec)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	s.parseBody(envelope, record)

	if err = itemCodec.UpdateItem(record); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return record, nil
}

func (s *codecService) parseHeaders(envelope *enmime.Envelope, itemCodec interfaces.ItemCodec) (*models.InboundMessage, error) {
	issuer, err := parseIssuer(envelope.GetHeader("From"))
	if err != nil {
		return nil, err
	}

	recipient, identifier, domain, err := DecodeAddress(envelope.GetHeader("To"))
	if err != nil {
		return nil, err
	}

	// Markers are matched against the normalized subject; the record carries
	// the stripped text verbatim, not a re-normalized copy.
	subject := utils.Normalize(envelope.GetHeader("Subject"))
	isNew, externalID, subject := DecodeSubject(itemCodec, subject)

	if identifier == "" {
		if inReplyTo := envelope.GetHeader("In-Reply-To"); inReplyTo != "" {
			irtRecipient, irtIdentifier, irtDomain, irtErr := DecodeAddress(inReplyTo)
			if irtErr == nil && irtRecipient == recipient && irtDomain == domain {
				if irtIdentifier == markerNew {
					isNew = true
				} else {
					identifier = irtIdentifier
				}
			}
		}
	}
	if identifier == "" {
		identifier, subject = DecodeSubjectReference(itemCodec, subject)
	}

	return &models.InboundMessage{
		Domain:      domain,
		Issuer:      issuer,
		Recipient:   recipient,
		Identifier:  identifier,
		ExternalID:  externalID,
		New:         isNew,
		Subject:     subject,
		Attachments: []models.Attachment{},
	}, nil
}

func parseIssuer(header string) (string, error) {
	address, err := mail.ParseAddress(header)
	if err != nil {
		return "", errors.Wrap(ErrMalformedAddress, header)
	}
	if validation := mailvalidate.ValidateEmailSyntax(address.Address); validation.IsValid {
		return validation.CleanEmail, nil
	}
	return address.Address, nil
}

func (s *codecService) parseBody(envelope *enmime.Envelope, record *models.InboundMessage) {
	var (
		jsonPart interface{}
		jsonSeen bool
		text     string
		htmlText string
	)

	walkLeaves(envelope.Root, func(part *enmime.Part) {
		contentType := part.ContentType
		switch {
		case s.geoJSON != nil && contentType == contentTypeGeoJSON:
			value, err := s.geoJSON.Decode(part.Content)
			if err != nil {
				s.log.Warnf("dropping undecodable geo+json part: %v", err)
				return
			}
			record.Attachments = append(record.Attachments, models.Attachment{
				ContentType: contentType,
				Payload:     part.Content,
				Value:       value,
			})
		case contentType == contentTypeJSON:
			// first json part wins
			if jsonSeen {
				return
			}
			jsonSeen = true
			var value interface{}
			if err := json.Unmarshal(part.Content, &value); err != nil {
				s.log.Warnf("ignoring undecodable json part: %v", err)
				return
			}
			jsonPart = value
		case strings.HasPrefix(contentType, "text/"):
			payload := string(part.Content)
			switch contentType {
			case contentTypeTextPlain:
				// multiple text/plain parts concatenate in document order
				text += payload
			case contentTypeTextHTML:
				if text == "" {
					htmlText += "\n" + htmlToText(payload)
				}
			default:
				record.Attachments = append(record.Attachments, models.Attachment{
					ContentType: contentType,
					Payload:     part.Content,
				})
			}
		case strings.HasPrefix(contentType, "image/"),
			strings.HasPrefix(contentType, "video/"),
			strings.HasPrefix(contentType, "application/"):
			record.Attachments = append(record.Attachments, models.Attachment{
				ContentType: contentType,
				Payload:     part.Content,
			})
		}
	})

	if text == "" {
		text = htmlText
	}
	text = strings.TrimSpace(text)
	if loc := signaturePattern.FindStringIndex(text); loc != nil {
		text = strings.TrimSpace(text[:loc[0]])
	}

	if jsonPart == nil {
		jsonPart, text = decodeStructuredBody(text)
	}

	record.JSONPart = jsonPart
	record.TextPart = text
}

// walkLeaves visits every non-multipart leaf in document order.
func walkLeaves(part *enmime.Part, visit func(*enmime.Part)) {
	if part == nil {
		return
	}
	if part.FirstChild == nil {
		if !strings.HasPrefix(part.ContentType, "multipart/") {
			visit(part)
		}
		return
	}
	for child := part.FirstChild; child != nil; child = child.NextSibling {
		walkLeaves(child, visit)
	}
}

// htmlToText degrades an HTML part to visible text: script and style elements
// removed, each line trimmed, blank lines dropped.
func htmlToText(html string) string {
	document, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	document.Find("script, style").Each(func(i int, element *goquery.Selection) {
		element.Remove()
	})

	lines := make([]string, 0)
	for _, line := range strings.Split(document.Text(), "\n") {
		if line != "" {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return strings.Join(lines, "\n")
}
