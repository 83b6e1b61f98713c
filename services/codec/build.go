package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/customeros/mailcodec/interfaces"
	"github.com/customeros/mailcodec/internal/tracing"
)

// BuildMessage renders the item into a MIME message. The body is a
// multipart/alternative with text, canonical JSON and HTML parts in that
// order, so consumers picking the last/best alternative prefer HTML.
// References and the Reply-To plus-tag carry the item identifier; the
// Message-ID is freshly generated on every call.
func (s *codecService) BuildMessage(ctx context.Context, item interface{}, itemCodec interfaces.ItemCodec) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CodecService.BuildMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	identifier := itemCodec.ID(item)
	issuer := itemCodec.Issuer(item)
	sender, domain, err := splitAddress(issuer)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	itemContext := itemCodec.Context(item)
	contextJSON, err := json.Marshal(itemContext)
	if err != nil {
		err = errors.Wrap(err, "serialize item context")
		tracing.TraceErr(span, err)
		return nil, err
	}

	plain := itemCodec.RenderTemplate(itemCodec.TextTemplate(item), itemContext)
	html := itemCodec.RenderTemplate(itemCodec.HTMLTemplate(item), map[string]interface{}{
		"markup":  itemCodec.TextToHTML(plain),
		"context": itemContext,
	})

	alternative := enmime.NewPart(contentTypeAlternative)

	textPart := enmime.NewPart(contentTypeTextPlain)
	textPart.Charset = "utf-8"
	textPart.Content = []byte(plain)
	alternative.AddChild(textPart)

	jsonPart := enmime.NewPart(contentTypeJSON)
	jsonPart.Content = contextJSON
	alternative.AddChild(jsonPart)

	htmlPart := enmime.NewPart(contentTypeTextHTML)
	htmlPart.Charset = "utf-8"
	htmlPart.Content = []byte(html)
	alternative.AddChild(htmlPart)

	root := alternative
	if files := itemCodec.Attachments(item); len(files) > 0 {
		root = enmime.NewPart(contentTypeMixed)
		root.AddChild(alternative)
		for _, file := range files {
			part, attachErr := buildAttachmentPart(file)
			if attachErr != nil {
				tracing.TraceErr(span, attachErr)
				return nil, attachErr
			}
			root.AddChild(part)
		}
	}

	root.Header.Set("From", issuer)
	root.Header.Set("To", itemCodec.Recipient(item))
	// direct assignment keeps the Message-ID casing; Set would canonicalize
	// the key to Message-Id
	root.Header["Message-ID"] = []string{fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)}
	root.Header.Set("References", fmt.Sprintf("<%s@%s>", identifier, domain))
	root.Header.Set("Reply-To", EncodeAddress(sender, identifier, domain))
	root.Header.Set("Subject", EncodeSubject(itemCodec.HumanID(item), itemCodec.ExternalID(item), itemCodec.Subject(item)))
	root.Header.Set("Mime-Version", "1.0")

	buffer := &bytes.Buffer{}
	if err = root.Encode(buffer); err != nil {
		err = errors.Wrap(err, "encode message")
		tracing.TraceErr(span, err)
		return nil, err
	}
	return buffer.Bytes(), nil
}

// buildAttachmentPart resolves the media type from the filename extension and
// consumes the reader fully. Text payloads that are not valid UTF-8 go
// through charset detection; payloads that still cannot be decoded are
// reclassified as binary instead of rejected.
func buildAttachmentPart(file interfaces.AttachmentFile) (*enmime.Part, error) {
	resolved := mime.TypeByExtension(strings.ToLower(filepath.Ext(file.Name)))
	if resolved == "" {
		return nil, errors.Wrap(ErrUnresolvableAttachmentType, file.Name)
	}
	mediaType, _, err := mime.ParseMediaType(resolved)
	if err != nil {
		return nil, errors.Wrap(ErrUnresolvableAttachmentType, file.Name)
	}

	content, err := io.ReadAll(file.Reader)
	if err != nil {
		return nil, errors.Wrap(err, file.Name)
	}

	charset := ""
	if strings.HasPrefix(mediaType, "text/") {
		charset = "utf-8"
		if !utf8.Valid(content) {
			decoded, decodeErr := recodeToUTF8(content)
			if decodeErr != nil {
				mediaType = contentTypeBinary
				charset = ""
			} else {
				content = decoded
			}
		}
	}

	part := enmime.NewPart(mediaType)
	part.Charset = charset
	part.Content = content
	part.FileName = filepath.Base(file.Name)
	part.Disposition = "attachment"
	return part, nil
}

func recodeToUTF8(content []byte) ([]byte, error) {
	detected, err := chardet.NewTextDetector().DetectBest(content)
	if err != nil {
		return nil, errors.Wrap(err, "detect charset")
	}
	encoding, err := ianaindex.IANA.Encoding(detected.Charset)
	if err != nil || encoding == nil {
		return nil, errors.Errorf("unsupported charset %q", detected.Charset)
	}
	decoded, err := encoding.NewDecoder().Bytes(content)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s payload", detected.Charset)
	}
	if !utf8.Valid(decoded) {
		return nil, errors.Errorf("payload not decodable as %s", detected.Charset)
	}
	return decoded, nil
}
