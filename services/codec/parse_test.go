package codec

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailcodec/internal/models"
	"github.com/customeros/mailcodec/services/geo"
)

const replyFixture = `From: example@example.com
To: example+123456789@example.com
Message-ID: <36f028580bb02cc8272a9a020f4200e3@example.com>
References: <36f028580bb02cc8272a9a020f4200e3@example.com>
Reply-To: example+36f028580bb02cc8272a9a020f4200e3@example.com
Subject: [xref 42] test
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="===============BOUND=="

--===============BOUND==
Content-Type: text/plain; charset="utf-8"
Content-Transfer-Encoding: 7bit

test

--===============BOUND==
Content-Type: application/json
Content-Transfer-Encoding: base64
MIME-Version: 1.0

InRlc3Qi

--===============BOUND==
Content-Type: text/html; charset="utf-8"
Content-Transfer-Encoding: 7bit
MIME-Version: 1.0

<container><p>test</p></container>

--===============BOUND==--
`

func TestParseMessage(t *testing.T) {
	service := NewCodecService(getLogger(), nil)

	record, err := service.ParseMessage(context.Background(), []byte(replyFixture), getItemCodec())
	require.NoError(t, err)

	assert.Equal(t, &models.InboundMessage{
		Domain:      "example.com",
		Issuer:      "example@example.com",
		Recipient:   "example",
		Identifier:  "123456789",
		ExternalID:  "42",
		New:         false,
		Subject:     " test",
		JSONPart:    "test",
		TextPart:    "test",
		Attachments: []models.Attachment{},
	}, record)
}

func plainFixture(subject, extraHeader, body string) []byte {
	message := "From: sender@example.com\n" +
		"To: example@example.com\n" +
		"Subject: " + subject + "\n" +
		extraHeader +
		"MIME-Version: 1.0\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\n" +
		"\n" +
		body + "\n"
	return []byte(message)
}

func TestParseMessageInReplyToNew(t *testing.T) {
	service := NewCodecService(getLogger(), nil)

	record, err := service.ParseMessage(context.Background(),
		plainFixture("broken printer", "In-Reply-To: <example+new@example.com>\n", "please fix"), getItemCodec())
	require.NoError(t, err)

	assert.True(t, record.New)
	assert.Equal(t, "", record.Identifier)
	assert.Equal(t, "broken printer", record.Subject)
	assert.Equal(t, "please fix", record.TextPart)
}

func TestParseMessageInReplyToIdentifier(t *testing.T) {
	service := NewCodecService(getLogger(), nil)

	record, err := service.ParseMessage(context.Background(),
		plainFixture("re broken printer", "In-Reply-To: <example+abc123@example.com>\n", "still broken"), getItemCodec())
	require.NoError(t, err)

	assert.False(t, record.New)
	assert.Equal(t, "abc123", record.Identifier)
}

func TestParseMessageInReplyToOtherMailbox(t *testing.T) {
	// identifiers are only adopted from replies to our own address
	service := NewCodecService(getLogger(), nil)

	record, err := service.ParseMessage(context.Background(),
		plainFixture("hello", "In-Reply-To: <other+abc123@elsewhere.org>\n", "hi"), getItemCodec())
	require.NoError(t, err)

	assert.Equal(t, "", record.Identifier)
}

func TestParseMessageSubjectReference(t *testing.T) {
	service := NewCodecService(getLogger(), nil)

	record, err := service.ParseMessage(context.Background(),
		plainFixture("ref 36f028580bb02 printer broken", "", "update please"), getItemCodec())
	require.NoError(t, err)

	assert.Equal(t, "36f028580bb02", record.Identifier)
	assert.Equal(t, " printer broken", record.Subject)
}

func TestParseMessageSignatureStripped(t *testing.T) {
	service := NewCodecService(getLogger(), nil)

	record, err := service.ParseMessage(context.Background(),
		plainFixture("hello", "", "Hello\n--\nJane Doe\nExample Corp"), getItemCodec())
	require.NoError(t, err)

	assert.Equal(t, "Hello", record.TextPart)
}

func TestParseMessageSignatureStrippedCRLF(t *testing.T) {
	// the delimiter line carries a trailing \r when the body is CRLF-terminated
	service := NewCodecService(getLogger(), nil)

	raw := bytes.ReplaceAll(
		plainFixture("hello", "", "Hello\n--\nSent from my phone"),
		[]byte("\n"), []byte("\r\n"))
	record, err := service.ParseMessage(context.Background(), raw, getItemCodec())
	require.NoError(t, err)

	assert.Equal(t, "Hello", record.TextPart)
}

func TestParseMessageYAMLBody(t *testing.T) {
	service := NewCodecService(getLogger(), nil)

	record, err := service.ParseMessage(context.Background(),
		plainFixture("hello", "", "value: 1"), getItemCodec())
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"value": 1}, record.JSONPart)
	assert.Equal(t, "", record.TextPart)
}

const multiTextFixture = `From: sender@example.com
To: example@example.com
Subject: hello
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="===============MULTI=="

--===============MULTI==
Content-Type: text/plain; charset="utf-8"

first part

--===============MULTI==
Content-Type: text/plain; charset="utf-8"

second part

--===============MULTI==--
`

func TestParseMessageConcatenatesTextParts(t *testing.T) {
	service := NewCodecService(getLogger(), nil)

	record, err := service.ParseMessage(context.Background(), []byte(multiTextFixture), getItemCodec())
	require.NoError(t, err)

	assert.Equal(t, "first part\nsecond part", record.TextPart)
}

const htmlOnlyFixture = `From: sender@example.com
To: example@example.com
Subject: hello
MIME-Version: 1.0
Content-Type: text/html; charset="utf-8"

<html><head><style>body { color: red; }</style>
<script>var tracked = true;</script></head>
<body><p>Hello</p>
<p>World</p></body></html>
`

func TestParseMessageHTMLDegradation(t *testing.T) {
	service := NewCodecService(getLogger(), nil)

	record, err := service.ParseMessage(context.Background(), []byte(htmlOnlyFixture), getItemCodec())
	require.NoError(t, err)

	assert.Equal(t, "Hello\nWorld", record.TextPart)
}

const mixedFixture = `From: sender@example.com
To: example@example.com
Subject: attachments
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="===============MIXED=="

--===============MIXED==
Content-Type: text/plain; charset="utf-8"

see attached

--===============MIXED==
Content-Type: text/csv; charset="utf-8"
Content-Disposition: attachment; filename="data.csv"

a,b
1,2

--===============MIXED==
Content-Type: image/png
Content-Transfer-Encoding: base64
Content-Disposition: attachment; filename="pixel.png"

cGl4ZWw=

--===============MIXED==--
`

func TestParseMessageAttachments(t *testing.T) {
	service := NewCodecService(getLogger(), nil)

	record, err := service.ParseMessage(context.Background(), []byte(mixedFixture), getItemCodec())
	require.NoError(t, err)

	assert.Equal(t, "see attached", record.TextPart)
	require.Len(t, record.Attachments, 2)
	assert.Equal(t, "text/csv", record.Attachments[0].ContentType)
	assert.Equal(t, "a,b\n1,2\n", string(record.Attachments[0].Payload))
	assert.Equal(t, "image/png", record.Attachments[1].ContentType)
	assert.Equal(t, []byte("pixel"), record.Attachments[1].Payload)
}

const geoFixture = `From: sender@example.com
To: example@example.com
Subject: site location
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="===============GEO=="

--===============GEO==
Content-Type: text/plain; charset="utf-8"

location attached

--===============GEO==
Content-Type: application/geo+json
Content-Disposition: attachment; filename="site.geojson"

{"type": "Point", "coordinates": [102.0, 0.5]}

--===============GEO==--
`

func TestParseMessageGeoJSONPart(t *testing.T) {
	service := NewCodecService(getLogger(), geo.NewDecoder())

	record, err := service.ParseMessage(context.Background(), []byte(geoFixture), getItemCodec())
	require.NoError(t, err)

	require.Len(t, record.Attachments, 1)
	assert.Equal(t, "application/geo+json", record.Attachments[0].ContentType)
	assert.NotNil(t, record.Attachments[0].Value)
}

func TestParseMessageGeoJSONDisabled(t *testing.T) {
	// without a decoder the part is kept as an opaque attachment
	service := NewCodecService(getLogger(), nil)

	record, err := service.ParseMessage(context.Background(), []byte(geoFixture), getItemCodec())
	require.NoError(t, err)

	require.Len(t, record.Attachments, 1)
	assert.Equal(t, "application/geo+json", record.Attachments[0].ContentType)
	assert.Nil(t, record.Attachments[0].Value)
}

func TestParseMessageMalformedFrom(t *testing.T) {
	service := NewCodecService(getLogger(), nil)

	_, err := service.ParseMessage(context.Background(),
		[]byte("From: not-an-address\nTo: example@example.com\nSubject: x\n\nbody\n"), getItemCodec())
	assert.ErrorIs(t, err, ErrMalformedAddress)
}

type recordingCodec struct {
	*DefaultCodec
	seen *models.InboundMessage
}

func (c *recordingCodec) UpdateItem(record *models.InboundMessage) error {
	c.seen = record
	return nil
}

func TestParseMessageUpdateItemHook(t *testing.T) {
	service := NewCodecService(getLogger(), nil)
	itemCodec := &recordingCodec{DefaultCodec: getItemCodec()}

	record, err := service.ParseMessage(context.Background(),
		plainFixture("hello", "", "body text"), itemCodec)
	require.NoError(t, err)

	assert.Same(t, record, itemCodec.seen)
}

func TestParseMessageRoundTrip(t *testing.T) {
	service := NewCodecService(getLogger(), nil)
	itemCodec := getItemCodec()

	raw, err := service.BuildMessage(context.Background(), "test", itemCodec)
	require.NoError(t, err)

	record, err := service.ParseMessage(context.Background(), raw, itemCodec)
	require.NoError(t, err)

	assert.Equal(t, "example@example.com", record.Issuer)
	assert.Equal(t, "example", record.Recipient)
	assert.Equal(t, "example.com", record.Domain)
	assert.Equal(t, "36f028580bb02 test", record.Subject)
	assert.Equal(t, "test", record.JSONPart)
	assert.Equal(t, "test", record.TextPart)
}
