package codec

import (
	"strings"

	"github.com/customeros/mailcodec/interfaces"
	"github.com/customeros/mailcodec/internal/utils"
)

// EncodeSubject prefixes the bracketed id tags onto the subject text,
// e.g. "[abc1234567890][EXT-42] Do the thing".
func EncodeSubject(humanID, externalID, subject string) string {
	var tags strings.Builder
	for _, tag := range []string{humanID, externalID} {
		if tag != "" {
			tags.WriteString("[")
			tags.WriteString(tag)
			tags.WriteString("]")
		}
	}
	return tags.String() + " " + subject
}

// DecodeSubject strips the new marker and then the external-reference marker
// from an already-normalized subject. Each strip removes exactly the matched
// span; the residual subject keeps everything else verbatim.
func DecodeSubject(itemCodec interfaces.ItemCodec, subject string) (isNew bool, externalID, residual string) {
	newToken, residual := utils.ConsumeRegex(itemCodec.NewMarker(), subject)
	externalID, residual = utils.ConsumeRegex(itemCodec.ExternalIDMarker(), residual)
	return newToken != "", externalID, residual
}

// DecodeSubjectReference extracts the inline session reference. Applied only
// when neither the To address nor In-Reply-To carried an identifier.
func DecodeSubjectReference(itemCodec interfaces.ItemCodec, subject string) (identifier, residual string) {
	return utils.ConsumeRegex(itemCodec.ReferenceMarker(), subject)
}
