package codec

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// addressPattern matches the unquoted e-mail local-part character set with an
// optional plus-addressed session identifier: recipient(+identifier)?@domain.
var addressPattern = regexp.MustCompile(
	`^(?P<recipient>[A-Za-z0-9!#$%&'*/=?^_` + "`" + `{|}~.-]+)` +
		`(\+(?P<identifier>[A-Za-z0-9!#$%&'*/=?^_` + "`" + `{|}~.+-]+))?` +
		`@(?P<domain>[A-Za-z0-9.:\[\]-]+)`)

var (
	addressRecipientIdx  = addressPattern.SubexpIndex("recipient")
	addressIdentifierIdx = addressPattern.SubexpIndex("identifier")
	addressDomainIdx     = addressPattern.SubexpIndex("domain")
)

// EncodeAddress renders the plus-addressed form recipient+identifier@domain,
// or recipient@domain when identifier is empty.
func EncodeAddress(recipient, identifier, domain string) string {
	if identifier == "" {
		return recipient + "@" + domain
	}
	return recipient + "+" + identifier + "@" + domain
}

// DecodeAddress splits an address header value into recipient, plus-addressed
// identifier and domain. Display names and angle brackets are unwrapped first,
// so it accepts From/To values as well as In-Reply-To message ids.
func DecodeAddress(address string) (recipient, identifier, domain string, err error) {
	if parsed, parseErr := mail.ParseAddress(address); parseErr == nil {
		address = parsed.Address
	} else {
		address = strings.Trim(strings.TrimSpace(address), "<>")
	}

	match := addressPattern.FindStringSubmatch(address)
	if match == nil {
		return "", "", "", errors.Wrap(ErrMalformedAddress, address)
	}
	return match[addressRecipientIdx], match[addressIdentifierIdx], match[addressDomainIdx], nil
}

// splitAddress breaks a plain address into local part and domain.
func splitAddress(address string) (local, domain string, err error) {
	if parsed, parseErr := mail.ParseAddress(address); parseErr == nil {
		address = parsed.Address
	}
	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return "", "", errors.Wrap(ErrMalformedAddress, address)
	}
	return address[:at], address[at+1:], nil
}
