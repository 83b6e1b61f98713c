package models

// Attachment is one opaque inbound part in encounter order. Value carries the
// decoded form when a structured decoder (GeoJSON) handled the part.
type Attachment struct {
	ContentType string      `json:"content_type"`
	Payload     []byte      `json:"payload,omitempty"`
	Value       interface{} `json:"value,omitempty"`
}

// InboundMessage is the normalized decode result for a single inbound e-mail.
// Identifier and ExternalID are empty when the reply carried none; JSONPart is
// nil when no structured payload was found.
type InboundMessage struct {
	Domain      string       `json:"domain"`
	Issuer      string       `json:"issuer"`
	Recipient   string       `json:"recipient"`
	Identifier  string       `json:"identifier"`
	ExternalID  string       `json:"external_id"`
	New         bool         `json:"new"`
	Subject     string       `json:"subject"`
	JSONPart    interface{}  `json:"json_part"`
	TextPart    string       `json:"text_part"`
	Attachments []Attachment `json:"attachments"`
}
