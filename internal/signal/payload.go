// Package signal defines the negotiation payload exchanged between peers and
// the codec that turns it into an opaque encrypted blob.
package signal

// Type identifies the kind of negotiation payload.
type Type string

const (
	TypeOffer     Type = "offer"
	TypeAnswer    Type = "answer"
	TypeCandidate Type = "candidate"
)

// Payload is the structure exchanged between peers during negotiation.
// The codec serializes it as-is; nothing in this package inspects the
// SDP or candidate contents.
type Payload struct {
	Type      Type   `json:"type"`
	SDP       string `json:"sdp,omitempty"`
	Candidate string `json:"candidate,omitempty"` // JSON-encoded ICECandidateInit
}
