// Package realtime provides the push-based sync backend for the coupon
// record set: a websocket gateway serving whole-snapshot pushes over a local
// store, and a client implementing the same RecordStore contract against a
// remote gateway.
//
// The wire protocol is deliberately small and version-tagged. Every frame is
// a JSON Envelope; snapshots and writes carry the full record set as a
// mapping keyed by decimal sequence number, with the sequence reconstructed
// from the key on read.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tkoster/circulate/internal/ledger"
)

// Version is the protocol version identifier embedded into every envelope.
const Version = "v1"

// Subprotocol is the websocket subprotocol negotiated during the handshake.
const Subprotocol = "circulate.v1"

// Type constants (wire-stable).
const (
	// TypeHello starts a session handshake (client -> server).
	TypeHello = "hello"
	// TypeHelloAck acknowledges the session handshake (server -> client).
	TypeHelloAck = "hello_ack"

	// TypeSnapshot pushes the full record set (server -> client).
	TypeSnapshot = "snapshot"

	// TypeWrite requests a full-set replace (client -> server).
	TypeWrite = "write"
	// TypeWriteAck acknowledges an applied write (server -> client).
	TypeWriteAck = "write_ack"

	// TypeError is a generic error envelope (server -> client).
	TypeError = "error"
)

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs strict structural validation for an Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}

	switch e.Type {
	case TypeHello, TypeHelloAck, TypeSnapshot, TypeWrite, TypeWriteAck, TypeError:
		return nil
	default:
		return fmt.Errorf("unknown type: %q", e.Type)
	}
}

// NewEnvelope wraps a payload in a fresh envelope with a unique id.
func NewEnvelope(typ string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Envelope{
		V:       Version,
		Type:    typ,
		ID:      uuid.NewString(),
		TS:      time.Now().UTC(),
		Payload: raw,
	}, nil
}

// WireRecord is a record as carried on the wire: every field except the
// sequence number, which lives in the mapping key.
type WireRecord struct {
	Code       string    `json:"couponCode"`
	IssueDate  string    `json:"issueDate"`
	RedeemDate string    `json:"redeemDate,omitempty"`
	Remarks    string    `json:"remarks,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// SnapshotPayload carries the full record set keyed by decimal seq.
type SnapshotPayload struct {
	Records map[string]WireRecord `json:"records"`
}

// WritePayload requests replacing the full record set.
type WritePayload struct {
	Records map[string]WireRecord `json:"records"`
}

// WriteAckPayload acknowledges an applied write. Ref echoes the write
// envelope's id.
type WriteAckPayload struct {
	Ref string `json:"ref"`
}

// ErrorPayload reports a failed request. Ref echoes the offending envelope's
// id when known.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}

// ToWire converts a record list to the keyed wire mapping.
func ToWire(records []ledger.Record) map[string]WireRecord {
	out := make(map[string]WireRecord, len(records))
	for _, r := range records {
		out[strconv.FormatInt(r.Seq, 10)] = WireRecord{
			Code:       r.Code,
			IssueDate:  r.IssueDate,
			RedeemDate: r.RedeemDate,
			Remarks:    r.Remarks,
			CreatedAt:  r.CreatedAt,
			UpdatedAt:  r.UpdatedAt,
		}
	}
	return out
}

// FromWire reconstructs the record list from the keyed wire mapping, parsing
// each record's seq from its key. The result is ordered by seq ascending.
func FromWire(wire map[string]WireRecord) ([]ledger.Record, error) {
	records := make([]ledger.Record, 0, len(wire))
	for key, w := range wire {
		seq, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("record key %q is not a sequence number: %w", key, err)
		}
		records = append(records, ledger.Record{
			Seq:        seq,
			Code:       w.Code,
			IssueDate:  w.IssueDate,
			RedeemDate: w.RedeemDate,
			Remarks:    w.Remarks,
			CreatedAt:  w.CreatedAt,
			UpdatedAt:  w.UpdatedAt,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	return records, nil
}
