package events

import (
	"encoding/json"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Envelope is the canonical event shape published by modelmarket.
// Keep this backward compatible; downstream consumers key on event_type
// and schema_version.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	SourceService string          `json:"source_service"`
	OccurredAt    time.Time       `json:"occurred_at"`
	PartitionKey  string          `json:"partition_key"`
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode serializes an envelope for outbox storage and wire transport.
func Encode(envelope Envelope) ([]byte, error) {
	return codec.Marshal(envelope)
}

// Decode restores an envelope from its outbox/wire form.
func Decode(raw []byte) (Envelope, error) {
	var envelope Envelope
	if err := codec.Unmarshal(raw, &envelope); err != nil {
		return Envelope{}, err
	}
	return envelope, nil
}

// EncodeData serializes an event payload into the envelope data slot.
func EncodeData(payload any) (json.RawMessage, error) {
	return codec.Marshal(payload)
}

// DecodeInto unmarshals raw payload bytes into out with the shared codec.
func DecodeInto(raw []byte, out any) error {
	return codec.Unmarshal(raw, out)
}
