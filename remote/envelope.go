package remote

import (
	"encoding/json"
	"fmt"
	"strings"

	"Bt1QSocial/model"
)

const (
	envelopeStart = "STORE:"
	envelopeEnd   = ":END_STORE"

	// AckToken must appear in the reply to a push for it to count as stored.
	AckToken = "STORED_OK"
)

// wirePayload is the JSON object carried on the wire: the snapshot fields
// at the top level plus the writer's device id.
type wirePayload struct {
	model.Snapshot
	DeviceID string `json:"deviceId,omitempty"`
}

// MarshalPayload encodes p as the wire JSON object.
func MarshalPayload(p Payload) ([]byte, error) {
	snap := p.Snapshot
	snap.Normalize()
	data, err := json.Marshal(wirePayload{Snapshot: snap, DeviceID: p.DeviceID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sync payload: %w", err)
	}
	return data, nil
}

// EncodeEnvelope wraps the wire JSON of p in the STORE sentinels.
func EncodeEnvelope(p Payload) (string, error) {
	data, err := MarshalPayload(p)
	if err != nil {
		return "", err
	}
	return envelopeStart + string(data) + envelopeEnd, nil
}

// ExtractEnvelope finds the first envelope in free text and decodes it.
// Text outside the envelope is ignored.
func ExtractEnvelope(text string) (*model.Snapshot, error) {
	body, ok := findEnvelope(text)
	if !ok {
		return nil, fmt.Errorf("%w: no envelope in response", ErrNoRemoteData)
	}
	return DecodeSnapshot([]byte(body))
}

// findEnvelope returns the body of the first STORE: ... :END_STORE pair
// whose body is a complete JSON object. The end sentinel may also occur
// inside string values (a bio, a message), so each occurrence is tried in
// turn instead of stopping at the first one.
func findEnvelope(text string) (string, bool) {
	for start := strings.Index(text, envelopeStart); start >= 0; {
		rest := text[start+len(envelopeStart):]
		for off := 0; ; {
			i := strings.Index(rest[off:], envelopeEnd)
			if i < 0 {
				break
			}
			body := strings.TrimSpace(rest[:off+i])
			if strings.HasPrefix(body, "{") && json.Valid([]byte(body)) {
				return body, true
			}
			off += i + len(envelopeEnd)
		}

		next := strings.Index(text[start+1:], envelopeStart)
		if next < 0 {
			break
		}
		start += 1 + next
	}
	return "", false
}

// DecodeSnapshot decodes a wire JSON object. The object must carry users
// and tracks arrays; anything else is treated as no remote data.
func DecodeSnapshot(raw []byte) (*model.Snapshot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRemoteData, err)
	}
	for _, required := range []string{"users", "tracks"} {
		v, ok := fields[required]
		if !ok || !isJSONArray(v) {
			return nil, fmt.Errorf("%w: missing %s collection", ErrNoRemoteData, required)
		}
	}

	var wp wirePayload
	if err := json.Unmarshal(raw, &wp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRemoteData, err)
	}
	snap := wp.Snapshot
	snap.Normalize()
	return &snap, nil
}

// HasAck reports whether a push reply acknowledges the write.
func HasAck(text string) bool {
	return strings.Contains(text, AckToken)
}

func isJSONArray(v json.RawMessage) bool {
	s := strings.TrimSpace(string(v))
	return strings.HasPrefix(s, "[")
}
