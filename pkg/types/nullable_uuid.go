package types

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// NullableUUID tells an absent JSON field apart from an explicit null.
// Valid is set whenever the key was present.
type NullableUUID struct {
	Valid bool
	Value *uuid.UUID
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableUUID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	n.Valid = true
	if bytes.Equal(trimmed, []byte("null")) {
		n.Value = nil
		return nil
	}

	var parsed uuid.UUID
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	n.Value = &parsed
	return nil
}

// Apply writes the value into dst when the field was present. A present
// null clears dst.
func (n NullableUUID) Apply(dst **uuid.UUID) {
	if !n.Valid || dst == nil {
		return
	}
	if n.Value == nil {
		*dst = nil
		return
	}
	id := *n.Value
	*dst = &id
}
