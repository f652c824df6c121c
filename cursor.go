package unitable

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"fmt"
)

// EncodeCursor converts store continuation state into an opaque token safe
// to hand to clients. Stores encode whatever they need to resume a query:
// the DynamoDB implementation encodes the last evaluated key, the in-memory
// implementation its internal iteration key.
func EncodeCursor(state any) (string, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeCursor converts a client token back into continuation state.
// Returns ErrInvalidCursor when the token is malformed.
func DecodeCursor(token string, state any) error {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(state); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return nil
}
