package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const sequencePrefix = "seq"

// EncodeSequenceToken creates an opaque cursor pointing before the given log sequence.
func EncodeSequenceToken(sequence int64) string {
	return EncodeMultiFieldToken(sequencePrefix, strconv.FormatInt(sequence, 10))
}

// DecodeSequenceToken parses a cursor built by EncodeSequenceToken.
// An empty token decodes to 0, meaning "start from the newest entry".
func DecodeSequenceToken(token string) (int64, error) {
	if token == "" {
		return 0, nil
	}
	parts, err := DecodeMultiFieldToken(token)
	if err != nil {
		return 0, err
	}
	if len(parts) != 2 || parts[0] != sequencePrefix {
		return 0, fmt.Errorf("invalid pagination token format (split)")
	}
	seq, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || seq <= 0 {
		return 0, fmt.Errorf("invalid pagination token format (sequence parse)")
	}
	return seq, nil
}

// EncodeMultiFieldToken creates a token with any number of string fields
func EncodeMultiFieldToken(fields ...string) string {
	tokenStr := strings.Join(fields, "|")
	return base64.URLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeMultiFieldToken decodes a token into its component fields
func DecodeMultiFieldToken(token string) ([]string, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}

	tokenStr := string(decodedBytes)
	parts := strings.Split(tokenStr, "|")
	return parts, nil
}
