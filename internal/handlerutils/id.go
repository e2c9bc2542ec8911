package handlerutils

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ID is a row identifier that clients send either as a JSON integer or as a
// numeric string. Anything else, including fractions and exponent forms,
// decodes to zero, which callers reject.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	*id = 0

	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		*id = ParseID(s)
		return nil
	}

	// Numbers go through their literal text so ids above 2^53 stay exact.
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return nil
	}
	*id = ParseID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(id), 10)), nil
}

func (id ID) Int64() int64 {
	return int64(id)
}

// ParseID parses a path or form identifier, returning zero when it is not a
// positive integer.
func ParseID(s string) ID {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return ID(n)
}
