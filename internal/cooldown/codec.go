package cooldown

import (
	"encoding/json"
	"fmt"
	"time"

	"saldo/internal/core"
)

// The persisted blob is a JSON object mapping contact id to an ISO-8601
// timestamp, e.g. {"+393331234567":"2025-03-01T08:00:00Z"}.

func encode(records map[core.ContactID]time.Time) ([]byte, error) {
	raw := make(map[string]string, len(records))
	for id, at := range records {
		raw[string(id)] = at.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(raw)
}

// decode parses a blob. Entries whose timestamp does not parse are skipped
// and reported in invalid; a blob that is not a JSON object is an error.
func decode(blob []byte) (records map[core.ContactID]time.Time, invalid []string, err error) {
	var raw map[string]string
	if err := json.Unmarshal(blob, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode cooldown blob: %w", err)
	}

	records = make(map[core.ContactID]time.Time, len(raw))
	for id, ts := range raw {
		at, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			invalid = append(invalid, id)
			continue
		}
		records[core.ContactID(id)] = at
	}
	return records, invalid, nil
}
