package core

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Timestamp normalizes the timestamp shapes the remote API is known to emit:
// RFC3339 strings, epoch seconds (number or numeric string), Firestore-style
// `{"_seconds": n, "_nanoseconds": n}` objects, and null/missing values.
// Unknown or absent values decode to the zero time, never to "now".
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

type firestoreTime struct {
	Seconds     int64 `json:"_seconds"`
	Nanoseconds int64 `json:"_nanoseconds"`
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		ts.Time = time.Time{}
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if t, err := time.Parse(time.RFC3339, str); err == nil {
			ts.Time = t.UTC()
			return nil
		}
		var secs int64
		if err := json.Unmarshal([]byte(str), &secs); err == nil {
			ts.Time = time.Unix(secs, 0).UTC()
			return nil
		}
		ts.Time = time.Time{}
		return nil
	}

	var secs float64
	if err := json.Unmarshal(data, &secs); err == nil {
		ts.Time = time.Unix(int64(secs), 0).UTC()
		return nil
	}

	var fst firestoreTime
	if err := json.Unmarshal(data, &fst); err == nil {
		if fst.Seconds == 0 && fst.Nanoseconds == 0 {
			ts.Time = time.Time{}
		} else {
			ts.Time = time.Unix(fst.Seconds, fst.Nanoseconds).UTC()
		}
		return nil
	}
	return errors.Errorf("unsupported timestamp: %s", s)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339))
}
