package timew

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type CustomTime struct {
	time.Time
}

const timewarriorTimeLayout = "20060102T150405Z" // YYYYMMDDTHHMMSSZ, always UTC

// UnmarshalJSON implements the json.Unmarshaler interface for CustomTime.
func (ct *CustomTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		ct.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(timewarriorTimeLayout, s)
	if err != nil {
		return fmt.Errorf("failed to parse Timewarrior time string '%s': %w", s, err)
	}
	ct.Time = t
	return nil
}

// MarshalJSON implements the json.Marshaler interface for CustomTime.
func (ct CustomTime) MarshalJSON() ([]byte, error) {
	if ct.Time.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + FormatTime(ct.Time) + `"`), nil
}

// FormatTime renders t the way Timewarrior prints and accepts dates.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timewarriorTimeLayout)
}

// Session is one tracked interval as exported by Timewarrior.
type Session struct {
	ID         string
	Start      time.Time
	End        time.Time // zero while the interval is still open
	Annotation string
	Tags       []string
}

// Open reports whether the interval has no end yet.
func (s Session) Open() bool {
	return s.End.IsZero()
}

// Key identifies the interval across runs. Timewarrior ids are positional,
// start times are not.
func (s Session) Key() string {
	return FormatTime(s.Start)
}

// Ref is the command line reference for the session, e.g. "@12".
func (s Session) Ref() string {
	return "@" + s.ID
}

// interval is the JSON shape of one exported interval.
type interval struct {
	ID         json.Number `json:"id"`
	Start      CustomTime  `json:"start"`
	End        CustomTime  `json:"end"`
	Annotation string      `json:"annotation,omitempty"`
	Tags       []string    `json:"tags,omitempty"`
}

func (iv interval) session(fallbackID int) Session {
	id := iv.ID.String()
	if id == "" {
		id = strconv.Itoa(fallbackID)
	}
	return Session{
		ID:         id,
		Start:      iv.Start.Time,
		End:        iv.End.Time,
		Annotation: iv.Annotation,
		Tags:       iv.Tags,
	}
}

// Report is the input Timewarrior hands to a report extension.
type Report struct {
	Config   map[string]string
	Sessions []Session
}
