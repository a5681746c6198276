package kimai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	// Kimai answers with an ISO 8601 offset without colon.
	responseTimeLayout = "2006-01-02T15:04:05-0700"
	// and expects HTML5 local date-times in the user's timezone.
	requestTimeLayout = "2006-01-02T15:04:05"
)

// Timesheet is a Kimai timesheet record. ID 0 means the record does not
// exist remotely yet.
type Timesheet struct {
	ID          int
	Project     int
	Activity    int
	Begin       time.Time
	End         time.Time
	Description string
	Tags        []string
}

// Matches reports whether the record holds the same data as a local
// session. Times are compared as instants and tags as a set.
func (t *Timesheet) Matches(project, activity int, begin, end time.Time, description string, tags []string) bool {
	return t.Project == project &&
		t.Activity == activity &&
		t.Begin.Equal(begin) &&
		t.End.Equal(end) &&
		t.Description == description &&
		sameTags(t.Tags, tags)
}

func sameTags(a, b []string) bool {
	return slices.Equal(tagSet(a), tagSet(b))
}

func tagSet(tags []string) []string {
	set := slices.Clone(tags)
	slices.Sort(set)
	return slices.Compact(set)
}

// ref decodes a Kimai reference that is either a bare id or an expanded
// object with an "id" field.
type ref int

func (r *ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*r = 0
		return nil
	}
	if b[0] == '{' {
		var obj struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*r = ref(obj.ID)
		return nil
	}
	var id int
	if err := json.Unmarshal(b, &id); err != nil {
		return fmt.Errorf("invalid reference %s: %w", b, err)
	}
	*r = ref(id)
	return nil
}

// timesheetResponse is the JSON shape returned by the timesheet endpoints.
type timesheetResponse struct {
	ID          int      `json:"id"`
	Project     ref      `json:"project"`
	Activity    ref      `json:"activity"`
	Begin       string   `json:"begin"`
	End         *string  `json:"end"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

func (r *timesheetResponse) timesheet() (*Timesheet, error) {
	begin, err := parseTime(r.Begin)
	if err != nil {
		return nil, fmt.Errorf("timesheet %d: begin: %w", r.ID, err)
	}
	ts := &Timesheet{
		ID:       r.ID,
		Project:  int(r.Project),
		Activity: int(r.Activity),
		Begin:    begin,
		Tags:     r.Tags,
	}
	if r.End != nil && *r.End != "" {
		if ts.End, err = parseTime(*r.End); err != nil {
			return nil, fmt.Errorf("timesheet %d: end: %w", r.ID, err)
		}
	}
	if r.Description != nil {
		ts.Description = *r.Description
	}
	return ts, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(responseTimeLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// timesheetRequest is the JSON body for creating or updating a timesheet.
type timesheetRequest struct {
	Begin       string `json:"begin"`
	End         string `json:"end,omitempty"`
	Project     int    `json:"project"`
	Activity    int    `json:"activity"`
	Description string `json:"description,omitempty"`
	Tags        string `json:"tags,omitempty"`
}

func newTimesheetRequest(ts Timesheet, loc *time.Location) timesheetRequest {
	req := timesheetRequest{
		Begin:       ts.Begin.In(loc).Format(requestTimeLayout),
		Project:     ts.Project,
		Activity:    ts.Activity,
		Description: ts.Description,
		Tags:        strings.Join(ts.Tags, ","),
	}
	if !ts.End.IsZero() {
		req.End = ts.End.In(loc).Format(requestTimeLayout)
	}
	return req
}
