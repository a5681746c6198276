package tags

import (
	"fmt"
	"strconv"
	"strings"
)

// Role is the meaning of an identifier tag.
type Role int

const (
	Project Role = iota + 1
	Activity
	Record
)

func (r Role) String() string {
	switch r {
	case Project:
		return "project"
	case Activity:
		return "activity"
	case Record:
		return "record"
	}
	return "unknown"
}

const separator = ":"

// Identifiers is the result of classifying a session's tags.
type Identifiers struct {
	ProjectID  *int
	ActivityID *int
	RecordID   *int
	Residual   []string
}

// Complete reports whether both project and activity ids are present.
func (ids Identifiers) Complete() bool {
	return ids.ProjectID != nil && ids.ActivityID != nil
}

// MalformedError is returned when an identifier tag has a non-integer suffix.
type MalformedError struct {
	Tag   string
	Class string
	Err   error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("tag %q: invalid %s id: %v", e.Tag, e.Class, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Classifier splits tags into identifier tags and residual tags. Class names
// are supplied by the caller.
type Classifier struct {
	classes map[string]Role
	names   map[Role]string
}

// NewClassifier creates a classifier for the given class-name to role
// mapping. Each role may be bound to at most one class name.
func NewClassifier(classes map[string]Role) (*Classifier, error) {
	c := &Classifier{
		classes: make(map[string]Role, len(classes)),
		names:   make(map[Role]string, len(classes)),
	}
	for name, role := range classes {
		if name == "" || strings.Contains(name, separator) {
			return nil, fmt.Errorf("invalid identifier class name %q", name)
		}
		if other, ok := c.names[role]; ok {
			return nil, fmt.Errorf("role %s bound to both %q and %q", role, other, name)
		}
		c.classes[name] = role
		c.names[role] = name
	}
	return c, nil
}

// Classify partitions tags. Later tags of the same class override earlier
// ones; non-identifier tags keep their relative order.
func (c *Classifier) Classify(tags []string) (Identifiers, error) {
	var ids Identifiers
	for _, tag := range tags {
		name, suffix, ok := strings.Cut(tag, separator)
		role, known := c.classes[name]
		if !ok || !known {
			ids.Residual = append(ids.Residual, tag)
			continue
		}

		n, err := strconv.ParseUint(suffix, 10, strconv.IntSize-1)
		if err != nil {
			return Identifiers{}, &MalformedError{Tag: tag, Class: name, Err: err}
		}
		id := int(n)
		switch role {
		case Project:
			ids.ProjectID = &id
		case Activity:
			ids.ActivityID = &id
		case Record:
			ids.RecordID = &id
		}
	}
	return ids, nil
}

// Format renders the identifier tag for role, e.g. "kimai_id:42".
func (c *Classifier) Format(role Role, id int) (string, error) {
	name, ok := c.names[role]
	if !ok {
		return "", fmt.Errorf("no class name configured for %s ids", role)
	}
	return name + separator + strconv.Itoa(id), nil
}
