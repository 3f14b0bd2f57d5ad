package crontab

import (
	"fmt"
	"strings"
)

// Metadata carries optional free-form key/value attributes of an entry
// (comment, disabled flag, ...). Keys are unique; order is irrelevant and
// serialization sorts them so round-trips stay byte-identical.
type Metadata map[string]string

// MetaDisabled marks an entry that stays in the store but must not run.
// The Unix codec comments the schedule line out; the Windows codec emits
// <Settings><Enabled>false</Enabled>.
const MetaDisabled = "disabled"

func (m Metadata) clone() Metadata {
	if len(m) == 0 {
		// empty and nil normalize to nil so round-tripped entries compare equal
		return nil
	}
	cp := make(Metadata, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Entry is the unified representation of one scheduled task.
//
// Managed entries carry a stable id, a validated five-field interval and the
// unescaped logical command. Foreign entries are native-store records that
// could not be attributed to this system; they keep their raw payload for
// verbatim re-emission and are invisible to queries.
type Entry struct {
	ID       string
	Command  string
	Interval string
	Metadata Metadata

	// foreign payload, opaque to everything but the owning codec
	foreign bool
	raw     string
}

// Foreign reports whether the entry was preserved verbatim rather than
// recognized as one of ours.
func (e Entry) Foreign() bool { return e.foreign }

// Raw returns the original native-store payload of a foreign entry, or ""
// for managed entries.
func (e Entry) Raw() string {
	if !e.foreign {
		return ""
	}
	return e.raw
}

// ForeignEntry wraps raw native-store content that must survive every save
// untouched.
func ForeignEntry(raw string) Entry {
	return Entry{foreign: true, raw: raw}
}

// Disabled reports the metadata disabled flag.
func (e Entry) Disabled() bool {
	return e.Metadata[MetaDisabled] == "true"
}

func (e Entry) String() string {
	if e.foreign {
		return fmt.Sprintf("foreign(%q)", e.raw)
	}
	return fmt.Sprintf("%s %s # id=%s", e.Interval, e.Command, e.ID)
}

// NewEntry validates command, interval and metadata keys and builds a
// managed entry. The interval is stored normalized (single-space field
// separation); the id is left empty, the facade or the codec assigns one.
func NewEntry(command, interval string, meta Metadata) (Entry, error) {
	if err := ValidateCommand(command); err != nil {
		return Entry{}, err
	}
	if err := ValidateInterval(interval); err != nil {
		return Entry{}, err
	}
	for k := range meta {
		if !validMetaKey(k) {
			return Entry{}, fmt.Errorf("%w: metadata key %q", ErrValidation, k)
		}
	}
	return Entry{Command: command, Interval: NormalizeInterval(interval), Metadata: meta.clone()}, nil
}

// validMetaKey keeps metadata keys safe for the tag-comment encoding.
func validMetaKey(k string) bool {
	if k == "" {
		return false
	}
	for _, r := range k {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.':
		default:
			return false
		}
	}
	return true
}

// ValidateCommand rejects empty commands and commands containing record
// separators, which would corrupt the line-oriented Unix store.
func ValidateCommand(command string) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("%w: command is empty", ErrValidation)
	}
	if strings.ContainsAny(command, "\n\r") {
		return fmt.Errorf("%w: command contains a line break", ErrValidation)
	}
	return nil
}

// ToMap converts the entry to a generic key/value mapping with the field set
// {id, command, interval, metadata}.
func (e Entry) ToMap() map[string]any {
	meta := map[string]string{}
	for k, v := range e.Metadata {
		meta[k] = v
	}
	return map[string]any{
		"id":       e.ID,
		"command":  e.Command,
		"interval": e.Interval,
		"metadata": meta,
	}
}

// FromMap rebuilds an entry from a mapping produced by ToMap (or handwritten
// with the same shape). Missing or malformed required fields fail validation;
// a missing metadata field silently defaults to empty.
func FromMap(m map[string]any) (Entry, error) {
	id, err := stringField(m, "id")
	if err != nil {
		return Entry{}, err
	}
	command, err := stringField(m, "command")
	if err != nil {
		return Entry{}, err
	}
	interval, err := stringField(m, "interval")
	if err != nil {
		return Entry{}, err
	}

	e, err := NewEntry(command, interval, nil)
	if err != nil {
		return Entry{}, err
	}
	e.ID = id

	raw, ok := m["metadata"]
	if !ok || raw == nil {
		return e, nil
	}
	switch mv := raw.(type) {
	case map[string]string:
		e.Metadata = Metadata(mv).clone()
	case Metadata:
		e.Metadata = mv.clone()
	case map[string]any:
		meta := make(Metadata, len(mv))
		for k, v := range mv {
			s, ok := v.(string)
			if !ok {
				return Entry{}, fmt.Errorf("%w: metadata value for %q is not a string", ErrValidation, k)
			}
			meta[k] = s
		}
		e.Metadata = meta.clone()
	default:
		return Entry{}, fmt.Errorf("%w: metadata is not a mapping", ErrValidation)
	}
	return e, nil
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrValidation, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q is not a string", ErrValidation, key)
	}
	if key != "id" && strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: field %q is empty", ErrValidation, key)
	}
	return s, nil
}
