package unix

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cronkeeper/pkg/crontab"
	"cronkeeper/pkg/logx"
)

// tagPrefix introduces the identifier comment written above every managed
// schedule line.
const tagPrefix = "# cronkeeper:"

// offPrefix comments a disabled schedule line out so cron skips it while the
// entry survives round-trips.
const offPrefix = "#off "

// Codec parses and serializes the crontab text format.
//
// Parsing is line-resilient: blank lines, comments, environment assignments
// and malformed schedule lines are preserved as foreign entries, never
// dropped and never fatal. Lines matching the five-field grammar without an
// identifier tag are adopted: they get a deterministic content-derived id
// and are rewritten with a tag on the next save.
type Codec struct {
	log  logx.Logger
	warn *logx.Sampler
}

func NewCodec(log logx.Logger) *Codec {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Codec{log: log, warn: logx.NewSampler(log, 16)}
}

// New builds a Unix crontab backend over the given store.
func New(store crontab.RawStore, log logx.Logger, opts ...crontab.BackendOption) crontab.Backend {
	opts = append([]crontab.BackendOption{crontab.WithBackendLogger(log)}, opts...)
	return crontab.NewBackend("unix", store, NewCodec(log), opts...)
}

func (c *Codec) Parse(raw string) ([]crontab.Entry, error) {
	if raw == "" {
		return nil, nil
	}

	lines := strings.Split(raw, "\n")
	// a trailing newline produces one empty trailing element, not a record
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	alloc := crontab.NewAllocator(collectTaggedIDs(lines))
	seen := map[string]bool{}

	var entries []crontab.Entry
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if id, meta, ok := parseTag(trimmed); ok {
			if i+1 < len(lines) {
				if e, ok := parseScheduleLine(lines[i+1]); ok {
					e.ID = id
					e.Metadata = meta
					if strings.HasPrefix(strings.TrimSpace(lines[i+1]), offPrefix) && e.Metadata[crontab.MetaDisabled] == "" {
						if e.Metadata == nil {
							e.Metadata = crontab.Metadata{}
						}
						e.Metadata[crontab.MetaDisabled] = "true"
					}
					if seen[e.ID] {
						fresh := alloc.Next(e.Command, e.Interval)
						c.warn.Warn("duplicate entry id in crontab, reassigning",
							logx.String("id", e.ID), logx.String("new_id", fresh))
						e.ID = fresh
					}
					seen[e.ID] = true
					entries = append(entries, e)
					i++
					continue
				}
			}
			// tag without a schedule line below it
			c.warn.Warn("orphan identifier tag kept as foreign line", logx.String("line", trimmed))
			entries = append(entries, crontab.ForeignEntry(line))
			continue
		}

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			entries = append(entries, crontab.ForeignEntry(line))
			continue
		}
		if isEnvLine(trimmed) {
			entries = append(entries, crontab.ForeignEntry(line))
			continue
		}

		if e, ok := parseScheduleLine(line); ok {
			e.ID = alloc.Next(e.Command, e.Interval)
			seen[e.ID] = true
			entries = append(entries, e)
			continue
		}

		// Never throw away data this system did not write.
		c.warn.Warn("unparsable crontab line kept as foreign", logx.String("line", trimmed))
		entries = append(entries, crontab.ForeignEntry(line))
	}

	if n := c.warn.Dropped(); n > 0 {
		c.log.Warn("crontab parse warnings suppressed", logx.Uint64("count", n))
	}
	return entries, nil
}

func (c *Codec) Serialize(entries []crontab.Entry) (string, error) {
	var b strings.Builder
	for _, e := range entries {
		if e.Foreign() {
			b.WriteString(e.Raw())
			b.WriteByte('\n')
			continue
		}
		if e.ID == "" {
			return "", fmt.Errorf("%w: entry %q has no id", crontab.ErrValidation, e.Command)
		}
		b.WriteString(formatTag(e))
		b.WriteByte('\n')
		if e.Disabled() {
			b.WriteString(offPrefix)
		}
		b.WriteString(e.Interval)
		b.WriteByte(' ')
		b.WriteString(escapeCommand(e.Command))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// collectTaggedIDs seeds the allocator so adopted lines can never collide
// with an id that appears later in the file.
func collectTaggedIDs(lines []string) []string {
	var ids []string
	for _, line := range lines {
		if id, _, ok := parseTag(strings.TrimSpace(line)); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func formatTag(e crontab.Entry) string {
	var b strings.Builder
	b.WriteString(tagPrefix)
	b.WriteString(" id=")
	b.WriteString(e.ID)
	for _, k := range sortedMetaKeys(e.Metadata) {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(e.Metadata[k]))
	}
	return b.String()
}

func sortedMetaKeys(m crontab.Metadata) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseTag decodes "# cronkeeper: id=<id> k="v" ...". A malformed tag is
// simply not a tag; the line degrades to a foreign comment.
func parseTag(line string) (string, crontab.Metadata, bool) {
	if !strings.HasPrefix(line, tagPrefix) {
		return "", nil, false
	}
	rest := strings.TrimSpace(line[len(tagPrefix):])

	id := ""
	var meta crontab.Metadata
	for rest != "" {
		key, value, remainder, ok := cutPair(rest)
		if !ok {
			return "", nil, false
		}
		if key == "id" {
			if id != "" || value == "" {
				return "", nil, false
			}
			id = value
		} else {
			if meta == nil {
				meta = crontab.Metadata{}
			}
			meta[key] = value
		}
		rest = strings.TrimSpace(remainder)
	}
	if id == "" {
		return "", nil, false
	}
	return id, meta, true
}

// cutPair pops one key=value token. Values are either bare (no spaces) or
// quoted with Go syntax.
func cutPair(s string) (key, value, rest string, ok bool) {
	eq := strings.IndexByte(s, '=')
	if eq <= 0 {
		return "", "", "", false
	}
	key = s[:eq]
	if strings.ContainsAny(key, " \t\"") {
		return "", "", "", false
	}
	s = s[eq+1:]
	if strings.HasPrefix(s, "\"") {
		end := closingQuote(s)
		if end < 0 {
			return "", "", "", false
		}
		v, err := strconv.Unquote(s[:end+1])
		if err != nil {
			return "", "", "", false
		}
		return key, v, s[end+1:], true
	}
	sp := strings.IndexAny(s, " \t")
	if sp < 0 {
		return key, s, "", true
	}
	return key, s[:sp], s[sp:], true
}

// closingQuote finds the index of the unescaped closing quote of a leading
// quoted token, or -1.
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

// parseScheduleLine decodes a five-field schedule plus command, tolerating
// the disabled (#off) prefix. The command keeps its original spacing.
func parseScheduleLine(line string) (crontab.Entry, bool) {
	s := strings.TrimLeft(line, " \t")
	disabled := false
	if strings.HasPrefix(s, offPrefix) {
		disabled = true
		s = s[len(offPrefix):]
	} else if strings.HasPrefix(s, "#") {
		return crontab.Entry{}, false
	}

	fields := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		s = strings.TrimLeft(s, " \t")
		j := strings.IndexAny(s, " \t")
		if j < 0 {
			return crontab.Entry{}, false
		}
		fields = append(fields, s[:j])
		s = s[j:]
	}
	command := strings.TrimLeft(s, " \t")
	if command == "" {
		return crontab.Entry{}, false
	}

	interval := strings.Join(fields, " ")
	if err := crontab.ValidateInterval(interval); err != nil {
		return crontab.Entry{}, false
	}

	e := crontab.Entry{Interval: interval, Command: unescapeCommand(command)}
	if disabled {
		e.Metadata = crontab.Metadata{crontab.MetaDisabled: "true"}
	}
	return e, true
}

// isEnvLine matches crontab environment assignments (SHELL=/bin/sh).
func isEnvLine(line string) bool {
	eq := strings.IndexByte(line, '=')
	if eq <= 0 {
		return false
	}
	name := strings.TrimSpace(line[:eq])
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// Cron treats % as a command/stdin separator; the in-memory command is
// always the unescaped logical value, so escaping happens only here.
func escapeCommand(command string) string {
	return strings.ReplaceAll(command, "%", `\%`)
}

func unescapeCommand(command string) string {
	return strings.ReplaceAll(command, `\%`, "%")
}
