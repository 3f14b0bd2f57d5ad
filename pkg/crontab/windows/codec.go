package windows

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cronkeeper/pkg/crontab"
	"cronkeeper/pkg/logx"
)

const taskVersion = "1.2"

// startBoundaryDay anchors generated calendar triggers. Task Scheduler only
// needs the time-of-day part for recurring schedules.
const startBoundaryDay = "2000-01-01"

// Codec parses and serializes the Task Scheduler document set.
//
// Unlike the Unix codec there is no record-level resilience: a document that
// fails to parse as well-formed XML is fatal (ErrFormat), because a broken
// document cannot be partially trusted. Task-level oddities — triggers the
// five-field grammar cannot express, missing Exec actions, unknown elements —
// degrade to foreign entries carrying the original fragment.
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

// New builds a Windows Task Scheduler backend over the given store.
func New(store crontab.RawStore, log logx.Logger, opts ...crontab.BackendOption) crontab.Backend {
	opts = append([]crontab.BackendOption{crontab.WithBackendLogger(log)}, opts...)
	return crontab.NewBackend("windows", store, NewCodec(log), opts...)
}

func (c *Codec) Parse(raw string) ([]crontab.Entry, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var doc taskDocument
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", crontab.ErrFormat, err)
	}

	alloc := crontab.NewAllocator(collectTaskIDs(doc.Nodes))
	seen := map[string]bool{}

	var entries []crontab.Entry
	for _, node := range doc.Nodes {
		fragment := reconstructElement(node)
		if node.XMLName.Local != "Task" {
			entries = append(entries, crontab.ForeignEntry(fragment))
			continue
		}

		e, ok := c.parseTask(node, fragment)
		if !ok {
			entries = append(entries, crontab.ForeignEntry(fragment))
			continue
		}
		if e.ID == "" {
			e.ID = alloc.Next(e.Command, e.Interval)
		} else if seen[e.ID] {
			fresh := alloc.Next(e.Command, e.Interval)
			c.warn.Warn("duplicate task id, reassigning",
				logx.String("id", e.ID), logx.String("new_id", fresh))
			e.ID = fresh
		}
		seen[e.ID] = true
		entries = append(entries, e)
	}

	if n := c.warn.Dropped(); n > 0 {
		c.log.Warn("task document parse warnings suppressed", logx.Uint64("count", n))
	}
	return entries, nil
}

// parseTask maps one <Task> element to a managed entry. Any shape the
// normalized grammar cannot express makes the whole task foreign; the caller
// keeps the fragment.
func (c *Codec) parseTask(node docNode, fragment string) (crontab.Entry, bool) {
	var body taskBody
	if err := xml.Unmarshal([]byte(fragment), &body); err != nil {
		return crontab.Entry{}, false
	}

	if body.Actions == nil || len(body.Actions.Exec) != 1 || len(body.Actions.Other) > 0 {
		return crontab.Entry{}, false
	}
	exec := body.Actions.Exec[0]
	command := exec.Command
	if exec.Arguments != "" {
		command += " " + exec.Arguments
	}
	if crontab.ValidateCommand(command) != nil {
		return crontab.Entry{}, false
	}

	interval, ok := recoverInterval(body.Triggers)
	if !ok {
		c.warn.Warn("task trigger not expressible as five-field schedule, kept foreign",
			logx.String("task", attrValue(node.Attrs, "id")))
		return crontab.Entry{}, false
	}

	e := crontab.Entry{
		ID:       attrValue(node.Attrs, "id"),
		Command:  command,
		Interval: interval,
	}
	meta := crontab.Metadata{}
	if body.RegistrationInfo != nil && body.RegistrationInfo.Description != nil {
		meta["comment"] = *body.RegistrationInfo.Description
	}
	if body.Metadata != nil {
		for _, item := range body.Metadata.Items {
			meta[item.Key] = item.Value
		}
	}
	if body.Settings != nil && body.Settings.Enabled != nil && !*body.Settings.Enabled {
		meta[crontab.MetaDisabled] = "true"
	}
	if len(meta) > 0 {
		e.Metadata = meta
	}
	return e, true
}

// recoverInterval translates the trigger block back into the five-field
// grammar. CronExpression, when present, is authoritative; otherwise exactly
// one recognized native trigger must be translatable.
func recoverInterval(t *triggerSet) (string, bool) {
	if t == nil {
		return "", false
	}
	if len(t.Cron) == 1 {
		iv := crontab.NormalizeInterval(t.Cron[0])
		if crontab.ValidateInterval(iv) != nil {
			return "", false
		}
		return iv, true
	}
	if len(t.Cron) > 1 || len(t.Other) > 0 {
		return "", false
	}
	if len(t.Calendar)+len(t.Time) != 1 {
		return "", false
	}

	if len(t.Calendar) == 1 {
		return calendarInterval(t.Calendar[0])
	}
	return repetitionInterval(t.Time[0])
}

func calendarInterval(ct calendarTrigger) (string, bool) {
	if len(ct.Other) > 0 {
		return "", false
	}
	hour, minute, ok := boundaryClock(ct.StartBoundary)
	if !ok {
		return "", false
	}
	switch {
	case ct.ByDay != nil && ct.ByWeek == nil:
		if ct.ByDay.DaysInterval > 1 {
			return "", false
		}
		return fmt.Sprintf("%d %d * * *", minute, hour), true
	case ct.ByWeek != nil && ct.ByDay == nil:
		if ct.ByWeek.WeeksInterval > 1 {
			return "", false
		}
		days := ct.ByWeek.DaysOfWeek.set()
		if len(days) == 0 {
			return "", false
		}
		parts := make([]string, len(days))
		for i, d := range days {
			parts[i] = strconv.Itoa(d)
		}
		return fmt.Sprintf("%d %d * * %s", minute, hour, strings.Join(parts, ",")), true
	default:
		return "", false
	}
}

func repetitionInterval(tt timeTrigger) (string, bool) {
	if len(tt.Other) > 0 || tt.Repetition == nil {
		return "", false
	}
	if n, ok := isoMinutes(tt.Repetition.Interval); ok && n > 0 && n < 60 && 60%n == 0 {
		return fmt.Sprintf("*/%d * * * *", n), true
	}
	if n, ok := isoHours(tt.Repetition.Interval); ok && n > 0 && n < 24 && 24%n == 0 {
		return fmt.Sprintf("0 */%d * * *", n), true
	}
	return "", false
}

func boundaryClock(boundary string) (hour, minute int, ok bool) {
	// 2000-01-02T15:04:05, date part irrelevant for recurring schedules
	i := strings.IndexByte(boundary, 'T')
	if i < 0 || len(boundary) < i+6 {
		return 0, 0, false
	}
	clock := boundary[i+1:]
	if len(clock) < 5 || clock[2] != ':' {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(clock[0:2])
	m, err2 := strconv.Atoi(clock[3:5])
	if err1 != nil || err2 != nil || h > 23 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

func isoMinutes(d string) (int, bool) {
	if !strings.HasPrefix(d, "PT") || !strings.HasSuffix(d, "M") {
		return 0, false
	}
	n, err := strconv.Atoi(d[2 : len(d)-1])
	return n, err == nil
}

func isoHours(d string) (int, bool) {
	if !strings.HasPrefix(d, "PT") || !strings.HasSuffix(d, "H") {
		return 0, false
	}
	n, err := strconv.Atoi(d[2 : len(d)-1])
	return n, err == nil
}

func (c *Codec) Serialize(entries []crontab.Entry) (string, error) {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<Tasks>\n")
	for _, e := range entries {
		if e.Foreign() {
			b.WriteString("  ")
			b.WriteString(e.Raw())
			b.WriteByte('\n')
			continue
		}
		if e.ID == "" {
			return "", fmt.Errorf("%w: entry %q has no id", crontab.ErrValidation, e.Command)
		}
		task, err := buildTask(e)
		if err != nil {
			return "", err
		}
		out, err := xml.MarshalIndent(task, "  ", "  ")
		if err != nil {
			return "", fmt.Errorf("%w: marshal task %s: %v", crontab.ErrFormat, e.ID, err)
		}
		b.Write(out)
		b.WriteByte('\n')
	}
	b.WriteString("</Tasks>\n")
	return b.String(), nil
}

func buildTask(e crontab.Entry) (managedTask, error) {
	task := managedTask{
		ID:       e.ID,
		Version:  taskVersion,
		Triggers: buildTriggers(e.Interval),
		Settings: managedSettings{Enabled: !e.Disabled()},
		Actions:  managedActions{Exec: execAction{Command: e.Command}},
	}

	if comment, ok := e.Metadata["comment"]; ok {
		c := comment
		task.RegistrationInfo = &registrationInfo{Description: &c}
	}

	var items []metadataItem
	for _, k := range sortedMetaKeys(e.Metadata) {
		if k == "comment" {
			continue
		}
		if k == crontab.MetaDisabled && e.Metadata[k] == "true" {
			continue // carried by Settings/Enabled
		}
		items = append(items, metadataItem{Key: k, Value: e.Metadata[k]})
	}
	if len(items) > 0 {
		task.Metadata = &metadataBlock{Items: items}
	}
	return task, nil
}

var (
	dailyRe  = regexp.MustCompile(`^(\d{1,2}) (\d{1,2}) \* \* \*$`)
	weeklyRe = regexp.MustCompile(`^(\d{1,2}) (\d{1,2}) \* \* ([0-6](?:,[0-6])*)$`)
	minuteRe = regexp.MustCompile(`^\*/(\d{1,2}) \* \* \* \*$`)
	hourRe   = regexp.MustCompile(`^0 \*/(\d{1,2}) \* \* \*$`)
)

// buildTriggers emits the authoritative CronExpression plus, when the
// interval fits one of the native shapes, the equivalent scheduler trigger.
func buildTriggers(interval string) managedTriggers {
	t := managedTriggers{Cron: interval}

	if m := dailyRe.FindStringSubmatch(interval); m != nil {
		t.Calendar = &calendarTriggerOut{
			StartBoundary: boundary(m[2], m[1]),
			ByDay:         &scheduleByDay{DaysInterval: 1},
		}
		return t
	}
	if m := weeklyRe.FindStringSubmatch(interval); m != nil {
		week := &scheduleByWeek{WeeksInterval: 1}
		for _, d := range strings.Split(m[3], ",") {
			n, _ := strconv.Atoi(d)
			markDay(&week.DaysOfWeek, n)
		}
		t.Calendar = &calendarTriggerOut{
			StartBoundary: boundary(m[2], m[1]),
			ByWeek:        week,
		}
		return t
	}
	if m := minuteRe.FindStringSubmatch(interval); m != nil {
		if n, _ := strconv.Atoi(m[1]); n > 0 && n < 60 && 60%n == 0 {
			t.Time = &timeTriggerOut{
				StartBoundary: boundary("0", "0"),
				Repetition:    repetition{Interval: fmt.Sprintf("PT%dM", n)},
			}
		}
		return t
	}
	if m := hourRe.FindStringSubmatch(interval); m != nil {
		if n, _ := strconv.Atoi(m[1]); n > 0 && n < 24 && 24%n == 0 {
			t.Time = &timeTriggerOut{
				StartBoundary: boundary("0", "0"),
				Repetition:    repetition{Interval: fmt.Sprintf("PT%dH", n)},
			}
		}
		return t
	}
	return t
}

func boundary(hour, minute string) string {
	h, _ := strconv.Atoi(hour)
	m, _ := strconv.Atoi(minute)
	return fmt.Sprintf("%sT%02d:%02d:00", startBoundaryDay, h, m)
}

func markDay(d *daysOfWeek, n int) {
	present := &struct{}{}
	switch n {
	case 0:
		d.Sunday = present
	case 1:
		d.Monday = present
	case 2:
		d.Tuesday = present
	case 3:
		d.Wednesday = present
	case 4:
		d.Thursday = present
	case 5:
		d.Friday = present
	case 6:
		d.Saturday = present
	}
}

func sortedMetaKeys(m crontab.Metadata) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func collectTaskIDs(nodes []docNode) []string {
	var ids []string
	for _, n := range nodes {
		if n.XMLName.Local == "Task" {
			if id := attrValue(n.Attrs, "id"); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func attrValue(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// reconstructElement rebuilds the full element text from the captured name,
// attributes and inner XML, for verbatim re-emission of foreign fragments.
func reconstructElement(n docNode) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(n.XMLName.Local)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name.Local)
		b.WriteString(`="`)
		b.WriteString(escapeAttr(a.Value))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	b.WriteString(n.Inner)
	b.WriteString("</")
	b.WriteString(n.XMLName.Local)
	b.WriteByte('>')
	return b.String()
}

func escapeAttr(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
