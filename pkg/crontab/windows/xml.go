package windows

import "encoding/xml"

// Document model for the persisted task set. Managed tasks are regenerated
// from typed structs; anything else rides along as a captured fragment.
//
// The shapes follow the Task Scheduler schema closely enough that real
// exports with daily/weekly calendar triggers or minute/hour repetition map
// cleanly, while CronExpression is this system's custom element carrying the
// authoritative five-field schedule.

type taskDocument struct {
	XMLName xml.Name  `xml:"Tasks"`
	Nodes   []docNode `xml:",any"`
}

// docNode captures one top-level element verbatim: its name, attributes in
// document order, and inner XML untouched.
type docNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// taskBody is the typed view of a <Task> element's content, used when
// deciding whether a task is ours.
type taskBody struct {
	XMLName          xml.Name          `xml:"Task"`
	RegistrationInfo *registrationInfo `xml:"RegistrationInfo"`
	Metadata         *metadataBlock    `xml:"Metadata"`
	Triggers         *triggerSet       `xml:"Triggers"`
	Settings         *taskSettings     `xml:"Settings"`
	Actions          *actionSet        `xml:"Actions"`
}

type registrationInfo struct {
	Description *string `xml:"Description"`
}

type metadataBlock struct {
	Items []metadataItem `xml:"Item"`
}

type metadataItem struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type triggerSet struct {
	Calendar []calendarTrigger `xml:"CalendarTrigger"`
	Time     []timeTrigger     `xml:"TimeTrigger"`
	Cron     []string          `xml:"CronExpression"`
	Other    []anyElement      `xml:",any"`
}

type anyElement struct {
	XMLName xml.Name
}

type calendarTrigger struct {
	StartBoundary string          `xml:"StartBoundary"`
	ByDay         *scheduleByDay  `xml:"ScheduleByDay"`
	ByWeek        *scheduleByWeek `xml:"ScheduleByWeek"`
	Other         []anyElement    `xml:",any"`
}

type scheduleByDay struct {
	DaysInterval int `xml:"DaysInterval"`
}

type scheduleByWeek struct {
	WeeksInterval int        `xml:"WeeksInterval"`
	DaysOfWeek    daysOfWeek `xml:"DaysOfWeek"`
}

// daysOfWeek uses presence elements, matching the Task Scheduler schema.
type daysOfWeek struct {
	Sunday    *struct{} `xml:"Sunday"`
	Monday    *struct{} `xml:"Monday"`
	Tuesday   *struct{} `xml:"Tuesday"`
	Wednesday *struct{} `xml:"Wednesday"`
	Thursday  *struct{} `xml:"Thursday"`
	Friday    *struct{} `xml:"Friday"`
	Saturday  *struct{} `xml:"Saturday"`
}

// set returns the cron day-of-week numbers present, ascending (Sunday=0).
func (d daysOfWeek) set() []int {
	var days []int
	for i, p := range []*struct{}{d.Sunday, d.Monday, d.Tuesday, d.Wednesday, d.Thursday, d.Friday, d.Saturday} {
		if p != nil {
			days = append(days, i)
		}
	}
	return days
}

type timeTrigger struct {
	StartBoundary string       `xml:"StartBoundary"`
	Repetition    *repetition  `xml:"Repetition"`
	Other         []anyElement `xml:",any"`
}

type repetition struct {
	Interval string `xml:"Interval"` // ISO 8601 duration, e.g. PT15M
}

type taskSettings struct {
	Enabled *bool `xml:"Enabled"`
}

type actionSet struct {
	Exec  []execAction `xml:"Exec"`
	Other []anyElement `xml:",any"`
}

type execAction struct {
	Command   string `xml:"Command"`
	Arguments string `xml:"Arguments,omitempty"`
}

// ---- serialization shapes (regenerated managed tasks) ----

type managedTask struct {
	XMLName          xml.Name           `xml:"Task"`
	ID               string             `xml:"id,attr"`
	Version          string             `xml:"version,attr"`
	RegistrationInfo *registrationInfo  `xml:"RegistrationInfo,omitempty"`
	Metadata         *metadataBlock     `xml:"Metadata,omitempty"`
	Triggers         managedTriggers    `xml:"Triggers"`
	Settings         managedSettings    `xml:"Settings"`
	Actions          managedActions     `xml:"Actions"`
}

type managedTriggers struct {
	Calendar *calendarTriggerOut `xml:"CalendarTrigger,omitempty"`
	Time     *timeTriggerOut     `xml:"TimeTrigger,omitempty"`
	Cron     string              `xml:"CronExpression"`
}

type calendarTriggerOut struct {
	StartBoundary string          `xml:"StartBoundary"`
	ByDay         *scheduleByDay  `xml:"ScheduleByDay,omitempty"`
	ByWeek        *scheduleByWeek `xml:"ScheduleByWeek,omitempty"`
}

type timeTriggerOut struct {
	StartBoundary string     `xml:"StartBoundary"`
	Repetition    repetition `xml:"Repetition"`
}

type managedSettings struct {
	Enabled bool `xml:"Enabled"`
}

type managedActions struct {
	Exec execAction `xml:"Exec"`
}
