package trace

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format represents the output format for trace events.
type Format uint8

const (
	FormatAuto   Format = iota // pick by output file extension
	FormatText                 // human-readable text
	FormatNDJSON               // newline-delimited JSON
	FormatChrome               // chrome://tracing JSON array
)

// FormatEvent formats an event according to the specified format.
func FormatEvent(ev *Event, format Format) []byte {
	switch format {
	case FormatNDJSON:
		return formatNDJSON(ev)
	case FormatChrome:
		return formatChrome(ev)
	default:
		return formatText(ev)
	}
}

// formatNDJSON formats an event as newline-delimited JSON.
func formatNDJSON(ev *Event) []byte {
	type jsonEvent struct {
		Time     string            `json:"time"`
		Seq      uint64            `json:"seq"`
		Kind     string            `json:"kind"`
		Scope    string            `json:"scope"`
		SpanID   uint64            `json:"span_id"`
		ParentID uint64            `json:"parent_id,omitempty"`
		GID      uint64            `json:"gid,omitempty"`
		Name     string            `json:"name"`
		Detail   string            `json:"detail,omitempty"`
		Extra    map[string]string `json:"extra,omitempty"`
	}

	j := jsonEvent{
		Time:     ev.Time.Format("2006-01-02T15:04:05.000000Z07:00"),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		SpanID:   ev.SpanID,
		ParentID: ev.ParentID,
		GID:      ev.GID,
		Name:     ev.Name,
		Detail:   ev.Detail,
		Extra:    ev.Extra,
	}

	data, _ := json.Marshal(j)
	data = append(data, '\n')
	return data
}

// formatChrome formats an event for the chrome://tracing viewer. The stream
// tracer wraps these objects in the surrounding JSON array.
func formatChrome(ev *Event) []byte {
	type chromeEvent struct {
		Name string            `json:"name"`
		Cat  string            `json:"cat"`
		Ph   string            `json:"ph"`
		TS   int64             `json:"ts"` // microseconds
		PID  int               `json:"pid"`
		TID  uint64            `json:"tid"`
		Args map[string]string `json:"args,omitempty"`
	}

	ph := "i"
	switch ev.Kind {
	case KindSpanBegin:
		ph = "B"
	case KindSpanEnd:
		ph = "E"
	}

	var args map[string]string
	if ev.Detail != "" || len(ev.Extra) > 0 {
		args = make(map[string]string, len(ev.Extra)+1)
		for k, v := range ev.Extra {
			args[k] = v
		}
		if ev.Detail != "" {
			args["detail"] = ev.Detail
		}
	}

	j := chromeEvent{
		Name: ev.Name,
		Cat:  ev.Scope.String(),
		Ph:   ph,
		TS:   ev.Time.UnixMicro(),
		PID:  1,
		TID:  ev.GID,
		Args: args,
	}

	data, _ := json.Marshal(j)
	return data
}

// formatText renders one line per event:
//
//	[15:04:05.000] → script:build.kts (detail) {k=v}
//
// Nested events get a shallow two-space indent; real nesting depth is not
// tracked because the text form is for eyeballing, not for tooling.
func formatText(ev *Event) []byte {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] ", ev.Time.Format("15:04:05.000")))
	if ev.ParentID > 0 {
		sb.WriteString("  ")
	}

	switch ev.Kind {
	case KindSpanBegin:
		sb.WriteString("→ ")
	case KindSpanEnd:
		sb.WriteString("← ")
	case KindPoint:
		sb.WriteString("• ")
	case KindHeartbeat:
		sb.WriteString("♡ ")
	}

	sb.WriteString(ev.Name)
	if ev.Detail != "" {
		sb.WriteString(" (")
		sb.WriteString(ev.Detail)
		sb.WriteString(")")
	}

	if len(ev.Extra) > 0 {
		sb.WriteString(" {")
		first := true
		for k, v := range ev.Extra {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString("=")
			sb.WriteString(v)
			first = false
		}
		sb.WriteString("}")
	}

	sb.WriteString("\n")
	return []byte(sb.String())
}
