package storage

import (
	"bytes"
	"encoding/json"

	"github.com/Tiliavir/booking-ledger/internal/model"
)

// EncodeDay renders a DayFile with fixed key order and one action or record
// per line, so that appending an action adds exactly one line to a diff.
func EncodeDay(df model.DayFile) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	if err := writeField(&buf, "  ", "date", df.Date); err != nil {
		return nil, err
	}
	buf.WriteString(",\n  \"actions\": ")
	if err := writeLines(&buf, "  ", df.Actions); err != nil {
		return nil, err
	}
	buf.WriteString(",\n  \"records\": ")
	if err := writeLines(&buf, "  ", df.Records); err != nil {
		return nil, err
	}
	buf.WriteString("\n}\n")
	return buf.Bytes(), nil
}

// EncodeWeek renders a WeekFile. Days keep their position and formatting
// when another day is added; only the separator after the previous day changes.
func EncodeWeek(wf model.WeekFile) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	if err := writeField(&buf, "  ", "week", wf.Week); err != nil {
		return nil, err
	}
	buf.WriteString(",\n  \"days\": ")
	if len(wf.Days) == 0 {
		buf.WriteString("[]")
	} else {
		buf.WriteString("[\n")
		for i, d := range wf.Days {
			if err := writeWeekDay(&buf, "    ", d); err != nil {
				return nil, err
			}
			if i < len(wf.Days)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString("  ]")
	}
	buf.WriteString("\n}\n")
	return buf.Bytes(), nil
}

func writeWeekDay(buf *bytes.Buffer, indent string, d model.WeekDay) error {
	inner := indent + "  "
	buf.WriteString(indent + "{\n")
	if err := writeField(buf, inner, "date", d.Date); err != nil {
		return err
	}
	buf.WriteString(",\n")
	if err := writeField(buf, inner, "weekday", d.Weekday); err != nil {
		return err
	}
	buf.WriteString(",\n")
	if err := writeField(buf, inner, "digest", d.Digest); err != nil {
		return err
	}
	buf.WriteString(",\n" + inner + "\"records\": ")
	if err := writeLines(buf, inner, d.Records); err != nil {
		return err
	}
	buf.WriteString("\n" + indent + "}")
	return nil
}

func writeField(buf *bytes.Buffer, indent, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.WriteString(indent + "\"" + key + "\": ")
	buf.Write(b)
	return nil
}

// writeLines writes items as a JSON array with one compact element per line.
func writeLines[T any](buf *bytes.Buffer, indent string, items []T) error {
	if len(items) == 0 {
		buf.WriteString("[]")
		return nil
	}
	buf.WriteString("[\n")
	for i, item := range items {
		b, err := json.Marshal(item)
		if err != nil {
			return err
		}
		buf.WriteString(indent + "  ")
		buf.Write(b)
		if i < len(items)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(indent + "]")
	return nil
}
