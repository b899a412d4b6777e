package core

// codec.go normalizes submitted values for storage and formats stored
// values for display.
//
// Dates, times and date-times arrive in the layout configured for their
// type and are stored as unix timestamps, so exports can re-render them in
// any layout. Choice fields store the raw option value next to its label.

import (
	"strconv"
	"strings"
	"time"
)

// DisplaySeparator joins the items of list values for display.
const DisplaySeparator = ", "

// Default layouts for temporal fields.
const (
	DefaultDateFormat     = "2006-01-02"
	DefaultTimeFormat     = "15:04"
	DefaultDateTimeFormat = "2006-01-02 15:04"
)

// DateFormats holds the Go layout registered for each temporal field type.
type DateFormats struct {
	Date     string
	Time     string
	DateTime string
	Location *time.Location // nil means UTC
}

// DefaultDateFormats returns ISO-style layouts in UTC.
func DefaultDateFormats() DateFormats {
	return DateFormats{
		Date:     DefaultDateFormat,
		Time:     DefaultTimeFormat,
		DateTime: DefaultDateTimeFormat,
		Location: time.UTC,
	}
}

// Layout returns the layout registered for a temporal type, or "" for other types.
func (f DateFormats) Layout(t FieldType) string {
	switch t {
	case FieldDate:
		return orDefault(f.Date, DefaultDateFormat)
	case FieldTime:
		return orDefault(f.Time, DefaultTimeFormat)
	case FieldDateTime:
		return orDefault(f.DateTime, DefaultDateTimeFormat)
	default:
		return ""
	}
}

func (f DateFormats) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

// Display renders stored timestamps of a temporal type back into its layout.
// Items that are empty or not timestamps are returned unchanged, as are
// values of non-temporal types.
func (f DateFormats) Display(t FieldType, v Value) Value {
	if !t.IsTemporal() {
		return v
	}
	layout := f.Layout(t)
	out, _ := v.Map(func(s string) (string, error) {
		ts, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return s, nil
		}
		return time.Unix(ts, 0).In(f.location()).Format(layout), nil
	})
	return out
}

// NormalizeValue prepares a submitted value for storage.
// Lists are normalized item by item. Non-empty temporal values are parsed
// with the layout registered for their type and replaced by a unix
// timestamp; a value that does not match returns a *ValidationError.
// All other values pass through unchanged.
func NormalizeValue(v Value, t FieldType, formats DateFormats) (Value, error) {
	if !t.IsTemporal() {
		return v, nil
	}
	layout := formats.Layout(t)
	return v.Map(func(s string) (string, error) {
		if s == "" {
			return s, nil
		}
		parsed, err := time.ParseInLocation(layout, strings.TrimSpace(s), formats.location())
		if err != nil {
			return "", &ValidationError{Value: s, Layout: layout, Err: err}
		}
		return strconv.FormatInt(parsed.Unix(), 10), nil
	})
}

// ComputeLabel looks up the option label for a submitted value.
// Lists are labelled item by item. The first option whose value matches and
// whose label is non-empty wins; without a match the raw value is its own label.
func ComputeLabel(v Value, options []Option) Value {
	out, _ := v.Map(func(s string) (string, error) {
		for _, opt := range options {
			if opt.Value == s && opt.Label != "" {
				return opt.Label, nil
			}
		}
		return s, nil
	})
	return out
}

// FormatForDisplay renders a stored record as a single cell.
// With a non-empty label the result is "label (value)", otherwise the value alone.
func FormatForDisplay(r FieldRecord) string {
	value := r.Value.String()
	if r.Label.IsEmpty() {
		return value
	}
	return r.Label.String() + " (" + value + ")"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
