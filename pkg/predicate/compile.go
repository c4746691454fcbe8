package predicate

import (
	"fmt"
	"strings"
	"time"
)

// InputDateLayout is the day-month-year form accepted for date bounds.
const InputDateLayout = "2-1-2006"

// Fields are the filter values the predicate language can express.
type Fields struct {
	Subject        string
	Sender         string
	DateFrom       string
	DateTo         string
	HasAttachments *bool
}

// InvalidDateError reports a date bound that is not in DD-MM-YYYY form.
type InvalidDateError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid %s format %q, use DD-MM-YYYY", e.Field, e.Value)
}

func (e *InvalidDateError) Unwrap() error {
	return e.Err
}

// Compile translates f into a Predicate. Blank text fields are ignored; a
// date that cannot be parsed fails the whole compilation.
func Compile(f Fields) (Predicate, error) {
	var p Predicate

	if subject := strings.TrimSpace(f.Subject); subject != "" {
		p.Conditions = append(p.Conditions, Condition{AnyOf: []Comparison{
			{Property: Subject, Op: Like, Value: subject},
		}})
	}

	if sender := strings.TrimSpace(f.Sender); sender != "" {
		p.Conditions = append(p.Conditions, Condition{AnyOf: []Comparison{
			{Property: FromEmail, Op: Like, Value: sender},
			{Property: FromName, Op: Like, Value: sender},
		}})
	}

	if strings.TrimSpace(f.DateFrom) != "" {
		from, err := ParseDate("date_from", f.DateFrom)
		if err != nil {
			return Predicate{}, err
		}
		p.Conditions = append(p.Conditions, Condition{AnyOf: []Comparison{
			{Property: DateReceived, Op: GreaterOrEqual, Value: from},
		}})
	}

	if strings.TrimSpace(f.DateTo) != "" {
		to, err := ParseDate("date_to", f.DateTo)
		if err != nil {
			return Predicate{}, err
		}
		// Exclusive bound on the following day keeps the whole end date.
		p.Conditions = append(p.Conditions, Condition{AnyOf: []Comparison{
			{Property: DateReceived, Op: Less, Value: to.AddDate(0, 0, 1)},
		}})
	}

	if f.HasAttachments != nil {
		p.Conditions = append(p.Conditions, Condition{AnyOf: []Comparison{
			{Property: HasAttachment, Op: Equal, Value: *f.HasAttachments},
		}})
	}

	return p, nil
}

// ParseDate parses a DD-MM-YYYY value as local midnight.
func ParseDate(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation(InputDateLayout, strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}, &InvalidDateError{Field: field, Value: value, Err: err}
	}
	return t, nil
}
