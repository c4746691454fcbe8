// Package predicate builds the server-side query filter handed to a mailbox
// gateway. A Predicate is a conjunction of conditions, each condition being a
// disjunction of atomic property comparisons. Its String form is the DASL
// syntax ("@SQL=...") understood by MAPI style stores; gateways for other
// backends translate the structured form instead.
package predicate

import (
	"fmt"
	"strings"
	"time"
)

type Property string

const (
	Subject       Property = "urn:schemas:httpmail:subject"
	FromEmail     Property = "urn:schemas:httpmail:fromemail"
	FromName      Property = "urn:schemas:httpmail:fromname"
	DateReceived  Property = "urn:schemas:httpmail:datereceived"
	HasAttachment Property = "urn:schemas:httpmail:hasattachment"
)

type Op string

const (
	Like           Op = "LIKE"
	GreaterOrEqual Op = ">="
	Less           Op = "<"
	Equal          Op = "="
)

const (
	sqlPrefix  = "@SQL="
	dateLayout = "01/02/2006"
)

// Comparison is one atomic test. Value is a string for Like, a time.Time for
// the ordering operators and a bool for Equal.
type Comparison struct {
	Property Property
	Op       Op
	Value    any
}

func (c Comparison) String() string {
	switch v := c.Value.(type) {
	case string:
		if c.Op == Like {
			return fmt.Sprintf("%q %s '%%%s%%'", string(c.Property), c.Op, quote(v))
		}
		return fmt.Sprintf("%q %s '%s'", string(c.Property), c.Op, quote(v))
	case time.Time:
		return fmt.Sprintf("%q %s '%s'", string(c.Property), c.Op, v.Format(dateLayout))
	case bool:
		flag := 0
		if v {
			flag = 1
		}
		return fmt.Sprintf("%q %s %d", string(c.Property), c.Op, flag)
	default:
		return fmt.Sprintf("%q %s '%v'", string(c.Property), c.Op, v)
	}
}

// Match evaluates the comparison against a property value read from an item.
func (c Comparison) Match(value any) bool {
	switch c.Op {
	case Like:
		want, ok := c.Value.(string)
		got, ok2 := value.(string)
		if !ok || !ok2 {
			return false
		}
		return strings.Contains(strings.ToLower(got), strings.ToLower(want))
	case GreaterOrEqual, Less:
		bound, ok := c.Value.(time.Time)
		got, ok2 := value.(time.Time)
		if !ok || !ok2 {
			return false
		}
		got = got.In(bound.Location())
		if c.Op == GreaterOrEqual {
			return !got.Before(bound)
		}
		return got.Before(bound)
	case Equal:
		return c.Value == value
	}
	return false
}

// Condition is satisfied when any of its comparisons matches.
type Condition struct {
	AnyOf []Comparison
}

func (c Condition) String() string {
	if len(c.AnyOf) == 1 {
		return c.AnyOf[0].String()
	}
	parts := make([]string, 0, len(c.AnyOf))
	for _, cmp := range c.AnyOf {
		parts = append(parts, cmp.String())
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// Lookup reads a property value from an item.
type Lookup func(Property) (any, error)

func (c Condition) Match(lookup Lookup) bool {
	for _, cmp := range c.AnyOf {
		value, err := lookup(cmp.Property)
		if err != nil {
			continue
		}
		if cmp.Match(value) {
			return true
		}
	}
	return false
}

// Predicate is a conjunction of conditions. The zero value is unrestricted.
type Predicate struct {
	Conditions []Condition
}

func (p Predicate) IsEmpty() bool {
	return len(p.Conditions) == 0
}

// String renders the DASL filter. A single condition is returned as is,
// several are joined with AND behind one "@SQL=" prefix.
func (p Predicate) String() string {
	if p.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, len(p.Conditions))
	for _, c := range p.Conditions {
		parts = append(parts, c.String())
	}
	return sqlPrefix + strings.Join(parts, " AND ")
}

// Match reports whether every condition matches.
func (p Predicate) Match(lookup Lookup) bool {
	for _, c := range p.Conditions {
		if !c.Match(lookup) {
			return false
		}
	}
	return true
}

// Split partitions the conditions into those for which supported holds for
// every comparison and the remainder, preserving order.
func (p Predicate) Split(supported func(Comparison) bool) (Predicate, Predicate) {
	var pushed, residual Predicate
	for _, c := range p.Conditions {
		ok := true
		for _, cmp := range c.AnyOf {
			if !supported(cmp) {
				ok = false
				break
			}
		}
		if ok {
			pushed.Conditions = append(pushed.Conditions, c)
		} else {
			residual.Conditions = append(residual.Conditions, c)
		}
	}
	return pushed, residual
}

// quote doubles single quotes so a value cannot terminate its literal.
func quote(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
