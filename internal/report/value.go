package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind enumerates the closed set of cell value types the renderer understands.
// Records coming back from storage may be missing fields entirely, which is
// what KindAbsent represents.
type Kind int

const (
	KindAbsent Kind = iota
	KindText
	KindNumber
	KindDecimal
	KindPercent
	KindBool
	KindTime
)

// Value is a single report cell. It is a tagged variant rather than an
// interface so the renderer never has to sniff types at runtime.
type Value struct {
	kind Kind
	text string
	num  float64
	dec  decimal.Decimal
	flag bool
	ts   time.Time
}

// Absent marks a field that the record does not carry.
func Absent() Value {
	return Value{kind: KindAbsent}
}

// Text wraps a plain string cell.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Number wraps a display-only numeric cell. Use Decimal for money.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Decimal wraps an exact monetary amount.
func Decimal(d decimal.Decimal) Value {
	return Value{kind: KindDecimal, dec: d}
}

// Percent wraps a decimal that should display with a percent sign. It is a
// distinct kind so negative percentages can be styled like negative amounts.
func Percent(d decimal.Decimal) Value {
	return Value{kind: KindPercent, dec: d}
}

// Bool wraps a flag cell.
func Bool(b bool) Value {
	return Value{kind: KindBool, flag: b}
}

// Time wraps a timestamp cell.
func Time(t time.Time) Value {
	return Value{kind: KindTime, ts: t}
}

// Kind reports which variant the value holds.
func (v Value) Kind() Kind {
	return v.kind
}

// IsAbsent reports whether the record carried no value for this field.
func (v Value) IsAbsent() bool {
	return v.kind == KindAbsent
}

// Text returns the string payload of a KindText value.
func (v Value) Text() string {
	return v.text
}

// Number returns the float payload of a KindNumber value.
func (v Value) Number() float64 {
	return v.num
}

// Decimal returns the decimal payload of a KindDecimal or KindPercent value.
func (v Value) Decimal() decimal.Decimal {
	return v.dec
}

// Bool returns the flag payload of a KindBool value.
func (v Value) Bool() bool {
	return v.flag
}

// Time returns the timestamp payload of a KindTime value.
func (v Value) Time() time.Time {
	return v.ts
}

// Field is one named cell of a record.
type Field struct {
	Name  string
	Value Value
}

// Record is a single report row: an ordered, open-ended set of named values.
// Two records in the same collection are not guaranteed to carry the same
// fields, so the renderer always computes the column set from the whole
// collection.
type Record []Field

// Lookup returns the value for the named field.
func (r Record) Lookup(name string) (Value, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Section is one labelled branch of grouped report data.
type Section struct {
	Label string
	Child Data
}

// Data is the renderer input: either a leaf sequence of records or an ordered
// group of labelled sections. Making the shape explicit keeps the recursion
// in the renderer structurally total.
type Data struct {
	leaf     []Record
	sections []Section
	grouped  bool
}

// Leaf wraps a flat record sequence.
func Leaf(records ...Record) Data {
	return Data{leaf: records}
}

// Group wraps an ordered list of labelled sections.
func Group(sections ...Section) Data {
	return Data{sections: sections, grouped: true}
}

// IsGroup reports whether the data is a group of sections.
func (d Data) IsGroup() bool {
	return d.grouped
}

// Records returns the leaf records; empty for groups.
func (d Data) Records() []Record {
	return d.leaf
}

// Sections returns the grouped sections; empty for leaves.
func (d Data) Sections() []Section {
	return d.sections
}
