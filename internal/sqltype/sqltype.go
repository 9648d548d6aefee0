// Package sqltype implements the type lattice: a small, dialect-agnostic
// family of SQL types, the compatibility relation between them, and the
// widening rule used by CASE expressions and set-operation unification.
//
// The lattice is pure and stateless. It never inspects a catalog or a
// scope; it only classifies and compares.
package sqltype

import (
	"fmt"
	"strconv"
	"strings"
)

// Family is the tag of a SqlType.
type Family int

const (
	Unknown Family = iota
	Tinyint
	Smallint
	Integer
	Bigint
	Decimal
	Numeric
	Real
	Double
	Char
	Varchar
	Text
	Date
	Time
	Timestamp
	TimestampTz
	Interval
	Boolean
	Json
	Jsonb
	Uuid
	Bytea
	Array
	Enum
)

// SqlType is a normalized, coarse SQL type. Zero value is Unknown.
type SqlType struct {
	Family Family
	// Precision/Scale apply to Decimal/Numeric; zero means unspecified.
	Precision int
	Scale     int
	// Elem is the element type for Array.
	Elem *SqlType
	// EnumName names a catalog-registered enum for Enum.
	EnumName string
}

// intRank orders integer families by width; unsigned variants fold into the
// same rank since the lattice never reasons about signedness.
var intRank = map[Family]int{
	Tinyint:  0,
	Smallint: 1,
	Integer:  2,
	Bigint:   3,
}

func isIntFamily(f Family) bool { _, ok := intRank[f]; return ok }

func isExactNumericFamily(f Family) bool {
	return isIntFamily(f) || f == Decimal || f == Numeric
}

func isApproxNumericFamily(f Family) bool {
	return f == Real || f == Double
}

// IsNumeric reports whether t belongs to any numeric family (integer,
// exact, or approximate).
func (t SqlType) IsNumeric() bool {
	return isExactNumericFamily(t.Family) || isApproxNumericFamily(t.Family)
}

func isTextFamily(f Family) bool {
	switch f {
	case Char, Varchar, Text:
		return true
	default:
		return false
	}
}

// IsText reports whether t is one of the text families.
func (t SqlType) IsText() bool { return isTextFamily(t.Family) }

// IsTemporal reports whether t is one of the temporal families.
func (t SqlType) IsTemporal() bool {
	switch t.Family {
	case Date, Time, Timestamp, TimestampTz, Interval:
		return true
	default:
		return false
	}
}

var temporalGroup = map[Family]int{
	Date:        0,
	Timestamp:   0, // Date<->Timestamp cross-compatible, see IsCompatibleWith.
	Time:        1,
	TimestampTz: 2,
	Interval:    3,
}

// New constructs a plain SqlType of the given family with no parameters.
func New(f Family) SqlType { return SqlType{Family: f} }

// NewDecimal constructs a Decimal/Numeric type carrying precision/scale.
func NewDecimal(f Family, precision, scale int) SqlType {
	return SqlType{Family: f, Precision: precision, Scale: scale}
}

// NewArray constructs an Array(inner) type.
func NewArray(inner SqlType) SqlType {
	cp := inner
	return SqlType{Family: Array, Elem: &cp}
}

// NewEnum constructs an Enum(name) type.
func NewEnum(name string) SqlType { return SqlType{Family: Enum, EnumName: name} }

// IsCompatibleWith implements the symmetric compatibility predicate from
// the spec: identical families are always compatible; Unknown is
// compatible with everything; integers are mutually compatible and
// compatible with Decimal/Numeric/Real/Double; text families are mutually
// compatible; Enum is compatible only with itself and with text; temporal
// families are compatible only within their group except Date<->Timestamp;
// Array(a) is compatible with Array(b) iff a<->b.
func (t SqlType) IsCompatibleWith(o SqlType) bool {
	if t.Family == Unknown || o.Family == Unknown {
		return true
	}
	if t.Family == o.Family {
		switch t.Family {
		case Array:
			return t.Elem != nil && o.Elem != nil && t.Elem.IsCompatibleWith(*o.Elem)
		case Enum:
			return t.EnumName == o.EnumName
		default:
			return true
		}
	}

	if t.IsNumeric() && o.IsNumeric() {
		return true
	}
	if isTextFamily(t.Family) && isTextFamily(o.Family) {
		return true
	}
	if t.Family == Enum || o.Family == Enum {
		enumSide, textSide := t, o
		if o.Family == Enum {
			enumSide, textSide = o, t
		}
		return enumSide.Family == Enum && isTextFamily(textSide.Family)
	}
	if t.IsTemporal() && o.IsTemporal() {
		if (t.Family == Date && o.Family == Timestamp) || (t.Family == Timestamp && o.Family == Date) {
			return true
		}
		return temporalGroup[t.Family] == temporalGroup[o.Family] && t.Family == o.Family
	}
	if t.Family == Array || o.Family == Array {
		return false
	}
	return false
}

// rankOf returns a widening rank used to pick the "higher" numeric type.
// Higher rank wins ties deterministically; approximate numerics outrank
// exact numerics of the same or lower precision class, matching common SQL
// promotion rules (INT + DOUBLE -> DOUBLE).
func rankOf(f Family) int {
	switch f {
	case Tinyint:
		return 0
	case Smallint:
		return 1
	case Integer:
		return 2
	case Bigint:
		return 3
	case Decimal, Numeric:
		return 4
	case Real:
		return 5
	case Double:
		return 6
	default:
		return -1
	}
}

// Widen returns the join of a and b used by CASE/COALESCE and set-operation
// column unification. Falls back to Unknown when the two types are not
// compatible.
func Widen(a, b SqlType) SqlType {
	if a.Family == Unknown {
		return b
	}
	if b.Family == Unknown {
		return a
	}
	if !a.IsCompatibleWith(b) {
		return New(Unknown)
	}
	if a.Family == b.Family {
		if a.Family == Array && a.Elem != nil && b.Elem != nil {
			inner := Widen(*a.Elem, *b.Elem)
			return NewArray(inner)
		}
		return a
	}
	if a.IsNumeric() && b.IsNumeric() {
		if rankOf(a.Family) >= rankOf(b.Family) {
			return a
		}
		return b
	}
	if isTextFamily(a.Family) && isTextFamily(b.Family) {
		return New(Text)
	}
	if a.Family == Enum && isTextFamily(b.Family) {
		return New(Text)
	}
	if b.Family == Enum && isTextFamily(a.Family) {
		return New(Text)
	}
	if a.Family == Date && b.Family == Timestamp {
		return New(Timestamp)
	}
	if a.Family == Timestamp && b.Family == Date {
		return New(Timestamp)
	}
	return New(Unknown)
}

// Widen returns the join of t and o; see the Widen function for the rule.
func (t SqlType) Widen(o SqlType) SqlType { return Widen(t, o) }

// DisplayName renders t for inclusion in diagnostic messages; see the
// DisplayName function for the rule.
func (t SqlType) DisplayName() string { return DisplayName(t) }

// DisplayName renders a SqlType for inclusion in diagnostic messages.
func DisplayName(t SqlType) string {
	switch t.Family {
	case Unknown:
		return "unknown"
	case Tinyint:
		return "TINYINT"
	case Smallint:
		return "SMALLINT"
	case Integer:
		return "INTEGER"
	case Bigint:
		return "BIGINT"
	case Decimal:
		return decimalName("DECIMAL", t)
	case Numeric:
		return decimalName("NUMERIC", t)
	case Real:
		return "REAL"
	case Double:
		return "DOUBLE"
	case Char:
		return "CHAR"
	case Varchar:
		return "VARCHAR"
	case Text:
		return "TEXT"
	case Date:
		return "DATE"
	case Time:
		return "TIME"
	case Timestamp:
		return "TIMESTAMP"
	case TimestampTz:
		return "TIMESTAMPTZ"
	case Interval:
		return "INTERVAL"
	case Boolean:
		return "BOOLEAN"
	case Json:
		return "JSON"
	case Jsonb:
		return "JSONB"
	case Uuid:
		return "UUID"
	case Bytea:
		return "BYTEA"
	case Array:
		if t.Elem != nil {
			return DisplayName(*t.Elem) + "[]"
		}
		return "ARRAY"
	case Enum:
		if t.EnumName != "" {
			return fmt.Sprintf("ENUM(%s)", t.EnumName)
		}
		return "ENUM"
	default:
		return "unknown"
	}
}

func decimalName(label string, t SqlType) string {
	if t.Precision == 0 {
		return label
	}
	if t.Scale == 0 {
		return fmt.Sprintf("%s(%d)", label, t.Precision)
	}
	return fmt.Sprintf("%s(%d,%d)", label, t.Precision, t.Scale)
}

// rawTypeRule maps a substring of a raw SQL type string onto a Family. This
// is the from_ast normalization step: the frontend hands us the dialect's
// own rendering of a type node (e.g. "VARCHAR(255)", "DOUBLE UNSIGNED",
// "TIMESTAMP(6)") and we classify it into the lattice, the same
// substring-containment approach the teacher's NormalizeDataType uses, but
// refined into the finer-grained families this spec needs instead of one
// flat DataType enum.
type rawTypeRule struct {
	family     Family
	substrings []string
}

var rawTypeRules = []rawTypeRule{
	{Bigint, []string{"bigint"}},
	{Tinyint, []string{"tinyint"}},
	{Smallint, []string{"smallint"}},
	{Interval, []string{"interval"}},
	{Integer, []string{"int", "integer", "mediumint"}},
	{Double, []string{"double"}},
	{Real, []string{"real", "float"}},
	{Numeric, []string{"numeric"}},
	{Decimal, []string{"decimal", "dec"}},
	{TimestampTz, []string{"timestamptz", "timestamp with time zone"}},
	{Timestamp, []string{"timestamp", "datetime"}},
	{Date, []string{"date"}},
	{Time, []string{"time"}},
	{Boolean, []string{"bool"}},
	{Jsonb, []string{"jsonb"}},
	{Json, []string{"json"}},
	{Uuid, []string{"uuid"}},
	{Bytea, []string{"bytea", "blob", "binary", "varbinary"}},
	{Varchar, []string{"varchar"}},
	{Char, []string{"char"}},
	{Text, []string{"text", "string", "enum", "set"}},
}

// FromRawType normalizes a dialect-specific raw type string into the
// internal lattice. Precision/scale are parsed out of a single
// parenthesized argument list for DECIMAL/NUMERIC ("DECIMAL(10,2)").
// Unrecognized input normalizes to Unknown, which is compatible with
// everything and therefore never itself the cause of a spurious diagnostic.
func FromRawType(raw string) SqlType {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return New(Unknown)
	}
	for _, rule := range rawTypeRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				t := New(rule.family)
				if rule.family == Decimal || rule.family == Numeric {
					t.Precision, t.Scale = parsePrecisionScale(lower)
				}
				return t
			}
		}
	}
	return New(Unknown)
}

func parsePrecisionScale(lower string) (precision, scale int) {
	open := strings.IndexByte(lower, '(')
	close := strings.IndexByte(lower, ')')
	if open < 0 || close < 0 || close < open {
		return 0, 0
	}
	parts := strings.Split(lower[open+1:close], ",")
	if len(parts) >= 1 {
		precision, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	}
	if len(parts) >= 2 {
		scale, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return precision, scale
}
