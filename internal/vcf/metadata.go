package vcf

import (
	"strings"
)

// MetadataType identifies the kind of a structured ## metadata line.
type MetadataType int

// Structured metadata types.
const (
	MetaAlt MetadataType = iota
	MetaFilter
	MetaInfo
	MetaFormat
	MetaContig
	MetaSample
	MetaPedigree
)

// HeaderOrder is the order in which metadata blocks are written.
var HeaderOrder = []MetadataType{MetaInfo, MetaFilter, MetaFormat, MetaAlt, MetaContig, MetaSample, MetaPedigree}

// String returns the name used in the ##NAME=<...> line.
func (t MetadataType) String() string {
	switch t {
	case MetaAlt:
		return "ALT"
	case MetaFilter:
		return "FILTER"
	case MetaInfo:
		return "INFO"
	case MetaFormat:
		return "FORMAT"
	case MetaContig:
		return "contig"
	case MetaSample:
		return "SAMPLE"
	case MetaPedigree:
		return "PEDIGREE"
	}
	return "UNKNOWN"
}

// Well-known property keys.
const (
	PropID          = "ID"
	PropDescription = "Description"
	PropNumber      = "Number"
	PropType        = "Type"
	PropSource      = "Source"
	PropVersion     = "Version"
	PropLength      = "length"
	PropURL         = "URL"
)

// Property is one key=value pair of a structured metadata line. Value is
// stored exactly as it appears in the file, including any quotes.
type Property struct {
	Key   string
	Value string
}

// MetadataEntry is one structured metadata line such as
// ##INFO=<ID=DP,Number=1,Type=Integer,Description="Depth">.
//
// Properties keep their insertion order. The ID is fixed at construction.
type MetadataEntry struct {
	typ   MetadataType
	id    string
	props []Property
}

// NewMetadataEntry builds an entry of type t from ordered properties and
// checks the properties required for that type.
func NewMetadataEntry(t MetadataType, props []Property) (*MetadataEntry, error) {
	e := &MetadataEntry{typ: t, props: make([]Property, 0, len(props))}
	for _, p := range props {
		if err := checkPropertyText(p.Key, p.Value); err != nil {
			return nil, err
		}
		if p.Key == "" {
			return nil, formatErrorf("%s metadata has a property with an empty key", t)
		}
		if e.index(p.Key) >= 0 {
			return nil, formatErrorf("%s metadata repeats property %q", t, p.Key)
		}
		e.props = append(e.props, p)
	}
	if t == MetaPedigree {
		if len(e.props) == 0 {
			return nil, formatErrorf("PEDIGREE metadata has no properties")
		}
		e.id = e.joined()
		return e, nil
	}
	id, ok := e.Property(PropID)
	if !ok || id == "" {
		return nil, formatErrorf("required %s metadata property %q is missing", t, PropID)
	}
	e.id = id
	if err := e.validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// ParseMetadataEntry parses the value part of a ##NAME=<...> line.
func ParseMetadataEntry(t MetadataType, value string) (*MetadataEntry, error) {
	body, err := UnwrapAngle(value)
	if err != nil {
		return nil, err
	}
	props, err := parseProperties(body)
	if err != nil {
		return nil, err
	}
	return NewMetadataEntry(t, props)
}

// NewInfoEntry builds an INFO entry.
func NewInfoEntry(id string, number Number, t FieldType, description string) (*MetadataEntry, error) {
	return NewMetadataEntry(MetaInfo, []Property{
		{PropID, id},
		{PropNumber, number.String()},
		{PropType, t.String()},
		{PropDescription, Quote(description)},
	})
}

// NewFormatEntry builds a FORMAT entry.
func NewFormatEntry(id string, number Number, t FieldType, description string) (*MetadataEntry, error) {
	return NewMetadataEntry(MetaFormat, []Property{
		{PropID, id},
		{PropNumber, number.String()},
		{PropType, t.String()},
		{PropDescription, Quote(description)},
	})
}

// NewFilterEntry builds a FILTER entry.
func NewFilterEntry(id, description string) (*MetadataEntry, error) {
	return NewMetadataEntry(MetaFilter, []Property{{PropID, id}, {PropDescription, Quote(description)}})
}

// NewAltEntry builds an ALT entry. The id is a structural variant code
// such as DEL:ME:ALU, without angle brackets.
func NewAltEntry(id, description string) (*MetadataEntry, error) {
	return NewMetadataEntry(MetaAlt, []Property{{PropID, id}, {PropDescription, Quote(description)}})
}

// NewContigEntry builds a contig entry. A length of zero or less is omitted.
func NewContigEntry(id string, length int64) (*MetadataEntry, error) {
	props := []Property{{PropID, id}}
	if length > 0 {
		props = append(props, Property{PropLength, formatInt(length)})
	}
	return NewMetadataEntry(MetaContig, props)
}

// NewSampleEntry builds a SAMPLE entry.
func NewSampleEntry(id, description string) (*MetadataEntry, error) {
	return NewMetadataEntry(MetaSample, []Property{{PropID, id}, {PropDescription, Quote(description)}})
}

// NewPedigreeEntry builds a PEDIGREE entry, e.g. Derived=ID2,Original=ID1.
func NewPedigreeEntry(props ...Property) (*MetadataEntry, error) {
	return NewMetadataEntry(MetaPedigree, props)
}

func (e *MetadataEntry) validate() error {
	switch e.typ {
	case MetaAlt, MetaFilter, MetaSample:
		return e.require(PropDescription)
	case MetaInfo, MetaFormat:
		if err := e.require(PropNumber, PropType, PropDescription); err != nil {
			return err
		}
		if _, err := e.Number(); err != nil {
			return err
		}
		t, err := e.FieldType()
		if err != nil {
			return err
		}
		if t == TypeFlag && e.typ == MetaFormat {
			return formatErrorf("FORMAT %s cannot have Type=Flag", e.id)
		}
	}
	return nil
}

func (e *MetadataEntry) require(keys ...string) error {
	for _, k := range keys {
		if _, ok := e.Property(k); !ok {
			return formatErrorf("required %s metadata property %q is missing", e.typ, k)
		}
	}
	return nil
}

// Type returns the entry's metadata type.
func (e *MetadataEntry) Type() MetadataType { return e.typ }

// ID returns the entry's identifier. For PEDIGREE entries this is the
// joined property text.
func (e *MetadataEntry) ID() string { return e.id }

// Property returns the raw value of key.
func (e *MetadataEntry) Property(key string) (string, bool) {
	if i := e.index(key); i >= 0 {
		return e.props[i].Value, true
	}
	return "", false
}

// Properties returns a copy of the ordered properties.
func (e *MetadataEntry) Properties() []Property {
	out := make([]Property, len(e.props))
	copy(out, e.props)
	return out
}

// Keys returns the property keys in order.
func (e *MetadataEntry) Keys() []string {
	keys := make([]string, len(e.props))
	for i, p := range e.props {
		keys[i] = p.Key
	}
	return keys
}

// Set adds or replaces a property, stored verbatim. The ID cannot be changed
// and properties required by the entry's type must stay valid.
func (e *MetadataEntry) Set(key, value string) error {
	if key == PropID {
		return formatErrorf("%s metadata ID cannot be changed", e.typ)
	}
	if key == "" {
		return formatErrorf("%s metadata property key is empty", e.typ)
	}
	if err := checkPropertyText(key, value); err != nil {
		return err
	}
	i := e.index(key)
	var old Property
	if i >= 0 {
		old = e.props[i]
		e.props[i].Value = value
	} else {
		e.props = append(e.props, Property{Key: key, Value: value})
	}
	if err := e.validate(); err != nil {
		if i >= 0 {
			e.props[i] = old
		} else {
			e.props = e.props[:len(e.props)-1]
		}
		return err
	}
	return nil
}

// SetQuoted sets a free-text property, wrapping the value in quotes.
func (e *MetadataEntry) SetQuoted(key, value string) error {
	return e.Set(key, Quote(value))
}

// Remove deletes a property. Required properties cannot be removed.
func (e *MetadataEntry) Remove(key string) error {
	i := e.index(key)
	if i < 0 {
		return nil
	}
	if key == PropID {
		return formatErrorf("%s metadata ID cannot be removed", e.typ)
	}
	removed := e.props[i]
	e.props = append(e.props[:i], e.props[i+1:]...)
	if err := e.validate(); err != nil {
		e.props = append(e.props[:i], append([]Property{removed}, e.props[i:]...)...)
		return err
	}
	return nil
}

// Description returns the unquoted Description, if any.
func (e *MetadataEntry) Description() string {
	v, _ := e.Property(PropDescription)
	return Unquote(v)
}

// Number returns the parsed Number property of INFO and FORMAT entries.
func (e *MetadataEntry) Number() (Number, error) {
	v, ok := e.Property(PropNumber)
	if !ok {
		return Number{}, formatErrorf("%s %s has no Number", e.typ, e.id)
	}
	return ParseNumber(v)
}

// FieldType returns the parsed Type property of INFO and FORMAT entries.
func (e *MetadataEntry) FieldType() (FieldType, error) {
	v, ok := e.Property(PropType)
	if !ok {
		return TypeString, formatErrorf("%s %s has no Type", e.typ, e.id)
	}
	return ParseFieldType(v)
}

// Length returns the contig length, or 0 when absent or invalid.
func (e *MetadataEntry) Length() int64 {
	v, ok := e.Property(PropLength)
	if !ok {
		return 0
	}
	n, err := parseInt(v)
	if err != nil {
		return 0
	}
	return n
}

// StructuralVariant parses the ID of an ALT entry as a structural variant code.
func (e *MetadataEntry) StructuralVariant() (StructuralVariant, error) {
	if e.typ != MetaAlt {
		return StructuralVariant{}, formatErrorf("%s metadata is not an ALT entry", e.typ)
	}
	return ParseStructuralVariant(e.id)
}

// Convert converts a raw INFO or FORMAT value with this entry's Type and Number.
func (e *MetadataEntry) Convert(raw string) (any, error) {
	t, err := e.FieldType()
	if err != nil {
		return nil, err
	}
	n, err := e.Number()
	if err != nil {
		return nil, err
	}
	return ConvertValue(t, n.IsList(), raw)
}

// String renders the full ## line without a trailing newline.
func (e *MetadataEntry) String() string {
	return "##" + e.typ.String() + "=<" + e.joined() + ">"
}

func (e *MetadataEntry) joined() string {
	parts := make([]string, len(e.props))
	for i, p := range e.props {
		parts[i] = p.Key + "=" + p.Value
	}
	return JoinPropertyList(parts)
}

func (e *MetadataEntry) index(key string) int {
	for i, p := range e.props {
		if p.Key == key {
			return i
		}
	}
	return -1
}

func checkPropertyText(key, value string) error {
	if strings.ContainsAny(key, "\r\n") || strings.ContainsAny(value, "\r\n") {
		return formatErrorf("metadata property %q contains a newline", key)
	}
	return nil
}

// RawProperty is an unstructured ##key=value line such as ##assembly=...
type RawProperty struct {
	Key   string
	Value string
}

func (p RawProperty) String() string {
	if p.Value == "" {
		return "##" + p.Key
	}
	return "##" + p.Key + "=" + p.Value
}
