package schema

// Kind classifies how a field is stored, parsed and rendered.
type Kind int

const (
	// KindString is a short single-line string.
	KindString Kind = iota
	// KindText is a multi-line string.
	KindText
	// KindInt is an int64.
	KindInt
	// KindDecimal is a float64 with a fixed display precision.
	KindDecimal
	// KindBool is a checkbox.
	KindBool
	// KindDate is a calendar date.
	KindDate
	// KindDateTime is a timestamp.
	KindDateTime
	// KindChoice is a string restricted to Field.Choices.
	KindChoice
	// KindForeignKey is the int64 identity of a related entity.
	KindForeignKey
	// KindPassword is a secret that is never rendered back.
	KindPassword
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindChoice:
		return "choice"
	case KindForeignKey:
		return "foreign_key"
	case KindPassword:
		return "password"
	default:
		return "unknown"
	}
}

// Choice is one allowed value of a KindChoice field.
type Choice struct {
	Value string
	Label string
}

// Field describes one column of an entity.
type Field struct {
	Name      string
	Label     string
	Kind      Kind
	Editable  bool
	Required  bool
	Nullable  bool
	MaxLength int
	// Places is the number of decimals shown for KindDecimal.
	Places   int
	Choices  []Choice
	HelpText string
	// Related is the entity key referenced by a KindForeignKey field.
	Related string
}

// ChoiceLabel returns the label for value, or value itself when unknown.
func (f Field) ChoiceLabel(value string) string {
	for _, c := range f.Choices {
		if c.Value == value {
			return c.Label
		}
	}
	return value
}

// HasChoice reports whether value is one of the field's choices.
func (f Field) HasChoice(value string) bool {
	for _, c := range f.Choices {
		if c.Value == value {
			return true
		}
	}
	return false
}

// DisplayLabel returns Label, falling back to Name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}
