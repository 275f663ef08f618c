package form

// Errors collects validation messages keyed by form field name. NonField
// holds messages that belong to the form as a whole.
type Errors struct {
	Fields   map[string][]string
	NonField []string
}

func (e *Errors) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *Errors) AddNonField(msg string) {
	e.NonField = append(e.NonField, msg)
}

// Merge copies other into e. Field keys are prefixed when prefix is set.
func (e *Errors) Merge(prefix string, other Errors) {
	for field, msgs := range other.Fields {
		for _, msg := range msgs {
			e.Add(prefix+field, msg)
		}
	}
	e.NonField = append(e.NonField, other.NonField...)
}

func (e Errors) Get(field string) []string {
	return e.Fields[field]
}

func (e Errors) Valid() bool {
	return len(e.Fields) == 0 && len(e.NonField) == 0
}
