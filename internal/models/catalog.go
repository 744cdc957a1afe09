package models

// Priority is the tier attached to an answer option or a recommendation
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known tiers
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Block represents a named section of the questionnaire (e.g., finance, staff)
type Block struct {
	ID          string      `yaml:"id" json:"id"`
	Title       string      `yaml:"title" json:"title"`
	Description string      `yaml:"description" json:"description"`
	Order       int         `yaml:"order" json:"order"`
	Questions   []*Question `yaml:"questions" json:"questions"`
}

// Question returns the question with the given ID, or nil
func (b *Block) Question(id string) *Question {
	if b == nil {
		return nil
	}
	for _, q := range b.Questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// Question is a single questionnaire item scoped to exactly one block
type Question struct {
	ID      string    `yaml:"id" json:"id"`
	Text    string    `yaml:"text" json:"text"`
	Options []*Option `yaml:"options" json:"options"`
}

// Option returns the answer option with the given ID, or nil
func (q *Question) Option(id string) *Option {
	if q == nil {
		return nil
	}
	for _, o := range q.Options {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// Option is one selectable answer.
// Either Correct (binary model) or Priority (graded model) carries its quality.
type Option struct {
	ID             string          `yaml:"id" json:"id"`
	Text           string          `yaml:"text" json:"text"`
	Value          string          `yaml:"value" json:"value"`
	Correct        *bool           `yaml:"correct,omitempty" json:"correct,omitempty"`
	Priority       Priority        `yaml:"priority,omitempty" json:"priority,omitempty"`
	Recommendation *Recommendation `yaml:"recommendation,omitempty" json:"recommendation,omitempty"`
}

// Graded reports whether the option uses the priority model
func (o *Option) Graded() bool {
	return o.Priority != ""
}

// Recorded reports whether selecting this option counts as an answer.
// Options without a value are placeholders.
func (o *Option) Recorded() bool {
	return o != nil && o.Value != ""
}

// IsIdeal reports whether the option is the best-practice choice
func (o *Option) IsIdeal() bool {
	if o.Graded() {
		return o.Priority == PriorityLow
	}
	return o.Correct != nil && *o.Correct
}

// Recommendation is the improvement advice attached to a non-ideal option
type Recommendation struct {
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Priority    Priority `yaml:"priority" json:"priority"`
	Category    string   `yaml:"category" json:"category"`
}

// Answers maps a question ID to the selected option ID for one (venue, block) pair
type Answers map[string]string

// Resolve returns the selected option for a question if the answer is recorded
func (a Answers) Resolve(q *Question) (*Option, bool) {
	if q == nil {
		return nil, false
	}
	optionID, ok := a[q.ID]
	if !ok {
		return nil, false
	}
	opt := q.Option(optionID)
	if !opt.Recorded() {
		return nil, false
	}
	return opt, true
}
