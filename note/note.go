// Package note attaches notes to elements whose binding satisfies a
// criterion, and computes shaded display values.
//
// Notes are scoped to the element the criterion was evaluated for: a rule
// matching a header block notes the block, not its fields, and a rule
// matching a field never notes its parent.  When several rules match one
// element the last registered wins.
package note

import (
	"strings"
	"sync"

	"github.com/signadot/rbel/config"
	"github.com/signadot/rbel/convert"
	"github.com/signadot/rbel/element"
	"github.com/signadot/rbel/eval"
)

// Placeholder in note and shading texts standing for the element's content.
const Placeholder = "%s"

type Rule = config.Rule

type Annotator struct {
	ev *eval.Evaluator

	mu      sync.RWMutex
	notes   []Rule
	shading []Rule
}

func New(ev *eval.Evaluator) *Annotator {
	return &Annotator{ev: ev}
}

func (a *Annotator) AddNote(criterion, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notes = append(a.notes, Rule{Criterion: criterion, Text: text})
}

func (a *Annotator) AddShading(criterion, format string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shading = append(a.shading, Rule{Criterion: criterion, Text: format})
}

// AddConfig registers the note and shading rules of cfg.
func (a *Annotator) AddConfig(cfg *config.Config) {
	for _, r := range cfg.Notes {
		a.AddNote(r.Criterion, r.Text)
	}
	for _, r := range cfg.Shading {
		a.AddShading(r.Criterion, r.Text)
	}
}

func (a *Annotator) rules() (notes, shading []Rule) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.notes, a.shading
}

// Annotate applies the note rules to el alone.
func (a *Annotator) Annotate(el *element.Element) {
	notes, _ := a.rules()
	if len(notes) == 0 || el.IsNull() {
		return
	}
	b := a.ev.Bind(el)
	for _, r := range notes {
		if a.ev.MatchesBinding(b, r.Criterion) {
			el.SetNote(expand(r.Text, b.Content))
		}
	}
}

// AnnotateTree applies the note rules to every element below and including
// root.
func (a *Annotator) AnnotateTree(root *element.Element) {
	root.Visit(func(el *element.Element) bool {
		a.Annotate(el)
		return true
	})
}

// Listener returns a converter listener that annotates each element.
// Register it for element.AnyKind.
func (a *Annotator) Listener() convert.Listener {
	return convert.ListenerFunc(func(el *element.Element, _ *convert.Context) {
		a.Annotate(el)
	})
}

// Shade returns the display value of el given by the first matching shading
// rule.
func (a *Annotator) Shade(el *element.Element) (string, bool) {
	_, shading := a.rules()
	if len(shading) == 0 {
		return "", false
	}
	b := a.ev.Bind(el)
	for _, r := range shading {
		if a.ev.MatchesBinding(b, r.Criterion) {
			return expand(r.Text, b.Content), true
		}
	}
	return "", false
}

func expand(text, content string) string {
	return strings.ReplaceAll(text, Placeholder, content)
}
