package inspection

import (
	"strings"

	"inspectline/internal/domain"
)

// MatchFunc looks up the persisted record standing for a canonical task.
type MatchFunc func(canonical domain.Task) (domain.Task, bool)

// MatcherFunc indexes persisted tasks once and returns the lookup used for
// every canonical task of one reconciliation.
type MatcherFunc func(persisted []domain.Task) MatchFunc

// ByID matches on identical task ids. Later duplicates win.
func ByID(persisted []domain.Task) MatchFunc {
	idx := make(map[string]domain.Task, len(persisted))
	for _, t := range persisted {
		idx[strings.TrimSpace(t.ID)] = t
	}
	return func(c domain.Task) (domain.Task, bool) {
		t, ok := idx[strings.TrimSpace(c.ID)]
		return t, ok
	}
}

// ByName matches on names after normalize. Later duplicates win.
func ByName(normalize func(string) string) MatcherFunc {
	return func(persisted []domain.Task) MatchFunc {
		idx := make(map[string]domain.Task, len(persisted))
		for _, t := range persisted {
			key := normalize(t.Name)
			if key == "" {
				continue
			}
			idx[key] = t
		}
		return func(c domain.Task) (domain.Task, bool) {
			t, ok := idx[normalize(c.Name)]
			return t, ok
		}
	}
}

// NormalizeName trims and lowercases a task label.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Reconciler merges persisted task records into a canonical template.
// Matchers are tried in order; the first hit supplies the completion flag.
type Reconciler struct {
	Matchers []MatcherFunc
}

// DefaultReconciler matches by id, then by normalized name.
func DefaultReconciler() Reconciler {
	return Reconciler{Matchers: []MatcherFunc{ByID, ByName(NormalizeName)}}
}

// Reconcile returns exactly one task per template entry, in template order,
// carrying the canonical id and name. Persisted records that match nothing
// are dropped.
func (r Reconciler) Reconcile(template, persisted []domain.Task) []domain.Task {
	lookups := r.lookups(persisted)
	out := make([]domain.Task, len(template))
	for i, c := range template {
		out[i] = domain.Task{ID: c.ID, Name: c.Name}
		for _, lookup := range lookups {
			if p, ok := lookup(c); ok {
				out[i].Completed = p.Completed
				break
			}
		}
	}
	return out
}

// Canonicalize re-resolves each task's id against the template with the same
// matcher chain, leaving tasks the template does not know untouched.
func (r Reconciler) Canonicalize(template, tasks []domain.Task) []domain.Task {
	lookups := r.lookups(template)
	out := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t
		for _, lookup := range lookups {
			if c, ok := lookup(t); ok {
				out[i].ID = c.ID
				break
			}
		}
	}
	return out
}

func (r Reconciler) lookups(tasks []domain.Task) []MatchFunc {
	matchers := r.Matchers
	if len(matchers) == 0 {
		matchers = DefaultReconciler().Matchers
	}
	out := make([]MatchFunc, 0, len(matchers))
	for _, m := range matchers {
		out = append(out, m(tasks))
	}
	return out
}

// Reconcile applies the default id-then-name reconciliation.
func Reconcile(template, persisted []domain.Task) []domain.Task {
	return DefaultReconciler().Reconcile(template, persisted)
}
