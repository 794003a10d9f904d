package inspection

import "inspectline/internal/domain"

// Plan is the difference between the missions that exist and the ones that
// should.
type Plan struct {
	Create []domain.Mission
	Prune  []string
}

// Empty reports whether applying the plan would change nothing.
func (p Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Prune) == 0
}

// Synchronizer decides which missions to create or prune for a kind. It never
// touches the tasks of an existing mission.
type Synchronizer struct {
	Spec KindSpec
}

func NewSynchronizer(kind domain.Kind) (Synchronizer, error) {
	spec, err := SpecFor(kind)
	if err != nil {
		return Synchronizer{}, err
	}
	return Synchronizer{Spec: spec}, nil
}

// Plan compares existing missions of the synchronizer's kind with src.
// A desired mission already exists when some mission carries its id or, for
// order-driven kinds, its order id.
func (s Synchronizer) Plan(existing []domain.Mission, src Source) Plan {
	byID := make(map[string]bool, len(existing))
	byOrder := make(map[string]bool, len(existing))
	for _, m := range existing {
		if m.Kind != "" && m.Kind != s.Spec.Kind {
			continue
		}
		byID[m.ID] = true
		if m.OrderID != "" {
			byOrder[m.OrderID] = true
		}
	}

	var plan Plan
	wantID := make(map[string]bool)
	wantOrder := make(map[string]bool)
	for _, skel := range s.Spec.Desired(src) {
		wantID[skel.ID] = true
		if skel.OrderID != "" {
			wantOrder[skel.OrderID] = true
		}
		if byID[skel.ID] || (skel.OrderID != "" && byOrder[skel.OrderID]) {
			continue
		}
		m := s.Spec.NewMission(skel, src.Today)
		plan.Create = append(plan.Create, m)
		byID[m.ID] = true
		if m.OrderID != "" {
			byOrder[m.OrderID] = true
		}
	}

	if s.Spec.PruneOrphans {
		for _, m := range existing {
			if m.Kind != "" && m.Kind != s.Spec.Kind {
				continue
			}
			if wantID[m.ID] || (m.OrderID != "" && wantOrder[m.OrderID]) {
				continue
			}
			plan.Prune = append(plan.Prune, m.ID)
		}
	}
	return plan
}

// Apply returns existing with the plan's creations appended and its prunes
// removed. Existing missions keep their order and tasks.
func (s Synchronizer) Apply(existing []domain.Mission, src Source) ([]domain.Mission, Plan) {
	plan := s.Plan(existing, src)
	if plan.Empty() {
		return existing, plan
	}
	pruned := make(map[string]bool, len(plan.Prune))
	for _, id := range plan.Prune {
		pruned[id] = true
	}
	out := make([]domain.Mission, 0, len(existing)+len(plan.Create))
	for _, m := range existing {
		if pruned[m.ID] {
			continue
		}
		out = append(out, m)
	}
	out = append(out, plan.Create...)
	return out, plan
}
