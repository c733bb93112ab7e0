package farm

type Phase string

const (
	PhasePlanting   Phase = "planting"
	PhaseIrrigating Phase = "irrigating"
	PhaseHarvesting Phase = "harvesting"
	PhaseComplete   Phase = "complete"
)

// Order gives the position of a phase in the cycle; unknown phases sort first.
func (p Phase) Order() int {
	switch p {
	case PhasePlanting:
		return 0
	case PhaseIrrigating:
		return 1
	case PhaseHarvesting:
		return 2
	case PhaseComplete:
		return 3
	default:
		return -1
	}
}

// ActiveRole is the only role earning task credit during the phase.
func (p Phase) ActiveRole() (Role, bool) {
	switch p {
	case PhasePlanting:
		return RolePlanter, true
	case PhaseIrrigating:
		return RoleIrrigator, true
	case PhaseHarvesting:
		return RoleHarvester, true
	default:
		return "", false
	}
}

// NextPhase advances at most one step and never goes backwards.
func NextPhase(current Phase, c Counters, t Targets) Phase {
	switch current {
	case PhasePlanting:
		if c.Planted >= t.Planted {
			return PhaseIrrigating
		}
	case PhaseIrrigating:
		if c.Irrigated >= t.Irrigated {
			return PhaseHarvesting
		}
	case PhaseHarvesting:
		if c.Harvested >= t.Harvested {
			return PhaseComplete
		}
	}
	return current
}

func (w *World) AdvancePhase() (from, to Phase, changed bool) {
	from = w.phase
	w.phase = NextPhase(w.phase, w.counters, w.targets)
	return from, w.phase, w.phase != from
}

func (w *World) PhaseProgress() float64 {
	switch w.phase {
	case PhasePlanting:
		return ratioPct(w.counters.Planted, w.targets.Planted)
	case PhaseIrrigating:
		return ratioPct(w.counters.Irrigated, w.targets.Irrigated)
	case PhaseHarvesting:
		return ratioPct(w.counters.Harvested, w.targets.Harvested)
	default:
		return 100
	}
}

func (w *World) CompletionPercent() int {
	sum := min(100, ratioPct(w.counters.Planted, w.targets.Planted)) +
		min(100, ratioPct(w.counters.Irrigated, w.targets.Irrigated)) +
		min(100, ratioPct(w.counters.Harvested, w.targets.Harvested))
	return int(sum / 3)
}

func ratioPct(n, target int) float64 {
	return float64(n) / float64(max(1, target)) * 100
}
