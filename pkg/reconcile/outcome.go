package reconcile

// Outcome is what reconciling one session amounted to.
type Outcome int

const (
	AlreadySynced Outcome = iota + 1
	Conflict
	Created
	Unresolvable
)

func (o Outcome) String() string {
	switch o {
	case AlreadySynced:
		return "already_synced"
	case Conflict:
		return "conflict"
	case Created:
		return "created"
	case Unresolvable:
		return "unresolvable"
	}
	return "unknown"
}

// Choice is the operator's answer to a conflict.
type Choice int

const (
	Skip Choice = iota
	KeepLocal
	KeepRemote
)

func (c Choice) String() string {
	switch c {
	case KeepLocal:
		return "local"
	case KeepRemote:
		return "remote"
	}
	return "skip"
}

// parseChoice reads an answer to the conflict menu. Anything that is not
// recognised counts as skip.
func parseChoice(answer string) Choice {
	if answer == "" {
		return Skip
	}
	switch answer[0] {
	case 'l', 'L':
		return KeepLocal
	case 'r', 'R':
		return KeepRemote
	}
	return Skip
}

// Summary counts the outcomes of a run.
type Summary struct {
	AlreadySynced int
	Conflicts     int
	Created       int
	Unresolvable  int
	Failed        int
}

func (s *Summary) add(o Outcome) {
	switch o {
	case AlreadySynced:
		s.AlreadySynced++
	case Conflict:
		s.Conflicts++
	case Created:
		s.Created++
	case Unresolvable:
		s.Unresolvable++
	}
}

// Total is the number of sessions the run looked at.
func (s Summary) Total() int {
	return s.AlreadySynced + s.Conflicts + s.Created + s.Unresolvable + s.Failed
}
