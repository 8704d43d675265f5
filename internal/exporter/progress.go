package exporter

// ProgressEvent export progress, shown by the UI.
type ProgressEvent struct {
	Percent int
	Stage   string
}

// stages spreads progress evenly over a fixed list of named steps and reports 100 on done.
type stages struct {
	fn    func(ProgressEvent)
	names []string
	next  int
}

func newStages(fn func(ProgressEvent), names ...string) *stages {
	return &stages{fn: fn, names: names}
}

// step reports the start of the next named step.
func (s *stages) step() {
	if s.fn == nil || s.next >= len(s.names) {
		return
	}
	percent := s.next * 100 / len(s.names)
	s.fn(ProgressEvent{Percent: percent, Stage: s.names[s.next]})
	s.next++
}

func (s *stages) done() {
	if s.fn == nil {
		return
	}
	s.fn(ProgressEvent{Percent: 100, Stage: "Hoàn tất"})
}
