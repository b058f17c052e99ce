package progress

// Stage is the render state of one lifecycle step.
type Stage struct {
	Label   string `json:"label"`
	Reached bool   `json:"reached"`
	Active  bool   `json:"active"`
}

// Pending reports whether the stage has not been reached yet.
func (s Stage) Pending() bool {
	return !s.Reached
}

// Tracker is the full render state for one status value.
type Tracker struct {
	Status       string  `json:"status"`
	CurrentIndex int     `json:"currentIndex"`
	Stages       []Stage `json:"stages"`
}

// Recognized reports whether the status matched a stage.
func (t Tracker) Recognized() bool {
	return t.CurrentIndex >= 0
}

// Render derives per-stage flags for status: every stage up to and including
// the current one is reached, the current one is also active. An unknown
// status yields index -1 and leaves every stage pending.
func Render(status string) Tracker {
	current := Index(status)
	stages := make([]Stage, len(stageList))
	for i, label := range stageList {
		stages[i] = Stage{
			Label:   label,
			Reached: i <= current,
			Active:  i == current,
		}
	}
	return Tracker{
		Status:       status,
		CurrentIndex: current,
		Stages:       stages,
	}
}
