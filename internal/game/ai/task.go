package ai

import "fmt"

// Task is the role a unit is currently playing.
type Task int

// Unit tasks.
const (
	TaskNone Task = iota
	TaskAutoWorker
	TaskBuildCity
	TaskDefendHome
	TaskAttack
	TaskEscort
	TaskExplore
	TaskRecover
	TaskHunter
	TaskTrade
	TaskWonder
)

var taskNames = [...]string{
	TaskNone:       "none",
	TaskAutoWorker: "auto_worker",
	TaskBuildCity:  "build_city",
	TaskDefendHome: "defend_home",
	TaskAttack:     "attack",
	TaskEscort:     "escort",
	TaskExplore:    "explore",
	TaskRecover:    "recover",
	TaskHunter:     "hunter",
	TaskTrade:      "trade",
	TaskWonder:     "wonder",
}

// Tasks lists every task in declaration order.
var Tasks = []Task{
	TaskNone, TaskAutoWorker, TaskBuildCity, TaskDefendHome, TaskAttack, TaskEscort,
	TaskExplore, TaskRecover, TaskHunter, TaskTrade, TaskWonder,
}

// String returns the task name.
func (t Task) String() string {
	if t < 0 || int(t) >= len(taskNames) {
		return fmt.Sprintf("task(%d)", int(t))
	}
	return taskNames[t]
}

// Valid reports whether t is a known task.
func (t Task) Valid() bool {
	return t >= 0 && int(t) < len(taskNames)
}

// ParseTask parses a task name.
//
// Postcondition: Returns TaskNone and a non-nil error for unknown names.
func ParseTask(s string) (Task, error) {
	for i, n := range taskNames {
		if n == s {
			return Task(i), nil
		}
	}
	return TaskNone, fmt.Errorf("unknown task %q", s)
}
