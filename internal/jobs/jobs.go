// Package jobs runs the server's periodic background work.
package jobs

// Job is a unit of background work run by the Scheduler.
type Job interface {
	Run() error
}

// JobFunc adapts a function to Job.
type JobFunc func() error

func (f JobFunc) Run() error {
	return f()
}
