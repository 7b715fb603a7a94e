// Package job defines the Job value type shared by the Scheduler and
// the Task Controllers: a pair (action, params) identifying a unit of
// crawl work.
package job

import (
	"strings"

	"github.com/tmacam/dcrawl/internal/apperr"
)

// Job is a job's identity: the task type and its opaque parameters.
// Both fields are non-empty and contain no whitespace.
type Job struct {
	Action string
	Params string
}

// New validates action and params and returns a Job.
func New(action, params string) (Job, error) {
	if err := validateToken(action, "action"); err != nil {
		return Job{}, err
	}
	if err := validateToken(params, "params"); err != nil {
		return Job{}, err
	}
	return Job{Action: action, Params: params}, nil
}

func validateToken(s, name string) error {
	if s == "" {
		return apperr.WrongCommandFormat("%s must not be empty", name)
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return apperr.WrongCommandFormat("%s must not contain whitespace: %q", name, s)
	}
	return nil
}

// String renders the job as "<action> <params>", for logging.
func (j Job) String() string {
	return j.Action + " " + j.Params
}
