// Package errorreport forwards server errors and recovered panics to Rollbar.
package errorreport

import (
	"net/http"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
)

// Reporter receives errors that should page someone
type Reporter interface {
	Error(r *http.Request, err error, extras map[string]interface{})
	Critical(r *http.Request, err error, extras map[string]interface{})
	Flush()
}

// Config holds the Rollbar settings
type Config struct {
	Token       string
	Environment string
	ServerHost  string
	CodeVersion string
}

// RollbarReporter sends items through the global rollbar client
type RollbarReporter struct{}

// NewRollbarReporter configures the rollbar client. Without a token it
// returns a Noop reporter.
func NewRollbarReporter(cfg Config) Reporter {
	if cfg.Token == "" {
		rollbar.SetEnabled(false)
		return Noop{}
	}
	rollbar.SetToken(cfg.Token)
	rollbar.SetEnvironment(cfg.Environment)
	rollbar.SetServerHost(cfg.ServerHost)
	rollbar.SetCodeVersion(cfg.CodeVersion)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(true)
	return RollbarReporter{}
}

func (RollbarReporter) Error(r *http.Request, err error, extras map[string]interface{}) {
	rollbar.Error(args(r, err, extras)...)
}

func (RollbarReporter) Critical(r *http.Request, err error, extras map[string]interface{}) {
	rollbar.Critical(args(r, err, extras)...)
}

// Flush blocks until queued items are sent.
func (RollbarReporter) Flush() {
	rollbar.Wait()
}

func args(r *http.Request, err error, extras map[string]interface{}) []interface{} {
	out := []interface{}{err}
	if r != nil {
		out = append(out, r)
	}
	if len(extras) > 0 {
		out = append(out, extras)
	}
	return out
}

// Noop drops everything
type Noop struct{}

func (Noop) Error(*http.Request, error, map[string]interface{})    {}
func (Noop) Critical(*http.Request, error, map[string]interface{}) {}
func (Noop) Flush()                                                {}
