// Package probe performs HTTP probes against a service descriptor and
// classifies the result into an immutable outcome record.
package probe

import "time"

// Outcome is the immutable result of one probe. It is produced exactly
// once per probe attempt, enqueued exactly once on the result channel, and
// destroyed once the batch containing it is acknowledged by the remote
// store.
type Outcome struct {
	URL    string
	Method string

	RequestTimestamp  time.Time
	ResponseTimestamp time.Time

	StatusCode *int

	RegexCheckRequired bool
	Regex              string
	ContainsRegex      bool

	ContainsException bool
	Exception         string
}

// AsRow returns the outcome's row projection for the remote store in the
// declared order: (url, method, request_timestamp, regex_check_required,
// contains_regex, contains_exception, status_code, response_timestamp,
// regex, exception).
func (o Outcome) AsRow() [10]interface{} {
	var regex interface{}
	if o.Regex != "" {
		regex = o.Regex
	}
	var exception interface{}
	if o.Exception != "" {
		exception = o.Exception
	}
	var status interface{}
	if o.StatusCode != nil {
		status = *o.StatusCode
	}

	return [10]interface{}{
		o.URL,
		o.Method,
		o.RequestTimestamp,
		o.RegexCheckRequired,
		o.ContainsRegex,
		o.ContainsException,
		status,
		o.ResponseTimestamp,
		regex,
		exception,
	}
}
