package checker

import "strconv"

// Result is the outcome of checking a single URL.
// Exactly one of StatusCode or Error is set. RedirectURL is only set together
// with StatusCode.
type Result struct {
	URL         string `json:"url"`
	StatusCode  int    `json:"statusCode,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Failed reports whether the check ended in a transport failure.
func (r Result) Failed() bool {
	return r.Error != ""
}

// StatusLabel returns "err" for failed checks and the status code otherwise.
func (r Result) StatusLabel() string {
	if r.Failed() {
		return "err"
	}
	return strconv.Itoa(r.StatusCode)
}

// Set holds one Result per requested URL, in request order.
type Set []Result

// Failed returns the number of results in the set that ended in an error.
func (s Set) Failed() int {
	n := 0
	for _, r := range s {
		if r.Failed() {
			n++
		}
	}
	return n
}

// CompareEntry pairs the previous and current result for a URL whose status
// changed between two runs.
type CompareEntry struct {
	Previous Result `json:"previous"`
	Current  Result `json:"current"`
}
