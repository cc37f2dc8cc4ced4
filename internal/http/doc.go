// Package http provides the HTTP client used for cover art downloads and
// the streaming provider's session requests.
//
// Non-200 responses are reported as *StatusError so callers can classify
// them with errors.As:
//
//	var se *http.StatusError
//	if errors.As(err, &se) && se.Code == 429 {
//	    // rate limited
//	}
package http
