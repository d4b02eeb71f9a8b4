package fetcher

import "fmt"

// SizeExceededError is returned when a download breaches the byte ceiling,
// either from the server-advertised content length before the transfer
// starts or from incremental accounting mid-stream.
type SizeExceededError struct {
	URL      string
	Limit    int64
	Observed int64
}

func (e *SizeExceededError) Error() string {
	if e.Observed > 0 {
		return fmt.Sprintf("download of %s exceeds size limit: %d bytes > %d byte limit", e.URL, e.Observed, e.Limit)
	}
	return fmt.Sprintf("download of %s exceeds size limit of %d bytes", e.URL, e.Limit)
}

// HTTPError is returned for a non-2xx terminal response, surfaced with the
// original status code.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d fetching %s: %s", e.StatusCode, e.URL, e.Status)
}

// TimeoutError is returned when the network timeout elapses before the
// transfer completes. Retrying is always safe: no partial file survives.
type TimeoutError struct {
	URL     string
	Timeout string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("download of %s timed out after %s", e.URL, e.Timeout)
}
