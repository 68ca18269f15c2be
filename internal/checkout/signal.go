package checkout

import "net/url"

// Signal is the payment outcome read once from the return URL's query
// parameters.
type Signal int

const (
	SignalNone Signal = iota
	SignalSuccess
	SignalCanceled
)

// SignalFromQuery inspects the success/canceled parameter pair the payment
// provider appends to the return URL.
func SignalFromQuery(q url.Values) Signal {
	if q.Get("success") == "1" {
		return SignalSuccess
	}
	if q.Get("canceled") == "1" {
		return SignalCanceled
	}
	return SignalNone
}
