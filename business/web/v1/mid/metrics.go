package mid

import (
	"context"
	"net/http"

	"github.com/ardanlabs/ledger/business/sys/metrics"
	"github.com/ardanlabs/ledger/business/sys/validate"
	v1 "github.com/ardanlabs/ledger/business/web/v1"
	"github.com/ardanlabs/ledger/foundation/web"
)

// Metrics updates the request counters and latency histogram for the route.
// It runs inside Errors, so a failed request is counted with the status the
// error will be rendered with.
func Metrics(m *metrics.Metrics) web.Middleware {

	// This is the actual middleware function to be executed.
	mw := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			v, verr := web.GetValues(ctx)
			if verr != nil || m == nil {
				return err
			}

			status := v.StatusCode
			if err != nil {
				status = errorStatus(err)
				m.AddError(r.Method, v.Route)
			}
			m.ObserveRequest(r.Method, v.Route, status, v.Now)

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return mw
}

// errorStatus returns the status Errors will respond with for err.
func errorStatus(err error) int {
	switch {
	case validate.IsFieldErrors(err):
		return http.StatusBadRequest
	case v1.IsRequestError(err):
		return v1.GetRequestError(err).Status
	default:
		return http.StatusInternalServerError
	}
}
