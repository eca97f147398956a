package panicerr

import (
	"context"
	"net/http"

	"github.com/sourcegraph/conc/panics"

	"github.com/kazz187/taskmanagement/pkg/cerr"
)

// Safe runs fn, returning a recovered panic as an error.
func Safe(fn func() error) func() error {
	return func() error {
		var (
			catcher panics.Catcher
			err     error
		)
		catcher.Try(func() {
			err = fn()
		})
		if err != nil {
			return err
		}
		return catcher.Recovered().AsError()
	}
}

// SafeContext is Safe for functions taking a context.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return Safe(func() error { return fn(ctx) })()
	}
}

// ChiMiddleware turns a handler panic into an Internal error for the cerr
// middleware to write. It must sit inside cerr.NewJSONResponseChiMiddleware.
func ChiMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var catcher panics.Catcher
		catcher.Try(func() {
			next.ServeHTTP(w, r)
		})
		if rec := catcher.Recovered(); rec != nil {
			cerr.SetJSONError(r.Context(), cerr.NewError(cerr.Internal, "server error", rec.AsError()))
		}
	})
}
