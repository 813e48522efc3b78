package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/coverledger/api/responses"
	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/logger"
)

func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					ctx := r.Context()
					if logg != nil {
						ctx = logg.WithField(ctx, "panic", fmt.Sprint(rec))
					}
					err := pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("panic: %v", rec), "panic")
					responses.WriteError(ctx, logg, w, err)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
