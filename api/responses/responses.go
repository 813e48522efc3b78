package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
	"github.com/angelmondragon/coverledger/pkg/logger"
)

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, SuccessEnvelope{Data: data})
}

// Problem renders err the way callers see it. Untyped errors become
// CodeInternal, and internal or dependency failures never expose their own
// message.
func Problem(err error) (int, ErrorEnvelope) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	code := typed.Code()
	meta := pkgerrors.MetadataFor(code)
	out := APIError{Code: string(code), Message: meta.PublicMessage}
	if code != pkgerrors.CodeInternal && code != pkgerrors.CodeDependency && typed.Message() != "" {
		out.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		out.Details = typed.Details()
	}
	return meta.HTTPStatus, ErrorEnvelope{Error: out}
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	status, body := Problem(err)
	if logg != nil {
		logg.ErrorFields(ctx, "request.error", err, pkgerrors.Dump(err).Fields())
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; an encode failure only truncates the body.
	_ = json.NewEncoder(w).Encode(payload)
}
