package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/angelmondragon/roasapp-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, dataBody{Data: data})
}

// WritePage writes a listing together with the cursor for the next page.
func WritePage(w http.ResponseWriter, data any, nextCursor string) {
	writeJSON(w, http.StatusOK, pageBody{Data: data, NextCursor: nextCursor})
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())
	apiErr := errorDetail{
		Code:      string(typed.Code()),
		Message:   publicMessage(typed, meta),
		RequestID: w.Header().Get(requestIDHeader),
	}
	if meta.DetailsAllowed {
		apiErr.Details = typed.Details()
	}

	if logg != nil {
		logFailure(ctx, logg, err, typed.Code(), meta)
	}

	writeJSON(w, meta.HTTPStatus, errorBody{Error: apiErr})
}

// publicMessage hides service messages for server-side failures.
func publicMessage(typed *pkgerrors.Error, meta pkgerrors.Metadata) string {
	if meta.HTTPStatus >= http.StatusInternalServerError || typed.Message() == "" {
		return meta.PublicMessage
	}
	return typed.Message()
}

func logFailure(ctx context.Context, logg *logger.Logger, err error, code pkgerrors.Code, meta pkgerrors.Metadata) {
	fields := map[string]any{
		"error":       err.Error(),
		"error_code":  code,
		"http_status": meta.HTTPStatus,
	}
	if meta.HTTPStatus < http.StatusInternalServerError {
		logg.Warn(logg.WithFields(ctx, fields), "request.rejected")
		return
	}

	fields["error_chain"] = pkgerrors.Chain(err)
	fields["retryable"] = meta.Retryable
	if pg, ok := db.AsPGError(err); ok {
		fields["pg_code"] = pg.Code
		fields["pg_constraint"] = pg.Constraint
		fields["pg_table"] = pg.Table
		fields["pg_detail"] = pg.Detail
	}
	logg.Error(logg.WithFields(ctx, fields), "request.error", err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
