package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/roasapp-backend/api/responses"
	"github.com/angelmondragon/roasapp-backend/api/validators"
	"github.com/angelmondragon/roasapp-backend/internal/roas"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
)

const (
	calculatorService = "calculator"
	batchUploadField  = "file"
)

// calculatorEndpoint decodes a JSON body of type In and hands it to one calculator operation,
// given as a method expression on roas.Service.
func calculatorEndpoint[In any, Out any](svc roas.Service, logg *logger.Logger, op func(roas.Service, context.Context, uuid.UUID, In) (Out, error)) http.HandlerFunc {
	return handleUser(logg, calculatorService, svc != nil, func(r *http.Request, userID uuid.UUID) (any, error) {
		body, err := decode[In](r)
		if err != nil {
			return nil, err
		}
		return op(svc, r.Context(), userID, body)
	})
}

func RoasRecommend(svc roas.Service, logg *logger.Logger) http.HandlerFunc {
	return calculatorEndpoint(svc, logg, roas.Service.Recommend)
}

// RoasPlan handles the "new ad" planner.
func RoasPlan(svc roas.Service, logg *logger.Logger) http.HandlerFunc {
	return calculatorEndpoint(svc, logg, roas.Service.Plan)
}

// RoasAnalyze handles the "campaign running" manual mode.
func RoasAnalyze(svc roas.Service, logg *logger.Logger) http.HandlerFunc {
	return calculatorEndpoint(svc, logg, roas.Service.AnalyzeManual)
}

// RoasRecalculate re-runs one batch row with the caller's cost overrides.
func RoasRecalculate(svc roas.Service, logg *logger.Logger) http.HandlerFunc {
	return calculatorEndpoint(svc, logg, roas.Service.Recalculate)
}

// RoasBatch analyzes an uploaded ads export (multipart field "file"). It writes the response itself
// because the upload reader needs the ResponseWriter to cap the body size.
func RoasBatch(svc roas.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, calculatorService+" unavailable"))
			return
		}
		userID, err := currentUser(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		file, header, err := validators.ReadUploadedFile(r, w, batchUploadField, maxBytes, ".csv")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		defer file.Close()

		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"upload_name": header.Filename, "upload_size": header.Size})
		}
		result, err := svc.AnalyzeBatch(ctx, userID, file)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
