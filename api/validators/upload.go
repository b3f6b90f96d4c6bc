package validators

import (
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
)

// ReadUploadedFile pulls a single multipart file out of the request, enforcing the byte ceiling and extension list.
func ReadUploadedFile(r *http.Request, w http.ResponseWriter, field string, maxBytes int64, allowedExt ...string) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, pkgerrors.New(pkgerrors.CodePayloadTooLarge, "uploaded file is too large").
				WithDetails(map[string]any{"max_bytes": maxBytes})
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "no file uploaded").WithDetails(map[string]any{"field": field})
	}

	if ext := strings.ToLower(filepath.Ext(header.Filename)); len(allowedExt) > 0 && !slices.Contains(allowedExt, ext) {
		file.Close()
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported file type").
			WithDetails(map[string]any{"field": field, "allowed": allowedExt})
	}
	return file, header, nil
}
