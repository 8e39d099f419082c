// Maps domain errors to API errors with status codes and error codes.

package handlers

import (
	"errors"
	"net/http"

	"github.com/surveyforge/surveyforge/internal/server/dto"
	"github.com/surveyforge/surveyforge/internal/survey"
	"github.com/surveyforge/surveyforge/internal/taxonomy"
)

// mapDomainError converts domain errors into dto.APIError values so the
// handler wrapper emits the right status code and machine-readable code.
// Unrecognized errors become 500s with the cause kept for logging only.
func mapDomainError(err error) error {
	if err == nil {
		return nil
	}

	var validationErr *taxonomy.ValidationError
	if errors.As(err, &validationErr) {
		return dto.BadRequest(validationErr.Error()).
			WithDetail("fields", validationErr.Fields)
	}

	var cycleErr *taxonomy.CycleError
	if errors.As(err, &cycleErr) {
		return dto.Conflict(dto.ErrorCodeCycleDetected, cycleErr.Error()).
			WithDetail("layer_id", cycleErr.LayerID.String()).
			WithDetail("new_parent_id", cycleErr.NewParentID.String())
	}

	var staleErr *taxonomy.StaleWriteError
	if errors.As(err, &staleErr) {
		return dto.Conflict(dto.ErrorCodeStaleWrite, staleErr.Error()).
			WithDetail("expected_version", staleErr.ExpectedVersion).
			WithDetail("current_version", staleErr.CurrentVersion)
	}

	var refErr *taxonomy.ReferentialIntegrityError
	if errors.As(err, &refErr) {
		return dto.Conflict(dto.ErrorCodeLayerInUse, refErr.Error()).
			WithDetail("question_count", refErr.QuestionCount).
			WithDetail("survey_count", refErr.SurveyCount)
	}

	var edgeErr *survey.InvalidEdgeError
	if errors.As(err, &edgeErr) {
		return dto.NewAPIError(http.StatusBadRequest, dto.ErrorCodeInvalidEdge, edgeErr.Error()).
			WithDetail("reason", edgeErr.Reason)
	}

	switch {
	case errors.Is(err, taxonomy.ErrLayerNotFound):
		return dto.NewAPIError(http.StatusNotFound, dto.ErrorCodeLayerNotFound, "layer not found")
	case errors.Is(err, taxonomy.ErrItemNotFound):
		return dto.NewAPIError(http.StatusNotFound, dto.ErrorCodeItemNotFound, "item not found")
	case errors.Is(err, survey.ErrConditionNotFound):
		return dto.NewAPIError(http.StatusNotFound, dto.ErrorCodeConditionNotFound, "condition not found")
	case errors.Is(err, taxonomy.ErrLayerQuotaExceeded),
		errors.Is(err, taxonomy.ErrFieldQuotaExceeded),
		errors.Is(err, taxonomy.ErrItemQuotaExceeded),
		errors.Is(err, survey.ErrConditionQuotaExceeded):
		return dto.NewAPIError(http.StatusUnprocessableEntity, dto.ErrorCodeQuotaExceeded, err.Error())
	case errors.Is(err, taxonomy.ErrLayerIDEmpty), errors.Is(err, taxonomy.ErrItemIDEmpty):
		return dto.BadRequest(err.Error())
	}

	return dto.InternalWithError(err)
}
