package apperr

import (
	"encoding/json"
	"net/http"

	"github.com/patric-chuzhbe/linkclicks/internal/logger"
	"github.com/patric-chuzhbe/linkclicks/internal/models"
)

// WriteJSON reports err to the client as a models.ErrorResponse with the
// status code StatusCode picks for it. Internal errors are logged in full and
// reported with a generic message.
func WriteJSON(response http.ResponseWriter, err error) {
	statusCode := StatusCode(err)
	if statusCode == http.StatusInternalServerError {
		logger.Log.Errorw("request failed", "error", err)
	}

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)

	encodeErr := json.NewEncoder(response).Encode(models.ErrorResponse{
		StatusCode: statusCode,
		Message:    Message(err),
		Error:      http.StatusText(statusCode),
	})
	if encodeErr != nil {
		logger.Log.Debugln("error while `json.NewEncoder(response).Encode()` calling: ", encodeErr)
	}
}
