package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/platform/apierr"
)

// StatusAndCode maps a service error onto an HTTP status and error code.
func StatusAndCode(err error) (int, string) {
	var de *documents.Error
	if errors.As(err, &de) && de != nil {
		code := string(de.Kind)
		if de.Code != "" && de.Code != code {
			code = code + "." + de.Code
		}
		return de.HTTPStatus(), code
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return apierr.StatusAndCode(err)
	}
	return http.StatusInternalServerError, "internal_error"
}

// Fail writes the error envelope for err and records it on the context
// so the request logger can report it.
func Fail(c *gin.Context, err error) {
	status, code := StatusAndCode(err)
	_ = c.Error(err)
	RespondError(c, status, code, err)
}
