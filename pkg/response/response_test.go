package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
)

func TestErrorHidesDetailByDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.Wrap(errors.New("disk on fire"), appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store file"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "disk on fire")
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestErrorExposesDetailWhenEnabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ExposeErrorDetail(true)
	t.Cleanup(func() { ExposeErrorDetail(false) })

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Error(c, errors.New("boom"))

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, appErrors.ErrInternal.Code, body.Error.Code)
	require.Equal(t, "boom", body.Meta["detail"])
}
