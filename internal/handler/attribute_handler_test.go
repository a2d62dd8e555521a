package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/campusops/uniops-api/internal/models"
	"github.com/campusops/uniops-api/internal/service"
	appErrors "github.com/campusops/uniops-api/pkg/errors"
)

type fakeAttributeSrv struct {
	listResp []models.EntityAttribute
	setResp  *models.EntityAttribute
	err      error
	lastSet  struct {
		entityType string
		entityID   string
		req        service.SetAttributeRequest
	}
}

func (f *fakeAttributeSrv) List(context.Context, string, string) ([]models.EntityAttribute, error) {
	return f.listResp, f.err
}

func (f *fakeAttributeSrv) Get(context.Context, string, string, string) (*models.EntityAttribute, error) {
	return f.setResp, f.err
}

func (f *fakeAttributeSrv) Set(_ context.Context, entityType, entityID string, req service.SetAttributeRequest) (*models.EntityAttribute, error) {
	f.lastSet.entityType = entityType
	f.lastSet.entityID = entityID
	f.lastSet.req = req
	return f.setResp, f.err
}

func (f *fakeAttributeSrv) Delete(context.Context, string, string, string) error {
	return f.err
}

func TestAttributeHandlerSetForwardsPathParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeAttributeSrv{setResp: &models.EntityAttribute{Key: "scholarship"}}
	handler := NewAttributeHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body := `{"key":"scholarship","kind":"boolean","value":"true"}`
	c.Request = httptest.NewRequest(http.MethodPut, "/attributes/student/stu-1", strings.NewReader(body))
	c.Params = gin.Params{{Key: "entity", Value: "student"}, {Key: "id", Value: "stu-1"}}

	handler.Set(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student", srv.lastSet.entityType)
	assert.Equal(t, "stu-1", srv.lastSet.entityID)
	assert.Equal(t, "scholarship", srv.lastSet.req.Key)
}

func TestAttributeHandlerSetRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttributeHandler(&fakeAttributeSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/attributes/student/stu-1", strings.NewReader("{"))

	handler.Set(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttributeHandlerDeleteNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttributeHandler(&fakeAttributeSrv{err: appErrors.Clone(appErrors.ErrNotFound, "attribute not found")})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/attributes/student/stu-1/scholarship", nil)
	c.Params = gin.Params{{Key: "entity", Value: "student"}, {Key: "id", Value: "stu-1"}, {Key: "key", Value: "scholarship"}}

	handler.Delete(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
