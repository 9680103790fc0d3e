package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTechnologyRouter(svc *mockTechnologyService) chi.Router {
	h := NewTechnologyHandler(svc, testLogger, staffMiddleware())
	r := chi.NewRouter()
	r.Route(prefix, h.RegisterRoutes)
	return r
}

func TestTechnologyHandler_List(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		serviceErr     error
		expectedCode   int
		expectedFilter models.TechnologyFilter
	}{
		{
			name:           "defaults",
			expectedCode:   http.StatusOK,
			expectedFilter: models.TechnologyFilter{},
		},
		{
			name:         "filters",
			query:        "?lang=en&visibility=PUBLIC&parent=1,2&like=java&include_children=true",
			expectedCode: http.StatusOK,
			expectedFilter: models.TechnologyFilter{
				Lang:            "en",
				Visibility:      models.VisibilityPublic,
				ParentIDs:       []int{1, 2},
				Like:            "java",
				IncludeChildren: true,
			},
		},
		{name: "bad parent", query: "?parent=x", expectedCode: http.StatusBadRequest},
		{name: "bad include_children", query: "?include_children=sure", expectedCode: http.StatusBadRequest},
		{name: "failure", serviceErr: errors.New("db down"), expectedCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockTechnologyService{techs: []models.AssetTechnology{{ID: 1, Slug: "python"}}, err: tt.serviceErr}

			req := httptest.NewRequest(http.MethodGet, prefix+"/technology"+tt.query, nil)
			w := httptest.NewRecorder()
			newTechnologyRouter(svc).ServeHTTP(w, req)

			require.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedCode == http.StatusOK {
				assert.Equal(t, tt.expectedFilter, svc.filter)
				assert.Contains(t, w.Body.String(), `"slug":"python"`)
			}
		})
	}
}

func TestTechnologyHandler_Update(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		auth         bool
		serviceErr   error
		expectedCode int
	}{
		{name: "updated", body: `{"title":"Python 3","parent":""}`, auth: true, expectedCode: http.StatusOK},
		{name: "unauthenticated", body: `{}`, expectedCode: http.StatusUnauthorized},
		{name: "malformed", body: `{`, auth: true, expectedCode: http.StatusBadRequest},
		{name: "not found", body: `{}`, auth: true, serviceErr: services.ErrTechnologyNotFound, expectedCode: http.StatusNotFound},
		{name: "invalid", body: `{}`, auth: true, serviceErr: fmt.Errorf("%w: bad parent", services.ErrInvalidInput), expectedCode: http.StatusBadRequest},
		{name: "failure", body: `{}`, auth: true, serviceErr: errors.New("db down"), expectedCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockTechnologyService{err: tt.serviceErr}

			req := httptest.NewRequest(http.MethodPut, prefix+"/academy/technology/python", strings.NewReader(tt.body))
			if tt.auth {
				req.Header.Set("Authorization", "Bearer staff")
			}
			w := httptest.NewRecorder()
			newTechnologyRouter(svc).ServeHTTP(w, req)

			require.Equal(t, tt.expectedCode, w.Code)
			if tt.name == "updated" {
				require.NotNil(t, svc.updated)
				require.NotNil(t, svc.updated.Title)
				assert.Equal(t, "Python 3", *svc.updated.Title)
				require.NotNil(t, svc.updated.ParentSlug)
				assert.Empty(t, *svc.updated.ParentSlug)
			}
		})
	}
}
