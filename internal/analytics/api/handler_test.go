package analytics_api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"clubster-booking/internal/analytics"
	"clubster-booking/internal/auth"
	"clubster-booking/internal/booking"
	"clubster-booking/internal/dbtest"
	"clubster-booking/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) AuthorizeEventManager(ctx context.Context, eventID, userID string) error {
	return m.Called(ctx, eventID, userID).Error(0)
}

func TestGetEventSales(t *testing.T) {
	db := dbtest.NewDB(t)
	catalog := dbtest.SeedCatalog(t, db, 20.00, 7)

	authorizer := new(MockAuthorizer)
	authorizer.On("AuthorizeEventManager", mock.Anything, catalog.Event.ID, "manager").Return(nil)
	authorizer.On("AuthorizeEventManager", mock.Anything, catalog.Event.ID, "guest").Return(booking.ErrForbidden)
	authorizer.On("AuthorizeEventManager", mock.Anything, catalog.Event.ID, "broken").Return(errors.New("db down"))

	h := NewHandler(analytics.NewService(db), authorizer, logger.NewWithWriter(io.Discard))
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	call := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/manager/events/"+catalog.Event.ID+"/sales", nil)
		if user != "" {
			req = req.WithContext(auth.WithUserID(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusForbidden, call("guest").Code)
	assert.Equal(t, http.StatusInternalServerError, call("broken").Code)

	rec := call("manager")
	require.Equal(t, http.StatusOK, rec.Code)
	var report analytics.EventSales
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, catalog.Event.ID, report.EventID)
	assert.Len(t, report.SalesByCategory, 1)
}
