package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-edu/scheduling-api/internal/dto"
	"github.com/brightpath-edu/scheduling-api/internal/models"
)

type recurrenceRunnerMock struct {
	summary *dto.ExtensionRunSummary
	groups  []models.RecurringGroup
	runErr  error
}

func (m *recurrenceRunnerMock) RunExtension(ctx context.Context) (*dto.ExtensionRunSummary, error) {
	return m.summary, m.runErr
}

func (m *recurrenceRunnerMock) ListDueGroups(ctx context.Context) ([]models.RecurringGroup, error) {
	return m.groups, nil
}

type extensionObserverMock struct {
	instances int
	failures  int
}

func (m *extensionObserverMock) ObserveExtensionRun(instances, failures int, duration time.Duration) {
	m.instances += instances
	m.failures += failures
}

func TestRecurrenceHandlerRun(t *testing.T) {
	gin.SetMode(gin.TestMode)
	started := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	mock := &recurrenceRunnerMock{summary: &dto.ExtensionRunSummary{
		GroupsProcessed:         2,
		GroupsFailed:            1,
		TotalInstancesGenerated: 24,
		StartedAt:               started,
		FinishedAt:              started.Add(3 * time.Second),
	}}
	observer := &extensionObserverMock{}
	handler := NewRecurrenceHandler(mock, observer)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/recurrence/run", nil)
	c.Request = req

	handler.Run(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 24, observer.instances)
	assert.Equal(t, 1, observer.failures)

	var envelope struct {
		Data dto.ExtensionRunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Data.GroupsProcessed)
}

func TestRecurrenceHandlerRunError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRecurrenceHandler(&recurrenceRunnerMock{runErr: errors.New("db down")}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/recurrence/run", nil)
	c.Request = req

	handler.Run(c)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecurrenceHandlerListDueGroups(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &recurrenceRunnerMock{groups: []models.RecurringGroup{
		{ID: "grp-1", RecurrenceInterval: models.RecurrenceWeekly, IsInfinite: true},
	}}
	handler := NewRecurrenceHandler(mock, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/recurrence/groups", nil)
	c.Request = req

	handler.ListDueGroups(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.RecurringGroup `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "grp-1", envelope.Data[0].ID)
}
