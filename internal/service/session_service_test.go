package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tessera/internal/domain"
	"tessera/internal/port"
	"tessera/internal/repository/memory"
	"tessera/internal/service"
)

func newSessionService(t *testing.T) (service.SessionService, uuid.UUID) {
	t.Helper()
	projectRepo := memory.NewProjectRepo()
	projectID := uuid.New()
	require.NoError(t, projectRepo.Create(context.Background(), &domain.Project{
		ID: projectID, Name: "p", SchemaMode: domain.SchemaModeFixed, CreatedBy: uuid.New(),
	}))
	return service.NewSessionService(memory.NewSessionRepo(), projectRepo), projectID
}

func TestSessionService_CreateSession(t *testing.T) {
	svc, projectID := newSessionService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, service.CreateSessionInput{
		ProjectID: projectID, DocumentCount: 3, CreatedBy: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusInProgress, session.Status)
	assert.Equal(t, 3, session.DocumentCount)

	var rows []port.KnownRow
	require.NoError(t, json.Unmarshal(session.ExtractedData, &rows))
	assert.Empty(t, rows)
}

func TestSessionService_CreateSessionRequiresProject(t *testing.T) {
	svc, _ := newSessionService(t)
	_, err := svc.CreateSession(context.Background(), service.CreateSessionInput{ProjectID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestSessionService_CloseSession(t *testing.T) {
	svc, projectID := newSessionService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, service.CreateSessionInput{ProjectID: projectID})
	require.NoError(t, err)

	closed, err := svc.CloseSession(ctx, session.ID, domain.SessionStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCompleted, closed.Status)

	// A closed session stays closed.
	_, err = svc.CloseSession(ctx, session.ID, domain.SessionStatusFailed)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestSessionService_CloseSessionRejectsInProgressTarget(t *testing.T) {
	svc, projectID := newSessionService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, service.CreateSessionInput{ProjectID: projectID})
	require.NoError(t, err)

	_, err = svc.CloseSession(ctx, session.ID, domain.SessionStatusInProgress)
	assert.Error(t, err)
}

func TestSessionService_ListSessions(t *testing.T) {
	svc, projectID := newSessionService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateSession(ctx, service.CreateSessionInput{ProjectID: projectID})
		require.NoError(t, err)
	}

	sessions, total, err := svc.ListSessions(ctx, projectID, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, sessions, 2)
}
