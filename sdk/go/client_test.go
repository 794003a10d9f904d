package inspectsdk_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectline/internal/config"
	"inspectline/internal/db"
	"inspectline/internal/domain"
	"inspectline/internal/engine"
	"inspectline/internal/events"
	"inspectline/internal/inspection"
	"inspectline/internal/migrate"
	"inspectline/internal/server"
	inspectsdk "inspectline/sdk/go"
)

var testNow = time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)

func startServer(t *testing.T) (*inspectsdk.Client, engine.Engine) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	_, err = migrate.Migrate(context.Background(), conn)
	require.NoError(t, err)
	e := engine.New(conn, config.Default())
	e.Now = func() time.Time { return testNow }
	handler, err := server.New(server.Config{Engine: e, Log: zerolog.Nop()})
	require.NoError(t, err)
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() {
		handler.Close()
		srv.Shutdown(context.Background())
		ln.Close()
		conn.Close()
	})
	return inspectsdk.New("http://" + ln.Addr().String()), e
}

func TestStoreOverHTTP(t *testing.T) {
	ctx := context.Background()
	client, e := startServer(t)
	_, err := client.PutOrder(ctx, domain.Order{ID: "1001", UnitNumber: "4", GuestName: "Dana", DepartureDate: "2025-06-01"})
	require.NoError(t, err)

	store, err := inspection.NewStore(domain.KindExit, client, client, inspection.WithResolver(e.Resolver()))
	require.NoError(t, err)
	rep, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, inspection.LoadedFromBackend, rep.State)
	assert.Equal(t, 1, rep.Sync.Created)

	missions := store.Missions()
	require.Len(t, missions, 1)
	assert.Equal(t, "INSP-1001", missions[0].ID)
	assert.Equal(t, domain.StatusDueToday, missions[0].Status)

	for _, task := range missions[0].Tasks {
		_, err := store.Toggle("INSP-1001", task.ID)
		require.NoError(t, err)
	}
	out, err := store.Save(ctx, "INSP-1001")
	require.NoError(t, err)
	assert.Equal(t, inspection.SaveComplete, out.Condition)
	assert.Equal(t, 8, out.Result.SavedTasksCount)
	assert.Equal(t, 8, out.SentCompleted)

	m, err := store.Mission("INSP-1001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, m.Status)

	remote, err := client.GetMission(ctx, "INSP-1001")
	require.NoError(t, err)
	assert.Equal(t, 8, remote.CompletedCount())
}

func TestSyncAll(t *testing.T) {
	ctx := context.Background()
	client, _ := startServer(t)
	_, err := client.PutOrder(ctx, domain.Order{ID: "7", UnitNumber: "2", DepartureDate: "2025-06-05"})
	require.NoError(t, err)

	res, err := client.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res[domain.KindExit].Created)
	assert.Equal(t, 1, res[domain.KindCleaning].Created)
	assert.Equal(t, 30, res[domain.KindMonthly].Created)

	page, err := client.EventsPage(ctx, 5, "", events.InspectionCreated)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.NotEmpty(t, page.NextCursor)
}

func TestAPIErrors(t *testing.T) {
	ctx := context.Background()
	client, _ := startServer(t)

	_, err := client.GetMission(ctx, "missing")
	var apiErr *inspectsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	err = client.DeleteOrder(ctx, "missing")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	_, err = client.SyncMissions(ctx, "weekly")
	assert.Error(t, err)
}

func TestStoreReportsUnreachableServer(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := inspectsdk.New("http://" + addr)
	client.Timeout = time.Second
	store, err := inspection.NewStore(domain.KindCleaning, client, client)
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	require.Error(t, err)
	assert.True(t, inspection.IsNetwork(err))
	assert.Equal(t, inspection.Unloaded, store.State())
	assert.Empty(t, store.Missions())
}
