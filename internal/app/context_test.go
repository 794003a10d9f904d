package app_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectline/internal/app"
	"inspectline/internal/config"
	"inspectline/internal/domain"
	"inspectline/internal/inspection"
)

func TestOpenWritesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	ws, err := app.Open(context.Background(), dir, zerolog.Nop())
	require.NoError(t, err)
	defer ws.Close()

	_, err = os.Stat(config.Path(dir))
	require.NoError(t, err)
	assert.Len(t, ws.Engine.Units(), 15)
}

func TestStoreOverLocalGateway(t *testing.T) {
	ctx := context.Background()
	ws, err := app.Open(ctx, t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	defer ws.Close()
	ws.Engine.Now = func() time.Time { return time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC) }

	_, err = ws.Engine.UpsertOrder(ctx, domain.Order{ID: "1001", UnitNumber: "4", DepartureDate: "2025-06-01"})
	require.NoError(t, err)

	local := app.Local{Engine: ws.Engine}
	store, err := inspection.NewStore(domain.KindExit, local, local, inspection.WithResolver(ws.Engine.Resolver()))
	require.NoError(t, err)

	rep, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Sync.Created)

	for _, task := range inspection.Template(domain.KindExit) {
		_, err := store.Toggle("INSP-1001", task.ID)
		require.NoError(t, err)
	}
	out, err := store.Save(ctx, "INSP-1001")
	require.NoError(t, err)
	assert.Equal(t, inspection.SaveComplete, out.Condition)

	m, err := ws.Engine.GetMission(ctx, "INSP-1001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, m.Status)
}
