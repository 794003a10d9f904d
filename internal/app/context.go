package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"inspectline/internal/config"
	"inspectline/internal/db"
	"inspectline/internal/domain"
	"inspectline/internal/engine"
	"inspectline/internal/migrate"
)

// Workspace is an opened inspectline workspace: database migrated, config
// loaded and an engine bound to both.
type Workspace struct {
	Dir    string
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
}

// Open prepares the workspace at dir. A missing inspectline.yml is written
// from the defaults so the unit catalog is editable afterwards.
func Open(ctx context.Context, dir string, log zerolog.Logger) (*Workspace, error) {
	if _, err := config.WriteDefault(dir); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		return nil, err
	}
	applied, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	for _, m := range applied {
		log.Info().Str("migration", m.Name).Msg("schema migrated")
	}
	e := engine.New(conn, cfg)
	e.Log = log
	return &Workspace{Dir: dir, DB: conn, Config: cfg, Engine: e}, nil
}

func (w *Workspace) Close() error {
	return w.DB.Close()
}

// Local serves the inspection gateway and directory straight from the
// engine, for commands run without a server.
type Local struct {
	Engine engine.Engine
}

func (l Local) ListMissions(ctx context.Context, kind domain.Kind) ([]domain.Mission, error) {
	return l.Engine.ListMissions(ctx, kind)
}

func (l Local) SyncMissions(ctx context.Context, kind domain.Kind) (domain.SyncResult, error) {
	return l.Engine.SyncMissions(ctx, kind)
}

func (l Local) SaveMission(ctx context.Context, m domain.Mission) (domain.SaveResult, error) {
	return l.Engine.SaveMission(ctx, m)
}

func (l Local) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return l.Engine.ListOrders(ctx)
}

func (l Local) ListUnits(context.Context) ([]domain.Unit, error) {
	return l.Engine.Units(), nil
}

func (l Local) PutOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	return l.Engine.UpsertOrder(ctx, o)
}

func (l Local) DeleteOrder(ctx context.Context, id string) error {
	return l.Engine.DeleteOrder(ctx, id)
}
