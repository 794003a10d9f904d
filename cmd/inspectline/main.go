package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"inspectline/internal/app"
	"inspectline/internal/config"
	"inspectline/internal/domain"
	"inspectline/internal/inspection"
	"inspectline/internal/logging"
	"inspectline/internal/server"
	inspectsdk "inspectline/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:   "inspectline",
	Short: "Inspection missions for vacation rental units",
	Long: `Inspectline tracks exit, cleaning and monthly inspection missions.
- Exit and cleaning missions are created from active orders, one per order.
- Monthly missions are created per unit for the current and the next month.
- Every mission carries a fixed checklist; status is derived from the reference date and the checked tasks.
- Run 'inspectline serve' to expose the API, or point commands at a server with --server.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("INSPECTLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().String("server", "", "API base URL (e.g. http://127.0.0.1:8080); local workspace when empty")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to this file instead of stderr")
	for _, name := range []string{"workspace", "server", "json", "log-level", "log-file"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(unitsCmd())
	rootCmd.AddCommand(ordersCmd())
	rootCmd.AddCommand(missionsCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closeLog, err := newLogger()
			if err != nil {
				return err
			}
			defer closeLog()
			ws, err := app.Open(cmd.Context(), viper.GetString("workspace"), log)
			if err != nil {
				return err
			}
			defer ws.Close()
			if addr == "" {
				addr = ws.Config.Server.Addr
			}
			if basePath == "" {
				basePath = ws.Config.Server.BasePath
			}
			handler, err := server.New(server.Config{
				Engine:   ws.Engine,
				BasePath: basePath,
				Log:      logging.Component(log, "http"),
			})
			if err != nil {
				return err
			}
			defer handler.Close()
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Inspectline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr from inspectline.yml)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to server.base_path)")
	return cmd
}

func unitsCmd() *cobra.Command {
	units := &cobra.Command{Use: "units", Short: "Show the unit catalog"}
	units.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List units",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), func(ctx context.Context, b backend) error {
				items, err := b.ListUnits(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable(table.Row{"ID", "Name", "Category"})
				for _, u := range items {
					tw.AppendRow(table.Row{u.ID, u.Name, u.Category})
				}
				tw.Render()
				return nil
			})
		},
	})
	return units
}

func ordersCmd() *cobra.Command {
	orders := &cobra.Command{Use: "orders", Short: "Manage orders"}
	orders.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), func(ctx context.Context, b backend) error {
				items, err := b.ListOrders(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable(table.Row{"ID", "Unit", "Guest", "Departure", "Status"})
				for _, o := range items {
					tw.AppendRow(table.Row{o.ID, o.UnitNumber, o.GuestName, o.DepartureDate, o.Status})
				}
				tw.Render()
				return nil
			})
		},
	})
	orders.AddCommand(&cobra.Command{
		Use:   "import <file.yml>",
		Short: "Create or replace orders from a YAML list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readOrders(args[0])
			if err != nil {
				return err
			}
			return withBackend(cmd.Context(), func(ctx context.Context, b backend) error {
				for _, o := range items {
					if _, err := b.PutOrder(ctx, o); err != nil {
						return fmt.Errorf("order %s: %w", o.ID, err)
					}
				}
				fmt.Printf("imported %d orders\n", len(items))
				return nil
			})
		},
	})
	orders.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), func(ctx context.Context, b backend) error {
				if err := b.DeleteOrder(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("deleted order %s\n", args[0])
				return nil
			})
		},
	})
	return orders
}

// readOrders parses a YAML list of orders (unit_number, guest_name,
// departure_date, status).
func readOrders(path string) ([]domain.Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []domain.Order
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, o := range items {
		if strings.TrimSpace(o.ID) == "" {
			return nil, fmt.Errorf("parse %s: order %d has no id", path, i+1)
		}
	}
	return items, nil
}

// --- helpers ---

// backend is what the CLI needs from either the local workspace or a server.
type backend interface {
	inspection.Gateway
	inspection.Directory
	PutOrder(ctx context.Context, o domain.Order) (domain.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

type session struct {
	backend  backend
	resolver inspection.Resolver
	log      zerolog.Logger
}

func withBackend(ctx context.Context, fn func(context.Context, backend) error) error {
	return withSession(ctx, func(ctx context.Context, s session) error {
		return fn(ctx, s.backend)
	})
}

func withSession(ctx context.Context, fn func(context.Context, session) error) error {
	log, closeLog, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLog()
	workspace := viper.GetString("workspace")
	if base := viper.GetString("server"); base != "" {
		cfg, err := config.LoadOrDefault(workspace)
		if err != nil {
			return err
		}
		return fn(ctx, session{
			backend:  inspectsdk.New(base),
			resolver: inspection.Resolver{Location: cfg.Location()},
			log:      log,
		})
	}
	ws, err := app.Open(ctx, workspace, log)
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, session{
		backend:  app.Local{Engine: ws.Engine},
		resolver: ws.Engine.Resolver(),
		log:      log,
	})
}

func newLogger() (zerolog.Logger, func(), error) {
	return logging.New(viper.GetString("log-level"), viper.GetString("log-file"))
}

func newTable(header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(header)
	return tw
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
