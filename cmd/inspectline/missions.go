package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"inspectline/internal/domain"
	"inspectline/internal/inspection"
	"inspectline/internal/logging"
)

func missionsCmd() *cobra.Command {
	missions := &cobra.Command{Use: "missions", Short: "Work with inspection missions"}
	missions.PersistentFlags().String("kind", string(domain.KindExit), "mission kind (exit, cleaning, monthly)")
	_ = viper.BindPFlag("kind", missions.PersistentFlags().Lookup("kind"))
	missions.AddCommand(missionsListCmd())
	missions.AddCommand(missionsShowCmd())
	missions.AddCommand(missionsCheckCmd())
	missions.AddCommand(missionsSyncCmd())
	missions.AddCommand(missionsWatchCmd())
	return missions
}

// withStore loads a Store for the --kind flag. A locally derived load is
// reported but still usable.
func withStore(ctx context.Context, fn func(context.Context, *inspection.Store, inspection.LoadReport) error) error {
	kind, err := domain.ParseKind(viper.GetString("kind"))
	if err != nil {
		return err
	}
	return withSession(ctx, func(ctx context.Context, s session) error {
		ctx = s.log.WithContext(ctx)
		store, err := inspection.NewStore(kind, s.backend, s.backend,
			inspection.WithResolver(s.resolver),
			inspection.WithLogger(logging.Component(s.log, "store")))
		if err != nil {
			return err
		}
		rep, err := store.Load(ctx)
		if err != nil {
			if rep.State != inspection.DerivedLocally {
				return err
			}
			s.log.Warn().Err(err).Msg("showing locally derived missions")
		}
		return fn(ctx, store, rep)
	})
}

func missionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List missions with derived status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store *inspection.Store, rep inspection.LoadReport) error {
				items := store.Missions()
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable(table.Row{"ID", "Order", "Unit", "Guest", "Date", "Done", "Status"})
				for _, m := range items {
					tw.AppendRow(table.Row{
						m.ID, m.OrderID, m.UnitID, m.GuestName, m.ReferenceDate,
						fmt.Sprintf("%d/%d", m.CompletedCount(), len(m.Tasks)),
						m.Status.Label(),
					})
				}
				tw.SetCaption("%s missions (%s)", store.Kind(), rep.State)
				tw.Render()
				return nil
			})
		},
	}
}

func missionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <mission-id>",
		Short: "Show a mission checklist grouped by category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store *inspection.Store, _ inspection.LoadReport) error {
				m, err := store.Mission(args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(m)
				}
				printMission(m)
				return nil
			})
		},
	}
}

func printMission(m domain.Mission) {
	tw := newTable(table.Row{"Category", "ID", "Task", "Done"})
	for _, cat := range inspection.Group(m.Kind, m.Tasks) {
		for _, t := range cat.Tasks {
			done := ""
			if t.Completed {
				done = "✓"
			}
			tw.AppendRow(table.Row{cat.Name, t.ID, t.Name, done})
		}
		tw.AppendSeparator()
	}
	tw.SetTitle("%s  %s  %s", m.ID, m.ReferenceDate, m.Status.Label())
	tw.SetCaption("%d/%d tasks done", m.CompletedCount(), len(m.Tasks))
	tw.Render()
}

func missionsCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <mission-id> <task-id>...",
		Short: "Toggle tasks and save the mission",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store *inspection.Store, _ inspection.LoadReport) error {
				missionID := args[0]
				for _, taskID := range args[1:] {
					if _, err := store.Toggle(missionID, taskID); err != nil {
						return err
					}
				}
				out, err := store.Save(ctx, missionID)
				var partial *inspection.PartialPersistenceError
				if err != nil && !errors.As(err, &partial) {
					return err
				}
				if viper.GetBool("json") {
					if perr := printJSON(out); perr != nil {
						return perr
					}
					return err
				}
				fmt.Printf("%s: %s (saved %d/%d, failed %d, completed %d)\n",
					missionID, out.Condition, out.Result.SavedTasksCount, out.Result.TotalTasksCount,
					out.Result.FailedTasksCount, out.Result.CompletedTasksCount)
				if m, merr := store.Mission(missionID); merr == nil {
					printMission(m)
				}
				return err
			})
		},
	}
}

func missionsSyncCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create missing missions on the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := domain.Kinds
			if !all {
				kind, err := domain.ParseKind(viper.GetString("kind"))
				if err != nil {
					return err
				}
				kinds = []domain.Kind{kind}
			}
			return withBackend(cmd.Context(), func(ctx context.Context, b backend) error {
				results := make(map[domain.Kind]domain.SyncResult, len(kinds))
				for _, kind := range kinds {
					res, err := b.SyncMissions(ctx, kind)
					if err != nil {
						return fmt.Errorf("sync %s: %w", kind, err)
					}
					results[kind] = res
				}
				if viper.GetBool("json") {
					return printJSON(results)
				}
				tw := newTable(table.Row{"Kind", "Created", "Pruned", "Total"})
				for _, kind := range kinds {
					r := results[kind]
					tw.AppendRow(table.Row{kind, r.Created, r.Pruned, r.Total})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "sync every kind")
	return cmd
}

func missionsWatchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload missions periodically and print status changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store *inspection.Store, _ inspection.LoadReport) error {
				last := statusIndex(store.Missions())
				printStatuses(store.Missions(), nil)
				p := inspection.StartPoller(ctx, interval, func(ctx context.Context) error {
					if _, err := store.Load(ctx); err != nil {
						return err
					}
					current := store.Missions()
					printStatuses(current, last)
					last = statusIndex(current)
					return nil
				}, logging.Component(*zerolog.Ctx(ctx), "watch"))
				<-ctx.Done()
				p.Stop()
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "reload interval")
	return cmd
}

func statusIndex(items []domain.Mission) map[string]domain.Status {
	out := make(map[string]domain.Status, len(items))
	for _, m := range items {
		out[m.ID] = m.Status
	}
	return out
}

// printStatuses prints missions whose status differs from prev; all of them
// when prev is nil.
func printStatuses(items []domain.Mission, prev map[string]domain.Status) {
	stamp := time.Now().Format(time.TimeOnly)
	for _, m := range items {
		if prev != nil {
			if old, ok := prev[m.ID]; ok && old == m.Status {
				continue
			}
		}
		fmt.Printf("%s  %-24s %-12s %s (%d/%d)\n", stamp, m.ID, m.ReferenceDate, m.Status.Label(), m.CompletedCount(), len(m.Tasks))
	}
}
