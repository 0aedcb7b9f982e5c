package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crewtech/crewsync/internal/config"
	"github.com/crewtech/crewsync/pkg/cache"
	"github.com/crewtech/crewsync/pkg/core/model"
	"github.com/crewtech/crewsync/pkg/core/services"
	"github.com/crewtech/crewsync/pkg/core/status"
	"github.com/crewtech/crewsync/pkg/postgres"
	"github.com/crewtech/crewsync/pkg/remote"
	"github.com/crewtech/crewsync/pkg/sync"
	"github.com/crewtech/crewsync/pkg/utils/logging"
)

// App holds the application dependencies
type App struct {
	cfg    *config.Config
	store  *cache.Store
	remote *postgres.DB
	syncer *sync.Syncer
	logger *zap.Logger
	ctx    context.Context
}

var app *App

func main() {
	rootCmd := &cobra.Command{
		Use:   "crewsync",
		Short: "CrewSync - manage convention staffing jobs and workers",
		Long:  `A CLI tool for managing staffing jobs, worker assignments, and shift confirmations with offline-tolerant sync.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if app.remote != nil {
					app.remote.Close()
				}
				if app.logger != nil {
					app.logger.Sync()
				}
			}
		},
	}

	rootCmd.AddCommand(pullCmd())
	rootCmd.AddCommand(pushCmd())
	rootCmd.AddCommand(createJobCmd())
	rootCmd.AddCommand(listJobsCmd())
	rootCmd.AddCommand(deleteJobCmd())
	rootCmd.AddCommand(addWorkerCmd())
	rootCmd.AddCommand(setStatusCmd())
	rootCmd.AddCommand(finalizeReportCmd())
	rootCmd.AddCommand(removeWorkerCmd())
	rootCmd.AddCommand(myShiftsCmd())
	rootCmd.AddCommand(optInCmd())
	rootCmd.AddCommand(setPhoneCmd())
	rootCmd.AddCommand(syncStatusCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, remote store, cache, and syncer
func initApp() error {
	var err error
	app = &App{
		ctx: context.Background(),
	}

	app.logger, err = logging.InitLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.logger.Debug("Configuration loaded", zap.String("cache_path", app.cfg.CachePath))

	app.store = cache.NewStore(app.cfg.CachePath, app.logger)

	app.remote, err = postgres.NewDB(app.ctx, app.cfg.RemoteDSN)
	if err != nil {
		// Offline start is a degraded state, not a failure: local data
		// keeps working and pushes count as pending writes.
		app.logger.Warn("Remote store unreachable, starting offline", zap.Error(err))
		app.remote = nil
	} else if err := app.remote.RunMigrations(app.ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if app.remote != nil {
		app.syncer = sync.New(app.remote, app.store, app.logger)
		app.syncer.CheckOnline(app.ctx)
	} else {
		app.syncer = sync.New(offlineRemote{}, app.store, app.logger)
		app.syncer.SetOnline(false)
	}

	return nil
}

func printSyncStatus() {
	report := sync.Report(app.syncer.State())
	fmt.Printf("\nSync: %s\n", report.Label)
}

func pullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Pull the authoritative snapshot from the remote store (replaces local data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, err := app.syncer.PullWorkers(app.ctx)
			if err != nil {
				return err
			}
			jobs, err := app.syncer.PullJobs(app.ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\nPulled %d workers and %d jobs.\n", len(workers), len(jobs))
			printSyncStatus()
			return nil
		},
	}
}

func pushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push <job-id>",
		Short: "Re-push a cached job to the remote store in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state := app.store.Load()
			var job *model.Job
			for i := range state.Jobs {
				if state.Jobs[i].ID == args[0] {
					job = &state.Jobs[i]
					break
				}
			}
			if job == nil {
				return fmt.Errorf("job %s not found in local cache", args[0])
			}
			model.EnsureAssignments(job)

			changed := sync.Changed(
				sync.FieldName, sync.FieldDate, sync.FieldStartTime, sync.FieldEndTime,
				sync.FieldLocation, sync.FieldBooth, sync.FieldPhase, sync.FieldNotes,
				sync.FieldRawText, sync.FieldAssignments,
			)
			if job.ReportCompleted {
				changed[sync.FieldReportCompleted] = true
				changed[sync.FieldFinalizedWorkLog] = true
				changed[sync.FieldFinalizedNotes] = true
			}
			if _, err := app.syncer.PushJob(app.ctx, job, changed); err != nil {
				return err
			}

			fmt.Println("\nJob pushed.")
			printSyncStatus()
			return nil
		},
	}
}

func createJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createJob <name>",
		Short: "Create a new job (shift)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := services.JobInput{Name: args[0]}
			input.Date, _ = cmd.Flags().GetString("date")
			input.StartTime, _ = cmd.Flags().GetString("start")
			input.EndTime, _ = cmd.Flags().GetString("end")
			input.Location, _ = cmd.Flags().GetString("location")
			input.Booth, _ = cmd.Flags().GetString("booth")
			input.Notes, _ = cmd.Flags().GetString("notes")

			job, err := services.CreateJob(app.ctx, app.store, app.syncer, app.logger, input)
			if err != nil {
				return err
			}

			fmt.Printf("\nJob created: %s (%s)\n", job.Name, job.ID)
			printSyncStatus()
			return nil
		},
	}
	cmd.Flags().String("date", "", "Shift date (YYYY-MM-DD)")
	cmd.Flags().String("start", "", "Start time (HH:MM)")
	cmd.Flags().String("end", "", "End time (HH:MM)")
	cmd.Flags().String("location", "", "Venue/location")
	cmd.Flags().String("booth", "", "Booth number")
	cmd.Flags().String("notes", "", "Free-form notes")
	return cmd
}

func listJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listJobs",
		Short: "List cached jobs with their assignments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state := app.store.Load()

			fmt.Printf("\nFound %d jobs:\n\n", len(state.Jobs))
			for i := range state.Jobs {
				job := &state.Jobs[i]
				fmt.Printf("- %s (%s) %s %s-%s\n", job.Name, job.ID, job.Date, job.StartTime, job.EndTime)
				for _, a := range model.EnsureAssignments(job) {
					fmt.Printf("    %s - %s\n", services.AssignmentLabel(state.Workers, a), a.Status)
				}
				if job.ReportCompleted {
					fmt.Printf("    [report finalized]\n")
				}
			}
			return nil
		},
	}
}

func deleteJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deleteJob <job-id>",
		Short: "Delete a job locally and best-effort remotely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.syncer.DeleteJob(app.ctx, args[0]) {
				fmt.Println("\nJob deleted locally and remotely.")
			} else {
				fmt.Println("\nJob deleted locally; remote delete did not complete (see logs).")
			}
			printSyncStatus()
			return nil
		},
	}
}

func addWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "addWorker <job-id> <worker-id>",
		Short: "Invite a worker onto a job (re-invites declined/cancelled workers)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := services.AddWorkerToJob(app.ctx, app.store, app.syncer, app.logger, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println("\nWorker invited.")
			printSyncStatus()
			return nil
		},
	}
}

func setStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setStatus <job-id> <worker-id> <confirm|decline|cancel>",
		Short: "Apply a status action to a worker's assignment",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var action status.Action
			switch args[2] {
			case "confirm":
				action = status.ActionConfirm
			case "decline":
				action = status.ActionDecline
			case "cancel":
				action = status.ActionCancel
			default:
				return fmt.Errorf("unknown action %q (want confirm, decline or cancel)", args[2])
			}

			job, err := services.SetAssignmentStatus(app.ctx, app.store, app.syncer, app.logger, args[0], args[1], action)
			if err != nil {
				return err
			}

			a := model.FindAssignment(job, args[1])
			fmt.Printf("\nAssignment is now %s.\n", a.Status)
			printSyncStatus()
			return nil
		},
	}
}

func finalizeReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finalizeReport <job-id>",
		Short: "Finalize a job's time report (one-way)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, _ := cmd.Flags().GetString("notes")

			state := app.store.Load()
			var workLog []model.WorkLogEntry
			for i := range state.Jobs {
				job := &state.Jobs[i]
				if job.ID != args[0] {
					continue
				}
				// Default the work log to scheduled times for every
				// confirmed worker; the admin can adjust rows upstream.
				for _, a := range model.EnsureAssignments(job) {
					if model.CanonicalStatus(string(a.Status)) == model.StatusConfirmed {
						workLog = append(workLog, model.WorkLogEntry{
							WorkerID: a.WorkerID,
							Start:    job.StartTime,
							End:      job.EndTime,
						})
					}
				}
			}

			job, err := services.FinalizeReport(app.ctx, app.store, app.syncer, app.logger, args[0], workLog, notes)
			if err != nil {
				return err
			}

			fmt.Printf("\nReport finalized for %s (%d work log rows).\n", job.Name, len(job.FinalizedWorkLog))
			printSyncStatus()
			return nil
		},
	}
	cmd.Flags().String("notes", "", "Report notes snapshot")
	return cmd
}

func removeWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "removeWorker <worker-id>",
		Short: "Delete a worker and remove them from every job's assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.RemoveWorker(app.ctx, app.store, app.syncer, app.logger, args[0]); err != nil {
				return err
			}
			fmt.Println("\nWorker removed.")
			printSyncStatus()
			return nil
		},
	}
}

func myShiftsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "myShifts <worker-id>",
		Short: "Show a worker's open invites, upcoming and completed shifts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reader services.WorkerReader = offlineRemote{}
			if app.remote != nil {
				reader = app.remote
			}
			worker, err := services.LookupWorker(app.ctx, app.store, reader, app.logger, args[0])
			if err != nil {
				return err
			}

			if services.NeedsConsentPrompt(*worker) {
				fmt.Println("\nSMS alerts are not set up yet. Run the optIn command to choose.")
			}

			buckets := services.WorkerShifts(app.store.Load(), worker.ID, time.Now())
			printBucket := func(title string, jobs []model.Job) {
				fmt.Printf("\n%s (%d):\n", title, len(jobs))
				for _, j := range jobs {
					fmt.Printf("  - %s %s %s-%s %s\n", j.Name, j.Date, j.StartTime, j.EndTime, j.Location)
				}
			}
			fmt.Printf("\nViewing schedule for: %s\n", worker.Name)
			printBucket("Open invites", buckets.OpenInvites)
			printBucket("Upcoming shifts", buckets.Upcoming)
			printBucket("Completed shifts", buckets.Completed)
			return nil
		},
	}
}

func optInCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "optIn <worker-id> <yes|no>",
		Short: "Record a worker's SMS consent answer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var optIn model.OptIn
			switch args[1] {
			case "yes":
				optIn = model.OptInYes
			case "no":
				optIn = model.OptInNo
			default:
				return fmt.Errorf("answer must be yes or no, got %q", args[1])
			}

			worker, err := services.SetSMSOptIn(app.ctx, app.store, app.syncer, app.logger, args[0], optIn)
			if err != nil {
				return err
			}

			fmt.Printf("\nSMS alerts for %s: %s\n", worker.Name, args[1])
			printSyncStatus()
			return nil
		},
	}
}

func setPhoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setPhone <worker-id> <phone>",
		Short: "Set a worker's phone number (US, normalized to E.164)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			worker, err := services.SetWorkerPhone(app.ctx, app.store, app.syncer, app.logger, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Printf("\nPhone for %s set to %s.\n", worker.Name, model.PrettyPhone(worker.Phone))
			printSyncStatus()
			return nil
		},
	}
}

// offlineRemote stands in for the remote store when the connection could
// not be established at startup. Every call fails, which the syncer turns
// into pending writes; the local cache keeps working.
type offlineRemote struct{}

var errRemoteUnavailable = fmt.Errorf("remote store unavailable")

func (offlineRemote) ReadJobs(ctx context.Context) ([]model.Job, error) {
	return nil, errRemoteUnavailable
}

func (offlineRemote) ReadWorkers(ctx context.Context) ([]model.Worker, error) {
	return nil, errRemoteUnavailable
}

func (offlineRemote) ReadWorker(ctx context.Context, id string) (model.Worker, bool, error) {
	return model.Worker{}, false, errRemoteUnavailable
}

func (offlineRemote) UpsertJob(ctx context.Context, id string, fields remote.JobFields) (model.Job, error) {
	return model.Job{}, errRemoteUnavailable
}

func (offlineRemote) PatchJobFields(ctx context.Context, id string, fields remote.JobFields) (model.Job, error) {
	return model.Job{}, errRemoteUnavailable
}

func (offlineRemote) DeleteJob(ctx context.Context, id string) error {
	return errRemoteUnavailable
}

func (offlineRemote) UpsertWorker(ctx context.Context, id string, fields remote.WorkerFields) (model.Worker, error) {
	return model.Worker{}, errRemoteUnavailable
}

func (offlineRemote) DeleteWorker(ctx context.Context, id string) error {
	return errRemoteUnavailable
}

func (offlineRemote) Ping(ctx context.Context) error {
	return errRemoteUnavailable
}

func syncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "syncStatus",
		Short: "Show the current sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printSyncStatus()
			return nil
		},
	}
}
