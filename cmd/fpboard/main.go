package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fpdash/fpboard/internal/config"
	"github.com/fpdash/fpboard/internal/dashboard"
	"github.com/fpdash/fpboard/internal/dataverse"
	"github.com/fpdash/fpboard/internal/db"
	"github.com/fpdash/fpboard/internal/export"
	"github.com/fpdash/fpboard/internal/identity"
	"github.com/fpdash/fpboard/internal/mapper"
	"github.com/fpdash/fpboard/internal/models"
	"github.com/fpdash/fpboard/internal/placeholder"
	"github.com/fpdash/fpboard/internal/report"
	"github.com/fpdash/fpboard/internal/timeline"
	"github.com/fpdash/fpboard/internal/ui"
	"github.com/fpdash/fpboard/internal/utilization"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	// Used for flags.
	configPath string
	logLevel   string
	offline    bool
	dbPath     string

	startView  string
	userFlag   string
	siteFlag   string
	department string
	rangeFlag  string
	search     string
	details    bool
	width      int
	noMarkers  bool
	outPath    string

	rootCmd = &cobra.Command{
		Use:   "fpboard",
		Short: "A terminal dashboard for Focused Portfolio projects.",
		Long: `fpboard shows your project tasks as a kanban board, the projects at a site on a
24 month timeline, and how loaded each person at the site is week by week.
Without a subcommand it opens the interactive dashboard on the view used last.`,
		SilenceUsage: true,
		RunE:         runDashboard,
	}

	tasksCmd = &cobra.Command{
		Use:   "tasks",
		Short: "Print a user's tasks grouped by project.",
		RunE:  runTasksCommand,
	}

	resourcesCmd = &cobra.Command{
		Use:   "resources",
		Short: "Print resource utilization for a site.",
		RunE:  runResourcesCommand,
	}

	timelineCmd = &cobra.Command{
		Use:   "timeline",
		Short: "Print the project timeline for a site.",
		RunE:  runTimelineCommand,
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write dashboard data to an Excel workbook.",
	}

	exportTasksCmd = &cobra.Command{
		Use:   "tasks",
		Short: "Export a user's tasks and projects.",
		RunE:  runExportTasksCommand,
	}

	exportSiteCmd = &cobra.Command{
		Use:   "site",
		Short: "Export a site's tasks, resources and timeline.",
		RunE:  runExportSiteCommand,
	}

	snapshotsCmd = &cobra.Command{
		Use:   "snapshots",
		Short: "List the data saved for offline use.",
		RunE:  runSnapshotsCommand,
	}

	snapshotsClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved snapshot.",
		RunE:  runSnapshotsClearCommand,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version.",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("fpboard %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
)

func init() {
	// Assigned here rather than in the literal: setupLogging refers to rootCmd.
	rootCmd.PersistentPreRunE = setupLogging

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to the config file (default $XDG_CONFIG_HOME/fpboard/config.yml).")
	pf.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error.")
	pf.BoolVar(&offline, "offline", false, "Use the built-in sample data instead of Dataverse.")
	pf.StringVar(&dbPath, "db", "", "Path to the local database (default $XDG_DATA_HOME/fpboard/fpboard.db).")

	rootCmd.Flags().StringVar(&startView, "view", "", "View to open: tasks, timeline or resources.")
	rootCmd.Flags().StringVar(&siteFlag, "site", "", "Site to show, saved for next time.")
	rootCmd.Flags().StringVar(&rangeFlag, "range", "", "Utilization range: 12months, 24months or all.")

	for _, c := range []*cobra.Command{tasksCmd, exportTasksCmd} {
		c.Flags().StringVar(&userFlag, "user", "", "Show another user's tasks, by id or email.")
	}
	for _, c := range []*cobra.Command{resourcesCmd, timelineCmd, exportSiteCmd} {
		c.Flags().StringVar(&siteFlag, "site", "", "Site name (default the saved site).")
		c.Flags().StringVar(&department, "department", "", "Only this department.")
		c.Flags().StringVar(&rangeFlag, "range", "", "Utilization range: 12months, 24months or all.")
	}
	resourcesCmd.Flags().StringVar(&search, "search", "", "Only people whose name contains this text.")
	resourcesCmd.Flags().BoolVar(&details, "details", false, "Show each person's projects and upcoming work.")
	timelineCmd.Flags().IntVar(&width, "width", 60, "Width of the bars in columns.")
	timelineCmd.Flags().BoolVar(&noMarkers, "no-milestones", false, "Hide milestone markers.")
	for _, c := range []*cobra.Command{exportTasksCmd, exportSiteCmd} {
		c.Flags().StringVarP(&outPath, "out", "o", "", "Workbook to write (required).")
		c.MarkFlagRequired("out")
	}

	exportCmd.AddCommand(exportTasksCmd, exportSiteCmd)
	snapshotsCmd.AddCommand(snapshotsClearCmd)
	rootCmd.AddCommand(tasksCmd, resourcesCmd, timelineCmd, exportCmd, snapshotsCmd, versionCmd)
}

func main() {
	// Setup structured JSON logger for errors.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var logFile io.Closer

// setupLogging sends JSON logs to stderr, or to a file in the data
// directory while the dashboard owns the terminal
func setupLogging(cmd *cobra.Command, args []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", logLevel)
	}

	var out io.Writer = cmd.ErrOrStderr()
	if cmd == rootCmd {
		dir, err := config.DataDir()
		if err != nil {
			return err
		}
		f, err := os.OpenFile(filepath.Join(dir, "fpboard.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile, out = f, f
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})))
	return nil
}

// app is everything a command needs
type app struct {
	cfg   config.Config
	store *db.DB
	svc   *dashboard.Service
}

func (a *app) Close() error {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	return a.store.Close()
}

// newApp loads the config and connects the backend. Offline mode, from the
// flag or the config file, swaps Dataverse for the sample tables.
func newApp() (*app, error) {
	cfg, err := config.Read(configPath)
	if err != nil {
		return nil, err
	}
	if offline {
		cfg.Offline = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var store *db.DB
	if dbPath != "" {
		store, err = db.Open(dbPath)
	} else {
		store, err = db.New()
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var src dataverse.Source
	if cfg.Offline {
		src = placeholder.NewSource(time.Now())
	} else {
		client := dataverse.NewClient(cfg.Dataverse.URL, cfg.Dataverse.Token)
		client.PageSize = cfg.Dataverse.PageSize
		if cfg.Dataverse.Timeout > 0 {
			client.HTTP.Timeout = cfg.Dataverse.Timeout
		}
		src = client
	}

	svc := &dashboard.Service{
		Loader:    &mapper.Loader{Src: src},
		Snapshots: store,
		Offline:   cfg.Offline,
	}
	return &app{cfg: cfg, store: store, svc: svc}, nil
}

// self is the signed-in user. Offline without a configured user it is the
// sample viewer.
func (a *app) self(ctx context.Context) models.User {
	if a.cfg.Offline && a.cfg.User.ID == "" && a.cfg.User.Email == "" {
		return placeholder.Viewer()
	}
	r := identity.Resolver{
		Dir:    a.svc.Loader,
		UserID: a.cfg.User.ID,
		Token:  a.cfg.Dataverse.Token,
		Email:  a.cfg.User.Email,
	}
	return r.ResolveOrFallback(ctx)
}

// viewer is the user named by --user, or the signed-in user
func (a *app) viewer(ctx context.Context) (models.User, error) {
	if userFlag == "" {
		return a.self(ctx), nil
	}
	if id, ok := identity.NormalizeID(userFlag); ok {
		return a.svc.Loader.UserByID(ctx, id)
	}
	if strings.Contains(userFlag, "@") {
		return a.svc.Loader.UserByEmail(ctx, userFlag)
	}
	return models.User{}, fmt.Errorf("--user must be a user id or an email address")
}

// site picks the --site flag, then the config file, then the saved choice
func (a *app) site() (string, error) {
	site := siteFlag
	if site == "" {
		site = a.cfg.Site
	}
	if site == "" {
		saved, err := a.store.SelectedSite()
		if err != nil {
			return "", err
		}
		site = saved
	}
	if !models.IsAvailableSite(site) {
		return "", fmt.Errorf("%w: %q (choose from %s)", mapper.ErrUnknownSite, site, strings.Join(models.AvailableSites, ", "))
	}
	return site, nil
}

func (a *app) rangeName() string {
	if rangeFlag != "" {
		return rangeFlag
	}
	return a.cfg.Range
}

func (a *app) siteData(ctx context.Context) (dashboard.Site, error) {
	site, err := a.site()
	if err != nil {
		return dashboard.Site{}, err
	}
	data, err := a.svc.SiteData(ctx, dashboard.SiteOptions{
		Site:    site,
		Horizon: utilization.HorizonForRange(a.rangeName()),
	})
	if err != nil {
		return dashboard.Site{}, err
	}
	if department != "" && !containsFold(data.Departments, department) {
		slog.Warn("department has no projects at this site", "site", site, "department", department)
	}
	return data.Department(department), nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func runDashboard(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if siteFlag != "" {
		if !models.IsAvailableSite(siteFlag) {
			return fmt.Errorf("%w: %q", mapper.ErrUnknownSite, siteFlag)
		}
		if err := a.store.SetSelectedSite(siteFlag); err != nil {
			return err
		}
	}
	opts := ui.Options{
		Backend: a.svc,
		Store:   a.store,
		Range:   a.rangeName(),
		Resume:  startView == "",
	}
	if startView != "" {
		v, ok := ui.ParseView(startView)
		if !ok {
			return fmt.Errorf("unknown view %q", startView)
		}
		opts.Start = v
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfgTimeout(a.cfg))
	opts.Self = a.self(ctx)
	cancel()
	slog.Info("starting dashboard", "user", opts.Self.ID, "offline", a.cfg.Offline)

	p := tea.NewProgram(ui.NewApp(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running application: %w", err)
	}
	return nil
}

func cfgTimeout(cfg config.Config) time.Duration {
	if cfg.Dataverse.Timeout > 0 {
		return cfg.Dataverse.Timeout
	}
	return 30 * time.Second
}

func loadBoard(cmd *cobra.Command) (*app, dashboard.Board, error) {
	a, err := newApp()
	if err != nil {
		return nil, dashboard.Board{}, err
	}
	viewer, err := a.viewer(cmd.Context())
	if err != nil {
		a.Close()
		return nil, dashboard.Board{}, err
	}
	return a, a.svc.MyTasks(cmd.Context(), viewer), nil
}

func runTasksCommand(cmd *cobra.Command, args []string) error {
	a, board, err := loadBoard(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	report.PrintSource(out, board.Source)
	report.PrintOverview(out, board.Viewer, board.Stats)
	report.PrintProjects(out, board.Projects)
	return nil
}

func runResourcesCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	site, err := a.siteData(cmd.Context())
	if err != nil {
		return err
	}
	resources := utilization.FilterResources(site.Resources, utilization.Filter{Search: search})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", site.Site, a.rangeName())
	report.PrintSource(out, site.Source)
	report.PrintResources(out, resources)
	if details {
		report.PrintBreakdowns(out, utilization.Breakdowns(resources, time.Now()))
	}
	return nil
}

func runTimelineCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	site, err := a.siteData(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, site.Site)
	report.PrintSource(out, site.Source)

	v, ok := timeline.Layout(site.Tasks, site.Resources, time.Now(), timeline.Options{ShowMilestones: !noMarkers})
	if !ok {
		fmt.Fprintln(out, "No projects with start and end dates.")
		return nil
	}
	report.PrintTimeline(out, v, width)
	return nil
}

func runExportTasksCommand(cmd *cobra.Command, args []string) error {
	a, board, err := loadBoard(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := export.BoardWorkbook(board)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	cmd.Printf("Wrote %d tasks to %s\n", len(board.Tasks), outPath)
	return nil
}

func runExportSiteCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	site, err := a.siteData(cmd.Context())
	if err != nil {
		return err
	}
	v, _ := timeline.Layout(site.Tasks, site.Resources, time.Now(), timeline.Options{ShowMilestones: true})
	f, err := export.SiteWorkbook(site, v)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	cmd.Printf("Wrote %s (%d tasks, %d people) to %s\n", site.Site, len(site.Tasks), len(site.Resources), outPath)
	return nil
}

func runSnapshotsCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snaps, err := a.store.ListSnapshots()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		cmd.Println("No saved data.")
		return nil
	}
	for _, s := range snaps {
		cmd.Printf("%-40s %s\n", s.Scope, s.SavedAt.Local().Format("Jan 2 15:04"))
	}
	return nil
}

func runSnapshotsClearCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snaps, err := a.store.ListSnapshots()
	if err != nil {
		return err
	}
	var errs []error
	for _, s := range snaps {
		errs = append(errs, a.store.DeleteSnapshot(s.Scope))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	cmd.Printf("Deleted %d snapshots.\n", len(snaps))
	return nil
}
