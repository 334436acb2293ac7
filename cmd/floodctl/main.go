// Flood Monitor CLI
// Inspects the reading log and issues operator tokens.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"FloodMonitorAPI/internal/analytics"
	"FloodMonitorAPI/internal/config"
	"FloodMonitorAPI/internal/database"
	"FloodMonitorAPI/internal/middleware"
	"FloodMonitorAPI/internal/models"
	"FloodMonitorAPI/internal/report"
	"FloodMonitorAPI/internal/repository"
)

var (
	dbPath  string
	rootCmd = &cobra.Command{
		Use:           "floodctl",
		Short:         "Flood Monitor CLI",
		Long:          "Command-line tool for inspecting the flood reading log and alert history.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	logsCmd = &cobra.Command{
		Use:   "logs [device-id]",
		Short: "Show recent readings",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showLogs,
	}

	latestCmd = &cobra.Command{
		Use:   "latest",
		Short: "Show the newest reading",
		RunE:  showLatest,
	}

	statsCmd = &cobra.Command{
		Use:   "stats [device-id]",
		Short: "Show level statistics for a time window",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showStats,
	}

	alertsCmd = &cobra.Command{
		Use:   "alerts",
		Short: "Show triggered alerts",
		RunE:  showAlerts,
	}

	reportCmd = &cobra.Command{
		Use:   "report [device-id]",
		Short: "Write a PDF report",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeReport,
	}

	tokenCmd = &cobra.Command{
		Use:   "token [subject]",
		Short: "Issue an operator bearer token",
		Args:  cobra.ExactArgs(1),
		RunE:  issueToken,
	}

	limit    int
	hours    float64
	output   string
	tokenTTL time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "database", "d", "", "SQLite database path (overrides DB_PATH)")

	logsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show")
	logsCmd.Flags().Float64Var(&hours, "hours", 0, "Only show readings from the last N hours (0 = all)")
	statsCmd.Flags().Float64Var(&hours, "hours", models.DefaultStatsHours, "Window size in hours")
	alertsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show")
	reportCmd.Flags().Float64Var(&hours, "hours", models.DefaultStatsHours, "Window size in hours")
	reportCmd.Flags().StringVarP(&output, "output", "o", "flood-report.pdf", "Output file")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")

	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = dbPath
	}
	return cfg, nil
}

func openDB() (*database.Database, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return database.New(&cfg.Database)
}

func argDevice(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func showLogs(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	q := models.ReadingQuery{Limit: limit, DeviceID: argDevice(args)}
	if cmd.Flags().Changed("hours") {
		q.SinceHours = &hours
	}

	readings, err := repository.NewReadingRepository(db).Query(cmd.Context(), q)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME (UTC)\tDEVICE\tLEVEL\tDISTANCE\tSENSOR")
	fmt.Fprintln(w, "--\t----------\t------\t-----\t--------\t------")
	for _, r := range readings {
		sensor := "-"
		if r.SensorStatus != nil {
			sensor = *r.SensorStatus
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d%%\t%.1f\t%s\n",
			r.ID, r.TimestampISO, r.DeviceID, r.LevelPercent, r.UltrasonicCM, sensor)
	}
	return w.Flush()
}

func showLatest(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	r, err := repository.NewReadingRepository(db).Latest(cmd.Context())
	if err != nil {
		return err
	}
	if r == nil {
		fmt.Println("No readings stored yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Device:\t%s\n", r.DeviceID)
	fmt.Fprintf(w, "Time (UTC):\t%s\n", r.TimestampISO)
	fmt.Fprintf(w, "Level:\t%d%%\n", r.LevelPercent)
	fmt.Fprintf(w, "Distance:\t%.1f cm\n", r.UltrasonicCM)
	if r.SensorStatus != nil {
		fmt.Fprintf(w, "Sensor:\t%s\n", *r.SensorStatus)
	}
	return w.Flush()
}

func showStats(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	readings, err := repository.NewReadingRepository(db).Query(cmd.Context(), models.ReadingQuery{
		Limit:      models.StatsQueryLimit,
		DeviceID:   argDevice(args),
		SinceHours: &hours,
	})
	if err != nil {
		return err
	}

	s := analytics.Compute(readings)
	if s.Count == 0 {
		fmt.Printf("No readings in the last %g hours\n", hours)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Window:\t%g hours\n", hours)
	fmt.Fprintf(w, "Samples:\t%d\n", s.Count)
	fmt.Fprintf(w, "Current:\t%d%%\n", s.Current)
	fmt.Fprintf(w, "Mean:\t%.1f%%\n", s.Mean)
	fmt.Fprintf(w, "Max:\t%d%%\n", s.Max)
	fmt.Fprintf(w, "Min:\t%d%%\n", s.Min)
	fmt.Fprintf(w, "Std:\t%.2f\n", s.Std)
	return w.Flush()
}

func showAlerts(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	events, err := repository.NewAlertRepository(db).GetHistory(cmd.Context(), limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tDEVICE\tLEVEL\tSEVERITY\tDELIVERED")
	fmt.Fprintln(w, "--\t-------\t------\t-----\t--------\t---------")
	for _, e := range events {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d%%\t%s\t%v\n",
			e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.DeviceID, e.LevelPercent, e.Severity, e.Delivered)
	}
	return w.Flush()
}

func writeReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	deviceID := argDevice(args)

	readings, err := repository.NewReadingRepository(db).Query(ctx, models.ReadingQuery{
		Limit:      models.StatsQueryLimit,
		DeviceID:   deviceID,
		SinceHours: &hours,
	})
	if err != nil {
		return err
	}
	alerts, err := repository.NewAlertRepository(db).GetHistory(ctx, 20)
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()

	err = report.Write(f, report.Data{
		GeneratedAt: time.Now(),
		Location:    cfg.Location(),
		DeviceID:    deviceID,
		Hours:       hours,
		Threshold:   cfg.Alert.Threshold,
		Stats:       analytics.Compute(readings),
		Readings:    readings,
		Alerts:      alerts,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Report written to %s (%d readings)\n", output, len(readings))
	return nil
}

func issueToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	token, err := middleware.IssueOperatorToken(cfg.Security.JWTSecret, args[0], tokenTTL)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
