package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-timetable-api/internal/csvio"
	"github.com/noah-isme/exam-timetable-api/internal/dto"
	"github.com/noah-isme/exam-timetable-api/internal/service"
	"github.com/noah-isme/exam-timetable-api/pkg/config"
	appErrors "github.com/noah-isme/exam-timetable-api/pkg/errors"
	"github.com/noah-isme/exam-timetable-api/pkg/logger"
)

const (
	exitOK         = 0
	exitUsage      = 1
	exitInfeasible = 2
)

type options struct {
	examsFile    string
	roomsFile    string
	outFile      string
	delimiter    string
	nodeBudget   int
	spanDuration bool
	timeout      time.Duration
	days         []string
	slots        []string
	quiet        bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitUsage
	}

	opts := options{
		nodeBudget:   cfg.Scheduler.NodeBudget,
		spanDuration: cfg.Scheduler.SpanDuration,
		timeout:      cfg.Scheduler.Timeout,
		days:         cfg.Session.Days,
		slots:        cfg.Session.Slots,
	}
	flags := pflag.NewFlagSet("timetable-cli", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&opts.examsFile, "exams", "exams.csv", "exams CSV (id,title,duration,students,departments)")
	flags.StringVar(&opts.roomsFile, "rooms", "rooms.csv", "rooms CSV (id,name,capacity,availability,morning_only,afternoon_only,specific_days)")
	flags.StringVarP(&opts.outFile, "out", "o", "", "write the schedule CSV to this path")
	flags.StringVar(&opts.delimiter, "delimiter", ",", "CSV field delimiter")
	flags.IntVar(&opts.nodeBudget, "node-budget", opts.nodeBudget, "maximum search nodes")
	flags.BoolVar(&opts.spanDuration, "span-duration", opts.spanDuration, "exams occupy Duration consecutive timeslots")
	flags.DurationVar(&opts.timeout, "timeout", opts.timeout, "wall-clock limit for the solver")
	flags.StringSliceVar(&opts.days, "days", opts.days, "session day labels")
	flags.StringSliceVar(&opts.slots, "slots", opts.slots, "session slots as label@MORNING or label@AFTERNOON")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "only log warnings")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	if len(opts.delimiter) != 1 {
		fmt.Fprintln(stderr, "delimiter must be a single character")
		return exitUsage
	}
	delim := rune(opts.delimiter[0])

	if opts.quiet {
		cfg.Log.Level = "warn"
	}
	cfg.Log.Format = "console"
	logr, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "failed to init logger: %v\n", err)
		return exitUsage
	}
	defer logr.Sync() //nolint:errcheck

	grid, err := service.ParseSessionGrid(opts.days, opts.slots)
	if err != nil {
		logr.Error("invalid session grid", zap.Error(err))
		return exitUsage
	}

	exams, err := csvio.LoadExamsFile(opts.examsFile, delim)
	if err != nil {
		logr.Error("failed to load exams", zap.String("path", opts.examsFile), zap.Error(err))
		return exitUsage
	}
	rooms, err := csvio.LoadRoomsFile(opts.roomsFile, delim)
	if err != nil {
		logr.Error("failed to load rooms", zap.String("path", opts.roomsFile), zap.Error(err))
		return exitUsage
	}

	svc := service.NewTimetableService(nil, nil, nil, nil, nil, nil, nil, nil, logr, service.TimetableConfig{
		Grid:         grid,
		NodeBudget:   opts.nodeBudget,
		Timeout:      opts.timeout,
		SpanDuration: opts.spanDuration,
	})

	spanDuration := opts.spanDuration
	result, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{
		Exams:        exams,
		Rooms:        rooms,
		NodeBudget:   opts.nodeBudget,
		SpanDuration: &spanDuration,
	})
	if err != nil {
		return reportFailure(stderr, err)
	}

	if opts.outFile != "" {
		if err := csvio.WriteScheduleFile(opts.outFile, result.Assignments, delim); err != nil {
			logr.Error("failed to write schedule", zap.String("path", opts.outFile), zap.Error(err))
			return exitUsage
		}
	} else if err := csvio.WriteSchedule(stdout, result.Assignments, delim); err != nil {
		logr.Error("failed to write schedule", zap.Error(err))
		return exitUsage
	}

	stats := result.Stats
	logr.Info("schedule ready",
		zap.Int("exams_scheduled", stats.ExamsScheduled),
		zap.Int("exams_total", stats.ExamsTotal),
		zap.Int("rooms_used", stats.RoomsUsed),
		zap.Int("rooms_total", stats.RoomsTotal),
		zap.Int("nodes", stats.Nodes),
		zap.Int("backtracks", stats.Backtracks),
		zap.Int64("duration_ms", stats.DurationMs),
	)
	return exitOK
}

// reportFailure prints the typed error and its diagnostic as JSON.
func reportFailure(stderr io.Writer, err error) int {
	appErr := appErrors.FromError(err)
	payload, _ := json.MarshalIndent(appErr, "", "  ")
	fmt.Fprintln(stderr, string(payload))
	switch appErr.Code {
	case appErrors.ErrInfeasibleExam.Code, appErrors.ErrInfeasibleCohort.Code,
		appErrors.ErrSearchExhausted.Code, appErrors.ErrBudgetExceeded.Code:
		return exitInfeasible
	default:
		return exitUsage
	}
}
