package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"github.com/andys/sheetsync/config"
	"github.com/andys/sheetsync/db"
	"github.com/andys/sheetsync/load"
	"github.com/andys/sheetsync/logging"
	"github.com/andys/sheetsync/report"
	"github.com/andys/sheetsync/xlsx"
)

func main() {
	var (
		mapFile   string
		excelPath string
		sheetsArg string
		logDir    string
		schedule  string
		debug     bool
		verbose   bool
	)

	app := &cli.App{
		Name:  "sheetsync",
		Usage: "Incrementally load Excel sheets into database tables, keyed on a transfer id watermark",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "map",
				Aliases:     []string{"m"},
				Usage:       "Sheet map file path ('SHEET: schema.table[, id_column]' lines)",
				Value:       "sheetsync.conf",
				Destination: &mapFile,
			},
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "Excel workbook path",
				EnvVars:     []string{"EXCEL_FILE_PATH"},
				Destination: &excelPath,
			},
			&cli.StringFlag{
				Name:        "sheets",
				Usage:       "Comma-separated sheet names to process (default: every mapped sheet)",
				Destination: &sheetsArg,
			},
			&cli.StringFlag{
				Name:        "log-dir",
				Usage:       "Directory for per-run log files",
				Value:       "logs",
				Destination: &logDir,
			},
			&cli.StringFlag{
				Name:        "schedule",
				Usage:       "Cron expression; when set, keep running on that schedule instead of once",
				EnvVars:     []string{"SYNC_SCHEDULE"},
				Destination: &schedule,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Usage:       "Enable debug logging",
				Destination: &debug,
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Aliases:     []string{"v"},
				Usage:       "Log generated SQL",
				Destination: &verbose,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			cfg.MapFile = mapFile
			cfg.LogDir = logDir
			cfg.Schedule = schedule
			cfg.Debug = debug
			cfg.Verbose = verbose
			if excelPath != "" {
				cfg.ExcelPath = excelPath
			}
			if cfg.ExcelPath == "" {
				return fmt.Errorf("no Excel file given: set --file or EXCEL_FILE_PATH")
			}

			if err := config.LoadSheetMap(cfg, cfg.MapFile); err != nil {
				return err
			}
			if len(cfg.Sheets) == 0 {
				return fmt.Errorf("sheet map file %s maps no sheets", cfg.MapFile)
			}

			sheets := sheetList(cfg, sheetsArg)

			if cfg.Schedule == "" {
				return runOnce(cfg, sheets)
			}

			// Scheduled mode. An overrunning sync must not overlap the
			// next tick: the watermark read-then-insert cannot race.
			slog.Info("running on schedule", "cron", cfg.Schedule)
			runner := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
			_, err = runner.AddFunc(cfg.Schedule, func() {
				if err := runOnce(cfg, sheets); err != nil {
					slog.Error("scheduled run failed", "error", err)
				}
			})
			if err != nil {
				return fmt.Errorf("invalid cron expression %q: %w", cfg.Schedule, err)
			}
			runner.Run()
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// runOnce performs one full sync pass. Only configuration problems and an
// unreachable database abort it; per-sheet failures are recorded in the
// report instead.
func runOnce(cfg *config.Config, sheets []string) error {
	logPath, err := logging.Setup(cfg.LogDir, cfg.Debug)
	if err != nil {
		return err
	}

	start := time.Now()
	slog.Info("sync run starting", "workbook", cfg.ExcelPath, "sheets", sheets)

	conn, err := db.Connect(cfg.DatabaseURL(), cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to destination database: %w", err)
	}
	defer conn.Close()

	runner := load.NewRunner(cfg, conn, xlsx.NewReader())
	outcomes := runner.Run(sheets)

	slog.Info("sync run finished", "duration", time.Since(start).Round(time.Millisecond))
	fmt.Print(report.Body(outcomes))

	report.NewNotifier(cfg).Send(outcomes, logPath)
	return nil
}

// sheetList resolves which sheets to process: the --sheets flag when given,
// otherwise every sheet in the map file, in stable order.
func sheetList(cfg *config.Config, sheetsArg string) []string {
	if sheetsArg != "" {
		parts := strings.Split(sheetsArg, ",")
		sheets := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				sheets = append(sheets, s)
			}
		}
		return sheets
	}

	sheets := make([]string, 0, len(cfg.Sheets))
	for name := range cfg.Sheets {
		sheets = append(sheets, name)
	}
	sort.Strings(sheets)
	return sheets
}
