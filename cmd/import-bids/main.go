package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"bidtrack/db"
	"bidtrack/internal/importer"
	"bidtrack/internal/lifecycle"
)

func main() {
	var (
		file     = flag.String("file", "", "CSV file to import (required)")
		mode     = flag.String("mode", "lost", "import mode: lost or progress")
		dryRun   = flag.Bool("dry-run", false, "resolve and report without writing")
		onMedium = flag.String("on-medium", "skip", "medium-confidence match policy: skip or create")
	)
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *mode != string(importer.ModeLost) && *mode != string(importer.ModeProgress) {
		log.Fatalf("invalid -mode %q, want lost or progress", *mode)
	}
	if *onMedium != string(importer.MediumSkip) && *onMedium != string(importer.MediumCreate) {
		log.Fatalf("invalid -on-medium %q, want skip or create", *onMedium)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	records, err := readRecords(*file)
	if err != nil {
		logger.Fatal("read csv", zap.String("file", *file), zap.Error(err))
	}

	connString := os.Getenv("POSTGRES_CONN")
	if connString == "" {
		logger.Fatal("POSTGRES_CONN env variable is not set")
	}
	dbConn, err := sqlx.Connect("postgres", connString)
	if err != nil {
		logger.Fatal("cannot connect to db", zap.Error(err))
	}
	defer dbConn.Close()

	store := db.NewStorage(dbConn)
	engine := lifecycle.NewEngine(store, store, logger)
	runner := importer.NewRunner(store, engine, logger, importer.Options{
		Mode:     importer.Mode(*mode),
		DryRun:   *dryRun,
		OnMedium: importer.MediumPolicy(*onMedium),
	})

	report, err := runner.Run(context.Background(), records)
	if err != nil {
		logger.Fatal("import run failed", zap.Error(err))
	}

	printReport(report, *dryRun)
}

// readRecords loads the CSV into header-keyed records. Short rows are padded
// so a ragged sheet never drops trailing columns silently.
func readRecords(path string) ([]importer.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	header := rows[0]
	records := make([]importer.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := importer.Record{}
		for i, key := range header {
			if i < len(row) {
				rec[key] = row[i]
			} else {
				rec[key] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func printReport(report *importer.Report, dryRun bool) {
	st := report.Stats
	if dryRun {
		fmt.Println("DRY RUN: no changes were written")
	}
	fmt.Printf("Records:      %d\n", st.Total)
	fmt.Printf("Matched:      %d\n", st.Matched)
	fmt.Printf("Created:      %d\n", st.Created)
	fmt.Printf("Skipped:      %d\n", st.Skipped)
	fmt.Printf("Ambiguous:    %d\n", st.Ambiguous)
	fmt.Printf("Errors:       %d\n", st.Errors)
	fmt.Printf("Financials:   %d\n", st.FinancialSaved)
	fmt.Printf("Technologies: %d\n", st.TechnologySaved)
	fmt.Printf("Scopes:       %d\n", st.ScopeSaved)
	fmt.Printf("Competitors:  %d\n", st.Competitors)

	if len(report.Ambiguous) > 0 {
		fmt.Println("\nNeeds manual review:")
		for _, a := range report.Ambiguous {
			fmt.Printf("  %s / %s -> %s (%.2f): %s\n",
				a.SourceClient, a.SourceSurvey, a.ClosestMatch, a.Score, a.Reason)
		}
	}
}
