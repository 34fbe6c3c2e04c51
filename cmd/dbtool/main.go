package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"activity-plan-service/internal/adapters/matsim"
	"activity-plan-service/internal/adapters/repositories"
	"activity-plan-service/internal/config"
	"activity-plan-service/internal/platform/db"
	"activity-plan-service/internal/services"
)

const usage = `usage: dbtool <command> [flags]

commands:
  init      create the database schema
  import    import a MATSim population file (default SEED_PATH)
  repair    crop and fix every stored plan
  export    write the stored population as a MATSim file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg := config.Load()

	conn, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	repo := repositories.NewSQLPopulationRepository(conn, cfg.DBDriver)
	ctx := context.Background()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "init":
	case "import":
		err = runImport(ctx, repo, cfg, args)
	case "repair":
		err = runRepair(ctx, repo, cfg, args)
	case "export":
		err = runExport(ctx, repo, cfg, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}
}

func versionFlag(fs *flag.FlagSet, cfg *config.Config) *int {
	return fs.Int("version", cfg.MatsimVersion, "MATSim population version (11 or 12)")
}

func runImport(ctx context.Context, repo *repositories.SQLPopulationRepository, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	path := fs.String("path", cfg.SeedPath, "population file, optionally gzip compressed")
	attrs := fs.String("attributes", "", "v11 objectAttributes file")
	v := versionFlag(fs, cfg)
	simplify := fs.Bool("simplify-pt", false, "collapse transit trips into single legs")
	crop := fs.Bool("crop", false, "crop plans to 24 hours")
	keep := fs.Bool("keep-non-selected", false, "parse unselected plans")
	_ = fs.Parse(args)

	opts := services.DefaultImportOptions()
	opts.HouseholdKey = cfg.HouseholdKey
	opts.Read.Version = matsim.Version(*v)
	opts.Read.SimplifyPTTrips = *simplify
	opts.Read.Crop = *crop
	opts.Read.KeepNonSelected = *keep

	if *attrs != "" {
		rc, err := matsim.Open(*attrs)
		if err != nil {
			return err
		}
		opts.Read.Attributes, err = matsim.LoadAttributesMap(rc)
		rc.Close()
		if err != nil {
			return err
		}
	}

	log.Printf("Importing population path=%s", *path)
	res, err := services.ImportFile(ctx, *path, repo, opts)
	if err != nil {
		return err
	}
	log.Printf("Import complete persons=%d households=%d", res.Persons, res.Households)
	return nil
}

func runRepair(ctx context.Context, repo *repositories.SQLPopulationRepository, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("repair", flag.ExitOnError)
	opts := services.DefaultRepairOptions()
	fs.IntVar(&opts.Workers, "workers", cfg.RepairWorkers, "concurrent repairs")
	fs.BoolVar(&opts.SimplifyPTTrips, "simplify-pt", false, "collapse transit trips into single legs")
	fs.BoolVar(&opts.Crop, "crop", true, "crop plans to 24 hours")
	fs.BoolVar(&opts.FixTimes, "fix-times", true, "make component times contiguous")
	fs.BoolVar(&opts.FixLocations, "fix-locations", true, "copy activity locations onto legs")
	_ = fs.Parse(args)

	report, err := services.RepairPopulation(ctx, repo, opts)
	if err != nil {
		return err
	}
	log.Printf("Repair complete persons=%d repaired=%d invalid=%d", report.Persons, report.Repaired, len(report.Failures))
	for _, f := range report.Failures {
		log.Printf("invalid plan pid=%s err=%v", f.PersonID, f.Err)
	}
	return nil
}

func runExport(ctx context.Context, repo *repositories.SQLPopulationRepository, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	path := fs.String("path", "out/plans.xml.gz", "output file, gzip compressed when ending in .gz")
	attrs := fs.String("attributes", "", "v11 objectAttributes output file")
	v := versionFlag(fs, cfg)
	comment := fs.String("comment", "", "comment written into the document header")
	_ = fs.Parse(args)

	opts := matsim.DefaultWriteOptions()
	opts.Version = matsim.Version(*v)
	opts.HouseholdKey = cfg.HouseholdKey
	opts.Comment = *comment

	n, err := services.ExportPopulation(ctx, repo, *path, *attrs, opts)
	if err != nil {
		return err
	}
	log.Printf("Export complete persons=%d path=%s", n, *path)
	return nil
}
