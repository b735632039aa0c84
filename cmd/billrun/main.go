package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/evertel/billrun/internal/clock"
	"github.com/evertel/billrun/internal/config"
	"github.com/evertel/billrun/internal/cycle"
	cycledomain "github.com/evertel/billrun/internal/cycle/domain"
	cycleservice "github.com/evertel/billrun/internal/cycle/service"
	"github.com/evertel/billrun/internal/cyclemetrics"
	"github.com/evertel/billrun/internal/logger"
	"github.com/evertel/billrun/internal/migration"
	"github.com/evertel/billrun/internal/suretax"
	"github.com/evertel/billrun/internal/taxitem"
	"github.com/evertel/billrun/internal/taxlog"
	taxlogdomain "github.com/evertel/billrun/internal/taxlog/domain"
	"github.com/evertel/billrun/pkg/db"
)

const billDateLayout = "2006-01-02"

type cliArgs struct {
	params    cycledomain.RunParams
	reprocess int64
}

func main() {
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		cyclemetrics.Module,
		taxitem.Module,
		taxlog.Module,
		suretax.Module,
		cycle.Module,

		fx.Supply(args),
		fx.Invoke(run),
	)
	app.Run()
}

// run executes exactly one cycle run (or reprocess pass) and shuts the
// application down with the outcome as the exit code.
func run(lc fx.Lifecycle, sh fx.Shutdowner, log *zap.Logger, runner *cycleservice.Runner, reconciler taxlogdomain.Reconciler, args cliArgs) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ctx := context.Background()
				var err error
				if args.reprocess != 0 {
					var n int
					n, err = reconciler.ReprocessCycle(ctx, args.reprocess, args.params.RerunTaxes)
					if err == nil {
						log.Info("reprocess finished",
							zap.Int64("cycle_log_id", args.reprocess),
							zap.Int("responses_processed", n),
						)
					}
				} else {
					err = runner.Run(ctx, args.params)
				}

				code := 0
				if err != nil {
					log.Error("billing run failed", zap.Error(err))
					code = 1
				}
				_ = sh.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
	})
}

func parseArgs(argv []string) (cliArgs, error) {
	fs := flag.NewFlagSet("billrun", flag.ContinueOnError)

	var (
		cycleCode   = fs.String("cycle", "", "cycle code to run (use MANUAL with -account-ids)")
		companyCode = fs.String("company", "", "company code the cycle belongs to")
		billDate    = fs.String("bill-date", "", "bill date (YYYY-MM-DD, defaults to today)")
		dev         = fs.Bool("dev", false, "submit taxes against the certification environment")
		testBilling = fs.Bool("test-billing", false, "mark the run as a test billing")
		rerunTaxes  = fs.Bool("rerun-taxes", false, "resubmit rows that already carry a tax transaction")
		noTaxes     = fs.Bool("no-taxes", false, "skip every tax submission stage")
		noUsage     = fs.Bool("no-usage", false, "skip usage charges")
		accountIDs  = fs.String("account-ids", "", "comma-separated account ids for a MANUAL cycle")
		reprocess   = fs.Int64("reprocess", 0, "re-drive reconciliation for the given cycle_log_id instead of running a cycle")
	)
	if err := fs.Parse(argv); err != nil {
		return cliArgs{}, err
	}

	args := cliArgs{reprocess: *reprocess}
	args.params = cycledomain.RunParams{
		CycleCode:   *cycleCode,
		CompanyCode: *companyCode,
		Dev:         *dev,
		TestBilling: *testBilling,
		RerunTaxes:  *rerunTaxes,
		NoTaxes:     *noTaxes,
		NoUsage:     *noUsage,
	}

	if *billDate == "" {
		args.params.BillDate = time.Now().UTC().Truncate(24 * time.Hour)
	} else {
		d, err := time.Parse(billDateLayout, *billDate)
		if err != nil {
			return cliArgs{}, fmt.Errorf("invalid -bill-date %q: %w", *billDate, err)
		}
		args.params.BillDate = d
	}

	if *accountIDs != "" {
		for _, tok := range strings.Split(*accountIDs, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			id, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return cliArgs{}, fmt.Errorf("invalid account id %q", tok)
			}
			args.params.AccountIDs = append(args.params.AccountIDs, id)
		}
	}

	if args.reprocess == 0 {
		if err := args.params.Validate(); err != nil {
			return cliArgs{}, err
		}
	}
	return args, nil
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
