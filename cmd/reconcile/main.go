// Command reconcile recomputes scope registry usage counters from the live
// price lists of one tenant and prints every counter that disagrees.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/internal/catalog"
	"github.com/smallbiznis/lingoflow/internal/clock"
	"github.com/smallbiznis/lingoflow/internal/config"
	"github.com/smallbiznis/lingoflow/internal/observability"
	"github.com/smallbiznis/lingoflow/internal/party"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	"github.com/smallbiznis/lingoflow/internal/scope"
	scopedomain "github.com/smallbiznis/lingoflow/internal/scope/domain"
	"github.com/smallbiznis/lingoflow/internal/settings"
	"github.com/smallbiznis/lingoflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type options struct {
	kinds     []partydomain.Kind
	orgID     snowflake.ID
	reconcile scopedomain.ReconcileOptions
}

func parseOptions(args []string) (options, error) {
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	kind := fs.String("kind", "", "party kind to reconcile: vendor or client (default both)")
	org := fs.String("org", "", "tenant id (defaults to DEFAULT_ORG)")
	apply := fs.Bool("apply", false, "recount drifted counters from the live price lists")
	addMissing := fs.Bool("add-missing", false, "with -apply, also add allow-list rows for values priced without one")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if *addMissing && !*apply {
		return options{}, fmt.Errorf("-add-missing requires -apply")
	}

	opts := options{reconcile: scopedomain.ReconcileOptions{Apply: *apply, AddMissing: *addMissing}}
	if *kind == "" {
		opts.kinds = []partydomain.Kind{partydomain.KindVendor, partydomain.KindClient}
	} else {
		k, err := partydomain.ParseKind(*kind)
		if err != nil {
			return options{}, fmt.Errorf("invalid -kind %q", *kind)
		}
		opts.kinds = []partydomain.Kind{k}
	}

	if *org != "" {
		id, err := snowflake.ParseString(*org)
		if err != nil || id == 0 {
			return options{}, fmt.Errorf("invalid -org %q", *org)
		}
		opts.orgID = id
	}
	return opts, nil
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	exitCode := 0
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(func(cfg config.Config) (*snowflake.Node, error) {
			return snowflake.NewNode(cfg.SnowflakeNode)
		}),
		db.Module,
		clock.Module,
		catalog.Module,
		party.Module,
		settings.Module,
		scope.Module,
		fx.NopLogger,
		fx.Invoke(func(lc fx.Lifecycle, sd fx.Shutdowner, cfg config.Config, svc scopedomain.Service, log *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					orgID := opts.orgID
					if orgID == 0 {
						orgID = snowflake.ID(cfg.DefaultOrgID)
					}
					drifts, err := run(ctx, svc, opts.kinds, orgID, opts.reconcile)
					if err != nil {
						log.Error("reconcile failed", zap.Error(err))
						exitCode = 1
					} else if len(drifts) > 0 && !opts.reconcile.Apply {
						exitCode = 3
					}
					if err == nil {
						if err := report(os.Stdout, drifts); err != nil {
							exitCode = 1
						}
					}
					return sd.Shutdown()
				},
			})
		}),
	)
	app.Run()
	os.Exit(exitCode)
}

func run(ctx context.Context, svc scopedomain.Service, kinds []partydomain.Kind, orgID snowflake.ID, opts scopedomain.ReconcileOptions) ([]scopedomain.Drift, error) {
	var all []scopedomain.Drift
	for _, kind := range kinds {
		drifts, err := svc.Reconcile(ctx, kind, orgID, opts)
		if err != nil {
			return nil, fmt.Errorf("reconcile %s: %w", kind, err)
		}
		all = append(all, drifts...)
	}
	return all, nil
}

func report(out io.Writer, drifts []scopedomain.Drift) error {
	if drifts == nil {
		drifts = []scopedomain.Drift{}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(drifts)
}
