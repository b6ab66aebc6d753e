package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/instmulti/instmulti/browser"
	"github.com/instmulti/instmulti/chain"
	"github.com/instmulti/instmulti/config"
	"github.com/instmulti/instmulti/engine"
	"github.com/instmulti/instmulti/log"
	"github.com/instmulti/instmulti/storage"
	"github.com/olekukonko/tablewriter"
)

var version = "dev"

// sessionProvider adapts the browser manager to the engine's provider
// interface.
type sessionProvider struct {
	manager *browser.Manager
}

func (p sessionProvider) NewSession(ctx context.Context, account, proxy string) (engine.Session, error) {
	s, err := p.manager.NewSession(ctx, account, proxy)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (p sessionProvider) CloseSession(s engine.Session) {
	if bs, ok := s.(*browser.Session); ok {
		p.manager.CloseSession(bs)
	}
}

func statusLogger(workerID int, status engine.Status, label string, snap *engine.StatsSnapshot) {
	logger := slog.With(slog.Int("worker", workerID), slog.String("status", string(status)))
	if label != "" {
		logger = logger.With(slog.String("current", label))
	}
	if snap != nil {
		logger = logger.With(slog.Int("total", snap.TotalActions),
			slog.Int("successful", snap.SuccessfulActions), slog.Int("failed", snap.FailedActions))
	}
	logger.Debug("worker status")
}

func printRunSummary(snap engine.StatsSnapshot) {
	slog.Info("printing run summary")
	targets := snap.Targets
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Target < targets[j].Target
	})

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Target", "Account", "Successful", "Failed", "Outcome"})

	for _, ts := range targets {
		row := []string{ts.Target, ts.Account, strconv.Itoa(ts.Successful), strconv.Itoa(ts.Failed), string(ts.Outcome)}
		if ts.Outcome != engine.OutcomeCompleted {
			table.Rich(row, []tablewriter.Colors{{tablewriter.Normal, tablewriter.FgRedColor}, {tablewriter.Normal, tablewriter.FgRedColor}, {tablewriter.Normal, tablewriter.FgRedColor}, {tablewriter.Normal, tablewriter.FgRedColor}, {tablewriter.Normal, tablewriter.FgRedColor}})
		} else if ts.Failed > 0 {
			table.Rich(row, []tablewriter.Colors{{tablewriter.Normal, tablewriter.FgYellowColor}, {tablewriter.Normal, tablewriter.FgYellowColor}, {tablewriter.Normal, tablewriter.FgYellowColor}, {tablewriter.Normal, tablewriter.FgYellowColor}, {tablewriter.Normal, tablewriter.FgYellowColor}})
		} else {
			table.Append(row)
		}
	}
	table.SetFooter([]string{"total", strconv.Itoa(snap.AccountsProcessed) + " accounts",
		strconv.Itoa(snap.SuccessfulActions), strconv.Itoa(snap.FailedActions), snap.Duration.Round(time.Second).String()})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})
	table.SetBorder(false)
	table.Render()
}

func main() {
	configLoc := flag.String("c", "./config.yml", "The location of the configuration file. Built-in defaults are used when the file does not exist.")
	printVersion := flag.Bool("v", false, "The version of instmulti.")
	debugFlag := flag.Bool("debug", false, "Prints debug logs.")
	summaryFlag := flag.Bool("summary", false, "Print a per-target summary at the end of the run.")

	flag.Parse()

	if *printVersion {
		buildInfo, ok := debug.ReadBuildInfo()
		if ok {
			if buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
				fmt.Println(buildInfo.Main.Version)
				return
			}
		}
		fmt.Println(version)
		return
	}

	config.Debug = *debugFlag
	log.InitializeDefaultLogger()

	var conf *config.Config
	if _, err := os.Stat(*configLoc); err != nil {
		slog.Info(fmt.Sprintf("no config file at %s, using defaults", *configLoc))
		conf = config.DefaultConfig()
	} else {
		var cerr error
		conf, cerr = config.NewConfig(*configLoc)
		if cerr != nil {
			slog.Error(fmt.Sprintf("%v", cerr))
			os.Exit(1)
		}
	}

	store, err := storage.NewStore(conf.DataDir)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		os.Exit(1)
	}

	accounts, err := store.LoadAccounts()
	if err != nil {
		slog.Error(fmt.Sprintf("failed to load accounts: %v", err))
		os.Exit(1)
	}
	targets, err := store.LoadTargets()
	if err != nil {
		slog.Error(fmt.Sprintf("failed to load targets: %v", err))
		os.Exit(1)
	}
	steps, err := store.LoadChain()
	if err != nil {
		slog.Error(fmt.Sprintf("failed to load action chain: %v", err))
		os.Exit(1)
	}
	pool, err := store.LoadTexts()
	if err != nil {
		slog.Error(fmt.Sprintf("failed to load texts: %v", err))
		os.Exit(1)
	}

	res := chain.Validate(steps)
	for _, w := range res.Warnings {
		slog.Warn(w)
	}
	if !res.Valid() {
		for _, e := range res.Errors {
			slog.Error(e)
		}
		os.Exit(1)
	}

	var usable []storage.Account
	for _, a := range accounts {
		if !a.Active() {
			slog.Debug(fmt.Sprintf("skipping disabled account %s", a.Username))
			continue
		}
		warnings, err := storage.ValidateAccount(a)
		for _, w := range warnings {
			slog.Warn(fmt.Sprintf("account %s: %s", a.Username, w))
		}
		if err != nil {
			slog.Warn(fmt.Sprintf("skipping account %s: %v", a.Username, err))
			continue
		}
		usable = append(usable, a)
	}
	if conf.Safety.MaxAccounts > 0 && len(usable) > conf.Safety.MaxAccounts {
		slog.Warn(fmt.Sprintf("capping run to %d of %d accounts", conf.Safety.MaxAccounts, len(usable)))
		usable = usable[:conf.Safety.MaxAccounts]
	}
	if conf.Safety.MaxParallelWorkers > 0 && conf.Workers > conf.Safety.MaxParallelWorkers {
		slog.Warn(fmt.Sprintf("capping workers to %d", conf.Safety.MaxParallelWorkers))
		conf.Workers = conf.Safety.MaxParallelWorkers
	}

	var invalid []string
	for _, t := range targets {
		if !storage.ValidTarget(t) {
			invalid = append(invalid, t)
		}
	}
	if len(invalid) > 0 {
		slog.Error(fmt.Sprintf("invalid target usernames: %v", invalid))
		os.Exit(1)
	}

	manager := browser.NewManager(&conf.Browser)
	coordinator := engine.NewCoordinator(conf, sessionProvider{manager: manager}, statusLogger)

	ctx := log.ContextWithLogger(context.Background(), slog.Default())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		slog.Info("stop requested, finishing current steps")
		coordinator.Stop()
	}()

	snap, err := coordinator.Run(ctx, usable, targets, steps, pool)
	if err != nil {
		slog.Error(fmt.Sprintf("%v", err))
		os.Exit(1)
	}

	// usable was mutated in place by the workers
	for i := range accounts {
		for _, u := range usable {
			if accounts[i].Username == u.Username {
				accounts[i] = u
			}
		}
	}
	if err := store.SaveAccounts(accounts); err != nil {
		slog.Error(fmt.Sprintf("failed to save accounts: %v", err))
	}
	if err := store.SaveStats(snap); err != nil {
		slog.Error(fmt.Sprintf("failed to save statistics: %v", err))
	}

	if *summaryFlag {
		printRunSummary(snap)
	}
}
