// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/BancambiosDeFi/stake-o-matic/chain"
	"github.com/BancambiosDeFi/stake-o-matic/log"
	"github.com/BancambiosDeFi/stake-o-matic/metrics"
	"github.com/BancambiosDeFi/stake-o-matic/reconcile"
	"github.com/BancambiosDeFi/stake-o-matic/rpcclient"
	"github.com/BancambiosDeFi/stake-o-matic/sol"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "stake-o-matic",
		Usage:     "stake pool reconciliation driver",
		Copyright: "2021 Bancambios DeFi",
		Flags: []cli.Flag{
			rpcURLFlag,
			stakerKeyFlag,
			poolFlag,
			baselineFlag,
			validatorsFlag,
			metricsAddrFlag,
			verbosityFlag,
			jsonLogsFlag,
			dryRunFlag,
		},
		Action: reconcileAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func reconcileAction(ctx *cli.Context) error {
	initLogger(ctx)

	if addr := ctx.String(metricsAddrFlag.Name); addr != "" {
		metrics.InitializePrometheusMetrics()
		go func() {
			if err := http.ListenAndServe(addr, metrics.HTTPHandler()); err != nil {
				logger.Warn("metrics server stopped", "err", err)
			}
		}()
	}

	staker, err := loadStakerKey(ctx.String(stakerKeyFlag.Name))
	if err != nil {
		return err
	}

	poolAddr, err := sol.ParseAddress(ctx.String(poolFlag.Name))
	if err != nil {
		return errors.WithMessage(err, "parse pool address")
	}

	desired, err := loadDesiredValidators(ctx.String(validatorsFlag.Name))
	if err != nil {
		return err
	}

	baseline := ctx.Uint64(baselineFlag.Name) * sol.LamportsPerSOL

	gateway := chain.NewGateway(rpcclient.New(ctx.String(rpcURLFlag.Name)))

	info, err := gateway.EpochInfo()
	if err != nil {
		return errors.WithMessage(err, "fetch epoch info")
	}
	logger.Info("starting reconciliation",
		"epoch", info.Epoch,
		"pool", poolAddr,
		"staker", staker.Address(),
		"validators", len(desired))

	engine, err := reconcile.New(gateway, staker, poolAddr, baseline)
	if err != nil {
		return err
	}

	report, err := engine.Reconcile(desired, ctx.Bool(dryRunFlag.Name))
	if err != nil {
		return err
	}
	for _, note := range report.Notes {
		fmt.Println(note)
	}
	if !report.AllOK {
		return errors.New("reconciliation incomplete, some transactions failed")
	}
	logger.Info("reconciliation done")
	return nil
}
