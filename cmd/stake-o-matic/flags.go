// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	rpcURLFlag = cli.StringFlag{
		Name:  "rpc-url",
		Value: "http://localhost:8899",
		Usage: "HTTP endpoint of the node to reconcile against",
	}
	stakerKeyFlag = cli.StringFlag{
		Name:  "staker-key",
		Usage: "path to the hex-encoded seed of the authorized staker key",
	}
	poolFlag = cli.StringFlag{
		Name:  "pool",
		Usage: "address of the stake pool account",
	}
	baselineFlag = cli.Uint64Flag{
		Name:  "baseline-sol",
		Value: 10,
		Usage: "baseline stake amount per validator, in whole SOL",
	}
	validatorsFlag = cli.StringFlag{
		Name:  "validators",
		Usage: "path to the YAML file listing desired validators and tiers",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "metrics service listening address (disabled when empty)",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-5)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	dryRunFlag = cli.BoolFlag{
		Name:  "dry-run",
		Usage: "plan without submitting transactions (reserved)",
	}
)
