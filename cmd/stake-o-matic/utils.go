// Copyright (c) 2021 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"encoding/hex"
	"log/slog"
	"os"
	"strings"

	isatty "github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/BancambiosDeFi/stake-o-matic/log"
	"github.com/BancambiosDeFi/stake-o-matic/reconcile"
	"github.com/BancambiosDeFi/stake-o-matic/sol"
)

func initLogger(ctx *cli.Context) {
	level := log.FromLegacyLevel(ctx.Int(verbosityFlag.Name))

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(os.Stderr, level)
	} else {
		useColor := isatty.IsTerminal(os.Stderr.Fd())
		var lvl slog.LevelVar
		lvl.Set(level)
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, &lvl, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
}

// loadStakerKey reads the staker's hex-encoded 32-byte seed.
func loadStakerKey(path string) (*sol.Keypair, error) {
	if path == "" {
		return nil, errors.New("no staker key given, see --staker-key")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessage(err, "read staker key")
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(content)))
	if err != nil {
		return nil, errors.WithMessage(err, "decode staker key")
	}
	return sol.KeypairFromSeed(seed)
}

type validatorsFile struct {
	Validators []struct {
		Identity string `yaml:"identity"`
		Vote     string `yaml:"vote"`
		Tier     string `yaml:"tier"`
	} `yaml:"validators"`
}

// loadDesiredValidators parses the desired validator assignment.
func loadDesiredValidators(path string) ([]reconcile.DesiredEntry, error) {
	if path == "" {
		return nil, errors.New("no validator list given, see --validators")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessage(err, "read validator list")
	}

	var file validatorsFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, errors.WithMessage(err, "parse validator list")
	}

	desired := make([]reconcile.DesiredEntry, 0, len(file.Validators))
	for i, v := range file.Validators {
		identity, err := sol.ParseAddress(v.Identity)
		if err != nil {
			return nil, errors.WithMessagef(err, "validator #%d identity", i)
		}
		vote, err := sol.ParseAddress(v.Vote)
		if err != nil {
			return nil, errors.WithMessagef(err, "validator #%d vote", i)
		}

		var tier reconcile.Tier
		switch strings.ToLower(v.Tier) {
		case "", "none":
			tier = reconcile.TierNone
		case "baseline":
			tier = reconcile.TierBaseline
		case "bonus":
			tier = reconcile.TierBonus
		default:
			return nil, errors.Errorf("validator #%d: unknown tier %q", i, v.Tier)
		}

		desired = append(desired, reconcile.DesiredEntry{
			Identity: identity,
			Vote:     vote,
			Tier:     tier,
		})
	}
	return desired, nil
}
