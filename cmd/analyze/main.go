// Command analyze prints quick, human-readable heuristics about the economy
// files in the configs directory. It summarizes the tier ladder in clicks,
// how long each lab boost takes to pay for itself, and the expected return of
// the gamble terminal, and flags tunings that break the economy.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/idleclicker/game/config"
	"github.com/wricardo/mcp-training/idleclicker/game/engine"
)

// TierStep is one rung of the rank ladder
type TierStep struct {
	Name      string
	MinPoints int64
	Gap       int64
	Clicks    int64
}

// BoostPayback estimates the return of one boost purchase at prestige 0
type BoostPayback struct {
	Kind   engine.BoostKind
	Effect engine.BoostEffect
	Cost   int64
	// Return is the points earned over one activation without extra clicking
	Return int64
	// ClicksToRecover is the number of clicks whose bonus covers the cost
	ClicksToRecover int64
	Measurable      bool
}

// Net is the passive profit of one activation
func (b BoostPayback) Net() int64 { return b.Return - b.Cost }

// Report is the analysis of one economy
type Report struct {
	Name           string
	Description    string
	TicksPerMinute float64
	Tiers          []TierStep
	Ascension      TierStep
	Boosts         []BoostPayback
	WagerReturn    float64
	ShieldedReturn float64
	Warnings       []string
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Summarize economy configuration files",
		ArgsUsage: "[file ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory scanned when no files are given"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				found, err := economyFiles(cmd.String("config-dir"))
				if err != nil {
					return err
				}
				files = found
			}
			if len(files) == 0 {
				return fmt.Errorf("no economy files found")
			}

			out := cmd.Root().Writer
			if out == nil {
				out = os.Stdout
			}
			for _, file := range files {
				fmt.Fprintf(out, "\n=== Analyzing %s ===\n", file)
				economy, err := config.LoadFile(file)
				if err != nil {
					fmt.Fprintf(out, "Error loading file: %v\n", err)
					continue
				}
				printReport(out, analyzeEconomy(economy))
			}
			return nil
		},
	}
}

// economyFiles lists the JSON and TOML files in dir
func economyFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.toml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

func analyzeEconomy(economy *engine.EconomyConfig) Report {
	report := Report{
		Name:        economy.Name,
		Description: economy.Description,
	}
	tick := economy.TickInterval.Std()
	if tick > 0 {
		report.TicksPerMinute = float64(60e9) / float64(tick)
	}

	click := economy.Click.Base
	for i, tier := range economy.Tiers {
		step := TierStep{Name: tier.Name, MinPoints: tier.MinPoints}
		if i > 0 {
			step.Gap = tier.MinPoints - economy.Tiers[i-1].MinPoints
		}
		step.Clicks = ceilDiv(tier.MinPoints, click)
		report.Tiers = append(report.Tiers, step)
	}
	if economy.AscensionTier >= 0 && economy.AscensionTier < len(report.Tiers) {
		report.Ascension = report.Tiers[economy.AscensionTier]
	}

	for _, spec := range economy.Boosts {
		payback := BoostPayback{Kind: spec.Kind, Effect: spec.Effect, Cost: spec.Cost}
		switch spec.Effect {
		case engine.EffectPassiveIncome:
			if tick > 0 {
				payback.Return = spec.Rate * int64(spec.Duration.Std()/tick)
				payback.Measurable = true
			}
		case engine.EffectClickMultiplier:
			bonus := float64(click) * (spec.Multiplier - 1)
			payback.ClicksToRecover = clicksFor(spec.Cost, bonus)
			payback.Measurable = bonus > 0
		case engine.EffectCritical:
			bonus := float64(click) * spec.Chance * (spec.Multiplier - 1)
			payback.ClicksToRecover = clicksFor(spec.Cost, bonus)
			payback.Measurable = bonus > 0
		}
		report.Boosts = append(report.Boosts, payback)

		if spec.Effect == engine.EffectPassiveIncome && payback.Measurable && payback.Net() <= 0 {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s never pays for itself passively (cost %d, returns %d)", spec.Kind, spec.Cost, payback.Return))
		}
		if (spec.Effect == engine.EffectClickMultiplier || spec.Effect == engine.EffectCritical) && !payback.Measurable && spec.Cost > 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s adds nothing to a click", spec.Kind))
		}
	}

	w := economy.Wager
	win := w.JackpotChance*float64(w.JackpotMultiplier) + w.SuccessChance*float64(w.SuccessMultiplier)
	report.WagerReturn = win
	report.ShieldedReturn = win + (1 - w.JackpotChance - w.SuccessChance)
	if report.WagerReturn > 1 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("gamble terminal returns %.2f per point staked; wagering is a money printer", report.WagerReturn))
	}

	if economy.Clans.CreationCost > 0 && report.Ascension.MinPoints > 0 && economy.Clans.CreationCost > report.Ascension.MinPoints {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("founding a clan (%d) costs more than ascending (%d)", economy.Clans.CreationCost, report.Ascension.MinPoints))
	}
	return report
}

func printReport(out io.Writer, report Report) {
	fmt.Fprintf(out, "Name: %s\n", report.Name)
	if report.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", report.Description)
	}
	fmt.Fprintf(out, "Ticks per minute: %.1f\n", report.TicksPerMinute)

	fmt.Fprintf(out, "Tiers (%d):\n", len(report.Tiers))
	for _, tier := range report.Tiers {
		fmt.Fprintf(out, "   %-12s %12d points  (+%d, %d clicks)\n", tier.Name, tier.MinPoints, tier.Gap, tier.Clicks)
	}
	fmt.Fprintf(out, "Ascension at %s: %d points, %d clicks\n", report.Ascension.Name, report.Ascension.MinPoints, report.Ascension.Clicks)

	fmt.Fprintf(out, "Boosts (%d):\n", len(report.Boosts))
	for _, boost := range report.Boosts {
		switch {
		case boost.Effect == engine.EffectPassiveIncome && boost.Measurable:
			fmt.Fprintf(out, "   %-10s cost %6d  returns %6d  net %+d\n", boost.Kind, boost.Cost, boost.Return, boost.Net())
		case boost.Measurable:
			fmt.Fprintf(out, "   %-10s cost %6d  recovered after %d clicks\n", boost.Kind, boost.Cost, boost.ClicksToRecover)
		default:
			fmt.Fprintf(out, "   %-10s cost %6d  (%s, not measurable)\n", boost.Kind, boost.Cost, boost.Effect)
		}
	}

	fmt.Fprintf(out, "Wager return per point: %.2f (%.2f with shield)\n", report.WagerReturn, report.ShieldedReturn)

	if len(report.Warnings) == 0 {
		fmt.Fprintf(out, "✅ No balance problems found\n")
		return
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(out, "⚠️  WARNING: %s\n", warning)
	}
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// clicksFor returns the clicks needed for bonus-per-click to cover cost
func clicksFor(cost int64, bonus float64) int64 {
	if bonus <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(cost) / bonus))
}
