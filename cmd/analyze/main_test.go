package main

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/idleclicker/game/engine"
)

func findBoost(t *testing.T, report Report, kind engine.BoostKind) BoostPayback {
	t.Helper()
	for _, boost := range report.Boosts {
		if boost.Kind == kind {
			return boost
		}
	}
	t.Fatalf("Boost %s not in report", kind)
	return BoostPayback{}
}

func TestAnalyzeEconomy_Default(t *testing.T) {
	report := analyzeEconomy(engine.DefaultEconomyConfig())

	if report.Name != "default" {
		t.Errorf("Expected name default, got %s", report.Name)
	}
	if report.TicksPerMinute != 60 {
		t.Errorf("Expected 60 ticks per minute, got %v", report.TicksPerMinute)
	}
	if len(report.Tiers) != 13 {
		t.Errorf("Expected 13 tiers, got %d", len(report.Tiers))
	}
	if report.Ascension.Name != "Emperor" || report.Ascension.Clicks != 4500 {
		t.Errorf("Expected ascension at Emperor after 4500 clicks, got %+v", report.Ascension)
	}
	if report.Tiers[2].Gap != 400 {
		t.Errorf("Expected Warrior gap 400, got %d", report.Tiers[2].Gap)
	}

	barium := findBoost(t, report, engine.BoostBarium)
	if !barium.Measurable || barium.Return != 300 || barium.Net() != 150 {
		t.Errorf("Expected barium to return 300 for net 150, got %+v", barium)
	}

	radium := findBoost(t, report, engine.BoostRadium)
	if radium.ClicksToRecover != 500 {
		t.Errorf("Expected radium to pay back after 500 clicks, got %d", radium.ClicksToRecover)
	}

	xenon := findBoost(t, report, engine.BoostXenon)
	if xenon.Measurable {
		t.Error("Expected shield boost to be unmeasurable")
	}

	if math.Abs(report.WagerReturn-1.3) > 1e-9 {
		t.Errorf("Expected wager return 1.3, got %v", report.WagerReturn)
	}
	if math.Abs(report.ShieldedReturn-1.85) > 1e-9 {
		t.Errorf("Expected shielded return 1.85, got %v", report.ShieldedReturn)
	}
}

func TestAnalyzeEconomy_Warnings(t *testing.T) {
	report := analyzeEconomy(engine.DefaultEconomyConfig())

	expected := []string{"plutonium never pays", "antimatter never pays", "money printer", "founding a clan"}
	all := strings.Join(report.Warnings, "\n")
	for _, want := range expected {
		if !strings.Contains(all, want) {
			t.Errorf("Expected warning containing %q, got:\n%s", want, all)
		}
	}
	if len(report.Warnings) != len(expected) {
		t.Errorf("Expected %d warnings, got %d", len(expected), len(report.Warnings))
	}
}

func TestAnalyzeEconomy_Balanced(t *testing.T) {
	economy := engine.DefaultEconomyConfig()
	economy.Wager.JackpotChance = 0.01
	economy.Wager.SuccessChance = 0.3
	economy.Clans.CreationCost = 1000
	var boosts []engine.BoostSpec
	for _, spec := range economy.Boosts {
		if spec.Effect == engine.EffectPassiveIncome {
			spec.Cost = 10
		}
		boosts = append(boosts, spec)
	}
	economy.Boosts = boosts

	report := analyzeEconomy(economy)
	if len(report.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", report.Warnings)
	}
}

func TestAnalyzeEconomy_SlowTicks(t *testing.T) {
	economy := engine.DefaultEconomyConfig()
	economy.TickInterval = engine.Duration(2 * time.Second)

	report := analyzeEconomy(economy)
	if report.TicksPerMinute != 30 {
		t.Errorf("Expected 30 ticks per minute, got %v", report.TicksPerMinute)
	}
	barium := findBoost(t, report, engine.BoostBarium)
	if barium.Return != 150 {
		t.Errorf("Expected barium to return 150 at 2s ticks, got %d", barium.Return)
	}
}

func TestPrintReport(t *testing.T) {
	var out bytes.Buffer
	printReport(&out, analyzeEconomy(engine.DefaultEconomyConfig()))

	for _, want := range []string{"Name: default", "Tiers (13):", "Ascension at Emperor", "barium", "Wager return per point: 1.30", "WARNING"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out.String())
		}
	}
}

func TestEconomyFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.toml", "a.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(""), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	files, err := economyFiles(dir)
	if err != nil {
		t.Fatalf("Failed to list files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %v", files)
	}
	if filepath.Base(files[0]) != "a.json" || filepath.Base(files[1]) != "b.toml" {
		t.Errorf("Expected sorted a.json, b.toml, got %v", files)
	}
}

func TestCommand(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hardcore.toml"), []byte("name = \"hardcore\"\n\n[click]\nbase = 5\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	if err := cmd.Run(context.Background(), []string{"analyze", "--config-dir", dir}); err != nil {
		t.Fatalf("Command failed: %v", err)
	}

	if !strings.Contains(out.String(), "Name: hardcore") {
		t.Errorf("Expected hardcore report, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Ascension at Emperor: 4500 points, 900 clicks") {
		t.Errorf("Expected 900 clicks to ascend at base 5, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Error loading file") {
		t.Errorf("Expected broken file to be reported, got:\n%s", out.String())
	}
}

func TestCommand_NoFiles(t *testing.T) {
	cmd := newCommand()
	cmd.Writer = &bytes.Buffer{}
	if err := cmd.Run(context.Background(), []string{"analyze", "--config-dir", t.TempDir()}); err == nil {
		t.Error("Expected error when no economy files exist")
	}
}
