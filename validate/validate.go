// Command validate provides a small CLI that validates economy configuration
// files (JSON or TOML) in the ../configs directory. It checks:
//   - Syntax and unknown keys (typos silently fall back to defaults otherwise)
//   - Every rule the server enforces when loading an economy
//   - The name field matches the file name
//   - Quest rewards and redemption codes stay within the tier ladder
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/wricardo/mcp-training/idleclicker/game/config"
	"github.com/wricardo/mcp-training/idleclicker/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// strictDecode rejects keys that do not map to an economy field
func strictDecode(data []byte, ext string) error {
	var target engine.EconomyConfig
	switch ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(&target)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(&target)
	}
}

// validateConfig loads and validates a single economy file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}
	ext := strings.ToLower(filepath.Ext(filePath))

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	if err := strictDecode(data, ext); err != nil {
		result.fail("Invalid %s: %v", strings.TrimPrefix(ext, "."), err)
		return result
	}

	economy, err := config.LoadFile(filePath)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	stem := strings.TrimSuffix(result.File, filepath.Ext(result.File))
	if economy.Name != stem {
		result.fail("Name %q does not match file name %q", economy.Name, stem)
	}

	top := economy.Tiers[len(economy.Tiers)-1].MinPoints
	ascension := economy.AscensionThreshold()
	result.info("Tiers: %d, ascension at %s (%d points)", len(economy.Tiers), economy.Tiers[economy.AscensionTier].Name, ascension)

	for _, quest := range economy.Quests {
		if quest.Reward > ascension {
			result.fail("Quest %s rewards %d, more than the ascension threshold %d", quest.ID, quest.Reward, ascension)
		}
	}
	result.info("Quests: %d", len(economy.Quests))

	for _, code := range economy.Codes {
		if code.Points > top {
			result.fail("Code %s grants %d points, beyond the top tier (%d)", engine.NormalizeCode(code.Code), code.Points, top)
		}
	}
	result.info("Codes: %d, boosts: %d", len(economy.Codes), len(economy.Boosts))

	return result
}

// main scans ../configs (or the directory given as the first argument) and
// validates each economy, printing a concise report and exiting with non-zero
// status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	var files []string
	for _, pattern := range []string{"*.json", "*.toml"} {
		matches, err := filepath.Glob(filepath.Join(configDir, pattern))
		if err != nil {
			fmt.Printf("Error finding config files: %v\n", err)
			os.Exit(1)
		}
		files = append(files, matches...)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All economies are valid!")
	} else {
		fmt.Println("❌ Some economies have errors")
		os.Exit(1)
	}
}
