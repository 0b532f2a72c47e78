// Command validate checks the catalog JSON files in a config directory.
// It verifies JSON structure plus catalog consistency: unique item ids,
// known item kinds, non-negative costs, at least one defensive and one
// offensive item, and positive starting hit points.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lolney/codesiege/game/catalog"
)

// ValidationResult captures the outcome of validating a single file.
// When Valid is true, Notes carries informational lines; otherwise it
// accumulates the errors that were found.
type ValidationResult struct {
	File  string
	Valid bool
	Notes []string
}

// validateCatalog loads and validates a single catalog JSON file.
func validateCatalog(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Notes = append(result.Notes, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var config catalog.Config
	if err := json.Unmarshal(data, &config); err != nil {
		result.Valid = false
		result.Notes = append(result.Notes, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := catalog.Validate(&config); err != nil {
		result.Valid = false
		result.Notes = append(result.Notes, err.Error())
		return result
	}

	defensive, offensive := 0, 0
	for _, item := range config.Items {
		if item.Kind == catalog.KindDefensive {
			defensive++
		} else {
			offensive++
		}
	}
	result.Notes = append(result.Notes,
		fmt.Sprintf("Name: %s", config.Name),
		fmt.Sprintf("Items: %d defensive, %d offensive", defensive, offensive),
		fmt.Sprintf("Initial HP: %d", config.InitialHP),
		fmt.Sprintf("Initial resources: %v", config.InitialResources),
	)
	return result
}

// main scans the config directory for *.json files and validates each
// one, printing a concise report and exiting non-zero on any failure.
func main() {
	configDir := flag.String("config-dir", "../configs", "Directory containing catalog JSON files")
	flag.Parse()

	files, err := filepath.Glob(filepath.Join(*configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No catalog files found in %s\n", *configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateCatalog(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Println("VALID")
		} else {
			fmt.Println("INVALID")
			allValid = false
		}
		for _, note := range result.Notes {
			fmt.Println("  " + note)
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("All catalogs are valid")
	} else {
		fmt.Println("Some catalogs have errors")
		os.Exit(1)
	}
}
