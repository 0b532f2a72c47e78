// Command analyze prints quick, human-readable heuristics about the
// catalog files in a config directory. It summarizes item costs, how
// many of each item the starting balance affords, and flags items a
// fresh player can never build.
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

// affordable returns how many copies of cost the balances cover, or -1
// for a free item.
func affordable(balances, cost map[string]int64) int64 {
	var limit int64 = -1
	for name, count := range cost {
		if count == 0 {
			continue
		}
		n := balances[name] / count
		if limit == -1 || n < limit {
			limit = n
		}
	}
	return limit
}

func costString(cost map[string]int64) string {
	var parts []string
	for name, count := range cost {
		if count > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", name, count))
		}
	}
	if len(parts) == 0 {
		return "free"
	}
	return strings.Join(parts, " ")
}

func analyzeCatalog(config *catalog.Config) []string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Catalog: %s", config.Name))
	lines = append(lines, fmt.Sprintf("Initial HP: %d", config.InitialHP))
	lines = append(lines, fmt.Sprintf("Initial resources: %s", costString(config.InitialResources)))

	for _, item := range config.Items {
		n := affordable(config.InitialResources, item.Cost)
		line := fmt.Sprintf("  [%s] %-12s %-9s cost: %-20s", item.ID, item.Name, item.Kind, costString(item.Cost))
		switch {
		case n == -1:
			line += "builds: unlimited"
		case n == 0:
			line += "builds: NONE (unaffordable at start)"
		default:
			line += fmt.Sprintf("builds: %d", n)
		}
		lines = append(lines, line)
	}

	bots := affordable(config.InitialResources, config.AssaultBotCost)
	lines = append(lines, fmt.Sprintf("  assault bot cost: %s, affordable at start: %d", costString(config.AssaultBotCost), bots))
	return lines
}

func main() {
	configDir := flag.String("config-dir", "../../configs", "Directory containing catalog JSON files")
	flag.Parse()

	files, err := filepath.Glob(filepath.Join(*configDir, "*.json"))
	if err != nil || len(files) == 0 {
		fmt.Printf("No catalog files found in %s\n", *configDir)
		os.Exit(1)
	}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			fmt.Printf("%s: read failed: %v\n", filepath.Base(file), err)
			continue
		}
		var config catalog.Config
		if err := json.Unmarshal(data, &config); err != nil {
			fmt.Printf("%s: invalid JSON: %v\n", filepath.Base(file), err)
			continue
		}

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), filepath.Base(file))
		for _, line := range analyzeCatalog(&config) {
			fmt.Println(line)
		}
	}
}
