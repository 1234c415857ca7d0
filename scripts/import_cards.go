package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/content"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
)

// CardImport is one row of the card spreadsheet export.
type CardImport struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Power     int      `yaml:"power"`
	Stat      string   `yaml:"stat,omitempty"`
	Health    int      `yaml:"health"`
	Sigils    []string `yaml:"sigils,omitempty"`
	Cost      string   `yaml:"cost,omitempty"`
	Gems      []string `yaml:"gems,omitempty"`
	Evolution string   `yaml:"evolution,omitempty"`
}

type catalogOut struct {
	Cards []*CardImport             `yaml:"cards"`
	Decks map[string]fight.DeckList `yaml:"decks,omitempty"`
}

// columns are the header names the export must carry, in any order.
var columns = []string{"id", "name", "power", "health", "stat", "sigils", "cost", "gems", "evolution"}

func main() {
	csvPath := flag.String("csv", "data/cards_export.csv", "card spreadsheet export")
	outPath := flag.String("out", "internal/content/cards.yaml", "catalog file to write")
	decksFrom := flag.String("decks-from", "", "existing catalog whose decks are kept")
	flag.Parse()

	absPath, err := filepath.Abs(*csvPath)
	if err != nil {
		log.Fatalf("Failed to get absolute path: %v", err)
	}

	fmt.Println("=== Card Catalog Import ===")
	fmt.Printf("CSV file: %s\n", absPath)

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		log.Fatalf("CSV file not found: %s", absPath)
	}

	file, err := os.Open(absPath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		log.Fatalf("Failed to read CSV: %v", err)
	}
	if len(records) < 2 {
		log.Fatal("CSV file is empty or has no data rows")
	}

	index, err := headerIndex(records[0])
	if err != nil {
		log.Fatalf("Bad CSV header: %v", err)
	}
	fmt.Printf("Found %d cards in CSV\n", len(records)-1)

	out := catalogOut{Cards: make([]*CardImport, 0, len(records)-1)}
	skipped := 0
	for i, record := range records[1:] {
		card, err := parseRow(record, index)
		if err != nil {
			log.Printf("Warning: Skipping row %d - %v", i+2, err)
			skipped++
			continue
		}
		out.Cards = append(out.Cards, card)
	}

	if *decksFrom != "" {
		decks, err := loadDecks(*decksFrom)
		if err != nil {
			log.Fatalf("Failed to read decks: %v", err)
		}
		out.Decks = decks
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		log.Fatalf("Failed to encode catalog: %v", err)
	}

	// The written file must load exactly as the server will load it.
	catalog, err := content.ParseCatalog(data)
	if err != nil {
		log.Fatalf("Imported catalog is invalid: %v", err)
	}

	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		log.Fatalf("Failed to write catalog: %v", err)
	}

	fmt.Println("\n=== Import Complete ===")
	fmt.Printf("Cards imported: %d\n", len(catalog.IDs()))
	fmt.Printf("Decks kept: %d\n", len(catalog.DeckNames()))
	fmt.Printf("Rows skipped: %d\n", skipped)
	fmt.Printf("Catalog: %s\n", *outPath)
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}
	return index, nil
}

func parseRow(record []string, index map[string]int) (*CardImport, error) {
	get := func(col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	card := &CardImport{
		ID:        get("id"),
		Name:      get("name"),
		Stat:      get("stat"),
		Cost:      get("cost"),
		Sigils:    splitList(get("sigils")),
		Gems:      splitList(get("gems")),
		Evolution: get("evolution"),
	}
	if card.ID == "" {
		return nil, fmt.Errorf("no id")
	}

	var err error
	if card.Power, err = parseStat(get("power")); err != nil {
		return nil, fmt.Errorf("power: %w", err)
	}
	if card.Health, err = parseStat(get("health")); err != nil {
		return nil, fmt.Errorf("health: %w", err)
	}
	return card, nil
}

func parseStat(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// splitList reads "airborne; waterborne" style cells.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadDecks(path string) (map[string]fight.DeckList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var existing catalogOut
	if err := yaml.Unmarshal(data, &existing); err != nil {
		return nil, err
	}
	return existing.Decks, nil
}
