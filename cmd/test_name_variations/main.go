// cmd/test_name_variations/main.go
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/AI-Template-SDK/visibility-workflows/internal/mentions"
	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
	"github.com/AI-Template-SDK/visibility-workflows/internal/visibility"
)

// Usage: test_name_variations "HubSpot,Salesforce" [file]
// Reads the response text from file, or stdin when no file is given.
func main() {
	fmt.Println("=== Testing Brand Mention Detection ===")

	if len(os.Args) < 2 {
		log.Fatal("❌ Error: pass a comma separated brand list, e.g. \"HubSpot,Salesforce\"")
	}

	var brands []models.Brand
	for i, name := range strings.Split(os.Args[1], ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		brands = append(brands, models.Brand{ID: fmt.Sprintf("brand-%d", i+1), Name: name})
	}

	in := io.Reader(os.Stdin)
	if len(os.Args) > 2 {
		f, err := os.Open(os.Args[2])
		if err != nil {
			log.Fatalf("❌ Error opening %s: %v", os.Args[2], err)
		}
		defer f.Close()
		in = f
	}
	text, err := io.ReadAll(in)
	if err != nil {
		log.Fatalf("❌ Error reading response text: %v", err)
	}

	fmt.Printf("   Brands: %d\n", len(brands))
	fmt.Printf("   Response length: %d bytes\n\n", len(text))

	candidates := mentions.NewDetector(brands).Detect(string(text))
	byID := make(map[string]string, len(brands))
	for _, b := range brands {
		byID[b.ID] = b.Name
	}

	fmt.Printf("✅ Found %d mentions:\n", len(candidates))
	counts := map[string]int{}
	for i, c := range candidates {
		position := "variation"
		if c.Position != nil {
			position = fmt.Sprintf("#%d", *c.Position)
		}
		fmt.Printf("   %2d. %-20s %-10s %q\n", i+1, byID[c.BrandID], position, c.Context)
		counts[c.BrandID]++
	}

	fmt.Println("\n=== Ranking ===")
	for i, r := range visibility.RankCompetitors(brands, counts) {
		fmt.Printf("   %2d. %-20s %d\n", i+1, r.Name, r.Mentions)
	}
}
