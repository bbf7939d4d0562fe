package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math/rand"
	"time"
)

// Sample data vocabulary for the demo sales dataset.
var (
	sampleProducts = map[string][]string{
		"Electronics": {"Laptop", "Monitor", "Keyboard", "Webcam"},
		"Furniture":   {"Desk", "Chair", "Bookshelf"},
		"Stationery":  {"Notebook", "Pen Set", "Stapler"},
	}
	samplePrices = map[string]float64{
		"Laptop": 1199.99, "Monitor": 349.50, "Keyboard": 89.90, "Webcam": 59.00,
		"Desk": 420.00, "Chair": 189.99, "Bookshelf": 240.00,
		"Notebook": 4.50, "Pen Set": 12.75, "Stapler": 8.20,
	}
	salespeople = []string{"Alice Young", "Ben Carter", "Chen Wei", "Dana Flores", "Elif Demir"}
	regions     = []string{"North", "South", "East", "West"}
)

// SampleSalesCSV renders a deterministic demo sales dataset as CSV.
// It mirrors the schema users are expected to upload: Date, Product,
// Category, Price, Quantity, Salesperson, Region.
func SampleSalesCSV(rows int, seed int64) []byte {
	if rows <= 0 {
		rows = 200
	}
	rng := rand.New(rand.NewSource(seed))

	categories := make([]string, 0, len(sampleProducts))
	for cat := range sampleProducts {
		categories = append(categories, cat)
	}
	// Map iteration order is random; sort for determinism.
	for i := 1; i < len(categories); i++ {
		for j := i; j > 0 && categories[j] < categories[j-1]; j-- {
			categories[j], categories[j-1] = categories[j-1], categories[j]
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"Date", "Product", "Category", "Price", "Quantity", "Salesperson", "Region"})

	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		cat := categories[rng.Intn(len(categories))]
		products := sampleProducts[cat]
		product := products[rng.Intn(len(products))]
		date := start.AddDate(0, 0, rng.Intn(365))
		w.Write([]string{
			date.Format("2006-01-02"),
			product,
			cat,
			fmt.Sprintf("%.2f", samplePrices[product]),
			fmt.Sprintf("%d", 1+rng.Intn(8)),
			salespeople[rng.Intn(len(salespeople))],
			regions[rng.Intn(len(regions))],
		})
	}
	w.Flush()
	return buf.Bytes()
}

// SampleSales parses the demo CSV into a Dataset.
func SampleSales(rows int, seed int64) (*Dataset, error) {
	return Parse("sales_data.csv", bytes.NewReader(SampleSalesCSV(rows, seed)))
}
