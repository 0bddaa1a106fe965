package main

import (
	"encoding/csv"
	"log"
	"os"
	"strconv"
	"strings"

	"educhain/config"
	"educhain/database"
	courseModels "educhain/models/course"
)

func main() {
	// Load config and connect to database
	config.LoadConfig()
	database.ConnectDb()

	// Open CSV file
	file, err := os.Open("CourseCatalog.csv")
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	// Create CSV reader
	reader := csv.NewReader(file)

	// Read all records
	records, err := reader.ReadAll()
	if err != nil {
		log.Fatalf("Failed to read CSV: %v", err)
	}

	if len(records) < 2 {
		log.Fatal("CSV file is empty or has only headers")
	}

	// Skip header row
	header := records[0]
	log.Printf("CSV Headers: %v", header)
	log.Printf("Total rows to import: %d", len(records)-1)

	// Map header indices
	headerIndex := make(map[string]int)
	for i, h := range header {
		headerIndex[strings.TrimSpace(h)] = i
	}

	inserted := 0
	updated := 0
	skipped := 0

	for i, row := range records[1:] {
		if i%100 == 0 {
			log.Printf("Processing row %d...", i+1)
		}

		title := strings.TrimSpace(row[headerIndex["Title"]])
		if title == "" {
			skipped++
			continue
		}

		duration, _ := strconv.ParseInt(strings.TrimSpace(row[headerIndex["DurationSeconds"]]), 10, 64)
		incentivized := strings.EqualFold(strings.TrimSpace(row[headerIndex["IsIncentivized"]]), "true")

		course := courseModels.Course{
			Title:           title,
			Description:     strings.TrimSpace(row[headerIndex["Description"]]),
			Author:          strings.TrimSpace(row[headerIndex["Author"]]),
			DurationSeconds: duration,
			IsIncentivized:  incentivized,
			Status:          "ACTIVE",
			IsPublished:     true,
		}

		// Update existing course by title, insert otherwise
		var existing courseModels.Course
		err := database.Database.Db.Where("title = ? AND is_deleted = ?", title, false).First(&existing).Error
		if err == nil {
			existing.Description = course.Description
			existing.Author = course.Author
			existing.DurationSeconds = course.DurationSeconds
			existing.IsIncentivized = course.IsIncentivized
			if err := database.Database.Db.Save(&existing).Error; err != nil {
				log.Printf("Failed to update course %s: %v", title, err)
				skipped++
				continue
			}
			updated++
			continue
		}

		if err := database.Database.Db.Create(&course).Error; err != nil {
			log.Printf("Failed to insert course %s: %v", title, err)
			skipped++
			continue
		}
		inserted++
	}

	log.Printf("Import finished. Inserted: %d, Updated: %d, Skipped: %d", inserted, updated, skipped)
}
