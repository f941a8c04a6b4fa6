package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mroshb/islands/internal/config"
	"github.com/mroshb/islands/internal/database"
	"github.com/mroshb/islands/internal/models"
	"github.com/mroshb/islands/internal/persistence"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Islands"

var header = []interface{}{
	"ID", "Name", "Owner", "Size", "Public", "Members", "Workers",
	"Contribution", "Resets", "Center X", "Center Z", "Created", "Last Activity",
}

func main() {
	out := flag.String("out", "islands.xlsx", "output file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect database:", err)
	}
	if db == nil {
		log.Fatal("export needs a database; DB_DRIVER is none")
	}

	islands, ok := persistence.NewStore(db).LoadAllIslands(context.Background())
	if !ok {
		log.Fatal("failed to load islands")
	}

	if err := writeWorkbook(*out, islands); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Exported %d islands to %s\n", len(islands), *out)
}

func writeWorkbook(path string, islands []*models.Island) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	for i, isl := range islands {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := islandRow(isl)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func islandRow(isl *models.Island) []interface{} {
	members := make([]string, 0, len(isl.Members))
	for _, m := range isl.Members {
		members = append(members, m.Name)
	}
	workers := make([]string, 0, len(isl.Workers))
	for _, w := range isl.Workers {
		workers = append(workers, w.Name)
	}

	return []interface{}{
		isl.ID,
		isl.Name,
		isl.OwnerName,
		isl.Size,
		isl.IsPublic,
		strings.Join(members, ", "),
		strings.Join(workers, ", "),
		isl.ContributionTotal(),
		isl.TotalResets,
		isl.Spawn.Default.X,
		isl.Spawn.Default.Z,
		isl.CreatedAt.Format(time.RFC3339),
		isl.LastActivity.Format(time.RFC3339),
	}
}
