// Command seed loads reservation fixtures from YAML files into the reservations table.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/egov-portal/reserve-service/internal/adapters"
	"github.com/egov-portal/reserve-service/internal/config"
	"github.com/egov-portal/reserve-service/internal/database"
	"github.com/egov-portal/reserve-service/internal/database/migrations"
	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/egov-portal/reserve-service/internal/storage"
	dberrors "github.com/egov-portal/reserve-service/internal/storage/errors"
	"github.com/egov-portal/reserve-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Fixture бронирование в YAML файле
type Fixture struct {
	ID               string `yaml:"id"`
	ItemID           int64  `yaml:"item_id"`
	Category         string `yaml:"category"`
	LocationID       int64  `yaml:"location_id"`
	Quantity         int    `yaml:"quantity"`
	Purpose          string `yaml:"purpose"`
	Start            string `yaml:"start"`
	End              string `yaml:"end"`
	Status           string `yaml:"status"`
	InventoryHeld    bool   `yaml:"inventory_held"`
	RequesterID      string `yaml:"requester_id"`
	RequesterContact string `yaml:"requester_contact"`
	RequesterEmail   string `yaml:"requester_email"`
}

// FixturesFile корневой элемент YAML файла
type FixturesFile struct {
	Reservations []Fixture `yaml:"reservations"`
}

type stats struct {
	files    int
	inserted int
	skipped  int
	failed   int
}

func main() {
	_ = godotenv.Load()

	var (
		dir       string
		filesList string
		dsn       string
		migrate   bool
	)
	flag.StringVar(&dir, "dir", "fixtures", "directory scanned for *.yaml when --files is empty")
	flag.StringVar(&filesList, "files", "", "comma separated list of yaml files")
	flag.StringVar(&dsn, "dsn", os.Getenv("RESERVE_SVC_DATABASE_URL"), "Postgres connection string")
	flag.BoolVar(&migrate, "migrate", true, "apply migrations before loading")
	flag.Parse()

	if dsn == "" {
		log.Fatal("DSN is required (set --dsn or RESERVE_SVC_DATABASE_URL)")
	}

	files, err := fixtureFiles(dir, filesList)
	if err != nil {
		log.Fatalf("failed to collect fixture files: %v", err)
	}

	db, err := database.NewDB(&config.DatabaseConfig{
		URL:               dsn,
		MaxConnections:    4,
		MaxIdleTime:       time.Minute,
		HealthCheckPeriod: time.Minute,
		PingTimeout:       5 * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if migrate {
		if err := migrations.Apply(ctx, db.Pool(), logger.Named("migrations")); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
	}

	repo := storage.NewReservationRepository(&storage.RepositoryDependencies{
		DB:               adapters.NewDatabaseAdapter(db),
		MetricsCollector: adapters.NewMetricsAdapter("reservations"),
	})

	var st stats
	for _, path := range files {
		st.files++
		reservations, err := loadFile(path)
		if err != nil {
			log.Printf("skip %s: %v", path, err)
			st.failed++
			continue
		}

		for i := range reservations {
			r := &reservations[i]
			err := repo.WithItemLock(ctx, r.ItemID, func(txCtx context.Context) error {
				return repo.Create(txCtx, r)
			})
			switch {
			case err == nil:
				st.inserted++
			case dberrors.IsDuplicate(err):
				st.skipped++
			default:
				log.Printf("failed to insert %s from %s: %v", r.ReservationID, path, err)
				st.failed++
			}
		}
	}

	fmt.Printf("files: %d, inserted: %d, skipped: %d, failed: %d\n", st.files, st.inserted, st.skipped, st.failed)
	if st.failed > 0 {
		os.Exit(1)
	}
}

func fixtureFiles(dir, filesList string) ([]string, error) {
	if filesList != "" {
		return strings.Split(filesList, ","), nil
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && (strings.HasSuffix(d.Name(), ".yaml") || strings.HasSuffix(d.Name(), ".yml")) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func loadFile(path string) ([]models.Reservation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFixtures(data, time.Now())
}

// parseFixtures разбирает YAML и проверяет обязательные поля
func parseFixtures(data []byte, now time.Time) ([]models.Reservation, error) {
	var file FixturesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	reservations := make([]models.Reservation, 0, len(file.Reservations))
	for i, f := range file.Reservations {
		r, err := f.toReservation(now)
		if err != nil {
			return nil, fmt.Errorf("reservation #%d: %w", i+1, err)
		}
		reservations = append(reservations, r)
	}
	return reservations, nil
}

func (f Fixture) toReservation(now time.Time) (models.Reservation, error) {
	if f.ItemID <= 0 || f.Quantity <= 0 || f.RequesterID == "" {
		return models.Reservation{}, fmt.Errorf("item_id, quantity and requester_id are required")
	}

	start, err := time.Parse("2006-01-02", f.Start)
	if err != nil {
		return models.Reservation{}, fmt.Errorf("invalid start: %w", err)
	}
	end, err := time.Parse("2006-01-02", f.End)
	if err != nil {
		return models.Reservation{}, fmt.Errorf("invalid end: %w", err)
	}
	if end.Before(start) {
		return models.Reservation{}, models.ErrInvalidPeriod
	}

	r := models.NewReservation(f.ItemID, models.Category(f.Category), f.RequesterID, now)
	if f.ID != "" {
		if _, err := uuid.Parse(f.ID); err != nil {
			return models.Reservation{}, fmt.Errorf("invalid id: %w", err)
		}
		r.ReservationID = f.ID
	}
	if f.Status != "" {
		r.Status = models.Status(strings.ToUpper(f.Status))
	}
	r.LocationID = f.LocationID
	r.Quantity = f.Quantity
	r.Purpose = f.Purpose
	r.StartDate = start
	r.EndDate = end
	r.InventoryHeld = f.InventoryHeld
	r.RequesterContact = f.RequesterContact
	r.RequesterEmail = f.RequesterEmail
	return *r, nil
}
