package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rl1809/maintenance-engine/internal/adapter/storage"
	"github.com/rl1809/maintenance-engine/internal/core/domain"
	"github.com/rl1809/maintenance-engine/internal/core/service"
	"github.com/rl1809/maintenance-engine/internal/port"
)

const (
	initialStock  = 20
	totalRequests = 50
)

// Promotes many DEDUCT schedules against one item at once and checks that
// stock never goes negative and exactly initialStock promotions succeed.
func main() {
	dsn := flag.String("dsn", "", "MySQL DSN; in-memory storage when empty")
	flag.Parse()

	ctx := context.Background()

	var db port.DatabaseRepository
	if *dsn == "" {
		db = storage.NewMemoryAdapter()
	} else {
		sqlDB, err := sqlx.Open("mysql", *dsn)
		if err != nil {
			log.Fatalf("failed to open mysql: %v", err)
		}
		defer sqlDB.Close()
		if err := storage.Migrate(sqlDB.DB); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
		db = storage.NewMySQLAdapter(sqlDB)
	}

	itemID := "stress-item-" + uuid.NewString()[:8]
	if err := db.Items().CreateItem(ctx, domain.InventoryItem{
		ID:        itemID,
		Title:     "Stress Test Scale",
		Quantity:  initialStock,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}); err != nil {
		log.Fatalf("failed to create item: %v", err)
	}

	engine := service.NewMaintenanceService(db, storage.NewMemoryCache(0), nil, service.Options{})

	scheduleIDs := make([]string, 0, totalRequests)
	for i := 0; i < totalRequests; i++ {
		s, err := engine.CreateSchedule(ctx, service.CreateScheduleInput{
			ItemID:           itemID,
			MaintenanceType:  domain.MaintenanceTypeServicing,
			ScheduledDate:    time.Now().AddDate(0, 0, i%10),
			InventoryAction:  domain.InventoryActionDeduct,
			QuantityAffected: 1,
		})
		if err != nil {
			log.Fatalf("failed to create schedule: %v", err)
		}
		scheduleIDs = append(scheduleIDs, s.ID)
	}

	var successCount, failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i, id := range scheduleIDs {
		wg.Add(1)
		go func(user int, scheduleID string) {
			defer wg.Done()
			result, _ := engine.CreateTicketFromSchedule(ctx, scheduleID, fmt.Sprintf("user-%d", user))
			if result.Outcome == service.OutcomePromoted {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i, id)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Promotions: %d\n", totalRequests)
	fmt.Printf("Promoted:         %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && fail == totalRequests-initialStock {
		fmt.Printf("PASS: exactly %d promotions succeeded\n", initialStock)
	} else {
		fmt.Printf("FAIL: expected %d promoted/%d failed, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	item, err := db.Items().GetItem(ctx, itemID)
	if err != nil || item == nil {
		log.Fatalf("failed to read item: %v", err)
	}
	fmt.Printf("Final Quantity:   %d (%s)\n", item.Quantity, item.Status)
	if item.Quantity == 0 && item.Status == domain.ItemStatusOutOfStock {
		fmt.Println("PASS: stock depleted to 0")
	} else {
		fmt.Printf("FAIL: expected quantity 0 OUT_OF_STOCK, got %d %s\n", item.Quantity, item.Status)
	}
}
