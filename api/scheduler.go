/*
scheduler.go - Automated recurring transaction scheduler

PURPOSE:
  Periodically materializes due recurring transactions so that a monthly
  rent or weekly subscription keeps appearing without the client asking.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Tracks user ids observed on authenticated requests; partitions are
    keyed by user, so there is no global user scan to lean on
  - Delegates the actual series math to ledger.MaterializeRecurring,
    which is idempotent per occurrence date

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRecurringScheduler(ledger)
  handler.OnAuthenticated(scheduler.Track)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - ledger/recurring.go: MaterializeRecurring
  - handlers.go: OnAuthenticated hook
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/finance-ledger/ledger"
)

// RecurringScheduler materializes recurring transactions in the
// background for every user it has seen authenticate.
type RecurringScheduler struct {
	Ledger        *ledger.Ledger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
	users  map[string]struct{}
}

// NewRecurringScheduler creates a new scheduler.
func NewRecurringScheduler(l *ledger.Ledger) *RecurringScheduler {
	return &RecurringScheduler{
		Ledger:        l,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
		users:         make(map[string]struct{}),
	}
}

// Track registers a user for background materialization. Safe to call
// from request handlers.
func (rs *RecurringScheduler) Track(userID string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.users[userID] = struct{}{}
}

// Start begins the scheduler.
func (rs *RecurringScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler. The mutex is released before waiting on the
// run goroutine, which takes the same mutex inside checkAndProcess.
func (rs *RecurringScheduler) Stop() {
	rs.mu.Lock()
	ticker := rs.ticker
	rs.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RecurringScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndProcess()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndProcess()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RecurringScheduler) checkAndProcess() {
	ctx := context.Background()
	today := time.Now().UTC().Format("2006-01-02")

	rs.mu.Lock()
	users := make([]string, 0, len(rs.users))
	for id := range rs.users {
		users = append(users, id)
	}
	rs.mu.Unlock()

	createdCount := 0
	for _, userID := range users {
		created, err := rs.Ledger.MaterializeRecurring(ctx, userID, today)
		if err != nil {
			log.Printf("[Scheduler] Error materializing for %s: %v", userID, err)
		}
		createdCount += len(created)
	}

	if createdCount > 0 {
		log.Printf("[Scheduler] Materialized %d recurring transactions for %d users", createdCount, len(users))
	}
}
