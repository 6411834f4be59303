package worker

import (
	"context"
	"log"
	"time"

	"tripchat/chat"
)

// RetentionWorker permanently removes soft-deleted messages once they are
// older than the configured retention window. Redacted tombstones stay
// visible in history until this worker purges them.
type RetentionWorker struct {
	Store         chat.Store
	RetentionDays int
	Logger        *log.Logger
}

func NewRetentionWorker(store chat.Store, retentionDays int, logger *log.Logger) *RetentionWorker {
	return &RetentionWorker{
		Store:         store,
		RetentionDays: retentionDays,
		Logger:        logger,
	}
}

func (rw *RetentionWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	rw.Logger.Println("Retention worker started")

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	rw.purgeOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			rw.Logger.Println("Retention worker shutting down...")
			return
		case <-ticker.C:
			rw.purgeOnce(ctx)
		}
	}
}

func (rw *RetentionWorker) purgeOnce(ctx context.Context) {
	if rw.RetentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -rw.RetentionDays)
	n, err := rw.Store.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		rw.Logger.Printf("Error purging deleted messages: %v", err)
		return
	}
	if n > 0 {
		rw.Logger.Printf("Purged %d deleted messages older than %s", n, cutoff.Format(time.RFC3339))
	}
}
