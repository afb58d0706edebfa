package handlers

import (
	"context"
	"sync"

	"github.com/5-VED/notification-dispatcher/dispatcher"
)

// dispatchBulkItems runs one Dispatcher call per item concurrently, with
// per-item failure isolation, returning the full set of notification ids
// (empty string for failed items), the success count and failure count
// (§4.8's SendBulkNotifications contract).
func dispatchBulkItems(ctx context.Context, items []SendNotificationRequest, d *dispatcher.Dispatcher) (ids []string, successCount, failureCount int) {
	ids = make([]string, len(items))

	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, item := range items {
		wg.Add(1)
		go func(index int, req SendNotificationRequest) {
			defer wg.Done()

			result, err := d.Dispatch(ctx, toSendData(req))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failureCount++
				return
			}
			successCount++
			ids[index] = result.Notification.ID.String()
		}(i, item)
	}

	wg.Wait()
	return ids, successCount, failureCount
}
