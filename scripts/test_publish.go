//go:build ignore

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rerouting-service/internal/domain"
)

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for streams")
	serviceID := flag.Int64("service", 1, "Service ID")
	change := flag.String("change", string(domain.ServiceUpdated), "created | updated | deleted")
	wait := flag.Duration("wait", 0, "Wait for rerouting done event (0 - do not wait)")
	flag.Parse()

	client := redis.NewClient(&redis.Options{
		Addr: *redisAddr,
	})
	defer client.Close()

	ctx := context.Background()

	// Проверка подключения
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	event := domain.ServiceChangedEvent{
		EventID:    uuid.New(),
		ServiceID:  *serviceID,
		Change:     domain.ServiceChangeType(*change),
		OccurredAt: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Fatalf("Failed to marshal event: %v", err)
	}

	result, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: domain.StreamServiceChanged,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish event: %v", err)
	}

	fmt.Printf("Event published\n")
	fmt.Printf("   Stream: %s\n", domain.StreamServiceChanged)
	fmt.Printf("   Message ID: %s\n", result)
	fmt.Printf("   Event ID: %s\n", event.EventID)
	fmt.Printf("   Service ID: %d (%s)\n", event.ServiceID, event.Change)

	if *wait <= 0 {
		return
	}

	fmt.Printf("\nWaiting for response in %s...\n", domain.StreamReroutingDone)

	timeout := time.After(*wait)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	lastID := "$"
	for {
		select {
		case <-timeout:
			fmt.Println("Timeout waiting for response")
			return
		case <-ticker.C:
			results, err := client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{domain.StreamReroutingDone, lastID},
				Count:   10,
				Block:   -1,
			}).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				continue
			}

			for _, stream := range results {
				for _, msg := range stream.Messages {
					lastID = msg.ID

					dataStr, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}

					var done domain.ReroutingDoneEvent
					if err := json.Unmarshal([]byte(dataStr), &done); err != nil {
						continue
					}
					if done.ServiceID != event.ServiceID {
						continue
					}

					fmt.Printf("\nResponse received\n")
					pretty, _ := json.MarshalIndent(done, "", "  ")
					fmt.Printf("%s\n", pretty)
					return
				}
			}
		}
	}
}
