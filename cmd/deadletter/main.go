// Command deadletter inspects and drains the finalize dead-letter list.
// Messages land there when the worker gives up on them; putting them back
// on the work queue is a deliberate operator action, never automatic.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"ugcfactory/internal/queue"
)

func main() {
	var (
		actionFlag string
		limitFlag  int
	)

	flag.StringVar(&actionFlag, "action", "list", "what to do with the dead-letter list (list, requeue, purge)")
	flag.IntVar(&limitFlag, "limit", 10, "how many messages to list or requeue")
	flag.Parse()

	action := strings.ToLower(strings.TrimSpace(actionFlag))
	switch action {
	case "list", "requeue", "purge":
	default:
		exitWithError(fmt.Errorf("unsupported action %q", action))
	}
	if limitFlag <= 0 {
		exitWithError(errors.New("-limit must be positive"))
	}

	redisDB := 0
	if v := strings.TrimSpace(os.Getenv("REDIS_DB")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			exitWithError(fmt.Errorf("invalid REDIS_DB %q", v))
		}
		redisDB = parsed
	}
	queueKey := envOr("FINALIZE_QUEUE_KEY", "ugc:finalize")
	deadKey := queueKey + queue.DeadLetterSuffix

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     envOr("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		exitWithError(fmt.Errorf("failed to connect redis: %w", err))
	}

	switch action {
	case "list":
		total, err := rdb.LLen(ctx, deadKey).Result()
		if err != nil {
			exitWithError(fmt.Errorf("failed to read %s: %w", deadKey, err))
		}
		payloads, err := rdb.LRange(ctx, deadKey, 0, int64(limitFlag-1)).Result()
		if err != nil {
			exitWithError(fmt.Errorf("failed to read %s: %w", deadKey, err))
		}
		fmt.Printf("%s holds %d message(s)\n", deadKey, total)
		for i, payload := range payloads {
			msg, err := queue.Decode([]byte(payload))
			if err != nil {
				fmt.Printf("%3d  undecodable: %s\n", i, payload)
				continue
			}
			fmt.Printf("%3d  job=%s variant=%d\n", i, msg.JobID, msg.VariantIndex)
		}
	case "requeue":
		moved := 0
		for moved < limitFlag {
			payload, err := rdb.LPop(ctx, deadKey).Result()
			if errors.Is(err, redis.Nil) {
				break
			}
			if err != nil {
				exitWithError(fmt.Errorf("failed to pop %s: %w", deadKey, err))
			}
			if err := rdb.RPush(ctx, queueKey, payload).Err(); err != nil {
				exitWithError(fmt.Errorf("failed to requeue message: %w", err))
			}
			moved++
		}
		fmt.Printf("requeued %d message(s) onto %s\n", moved, queueKey)
	case "purge":
		removed, err := rdb.Del(ctx, deadKey).Result()
		if err != nil {
			exitWithError(fmt.Errorf("failed to purge %s: %w", deadKey, err))
		}
		if removed > 0 {
			fmt.Printf("purged %s\n", deadKey)
		} else {
			fmt.Printf("%s was already empty\n", deadKey)
		}
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "deadletter: %v\n", err)
	os.Exit(1)
}
