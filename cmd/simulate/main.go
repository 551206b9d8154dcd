package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/DANGHARIB/webTABEEBOU-sub000/internal/logging"
)

// Fires N concurrent booking requests at one slot of a freshly created
// block and reports the outcome split. Exactly one request must get a 201;
// everything else must be a 409-class conflict. Point it at a server in
// memory-store mode, or at one whose providers table holds the provider.
func main() {
	log := logging.New("simulate", "dev")

	baseURL := envOr("API_BASE_URL", "http://127.0.0.1:8080")
	workers := envIntOr("WORKERS", 50)

	client := &http.Client{Timeout: 10 * time.Second}

	providerID := uuid.New()
	date := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	block, err := createBlock(client, baseURL, providerID, date)
	if err != nil {
		log.Fatal().Err(err).Msg("create block")
	}
	log.Info().Str("block_id", block).Str("date", date).Msg("target block created")

	var created, conflict, other int64
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			status, err := createBooking(client, baseURL, block, providerID, uuid.New())
			if err != nil {
				atomic.AddInt64(&other, 1)
				return
			}
			switch status {
			case http.StatusCreated:
				atomic.AddInt64(&created, 1)
			case http.StatusConflict:
				atomic.AddInt64(&conflict, 1)
			default:
				atomic.AddInt64(&other, 1)
			}
		}()
	}
	wg.Wait()

	log.Info().
		Int64("created", created).
		Int64("conflict", conflict).
		Int64("other", other).
		Dur("took", time.Since(start)).
		Msg("simulation complete")

	if created != 1 {
		log.Fatal().Int64("created", created).Msg("slot uniqueness violated: expected exactly one successful booking")
	}
	log.Info().Msg("slot uniqueness held")
}

func createBlock(client *http.Client, baseURL string, providerID uuid.UUID, date string) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"provider_id": providerID.String(),
		"date":        date,
		"start_time":  "09:00",
		"end_time":    "10:00",
	})

	resp, err := client.Post(baseURL+"/availability", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func createBooking(client *http.Client, baseURL, blockID string, providerID, requesterID uuid.UUID) (int, error) {
	body, _ := json.Marshal(map[string]any{
		"block_id":         blockID,
		"provider_id":      providerID.String(),
		"requester_id":     requesterID.String(),
		"slot_start_time":  "09:00",
		"slot_end_time":    "09:30",
		"duration_minutes": 30,
	})

	resp, err := client.Post(baseURL+"/appointments", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
