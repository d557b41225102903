//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the circulation API.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go <book_id> <patron1_id> [patron2_id ...]
//
// Or use the convenience environment variables:
//
//	BOOK_ID=<id>  PATRON_IDS=<p1>,<p2>,...  go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Reads the book's available copies from GET /books.
//  2. Fires N goroutines (one per patron) all borrowing the same book simultaneously.
//  3. Checks that successful borrows never exceed the copies that were available
//     and that available copies never drop below zero.
//
// Prerequisites:
//   - Server must be running.
//   - The book must exist; patron IDs must be 6-digit strings.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type borrowResult struct {
	PatronID   string
	StatusCode int
	Message    string
	Err        error
}

type book struct {
	ID              uint `json:"id"`
	AvailableCopies int  `json:"available_copies"`
}

func main() {
	serverAddr := os.Getenv("SERVER_URL")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	bookID := os.Getenv("BOOK_ID")
	var patronIDs []string
	if env := os.Getenv("PATRON_IDS"); env != "" {
		patronIDs = strings.Split(env, ",")
	}

	args := os.Args[1:]
	if len(args) >= 1 {
		bookID = args[0]
	}
	if len(args) >= 2 {
		patronIDs = args[1:]
	}

	if bookID == "" {
		log.Fatal("Usage: BOOK_ID=<id> PATRON_IDS=<p1,p2,...> go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <book_id> <patron1_id> [patron2_id ...]")
	}
	if len(patronIDs) == 0 {
		log.Fatal("At least one patron ID must be provided via PATRON_IDS env or positional args")
	}

	before, err := availableCopies(serverAddr, bookID)
	if err != nil {
		log.Fatalf("could not read book %s: %v", bookID, err)
	}

	fmt.Printf("=== Circulation Concurrency Test ===\n")
	fmt.Printf("Server    : %s\n", serverAddr)
	fmt.Printf("Book      : %s (%d available)\n", bookID, before)
	fmt.Printf("Patrons   : %d\n\n", len(patronIDs))

	results := make([]borrowResult, len(patronIDs))
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i, pid := range patronIDs {
		wg.Add(1)
		go func(idx int, patronID string) {
			defer wg.Done()
			<-start
			results[idx] = attemptBorrow(serverAddr, bookID, strings.TrimSpace(patronID))
		}(i, pid)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)
	wg.Wait()
	fmt.Println("All requests completed.")
	fmt.Println()

	var borrowed, rejected, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] patron=%-8s err=%v\n", r.PatronID, r.Err)
		case r.StatusCode == http.StatusCreated:
			borrowed++
			fmt.Printf("  [BORR] patron=%-8s %s\n", r.PatronID, r.Message)
		case r.StatusCode == http.StatusConflict:
			rejected++
			fmt.Printf("  [REJ ] patron=%-8s %s\n", r.PatronID, r.Message)
		default:
			failures++
			fmt.Printf("  [FAIL] patron=%-8s status=%d %s\n", r.PatronID, r.StatusCode, r.Message)
		}
	}

	after, err := availableCopies(serverAddr, bookID)
	if err != nil {
		log.Fatalf("could not re-read book %s: %v", bookID, err)
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Borrowed  : %d\n", borrowed)
	fmt.Printf("Rejected  : %d\n", rejected)
	fmt.Printf("Failures  : %d\n", failures)
	fmt.Printf("Available : %d -> %d\n\n", before, after)

	fmt.Println("--- Invariant Check ---")
	ok := true
	if after < 0 {
		fmt.Printf("[FAIL] available copies went negative: %d\n", after)
		ok = false
	}
	if borrowed > before {
		fmt.Printf("[FAIL] %d borrows succeeded with only %d copies available\n", borrowed, before)
		ok = false
	}
	if before-borrowed != after {
		fmt.Printf("[FAIL] expected %d available copies, got %d\n", before-borrowed, after)
		ok = false
	}
	if ok {
		fmt.Println("[ OK ] availability stayed within bounds.")
	}

	if !ok || failures > 0 {
		os.Exit(1)
	}
}

func availableCopies(serverAddr, bookID string) (int, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(serverAddr + "/books")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var books []book
	if err := json.NewDecoder(resp.Body).Decode(&books); err != nil {
		return 0, err
	}
	for _, b := range books {
		if fmt.Sprint(b.ID) == bookID {
			return b.AvailableCopies, nil
		}
	}
	return 0, fmt.Errorf("book %s not found", bookID)
}

// attemptBorrow sends POST /books/{bookID}/borrow for the given patron and
// captures the message or error field of the response.
func attemptBorrow(serverAddr, bookID, patronID string) borrowResult {
	url := fmt.Sprintf("%s/books/%s/borrow", serverAddr, bookID)
	body := fmt.Sprintf(`{"patron_id":"%s"}`, patronID)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		return borrowResult{PatronID: patronID, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return borrowResult{PatronID: patronID, StatusCode: resp.StatusCode, Err: fmt.Errorf("bad JSON: %s", raw)}
	}

	msg, _ := parsed["message"].(string)
	if errMsg, ok := parsed["error"].(string); ok {
		msg = errMsg
	}
	return borrowResult{PatronID: patronID, StatusCode: resp.StatusCode, Message: msg}
}
