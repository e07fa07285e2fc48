package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"gyftr-sheet-sync/internal/config"
	"gyftr-sheet-sync/internal/mailbox"
	"gyftr-sheet-sync/internal/service"
	"gyftr-sheet-sync/internal/sheetstore"
)

// Operator tool to backfill the voucher sheet from existing mailbox
// contents. Backfill runs append rows instead of inserting at the top,
// and drive pagination explicitly page by page.
func main() {
	batchSize := flag.Int64("batch", 50, "emails to scan per batch")
	includeRead := flag.Bool("include-read", false, "also scan already-read emails")
	scanAll := flag.Bool("all", false, "follow pagination until all matching emails are scanned")
	flag.Parse()

	logrus.SetLevel(logrus.InfoLevel)

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	ctx := context.Background()

	gateway, err := mailbox.NewGmailGateway(ctx, &cfg.Gmail)
	if err != nil {
		logrus.Fatalf("Failed to create mailbox gateway: %v", err)
	}
	sheetsAPI, err := sheetstore.NewGoogleAPI(ctx, &cfg.Gmail, cfg.Sheets.SpreadsheetID)
	if err != nil {
		logrus.Fatalf("Failed to create sheets adapter: %v", err)
	}
	store := sheetstore.NewStore(sheetsAPI)
	cursorStore := sheetstore.NewConfigStore(sheetsAPI, cfg.Sheets.ConfigSheet)

	syncService, err := service.NewSyncService(gateway, store, cursorStore, cfg.Sync, nil, nil)
	if err != nil {
		logrus.Fatalf("Failed to create sync service: %v", err)
	}

	var totalChecked, totalFound, totalAdded int
	var allErrors []string

	pageToken := ""
	for batch := 1; ; batch++ {
		logrus.Infof("Scanning emails (batch %d)...", batch)
		result := syncService.ProcessNewEmails(ctx, service.BatchOptions{
			Source:      service.SourceBackfill,
			MaxResults:  *batchSize,
			IncludeRead: *includeRead,
			PageToken:   pageToken,
		})

		totalChecked += result.EmailsChecked
		totalFound += result.VouchersFound
		totalAdded += result.RowsAdded
		allErrors = append(allErrors, result.Errors...)

		pageToken = result.NextPageToken
		if !*scanAll || pageToken == "" {
			break
		}
	}

	fmt.Println("Processing complete")
	fmt.Printf("  Emails scanned: %d\n", totalChecked)
	fmt.Printf("  Vouchers found: %d\n", totalFound)
	fmt.Printf("  Rows added:     %d\n", totalAdded)
	if len(allErrors) > 0 {
		fmt.Printf("  Errors (%d):\n", len(allErrors))
		for _, e := range allErrors {
			fmt.Printf("    - %s\n", e)
		}
	}
}
