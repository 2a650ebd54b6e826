package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/jomei/notionapi"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
)

const queryPageSize = 100

// SyncResult counts what a sync did (or would do, on a dry run).
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// SyncLedger mirrors a ledger into a Notion database. Pages are scoped by
// source, so syncing one statement never touches pages of another:
//  1. Queries the existing pages for source
//  2. Archives pages whose transaction is no longer in the ledger
//  3. Updates pages that already exist and creates the rest
//
// Failures on individual pages are logged and counted, not returned.
func SyncLedger(ctx context.Context, notionClient NotionService, notionDBID, source string, ledger domain.Ledger, dryRun bool) (SyncResult, error) {
	log := logger.FromContext(ctx)
	var result SyncResult

	if notionDBID == "" {
		return result, fmt.Errorf("SyncLedger: database id is required")
	}
	if source == "" {
		return result, fmt.Errorf("SyncLedger: source is required")
	}

	log.Info().
		Str("source", source).
		Int("transaction_count", len(ledger)).
		Bool("dry_run", dryRun).
		Msg("Starting ledger sync to Notion")

	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID, source)
	if err != nil {
		return result, fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	txIDs := make([]string, len(ledger))
	valid := make(map[string]bool, len(ledger))
	for i, tx := range ledger {
		txIDs[i] = TransactionID(source, i, tx)
		valid[txIDs[i]] = true
	}

	existing := make(map[string]string, len(notionPages))
	for _, page := range notionPages {
		txID := extractTransactionID(page)
		pageID := string(page.ID)

		if txID != "" && valid[txID] {
			existing[txID] = pageID
			continue
		}

		if dryRun {
			log.Info().
				Str("transaction_id", txID).
				Str("page_id", pageID).
				Msg("[DRY RUN] Would delete stale Notion page")
			result.Deleted++
			continue
		}
		if err := notionClient.DeletePage(ctx, pageID); err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", txID).
				Str("page_id", pageID).
				Msg("Failed to delete stale Notion page")
			result.Failed++
			continue
		}
		result.Deleted++
	}

	importedAt := time.Now().UTC()
	for i, tx := range ledger {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		txID := txIDs[i]
		pageID, found := existing[txID]

		if dryRun {
			if found {
				log.Info().
					Str("transaction_id", txID).
					Str("page_id", pageID).
					Msg("[DRY RUN] Would update existing Notion page")
				result.Updated++
			} else {
				log.Info().
					Str("transaction_id", txID).
					Msg("[DRY RUN] Would create new Notion page")
				result.Created++
			}
			continue
		}

		props := TransactionToNotionProperties(tx, txID, source, importedAt)

		if found {
			if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().
					Err(err).
					Str("transaction_id", txID).
					Str("page_id", pageID).
					Msg("Failed to update Notion page")
				result.Failed++
				continue
			}
			result.Updated++
			continue
		}

		page, err := notionClient.CreatePage(ctx, notionDBID, props)
		if err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", txID).
				Msg("Failed to create Notion page")
			result.Failed++
			continue
		}
		log.Debug().
			Str("transaction_id", txID).
			Str("page_id", string(page.ID)).
			Msg("Created Notion page")
		result.Created++
	}

	log.Info().
		Int("deleted", result.Deleted).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Int("total", len(ledger)).
		Msg("Ledger sync completed")

	return result, nil
}

// queryAllNotionPages follows the query cursor until every page belonging to
// source has been read.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID, source string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			Filter: notionapi.PropertyFilter{
				Property: PropSource,
				RichText: &notionapi.TextFilterCondition{Equals: source},
			},
			PageSize: queryPageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
