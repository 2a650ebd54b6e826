package notionsync

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jomei/notionapi"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
)

// Property names of the Notion transactions database.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropSource        = "Source"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropType          = "Type"
	PropCategory      = "Category"
	PropYearMonth     = "Year Month"
	PropImportedAt    = "Imported At"
)

var transactionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("cash-flow-analyzer/notion-transaction"))

// TransactionID derives a stable ID for a ledger row so that re-syncing the
// same statement updates pages instead of duplicating them.
func TransactionID(source string, position int, tx domain.Transaction) string {
	amount := ""
	if tx.HasAmount() {
		amount = tx.Amount.Decimal.String()
	}
	key := fmt.Sprintf("%s|%d|%s|%s|%s", source, position, tx.Date, tx.Description, amount)
	return uuid.NewSHA1(transactionNamespace, []byte(key)).String()
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

func dateProperty(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

// TransactionToNotionProperties converts a ledger row to Notion properties.
// Date and Amount are omitted for rows that lack them.
func TransactionToNotionProperties(tx domain.Transaction, txID, source string, importedAt time.Time) notionapi.Properties {
	desc := tx.Description
	if desc == "" {
		desc = "(no description)"
	}

	props := notionapi.Properties{
		PropDescription:   notionapi.TitleProperty{Title: richText(desc)},
		PropTransactionID: notionapi.RichTextProperty{RichText: richText(txID)},
		PropSource:        notionapi.RichTextProperty{RichText: richText(source)},
		PropCategory:      notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Category}},
		PropImportedAt:    dateProperty(importedAt),
	}

	if tx.Type != domain.TxUnknown {
		props[PropType] = notionapi.SelectProperty{Select: notionapi.Option{Name: string(tx.Type)}}
	}

	if tx.HasDate() {
		props[PropDate] = dateProperty(tx.Date.In(time.UTC))
		props[PropYearMonth] = notionapi.RichTextProperty{RichText: richText(tx.YearMonth)}
	}

	if tx.HasAmount() {
		props[PropAmount] = notionapi.NumberProperty{Number: tx.Amount.Decimal.InexactFloat64()}
	}

	return props
}

// extractTransactionID extracts the transaction ID from a Notion page's
// properties. Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropTransactionID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}
