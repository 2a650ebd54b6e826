package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
)

// dateLayouts are tried in order after civil.ParseDate fails.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

var amountTokenRe = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// decodeModelJSON parses content into a generic value. Numbers are kept as
// json.Number so amounts do not pass through float64.
func decodeModelJSON(content string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()

	var parsed interface{}
	if err := dec.Decode(&parsed); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after top-level JSON value")
	}
	return parsed, nil
}

// transformModelOutput unifies the two accepted response shapes (a bare
// array or a {"transactions": [...]} wrapper) into raw transactions.
// Field-level coercion failures become null markers on the row.
func transformModelOutput(parsed interface{}) ([]domain.RawTransaction, error) {
	var items []interface{}

	switch v := parsed.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		obj := lowercaseKeys(v)
		txAny, ok := obj["transactions"]
		if !ok || txAny == nil {
			return nil, nil
		}
		txSlice, ok := txAny.([]interface{})
		if !ok {
			return nil, fmt.Errorf("transformModelOutput: 'transactions' is %T, want array", txAny)
		}
		items = txSlice
	default:
		return nil, fmt.Errorf("transformModelOutput: top-level value is %T, want array or object", parsed)
	}

	result := make([]domain.RawTransaction, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("transformModelOutput: element %d is %T, want object", i, item)
		}
		result = append(result, toRawTransaction(lowercaseKeys(obj)))
	}

	return result, nil
}

func toRawTransaction(obj map[string]interface{}) domain.RawTransaction {
	return domain.RawTransaction{
		Date:        getDateField(obj, "date"),
		Description: getStringField(obj, "description"),
		Amount:      getAmountField(obj, "amount"),
		Type:        parseTxType(getStringField(obj, "type")),
		Category:    getStringField(obj, "category"),
	}
}

func lowercaseKeys(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

// getStringField returns the trimmed string value, or "" when the field is
// absent or null. Scalars of other types are formatted.
func getStringField(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case bool:
		return fmt.Sprint(val)
	default:
		return ""
	}
}

func getDateField(m map[string]interface{}, key string) civil.Date {
	s := getStringField(m, key)
	if s == "" {
		return civil.Date{}
	}
	return parseDate(s)
}

// parseDate returns the zero civil.Date when no layout matches.
func parseDate(s string) civil.Date {
	if d, err := civil.ParseDate(s); err == nil && d.IsValid() {
		return d
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t)
		}
	}
	return civil.Date{}
}

func getAmountField(m map[string]interface{}, key string) decimal.NullDecimal {
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.NullDecimal{}
	}
	switch val := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(val))
	case string:
		return parseAmount(val)
	default:
		return decimal.NullDecimal{}
	}
}

// parseAmount accepts strings such as "1,200.50", "₹-45", "-$3.10",
// "(250.00)" or "Rs. 99". The string must hold exactly one number.
func parseAmount(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}

	negative := strings.HasPrefix(s, "-") ||
		(strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"))

	cleaned := strings.ReplaceAll(s, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	tokens := amountTokenRe.FindAllString(cleaned, -1)
	if len(tokens) != 1 {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(tokens[0])
	if err != nil {
		return decimal.NullDecimal{}
	}
	if negative && d.IsPositive() {
		d = d.Neg()
	}
	return decimal.NewNullDecimal(d)
}

func parseTxType(s string) domain.TxType {
	switch strings.ToLower(s) {
	case "credit", "cr":
		return domain.TxCredit
	case "debit", "dr":
		return domain.TxDebit
	default:
		return domain.TxUnknown
	}
}
