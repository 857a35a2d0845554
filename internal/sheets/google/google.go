// Package google exports period summaries to a Google Sheets dashboard
// using service-account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budget/internal/core"
	applog "budget/internal/log"
	ports "budget/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.SummaryWriter = (*Client)(nil)

// New creates a Sheets client. Credentials come from credentialsJSON
// when non-empty, otherwise from the file at credentialsFile.
func New(ctx context.Context, spreadsheetID, sheetName, credentialsFile, credentialsJSON string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if sheetName = strings.TrimSpace(sheetName); sheetName == "" {
		sheetName = "Summary"
	}

	var creds []byte
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		creds = []byte(credentialsJSON)
	case strings.TrimSpace(credentialsFile) != "":
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		creds = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// WriteSummary appends one row per export: period key, totals, balance,
// transaction count and the top spending category.
func (c *Client) WriteSummary(ctx context.Context, summary core.PeriodSummary, breakdown []core.CategoryAmount) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	topCategory := ""
	if len(breakdown) > 0 {
		topCategory = breakdown[0].Category
	}

	row := []any{
		summary.Period.Key(),
		summary.Income.Dollars(),
		summary.Expenses.Dollars(),
		summary.Balance.Dollars(),
		summary.Transactions,
		topCategory,
	}
	rng := fmt.Sprintf("%s!A:F", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append summary row to %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Summary exported",
		applog.FieldPeriod, summary.Period.Key(),
		"sheet", c.sheetName,
		applog.FieldComponent, applog.ComponentSheets,
		applog.FieldOperation, applog.OpExport)

	return nil
}
