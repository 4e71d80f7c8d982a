// Package google writes the budget overview to a Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ssmartr/internal/budget"
	"ssmartr/internal/log"
	ports "ssmartr/internal/sheets"
)

// valuesAPI is the slice of the Sheets values API the exporter needs.
type valuesAPI interface {
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
}

type Client struct {
	values        valuesAPI
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// Ensure interface conformance
var _ ports.OverviewWriter = (*Client)(nil)

// New creates a Sheets client for one spreadsheet tab. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetName string, logger *log.Logger) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Overview"
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(sheetsValues{svc: svc}, spreadsheetID, sheetName, logger), nil
}

func newClient(values valuesAPI, spreadsheetID, sheetName string, logger *log.Logger) *Client {
	return &Client{
		values:        values,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, logger *log.Logger) (*gsheet.Service, error) {
	credentialsJSON, source, err := loadCredentials()
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Creating Google Sheets service",
		"credentials_source", source,
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func loadCredentials() ([]byte, string, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), "inline", nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, "", errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read service account file: %w", err)
	}
	return data, "file", nil
}

// WriteOverview clears the tab and writes the overview table at A1 with the
// metadata block at I1.
func (c *Client) WriteOverview(ctx context.Context, s budget.Snapshot) error {
	if c.values == nil {
		return errors.New("sheets service not initialized")
	}

	if err := c.values.Clear(ctx, c.spreadsheetID, c.a1("A:J")); err != nil {
		return fmt.Errorf("clear sheet %s: %w", c.sheetName, err)
	}

	table := ports.OverviewTable(s)
	if err := c.values.Update(ctx, c.spreadsheetID, c.a1("A1"), table); err != nil {
		return fmt.Errorf("write overview to %s: %w", c.sheetName, err)
	}
	if err := c.values.Update(ctx, c.spreadsheetID, c.a1("I1"), ports.OverviewMeta(s)); err != nil {
		return fmt.Errorf("write overview metadata to %s: %w", c.sheetName, err)
	}

	c.logger.InfoContext(ctx, "Exported overview",
		log.FieldVersion, s.Version,
		"rows", len(table),
		"sheet", c.sheetName)
	return nil
}

// a1 builds a quoted A1 range for the configured tab.
func (c *Client) a1(cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(c.sheetName, "'", "''"), cells)
}

// sheetsValues adapts the generated client to valuesAPI.
type sheetsValues struct {
	svc *gsheet.Service
}

func (v sheetsValues) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := v.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (v sheetsValues) Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	vr := &gsheet.ValueRange{Values: rows}
	_, err := v.svc.Spreadsheets.Values.Update(spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}
