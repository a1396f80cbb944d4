package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"capigastos/internal/cache"
	"capigastos/internal/log"
	ports "capigastos/internal/sheets"
)

// Config selects the spreadsheet and the tab backing each table.
type Config struct {
	SpreadsheetID string
	// SheetNames maps every table to its tab title.
	SheetNames map[ports.Table]string
	// ServiceAccountJSON takes precedence over ServiceAccountFile.
	ServiceAccountJSON string
	ServiceAccountFile string
	// OAuth is used instead of a service account when a client is set.
	OAuth OAuthConfig
	// Options are passed to the Sheets service as-is; tests use them to
	// point the client at a local server.
	Options []goption.ClientOption
}

// DefaultSheetNames are the tab titles of the household spreadsheet.
var DefaultSheetNames = map[ports.Table]string{
	ports.Transactions:    "Transacciones",
	ports.Accounts:        "Cuentas",
	ports.Budgets:         "Presupuestos",
	ports.PendingPayments: "Pendientes",
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetNames    map[ports.Table]string
	// gridIDs remembers the numeric sheet id of each tab title; row deletion
	// addresses tabs by id.
	gridIDs *cache.LRUCache[int64]
	logger  *log.Logger
}

// Ensure interface conformance
var _ ports.LedgerStore = (*Client)(nil)

// New creates a Sheets client authenticated with a service account unless
// cfg.Options already carry credentials.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	names := make(map[ports.Table]string, len(ports.AllTables))
	for _, t := range ports.AllTables {
		name := strings.TrimSpace(cfg.SheetNames[t])
		if name == "" {
			name = DefaultSheetNames[t]
		}
		names[t] = name
	}

	opts := cfg.Options
	if len(opts) == 0 {
		var err error
		if opts, err = clientOptions(ctx, cfg, logger); err != nil {
			return nil, err
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", spreadsheetID,
		"transactions_sheet", names[ports.Transactions])
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetNames:    names,
		gridIDs:       cache.NewLRUCache[int64](len(ports.AllTables)*2, time.Hour),
		logger:        logger,
	}, nil
}

func clientOptions(ctx context.Context, cfg Config, logger *log.Logger) ([]goption.ClientOption, error) {
	if cfg.OAuth.enabled() {
		ts, err := cfg.OAuth.TokenSource(ctx)
		if err != nil {
			return nil, err
		}
		logger.DebugContext(ctx, "Using OAuth user credentials")
		return []goption.ClientOption{goption.WithTokenSource(ts)}, nil
	}
	creds, err := loadCredentials(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return []goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

// loadCredentials reads service account credentials from inline JSON, a
// file, or GOOGLE_APPLICATION_CREDENTIALS in that order.
func loadCredentials(ctx context.Context, cfg Config, logger *log.Logger) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		logger.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		logger.DebugContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
}

func (c *Client) sheetName(table ports.Table) (string, error) {
	name, ok := c.sheetNames[table]
	if !ok {
		return "", fmt.Errorf("%w: %s", ports.ErrUnknownTable, table)
	}
	return name, nil
}

// ListRows returns every row of the table's tab, header included.
func (c *Client) ListRows(ctx context.Context, table ports.Table) ([]ports.Row, error) {
	name, err := c.sheetName(table)
	if err != nil {
		return nil, err
	}
	values, err := c.readRange(ctx, tableRange(name, len(ports.Headers[table])))
	if err != nil {
		return nil, wrapErr("list "+name, err)
	}
	return toRows(values), nil
}

func (c *Client) AppendRow(ctx context.Context, table ports.Table, row ports.Row) error {
	name, err := c.sheetName(table)
	if err != nil {
		return err
	}
	cells := make([]any, len(row))
	for i, v := range row {
		cells[i] = v
	}
	vr := &gsheet.ValueRange{Values: [][]any{cells}}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, quoteSheet(name)+"!A1", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return wrapErr("append "+name, err)
	}
	return nil
}

// DeleteRow removes the row at position; later rows move up.
func (c *Client) DeleteRow(ctx context.Context, table ports.Table, position int) error {
	name, err := c.sheetName(table)
	if err != nil {
		return err
	}
	values, err := c.readRange(ctx, tableRange(name, len(ports.Headers[table])))
	if err != nil {
		return wrapErr("delete "+name, err)
	}
	if position < 1 || position > len(values) {
		return fmt.Errorf("%s position %d: %w", name, position, ports.ErrRowNotFound)
	}
	gid, err := c.gridID(ctx, name)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:         gid,
					Dimension:       "ROWS",
					StartIndex:      int64(position - 1),
					EndIndex:        int64(position),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			// The tab may have been recreated under a new id.
			c.gridIDs.Delete(name)
		}
		return wrapErr("delete "+name, err)
	}
	return nil
}

// FindRow scans the first column for value.
func (c *Client) FindRow(ctx context.Context, table ports.Table, value string) (int, error) {
	name, err := c.sheetName(table)
	if err != nil {
		return 0, err
	}
	values, err := c.readRange(ctx, quoteSheet(name)+"!A:A")
	if err != nil {
		return 0, wrapErr("find "+name, err)
	}
	want := strings.TrimSpace(value)
	for i, row := range toRows(values) {
		if strings.TrimSpace(row.Cell(0)) == want {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("%s value %q: %w", name, value, ports.ErrRowNotFound)
}

func (c *Client) readRange(ctx context.Context, rng string) ([][]any, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (c *Client) gridID(ctx context.Context, title string) (int64, error) {
	if id, ok := c.gridIDs.Get(title); ok {
		return id, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).Do()
	if err != nil {
		return 0, wrapErr("read sheet ids", err)
	}
	found := int64(-1)
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		c.gridIDs.Set(sh.Properties.Title, sh.Properties.SheetId)
		if sh.Properties.Title == title {
			found = sh.Properties.SheetId
		}
	}
	if found < 0 {
		return 0, fmt.Errorf("sheet %q not found in spreadsheet", title)
	}
	return found, nil
}

// wrapErr marks quota refusals with ErrRateLimited so the retry layer can
// recognise them without knowing about the Sheets API.
func wrapErr(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: %w", op, ports.ErrRateLimited, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
