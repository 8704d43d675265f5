// Package sheets reads the customer directory from a Google spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"posrecon/internal/grid"
)

// Client read-only Sheets API client bound to one spreadsheet.
type Client struct {
	srv           *gsheets.Service
	spreadsheetID string
}

// NewClient authenticates with a service-account JSON key file.
func NewClient(ctx context.Context, credentialsFile, spreadsheetID string) (*Client, error) {
	if credentialsFile == "" {
		credentialsFile = "credentials.json"
	}
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(b, gsheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}

	srv, err := gsheets.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{srv: srv, spreadsheetID: spreadsheetID}, nil
}

// FetchRows returns every populated row of sheetName as text cells.
func (c *Client) FetchRows(ctx context.Context, sheetName string) (grid.Grid, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, sheetName).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}
	return ValuesToGrid(resp.Values), nil
}

// ValuesToGrid converts Sheets API values to a grid.
func ValuesToGrid(values [][]interface{}) grid.Grid {
	g := make(grid.Grid, len(values))
	for i, row := range values {
		r := make(grid.Row, len(row))
		for j, v := range row {
			switch x := v.(type) {
			case nil:
			case float64:
				r[j] = strconv.FormatFloat(x, 'f', -1, 64)
			default:
				r[j] = fmt.Sprint(x)
			}
		}
		g[i] = r
	}
	return g
}

// DirectoryLoader implements customer.Loader over a spreadsheet tab.
type DirectoryLoader struct {
	Client *Client
	Sheet  string
}

// LoadDirectory implements customer.Loader.
func (l DirectoryLoader) LoadDirectory(ctx context.Context) (grid.Grid, error) {
	return l.Client.FetchRows(ctx, l.Sheet)
}
