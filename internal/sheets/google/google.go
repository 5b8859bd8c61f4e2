package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"leaderboard/internal/core"
	ports "leaderboard/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc              *gsheet.Service
	spreadsheetID    string
	leaderboardSheet string
	weeklySheet      string
}

// Ensure interface conformance
var _ ports.StandingsWriter = (*Client)(nil)

// Options configures a Client. Credentials are tried in order: inline JSON,
// service account file, GOOGLE_APPLICATION_CREDENTIALS path.
type Options struct {
	SpreadsheetID          string
	LeaderboardSheet       string
	WeeklySheet            string
	ServiceAccountJSON     string
	ServiceAccountFile     string
	ApplicationCredentials string
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional sheet names: GOOGLE_LEADERBOARD_SHEET (default "Leaderboard"),
// GOOGLE_WEEKLY_SHEET (default "Weekly").
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, Options{
		SpreadsheetID:          os.Getenv("GOOGLE_SPREADSHEET_ID"),
		LeaderboardSheet:       os.Getenv("GOOGLE_LEADERBOARD_SHEET"),
		WeeklySheet:            os.Getenv("GOOGLE_WEEKLY_SHEET"),
		ServiceAccountJSON:     os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile:     os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		ApplicationCredentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	})
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	credentialsJSON, err := loadCredentials(ctx, opts)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return newWithService(svc, spreadsheetID, opts.LeaderboardSheet, opts.WeeklySheet), nil
}

func newWithService(svc *gsheet.Service, spreadsheetID, leaderboardSheet, weeklySheet string) *Client {
	leaderboardSheet = strings.TrimSpace(leaderboardSheet)
	if leaderboardSheet == "" {
		leaderboardSheet = "Leaderboard"
	}
	weeklySheet = strings.TrimSpace(weeklySheet)
	if weeklySheet == "" {
		weeklySheet = "Weekly"
	}
	return &Client{
		svc:              svc,
		spreadsheetID:    spreadsheetID,
		leaderboardSheet: leaderboardSheet,
		weeklySheet:      weeklySheet,
	}
}

func loadCredentials(ctx context.Context, opts Options) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(opts.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(opts.ServiceAccountFile)

	// Fall back to the standard Google Cloud variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(opts.ApplicationCredentials)
	}

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WriteStandings clears both tabs and rewrites them in one batch.
func (c *Client) WriteStandings(ctx context.Context, s ports.Snapshot) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	leaderboardRange := fmt.Sprintf("%s!A:Z", c.leaderboardSheet)
	weeklyRange := fmt.Sprintf("%s!A:Z", c.weeklySheet)

	clearReq := &gsheet.BatchClearValuesRequest{Ranges: []string{leaderboardRange, weeklyRange}}
	if _, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, clearReq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s and %s: %w", c.leaderboardSheet, c.weeklySheet, err)
	}

	update := &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*gsheet.ValueRange{
			{Range: fmt.Sprintf("%s!A1", c.leaderboardSheet), Values: leaderboardRows(s)},
			{Range: fmt.Sprintf("%s!A1", c.weeklySheet), Values: weeklyRows(s)},
		},
	}
	resp, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, update).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write standings: %w", err)
	}

	slog.InfoContext(ctx, "Standings written to Google Sheets",
		"spreadsheet_id", c.spreadsheetID,
		"members", len(s.Standings),
		"weeks", len(s.Weeks),
		"updated_cells", resp.TotalUpdatedCells)
	return nil
}

func leaderboardRows(s ports.Snapshot) [][]any {
	rows := make([][]any, 0, len(s.Standings)+3)
	rows = append(rows, []any{"Rank", "Member", "Points"})
	ranks := ports.Ranks(s.Standings)
	for i, st := range s.Standings {
		rows = append(rows, []any{ranks[i], st.Member, st.Points})
	}
	rows = append(rows,
		[]any{},
		[]any{"Total", s.Summary.TotalPoints, "Updated", s.GeneratedAt.Format("2006-01-02 15:04 MST")},
	)
	return rows
}

func weeklyRows(s ports.Snapshot) [][]any {
	rows := [][]any{{"Week", "Rank", "Member", "Points"}}
	for _, w := range s.Weeks {
		ranks := ports.Ranks(w.Standings)
		for i, st := range w.Standings {
			rows = append(rows, []any{weekLabel(w.Week), ranks[i], st.Member, st.Points})
		}
	}
	return rows
}

func weekLabel(k core.WeekKey) string {
	return "Week of " + k.String()
}
