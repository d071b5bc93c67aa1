package gsheets

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// API is the subset of the Google Sheets API used by the reader and writer.
type API interface {
	Spreadsheet(ctx context.Context, spreadsheet string) (*sheets.Spreadsheet, error)
	Get(ctx context.Context, spreadsheet string, area string) (*sheets.ValueRange, error)
	Update(ctx context.Context, spreadsheet string, data []*sheets.ValueRange) error
	Append(ctx context.Context, spreadsheet string, area string, values *sheets.ValueRange) error
	BatchUpdate(ctx context.Context, spreadsheet string, requests []*sheets.Request) error
}

// Client implements API over a sheets.Service, throttled to a fixed number of
// requests per minute with a timeout on every request.
type Client struct {
	google  *sheets.Service
	limiter *rate.Limiter
	timeout time.Duration
}

const (
	DefaultRequestsPerMinute = 60
	DefaultRequestTimeout    = 30 * time.Second
)

// NewClient creates a Sheets client over an authorised HTTP client. Additional
// options (e.g. option.WithEndpoint) are passed through to the Sheets service.
func NewClient(ctx context.Context, client *http.Client, rpm int, timeout time.Duration, opts ...option.ClientOption) (*Client, error) {
	if client != nil {
		opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	}

	google, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create new Google Sheets client (%w)", err)
	}

	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}

	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}

	return &Client{
		google:  google,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst),
		timeout: timeout,
	}, nil
}

func (c *Client) Spreadsheet(ctx context.Context, spreadsheet string) (*sheets.Spreadsheet, error) {
	ctx, cancel, err := c.wait(ctx)
	if err != nil {
		return nil, err
	}

	defer cancel()

	return c.google.Spreadsheets.Get(spreadsheet).
		Fields("spreadsheetId", "sheets.properties").
		Context(ctx).
		Do()
}

func (c *Client) Get(ctx context.Context, spreadsheet string, area string) (*sheets.ValueRange, error) {
	ctx, cancel, err := c.wait(ctx)
	if err != nil {
		return nil, err
	}

	defer cancel()

	return c.google.Spreadsheets.Values.Get(spreadsheet, area).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
}

func (c *Client) Update(ctx context.Context, spreadsheet string, data []*sheets.ValueRange) error {
	ctx, cancel, err := c.wait(ctx)
	if err != nil {
		return err
	}

	defer cancel()

	rq := sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}

	_, err = c.google.Spreadsheets.Values.BatchUpdate(spreadsheet, &rq).Context(ctx).Do()

	return err
}

func (c *Client) Append(ctx context.Context, spreadsheet string, area string, values *sheets.ValueRange) error {
	ctx, cancel, err := c.wait(ctx)
	if err != nil {
		return err
	}

	defer cancel()

	_, err = c.google.Spreadsheets.Values.Append(spreadsheet, area, values).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()

	return err
}

func (c *Client) BatchUpdate(ctx context.Context, spreadsheet string, requests []*sheets.Request) error {
	if len(requests) == 0 {
		return nil
	}

	ctx, cancel, err := c.wait(ctx)
	if err != nil {
		return err
	}

	defer cancel()

	rq := sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}

	_, err = c.google.Spreadsheets.BatchUpdate(spreadsheet, &rq).Context(ctx).Do()

	return err
}

func (c *Client) wait(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	return ctx, cancel, nil
}
