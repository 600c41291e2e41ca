package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Default capture parameters for the widget page.
const (
	DefaultWidth      = 1280
	DefaultHeight     = 800
	DefaultTimeoutSec = 30
)

// ReadySelector matches the page root once the server-side render is in
// the DOM (see templates/index.html.tmpl).
const ReadySelector = `[data-ready="true"]`

// Options defines parameters for a Chromium-based screenshot capture.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/".
	URL string

	// OutputPath is where the PNG screenshot will be written.
	OutputPath string

	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds the entire capture operation. If zero,
	// DefaultTimeoutSec is used.
	Timeout time.Duration

	// Headers are sent with every request the page makes, e.g. an
	// Authorization header when the server requires Basic Auth.
	Headers map[string]string
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return errors.New("capture: URL is required")
	}
	if o.OutputPath == "" {
		return errors.New("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return nil
}

func (o *Options) extraHeaders() network.Headers {
	h := make(network.Headers, len(o.Headers))
	for k, v := range o.Headers {
		h[k] = v
	}
	return h
}

// PagePNG launches a headless Chromium via chromedp, navigates to opts.URL,
// waits for ReadySelector and writes a full-page PNG to opts.OutputPath.
func PagePNG(parentCtx context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
	}
	if len(opts.Headers) > 0 {
		tasks = append(tasks,
			network.Enable(),
			network.SetExtraHTTPHeaders(opts.extraHeaders()),
		)
	}
	tasks = append(tasks,
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Small extra delay to allow final paints.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	)

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return fmt.Errorf("capture: create output dir: %w", err)
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
