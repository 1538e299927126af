package analysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/trogers1052/ticker-research-service/internal/models"
)

const (
	// DefaultFilingBaseURL is prefixed to relative filing links
	DefaultFilingBaseURL = models.DefaultFilingBaseURL

	// DefaultMaxDocumentBytes caps the size of a downloaded filing
	DefaultMaxDocumentBytes int64 = 50 << 20

	downloadTimeout       = 60 * time.Second
	dialTimeout           = 10 * time.Second
	responseHeaderTimeout = 30 * time.Second

	downloadUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// NewDownloadClient returns the HTTP client used for filing downloads
func NewDownloadClient() *http.Client {
	return &http.Client{
		Timeout: downloadTimeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: dialTimeout}).DialContext,
			ResponseHeaderTimeout: responseHeaderTimeout,
			TLSHandshakeTimeout:   dialTimeout,
		},
	}
}

// download fetches the filing body, refusing documents larger than maxBytes
func download(ctx context.Context, client *http.Client, url string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", downloadUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch filing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read filing: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("filing exceeds %d bytes", maxBytes)
	}
	return body, nil
}

// ExtractText returns the plain text of every page in order.
// Corrupt input that panics inside the PDF reader is reported as an error.
func ExtractText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("panic during PDF extraction: %v", r)
		}
	}()

	if len(data) < 4 || string(data[:4]) != "%PDF" {
		return "", fmt.Errorf("not a PDF document")
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
