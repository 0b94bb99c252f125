// Package ota uploads firmware and filesystem images to field controllers.
//
// The transfer is a single multipart POST to the device's /ota endpoint:
// the image travels in an "update" form file, and filesystem payloads add
// a "type=filesystem" form field so the device flashes the right
// partition. A device that accepts the payload answers with a JSON body
// whose "status" field equals "success", then reboots and is unreachable
// for a bounded window; callers should wait out AwaitReboot before
// talking to it again.
//
// There is deliberately no state machine here: one call, one transfer,
// one verdict. The gateway does not manage device firmware lifecycles.
package ota

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Kind selects which device partition the payload targets.
type Kind string

const (
	KindFirmware   Kind = "firmware"
	KindFilesystem Kind = "filesystem"
)

// filename returns the upload filename the device expects for this kind.
func (k Kind) filename() string {
	if k == KindFilesystem {
		return "littlefs.bin"
	}
	return "firmware.bin"
}

// Default transfer bounds. Filesystem images are larger and flash slower.
const (
	defaultFirmwareTimeout   = 120 * time.Second
	defaultFilesystemTimeout = 180 * time.Second
	defaultRebootWait        = 10 * time.Second
)

// Options tunes the Client. Zero values select the defaults above.
type Options struct {
	FirmwareTimeout   time.Duration
	FilesystemTimeout time.Duration
	RebootWait        time.Duration
}

// Client performs OTA transfers to devices.
type Client struct {
	opts Options
}

// NewClient creates an OTA client.
func NewClient(opts Options) *Client {
	if opts.FirmwareTimeout <= 0 {
		opts.FirmwareTimeout = defaultFirmwareTimeout
	}
	if opts.FilesystemTimeout <= 0 {
		opts.FilesystemTimeout = defaultFilesystemTimeout
	}
	if opts.RebootWait <= 0 {
		opts.RebootWait = defaultRebootWait
	}
	return &Client{opts: opts}
}

// deviceResponse is the JSON body a device returns after an upload.
type deviceResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Upload transfers one image to the device at host (host or host:port).
//
// It returns nil once the device has acknowledged the payload with a
// success status. The device reboots immediately afterwards; use
// AwaitReboot before issuing further requests to it.
func (c *Client) Upload(ctx context.Context, host string, kind Kind, payload io.Reader) error {
	body, contentType, err := buildForm(kind, payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	timeout := c.opts.FirmwareTimeout
	if kind == KindFilesystem {
		timeout = c.opts.FilesystemTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s/ota", host)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Body fully consumed or abandoned

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}

	var dr deviceResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	if dr.Status != "success" {
		if dr.Message == "" {
			dr.Message = "unknown error"
		}
		return fmt.Errorf("%w: %s", ErrRejected, dr.Message)
	}

	return nil
}

// AwaitReboot waits out the device's post-upload reboot window.
// It returns early with the context's error if ctx is cancelled.
func (c *Client) AwaitReboot(ctx context.Context) error {
	timer := time.NewTimer(c.opts.RebootWait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// buildForm assembles the multipart body for one upload.
func buildForm(kind Kind, payload io.Reader) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if kind == KindFilesystem {
		if err := w.WriteField("type", "filesystem"); err != nil {
			return nil, "", fmt.Errorf("writing type field: %w", err)
		}
	}

	part, err := w.CreateFormFile("update", kind.filename())
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, payload); err != nil {
		return nil, "", fmt.Errorf("copying payload: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalising form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
