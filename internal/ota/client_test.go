package ota

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// otaDevice fakes a device's /ota endpoint and records what it received.
type otaDevice struct {
	gotFile  []byte
	gotName  string
	gotType  string
	response string
	status   int
}

func (d *otaDevice) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ota" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		d.gotType = r.FormValue("type")

		file, header, err := r.FormFile("update")
		if err != nil {
			t.Errorf("reading update file: %v", err)
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close() //nolint:errcheck // test server
		d.gotName = header.Filename
		d.gotFile, _ = io.ReadAll(file)

		if d.status == 0 {
			d.status = http.StatusOK
		}
		w.WriteHeader(d.status)
		//nolint:errcheck // test server write
		w.Write([]byte(d.response))
	}
}

func startDevice(t *testing.T, d *otaDevice) string {
	t.Helper()
	srv := httptest.NewServer(d.handler(t))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}
	return u.Host
}

func TestUpload_Firmware(t *testing.T) {
	dev := &otaDevice{response: `{"status":"success"}`}
	host := startDevice(t, dev)

	c := NewClient(Options{})
	err := c.Upload(context.Background(), host, KindFirmware, strings.NewReader("binary-image"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if string(dev.gotFile) != "binary-image" {
		t.Errorf("device received %q, want payload bytes", dev.gotFile)
	}
	if dev.gotName != "firmware.bin" {
		t.Errorf("upload filename = %q, want firmware.bin", dev.gotName)
	}
	if dev.gotType != "" {
		t.Errorf("firmware upload sent type=%q, want no type field", dev.gotType)
	}
}

func TestUpload_FilesystemSendsTypeField(t *testing.T) {
	dev := &otaDevice{response: `{"status":"success"}`}
	host := startDevice(t, dev)

	c := NewClient(Options{})
	err := c.Upload(context.Background(), host, KindFilesystem, strings.NewReader("fs-image"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if dev.gotType != "filesystem" {
		t.Errorf("type field = %q, want filesystem", dev.gotType)
	}
	if dev.gotName != "littlefs.bin" {
		t.Errorf("upload filename = %q, want littlefs.bin", dev.gotName)
	}
}

func TestUpload_DeviceRejects(t *testing.T) {
	dev := &otaDevice{response: `{"status":"error","message":"not enough space"}`}
	host := startDevice(t, dev)

	c := NewClient(Options{})
	err := c.Upload(context.Background(), host, KindFirmware, strings.NewReader("img"))
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("Upload() error = %v, want ErrRejected", err)
	}
	if !strings.Contains(err.Error(), "not enough space") {
		t.Errorf("error %q does not carry the device message", err)
	}
}

func TestUpload_Non200(t *testing.T) {
	dev := &otaDevice{response: "internal error", status: http.StatusInternalServerError}
	host := startDevice(t, dev)

	c := NewClient(Options{})
	err := c.Upload(context.Background(), host, KindFirmware, strings.NewReader("img"))
	if !errors.Is(err, ErrUploadFailed) {
		t.Errorf("Upload() error = %v, want ErrUploadFailed", err)
	}
}

func TestUpload_MalformedResponse(t *testing.T) {
	dev := &otaDevice{response: "OK"}
	host := startDevice(t, dev)

	c := NewClient(Options{})
	err := c.Upload(context.Background(), host, KindFirmware, strings.NewReader("img"))
	if !errors.Is(err, ErrBadResponse) {
		t.Errorf("Upload() error = %v, want ErrBadResponse", err)
	}
}

func TestUpload_Unreachable(t *testing.T) {
	c := NewClient(Options{FirmwareTimeout: time.Second})
	err := c.Upload(context.Background(), "127.0.0.1:1", KindFirmware, strings.NewReader("img"))
	if !errors.Is(err, ErrUploadFailed) {
		t.Errorf("Upload() error = %v, want ErrUploadFailed", err)
	}
}

func TestAwaitReboot_Completes(t *testing.T) {
	c := NewClient(Options{RebootWait: 10 * time.Millisecond})
	if err := c.AwaitReboot(context.Background()); err != nil {
		t.Errorf("AwaitReboot() error = %v", err)
	}
}

func TestAwaitReboot_Cancelled(t *testing.T) {
	c := NewClient(Options{RebootWait: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.AwaitReboot(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("AwaitReboot() error = %v, want context.Canceled", err)
	}
}
