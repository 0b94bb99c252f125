// farmhub-ota pushes firmware and filesystem images to a field controller
// over its HTTP OTA endpoint.
//
// Usage:
//
//	farmhub-ota -host 192.168.1.50 -firmware
//	farmhub-ota -host greenhouse.farm.local -both -fw-path build/firmware.bin
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/farmhub/farmhub-core/internal/ota"
)

// Default artifact paths match the device build output layout.
const (
	defaultFirmwarePath   = ".pio/build/esp32dev/firmware.bin"
	defaultFilesystemPath = ".pio/build/esp32dev/littlefs.bin"
)

func main() {
	var (
		host       = flag.String("host", "", "device host or host:port (required)")
		firmware   = flag.Bool("firmware", false, "upload the firmware image")
		filesystem = flag.Bool("filesystem", false, "upload the filesystem image")
		both       = flag.Bool("both", false, "upload filesystem then firmware")
		fwPath     = flag.String("fw-path", defaultFirmwarePath, "firmware image path")
		fsPath     = flag.String("fs-path", defaultFilesystemPath, "filesystem image path")
	)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *host, *firmware, *filesystem, *both, *fwPath, *fsPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, host string, firmware, filesystem, both bool, fwPath, fsPath string) error {
	if host == "" {
		return fmt.Errorf("-host is required")
	}
	if both {
		firmware = true
		filesystem = true
	}
	if !firmware && !filesystem {
		return fmt.Errorf("nothing to upload: pass -firmware, -filesystem, or -both")
	}

	client := ota.NewClient(ota.Options{})

	// Filesystem goes first so a paired upload leaves the device running
	// new firmware against new assets.
	if filesystem {
		if err := upload(ctx, client, host, ota.KindFilesystem, fsPath); err != nil {
			return err
		}
		if firmware {
			fmt.Println("waiting for device reboot...")
			if err := client.AwaitReboot(ctx); err != nil {
				return err
			}
		}
	}

	if firmware {
		if err := upload(ctx, client, host, ota.KindFirmware, fwPath); err != nil {
			return err
		}
	}

	fmt.Println("done")
	return nil
}

// upload streams one image file to the device.
func upload(ctx context.Context, client *ota.Client, host string, kind ota.Kind, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s image: %w", kind, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("inspecting %s image: %w", kind, err)
	}

	fmt.Printf("uploading %s image %s (%d bytes) to %s\n", kind, path, info.Size(), host)
	if err := client.Upload(ctx, host, kind, f); err != nil {
		return fmt.Errorf("uploading %s image: %w", kind, err)
	}
	fmt.Printf("%s upload accepted\n", kind)
	return nil
}
