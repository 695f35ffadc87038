package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
)

// fileCamera reads a pre-captured jpeg from disk. The kiosk hardware's
// camera integration hands the agent file paths the same way.
type fileCamera struct {
	path string
}

func (c fileCamera) Take(context.Context) ([]byte, error) {
	img, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("reading capture: %w", err)
	}
	return img, nil
}

var jpegMagic = []byte{0xff, 0xd8, 0xff}

// presenceDetector is the face-presence capability. Without the on-device
// detector SDK it checks only that the capture is a plausible jpeg; the
// backend does the real face matching.
type presenceDetector struct{}

func (presenceDetector) Detect(_ context.Context, image []byte) (int, error) {
	if len(image) < 4 || !bytes.HasPrefix(image, jpegMagic) {
		return 0, nil
	}
	return 1, nil
}

// consoleNotifier is the kiosk's feedback surface.
type consoleNotifier struct{}

func (consoleNotifier) Success(message string) {
	fmt.Println("✓", message)
}

func (consoleNotifier) Failure(message string) {
	fmt.Fprintln(os.Stderr, "✗", message)
}
