package utils

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/zap"
)

// FrameCapture grabs a single camera frame on the host. Most deployments
// push frames from the client device instead; this is the fallback for
// scan requests that arrive without one.
type FrameCapture struct {
	DeviceID int
}

func NewFrameCapture() *FrameCapture {
	return &FrameCapture{
		DeviceID: 0, // Default camera device
	}
}

// Capture grabs one JPEG frame. The resolution is kept high enough for the
// vision model to read signage.
func (c *FrameCapture) Capture(ctx context.Context) ([]byte, error) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "ffmpeg",
			"-f", "avfoundation",
			"-video_size", "1280x720",
			"-framerate", "30",
			"-i", fmt.Sprintf("%d", c.DeviceID),
			"-vframes", "1",
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "2",
			"-")
	case "linux":
		cmd = exec.CommandContext(ctx, "ffmpeg",
			"-f", "v4l2",
			"-video_size", "1280x720",
			"-i", fmt.Sprintf("/dev/video%d", c.DeviceID),
			"-vframes", "1",
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "2",
			"-")
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	output, err := cmd.Output()
	if err != nil {
		zap.L().Error("Failed to capture frame from camera", zap.Error(err))
		return nil, fmt.Errorf("failed to capture frame: %w", err)
	}

	if len(output) == 0 {
		return nil, fmt.Errorf("no frame data captured")
	}

	zap.L().Debug("Captured camera frame", zap.Int("size", len(output)))
	return output, nil
}
