package capture

import (
	"fmt"
	"runtime"
)

// Capture format shared by all platform backends: mono signed 16-bit PCM.
const (
	SampleRate = 48000

	// FrameSamples is the delivery granularity, ~21ms at 48kHz.
	FrameSamples = 1024
)

// commandConfig describes the platform capture command.
type commandConfig struct {
	command       string
	defaultDevice string
	usesFFmpeg    bool
	buildArgs     func(device string) []string
}

// platformConfig returns the capture command configuration for the current
// platform. Linux records via arecord; macOS and Windows go through FFmpeg's
// native capture inputs.
func platformConfig() commandConfig {
	switch runtime.GOOS {
	case "darwin":
		return commandConfig{
			command:       "ffmpeg",
			defaultDevice: ":0",
			usesFFmpeg:    true,
			buildArgs: func(device string) []string {
				return []string{
					"-hide_banner", "-loglevel", "error",
					"-f", "avfoundation", "-i", device,
					"-ac", "1", "-ar", fmt.Sprint(SampleRate),
					"-f", "s16le", "-",
				}
			},
		}
	case "windows":
		return commandConfig{
			command:    "ffmpeg",
			usesFFmpeg: true,
			buildArgs: func(device string) []string {
				return []string{
					"-hide_banner", "-loglevel", "error",
					"-f", "dshow", "-i", "audio=" + device,
					"-ac", "1", "-ar", fmt.Sprint(SampleRate),
					"-f", "s16le", "-",
				}
			},
		}
	default:
		return commandConfig{
			command:       "arecord",
			defaultDevice: "default",
			buildArgs: func(device string) []string {
				return []string{
					"-D", device,
					"-f", "S16_LE",
					"-c", "1",
					"-r", fmt.Sprint(SampleRate),
					"-t", "raw",
					"-q",
				}
			},
		}
	}
}

// BuildCaptureCommand returns the command and arguments that produce raw
// s16le PCM on stdout for the given device. An empty device selects the
// platform default; ffmpegPath overrides the ffmpeg binary on platforms
// that capture through FFmpeg.
func BuildCaptureCommand(device, ffmpegPath string) (string, []string, error) {
	cfg := platformConfig()

	if device == "" {
		device = cfg.defaultDevice
	}
	if device == "" {
		return "", nil, fmt.Errorf("capture: no input device configured for %s", runtime.GOOS)
	}

	command := cfg.command
	if cfg.usesFFmpeg && ffmpegPath != "" {
		command = ffmpegPath
	}

	return command, cfg.buildArgs(device), nil
}
