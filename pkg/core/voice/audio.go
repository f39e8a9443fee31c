package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/lyra-voice/lyra/pkg/core/voice/tts"
)

// FFmpegMicSource returns a SourceFactory that captures the default
// microphone with ffmpeg as raw 16-bit mono PCM at sampleRate.
func FFmpegMicSource(sampleRate int) SourceFactory {
	return func() (io.ReadCloser, error) {
		if _, err := exec.LookPath("ffmpeg"); err != nil {
			return nil, errors.New("ffmpeg is required for microphone capture (install ffmpeg and ensure it is in PATH)")
		}
		args, err := micArgs(runtime.GOOS, sampleRate)
		if err != nil {
			return nil, err
		}
		cmd := exec.Command("ffmpeg", args...)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("open ffmpeg stdout: %w", err)
		}
		cmd.Stderr = io.Discard
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("start ffmpeg mic capture: %w", err)
		}
		return &micCapture{cmd: cmd, stdout: stdout}, nil
	}
}

func micArgs(goos string, sampleRate int) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "avfoundation", "-i", ":0",
			"-ac", "1", "-ar", fmt.Sprintf("%d", sampleRate),
			"-f", "s16le", "-",
		}, nil
	case "linux":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "pulse", "-i", "default",
			"-ac", "1", "-ar", fmt.Sprintf("%d", sampleRate),
			"-f", "s16le", "-",
		}, nil
	default:
		return nil, fmt.Errorf("microphone capture is not implemented for %s; supported platforms: darwin, linux", goos)
	}
}

type micCapture struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func (m *micCapture) Read(p []byte) (int, error) {
	return m.stdout.Read(p)
}

func (m *micCapture) Close() error {
	if m.cmd != nil && m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
		_ = m.cmd.Wait()
	}
	return nil
}

// FFplaySink plays synthesized clips through ffplay. One process per clip;
// -autoexit ends it when the audio has drained.
type FFplaySink struct{}

// NewFFplaySink creates the sink, checking that ffplay is installed.
func NewFFplaySink() (*FFplaySink, error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, errors.New("ffplay is required for audio playback (install ffmpeg/ffplay and ensure it is in PATH)")
	}
	return &FFplaySink{}, nil
}

// Play feeds one clip to ffplay and waits for it to finish.
func (s *FFplaySink) Play(ctx context.Context, synth *tts.Synthesis) error {
	args := []string{"-nodisp", "-autoexit", "-loglevel", "error"}
	if synth.Format == "pcm" {
		sampleRate := synth.SampleRate
		if sampleRate == 0 {
			sampleRate = 24000
		}
		args = append(args, "-f", "s16le", "-ar", fmt.Sprintf("%d", sampleRate), "-ac", "1")
	}
	args = append(args, "-i", "pipe:0")

	cmd := exec.CommandContext(ctx, "ffplay", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open ffplay stdin: %w", err)
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffplay: %w", err)
	}
	if _, err := stdin.Write(synth.Audio); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("write audio: %w", err)
	}
	_ = stdin.Close()
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffplay: %w", err)
	}
	return nil
}
