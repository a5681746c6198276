package timew

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Client runs the timew binary.
type Client struct {
	bin    string
	logger zerolog.Logger
}

func NewClient(bin string, logger zerolog.Logger) *Client {
	if bin == "" {
		bin = "timew"
	}
	return &Client{bin: bin, logger: logger.With().Str("component", "timew").Logger()}
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.bin, args...)
	// Timewarrior asks for confirmation on some commands; never block on it.
	cmd.Stdin = strings.NewReader("")

	c.logger.Debug().Strs("args", args).Msg("running timew")
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("timew %s failed: exit code %d, stderr: %s",
				args[0], exitErr.ExitCode(), bytes.TrimSpace(exitErr.Stderr))
		}
		return nil, fmt.Errorf("timew %s failed: %w", args[0], err)
	}
	return output, nil
}

// Tag adds tag to the session with the given id. The command's output is
// ignored beyond success or failure.
func (c *Client) Tag(ctx context.Context, sessionID, tag string) error {
	_, err := c.run(ctx, "tag", "@"+sessionID, tag)
	return err
}

// Export returns the intervals matching filter, e.g. a time range.
func (c *Client) Export(ctx context.Context, filter ...string) ([]Session, error) {
	args := append([]string{"export"}, filter...)
	output, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseSessions(bytes.NewReader(output))
}

// ParseReport parses the input of a report extension: a block of
// "key: value" configuration lines, an empty line, then the JSON export.
func ParseReport(r io.Reader) (*Report, error) {
	br := bufio.NewReader(r)
	report := &Report{Config: make(map[string]string)}

	// Plain `timew export` output has no header block.
	if b, err := br.Peek(1); err == nil && b[0] == '[' {
		sessions, err := parseSessions(br)
		if err != nil {
			return nil, err
		}
		report.Sessions = sessions
		return report, nil
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read report header: %w", err)
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			if err == io.EOF {
				return report, nil
			}
			break
		}
		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			return nil, fmt.Errorf("malformed report header line %q", trimmed)
		}
		report.Config[strings.TrimSpace(key)] = strings.TrimSpace(value)
		if err == io.EOF {
			return report, nil
		}
	}

	sessions, err := parseSessions(br)
	if err != nil {
		return nil, err
	}
	report.Sessions = sessions
	return report, nil
}

func parseSessions(r io.Reader) ([]Session, error) {
	var intervals []interval
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(&intervals); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode timewarrior export: %w", err)
	}

	sessions := make([]Session, 0, len(intervals))
	for i, iv := range intervals {
		// Without explicit ids, @1 is the most recent interval.
		sessions = append(sessions, iv.session(len(intervals)-i))
	}
	return sessions, nil
}
