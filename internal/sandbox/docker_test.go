package sandbox

import (
	"bytes"
	"testing"
	"testing/iotest"
)

// frame builds one multiplexed Docker log frame: the 8-byte header followed
// by the payload.
func frame(stream byte, payload string) []byte {
	size := len(payload)
	header := []byte{
		stream, 0, 0, 0,
		byte(size >> 24), byte(size >> 16), byte(size >> 8), byte(size),
	}
	return append(header, payload...)
}

func TestParseDockerLogsSplitsStreams(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(1, "out line\n"))
	buf.Write(frame(2, "err line\n"))
	buf.Write(frame(1, "second\n"))

	stdout, stderr := parseDockerLogs(&buf)
	if stdout != "out line\nsecond" {
		t.Errorf("Unexpected stdout: %q", stdout)
	}
	if stderr != "err line" {
		t.Errorf("Unexpected stderr: %q", stderr)
	}
}

func TestParseDockerLogsHandlesShortReads(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(1, "hello from the container\n"))
	buf.Write(frame(2, "warning text\n"))

	// A reader that returns one byte at a time forces every header and
	// payload read to be reassembled from partial reads.
	stdout, stderr := parseDockerLogs(iotest.OneByteReader(&buf))
	if stdout != "hello from the container" {
		t.Errorf("Unexpected stdout: %q", stdout)
	}
	if stderr != "warning text" {
		t.Errorf("Unexpected stderr: %q", stderr)
	}
}

func TestParseDockerLogsTruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(1, "complete\n"))
	// A header announcing more bytes than follow.
	buf.Write(frame(1, "cut off")[:10])

	stdout, stderr := parseDockerLogs(&buf)
	if stdout != "complete" {
		t.Errorf("Expected only the complete frame, got %q", stdout)
	}
	if stderr != "" {
		t.Errorf("Expected empty stderr, got %q", stderr)
	}
}

func TestParseMemory(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1g", 1024 * 1024 * 1024},
		{"512m", 512 * 1024 * 1024},
		{"", 1024 * 1024 * 1024},
	}
	for _, c := range cases {
		if got := parseMemory(c.in); got != c.want {
			t.Errorf("parseMemory(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
