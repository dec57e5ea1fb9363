package mcpserver

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadMessage(t *testing.T) {
	stream := "\r\nContent-Length: 2\r\nContent-Type: application/json\r\n\r\n{}" +
		"{\"a\":\n1}\n" +
		"\n[1,2]"
	r := bufio.NewReader(strings.NewReader(stream))

	want := []struct {
		payload  string
		jsonLine bool
	}{
		{"{}", false},
		{"{\"a\":\n1}", true},
		{"[1,2]", true},
	}
	for i, w := range want {
		payload, jsonLine, err := readMessage(r)
		if err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		if string(payload) != w.payload || jsonLine != w.jsonLine {
			t.Fatalf("message %d: got %q jsonLine=%t", i, payload, jsonLine)
		}
	}
	if _, _, err := readMessage(r); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadMessageRejectsBadHeaders(t *testing.T) {
	cases := map[string]string{
		"missing":  "Content-Type: application/json\r\n\r\n{}",
		"invalid":  "Content-Length: abc\r\n\r\n{}",
		"negative": "Content-Length: -4\r\n\r\n{}",
	}
	for name, stream := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := readMessage(bufio.NewReader(strings.NewReader(stream)))
			if err == nil || err == io.EOF {
				t.Fatalf("expected header error, got %v", err)
			}
		})
	}
}

func TestReadMessageRejectsOversizedFrame(t *testing.T) {
	stream := "Content-Length: 999999999\r\n\r\n{}"
	_, _, err := readMessage(bufio.NewReader(strings.NewReader(stream)))
	if !errors.Is(err, errMessageTooLarge) {
		t.Fatalf("expected size error, got %v", err)
	}
}
