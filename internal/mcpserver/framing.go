package mcpserver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxMessageBytes bounds a single framed payload.
const maxMessageBytes = 4 << 20

var errMessageTooLarge = errors.New("message exceeds size limit")

// readMessage returns the next payload and whether it arrived as a bare JSON
// line rather than with a Content-Length header.
func readMessage(r *bufio.Reader) ([]byte, bool, error) {
	firstLine, err := skipBlankLines(r)
	if err != nil {
		return nil, false, err
	}

	trimmed := strings.TrimSpace(firstLine)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		payload, err := readJSONLine(r, firstLine)
		return payload, true, err
	}

	contentLength, err := readHeaders(r, firstLine)
	if err != nil {
		return nil, false, err
	}
	if contentLength > maxMessageBytes {
		return nil, false, fmt.Errorf("%w: %d bytes", errMessageTooLarge, contentLength)
	}

	payload := make([]byte, contentLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, false, err
	}
	return payload, false, nil
}

// skipBlankLines returns the first non-empty line. A stream that ends on
// blank lines reports io.EOF.
func skipBlankLines(r *bufio.Reader) (string, error) {
	for {
		line, err := r.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			if err != nil && err != io.EOF {
				return "", err
			}
			if err == io.EOF && !strings.HasSuffix(line, "\n") {
				// A trailing JSON line without newline is still a message.
				return line + "\n", nil
			}
			return line, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func readHeaders(r *bufio.Reader, line string) (int, error) {
	contentLength := -1
	for {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			break
		}
		if key, value, ok := strings.Cut(trimmed, ":"); ok && strings.EqualFold(strings.TrimSpace(key), "Content-Length") {
			parsed, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || parsed < 0 {
				return 0, fmt.Errorf("invalid Content-Length %q", strings.TrimSpace(value))
			}
			contentLength = parsed
		}

		var err error
		line, err = r.ReadString('\n')
		if err != nil {
			return 0, err
		}
	}
	if contentLength < 0 {
		return 0, errors.New("missing Content-Length header")
	}
	return contentLength, nil
}

// readJSONLine accumulates lines until they form one valid JSON value.
func readJSONLine(r *bufio.Reader, firstLine string) ([]byte, error) {
	buf := bytes.NewBufferString(firstLine)
	for {
		candidate := bytes.TrimSpace(buf.Bytes())
		if json.Valid(candidate) {
			return candidate, nil
		}
		if buf.Len() > maxMessageBytes {
			return nil, errMessageTooLarge
		}
		line, err := r.ReadString('\n')
		buf.WriteString(line)
		if err != nil {
			if err == io.EOF && json.Valid(bytes.TrimSpace(buf.Bytes())) {
				return bytes.TrimSpace(buf.Bytes()), nil
			}
			return nil, err
		}
	}
}

func writeFramedMessage(w *bufio.Writer, payload []byte) error {
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeJSONLineMessage(w *bufio.Writer, payload []byte) error {
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}
