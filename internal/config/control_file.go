package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// ReadControlFile loads a control file as one command string. Each line
// holds directives; lines starting with '#' are comments. Lines are joined
// with a single space so a command may be split across lines, but a quoted
// value must not span a line break.
func ReadControlFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read control file: %w", err)
	}
	return parseControlFile(data), nil
}

func parseControlFile(data []byte) string {
	var parts []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, " ")
}
