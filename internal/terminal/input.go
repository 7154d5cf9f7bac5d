// Package terminal handles raw user input from stdin.
package terminal

import (
	"bufio"
	"os"
	"strings"
)

// Reader reads user input line by line. It wraps a single buffered reader so
// typed-ahead input is not lost between prompts.
type Reader struct {
	r *bufio.Reader
}

// NewReader creates a reader over stdin.
func NewReader() *Reader {
	return &Reader{r: bufio.NewReader(os.Stdin)}
}

// ReadLine reads one line of input, trimmed of surrounding whitespace.
// Returns io.EOF when stdin is closed.
func (r *Reader) ReadLine() (string, error) {
	input, err := r.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
