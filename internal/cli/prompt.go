package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

var (
	stdinOnce   sync.Once
	stdinReader *bufio.Reader
)

// stdin returns the shared buffered reader over os.Stdin.
func stdin() *bufio.Reader {
	stdinOnce.Do(func() {
		stdinReader = bufio.NewReader(os.Stdin)
	})
	return stdinReader
}

// readLine prints prompt and reads one trimmed line from in.
func readLine(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readDefault reads a line and returns def when it is empty.
func readDefault(in *bufio.Reader, out io.Writer, label, def string) string {
	prompt := label + ": "
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]: ", label, def)
	}
	line, err := readLine(in, out, prompt)
	if err != nil || line == "" {
		return def
	}
	return line
}

// readSecret reads without echo when stdin is a terminal.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(stdin(), os.Stderr, prompt)
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// promptConfirmer asks on out and reads the answer from in. Anything
// but y or yes declines, including end of input.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(message string) bool {
	answer, err := readLine(p.in, p.out, message+" [y/N]: ")
	if err != nil {
		fmt.Fprintln(p.out)
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// stdinFor returns a reader over cmd's input, sharing the process-wide
// reader when that input is os.Stdin.
func stdinFor(cmd interface{ InOrStdin() io.Reader }) *bufio.Reader {
	in := cmd.InOrStdin()
	if in == os.Stdin {
		return stdin()
	}
	if br, ok := in.(*bufio.Reader); ok {
		return br
	}
	return bufio.NewReader(in)
}
