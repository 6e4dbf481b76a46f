package linenoise

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/peterh/liner"
	"github.com/spf13/afero"
)

// ErrAborted is returned by Prompt when the user presses Ctrl-C.
var ErrAborted = liner.ErrPromptAborted

type historyReader interface {
	ReadHistory(r io.Reader) (int, error)
}

type historyWriter interface {
	WriteHistory(w io.Writer) (int, error)
}

// LineNoise is a line editor with history persisted on an afero filesystem.
type LineNoise struct {
	*liner.State
	fs afero.Fs
}

// New takes over the terminal. Callers must Close the result to restore it.
func New(fsys afero.Fs) *LineNoise {
	ln := &LineNoise{State: liner.NewLiner(), fs: fsys}
	ln.SetCtrlCAborts(true)
	return ln
}

// SetCompletions completes the first word of a line from words.
func (ln *LineNoise) SetCompletions(words []string) {
	ln.SetCompleter(func(line string) []string {
		return complete(words, line)
	})
}

func (ln *LineNoise) HistoryLoad(path string) error {
	return loadHistory(ln.fs, path, ln.State)
}

func (ln *LineNoise) HistorySave(path string) error {
	return saveHistory(ln.fs, path, ln.State)
}

func (ln *LineNoise) ClearScreen() error {
	_, err := fmt.Fprint(os.Stdout, "\x1b[H\x1b[2J")
	return err
}

// loadHistory reads path into r. A missing file is not an error.
func loadHistory(fsys afero.Fs, path string, r historyReader) error {
	content, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "read history %s", path)
	}
	if _, err := r.ReadHistory(bytes.NewReader(content)); err != nil {
		return errors.Wrap(err, "parse history")
	}
	return nil
}

func saveHistory(fsys afero.Fs, path string, w historyWriter) error {
	var buf bytes.Buffer
	if _, err := w.WriteHistory(&buf); err != nil {
		return errors.Wrap(err, "encode history")
	}
	if err := afero.WriteFile(fsys, path, buf.Bytes(), 0o600); err != nil {
		return errors.Wrapf(err, "write history %s", path)
	}
	return nil
}

func complete(words []string, line string) []string {
	var out []string
	for _, w := range words {
		if len(line) <= len(w) && strings.EqualFold(w[:len(line)], line) {
			out = append(out, w)
		}
	}
	return out
}
