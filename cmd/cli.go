package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fzft/go-chained-map/db"
	"github.com/fzft/go-chained-map/deps/linenoise"
	"github.com/fzft/go-chained-map/log"
	"github.com/go-faster/errors"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrWrongArity     = errors.New("wrong number of arguments")
	ErrUnbalanced     = errors.New("unbalanced quotes")
)

// lineReader is satisfied by linenoise.LineNoise and by scannerReader for
// piped input.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

type historyAppender interface {
	AppendHistory(item string)
}

type scannerReader struct {
	sc *bufio.Scanner
}

func newScannerReader(r io.Reader) *scannerReader {
	return &scannerReader{sc: bufio.NewScanner(r)}
}

func (s *scannerReader) Prompt(string) (string, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.sc.Text(), nil
}

// Cli is an interactive shell over a single string table.
type Cli struct {
	config *Config
	table  *db.HashTable[string, string]
	out    io.Writer
	rnd    *rand.Rand

	// width is the terminal width used to lay out KEYS; 0 prints a list.
	width int
	clear func() error
}

func NewCli(config *Config, table *db.HashTable[string, string], out io.Writer) *Cli {
	return &Cli{
		config: config,
		table:  table,
		out:    out,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func newReplCommand(config *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive shell over an in-memory table (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd, config)
		},
	}
}

func runRepl(cmd *cobra.Command, config *Config) error {
	cli := NewCli(config, config.NewTable(), cmd.OutOrStdout())

	if sr := replReader(cmd.InOrStdin()); sr != nil {
		return cli.Repl(cmd.Context(), sr)
	}

	if isatty.IsTerminal(os.Stdout.Fd()) {
		cli.width = terminalWidth(os.Stdout.Fd())
	}

	ln := linenoise.New(afero.NewOsFs())
	defer ln.Close()
	ln.SetCompletions(commandNames())
	cli.clear = ln.ClearScreen

	historyFile := config.HistoryPath()
	if historyFile != "" {
		if err := ln.HistoryLoad(historyFile); err != nil {
			log.Logger.Warn("load history", zap.Error(err))
		}
	}

	err := cli.Repl(cmd.Context(), ln)

	if historyFile != "" {
		if err := ln.HistorySave(historyFile); err != nil {
			log.Logger.Warn("save history", zap.Error(err))
		}
	}
	return err
}

// replReader returns a scanner over in unless in is the process's terminal
// stdin, in which case it returns nil and the caller opens a line editor.
func replReader(in io.Reader) lineReader {
	if in == io.Reader(os.Stdin) && isatty.IsTerminal(os.Stdin.Fd()) {
		return nil
	}
	return newScannerReader(in)
}

// Repl reads commands from lr until EOF, QUIT or Ctrl-C.
func (cli *Cli) Repl(ctx context.Context, lr lineReader) error {
	history, _ := lr.(historyAppender)

	for ctx.Err() == nil {
		line, err := lr.Prompt(cli.config.Prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, linenoise.ErrAborted) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read line")
		}

		argv, err := splitArgs(line)
		if err != nil {
			fmt.Fprintf(cli.out, "Invalid argument(s)\n")
			continue
		}
		if len(argv) == 0 {
			continue
		}
		if history != nil {
			history.AppendHistory(line)
		}

		// check if we have a repeat command option and need to skip the first arg
		repeat := 1
		if n, err := strconv.Atoi(argv[0]); err == nil && len(argv) > 1 {
			if n <= 0 {
				fmt.Fprintln(cli.out, "Invalid repeat command option value.")
				continue
			}
			repeat = n
			argv = argv[1:]
		}

		if strings.EqualFold(argv[0], "quit") || strings.EqualFold(argv[0], "exit") {
			return nil
		}

		for i := 0; i < repeat; i++ {
			startTime := time.Now()
			r, err := cli.execute(argv)
			if err != nil {
				fmt.Fprintf(cli.out, "(error) ERR %v\n", err)
				break
			}
			if r != nil {
				fmt.Fprintln(cli.out, r.String())
			}
			log.Logger.Debug("command executed",
				zap.String("command", strings.ToUpper(argv[0])),
				zap.Duration("elapsed", time.Since(startTime)),
			)
		}
	}
	return ctx.Err()
}

// execute runs one command. A nil reply prints nothing.
func (cli *Cli) execute(argv []string) (reply, error) {
	c, ok := lookupCommand(argv[0])
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCommand, "command %q", argv[0])
	}
	if !c.checkArity(len(argv)) {
		return nil, errors.Wrapf(ErrWrongArity, "command %q", strings.ToLower(c.name))
	}

	switch c.name {
	case "SET":
		withGet := len(argv) == 4
		if withGet && !strings.EqualFold(argv[3], "GET") {
			return nil, errors.Errorf("syntax error near %q", argv[3])
		}
		prev, replaced := cli.table.Insert(argv[1], argv[2])
		switch {
		case !withGet:
			return statusReply("OK"), nil
		case replaced:
			return bulkReply(prev), nil
		default:
			return nilReply{}, nil
		}
	case "GET":
		v, ok := cli.table.Get(argv[1])
		if !ok {
			return nilReply{}, nil
		}
		return bulkReply(v), nil
	case "DEL":
		removed := 0
		for _, key := range argv[1:] {
			if _, ok := cli.table.Remove(key); ok {
				removed++
			}
		}
		return intReply(removed), nil
	case "EXISTS":
		if cli.table.ContainsKey(argv[1]) {
			return intReply(1), nil
		}
		return intReply(0), nil
	case "KEYS":
		keys := make([]string, 0, cli.table.Len())
		for k := range cli.table.Keys() {
			keys = append(keys, k)
		}
		return columnReply{items: keys, width: cli.width}, nil
	case "SAMPLE":
		n, err := strconv.Atoi(argv[1])
		if err != nil || n < 0 {
			return nil, errors.Errorf("value is not a non-negative integer: %q", argv[1])
		}
		keys := cli.table.SampleKeys(n, cli.rnd)
		if keys == nil {
			keys = []string{}
		}
		return arrayReply(keys), nil
	case "LEN", "DBSIZE":
		return intReply(cli.table.Len()), nil
	case "STATS":
		return statsReply(cli.table.Stats()), nil
	case "HELP":
		if len(argv) == 2 {
			target, ok := lookupCommand(argv[1])
			if !ok {
				return nil, errors.Wrapf(ErrUnknownCommand, "command %q", argv[1])
			}
			return textReply(helpCommand(target)), nil
		}
		return textReply(helpAll()), nil
	case "CLEAR":
		if cli.clear != nil {
			if err := cli.clear(); err != nil {
				return nil, errors.Wrap(err, "clear screen")
			}
		}
		return nil, nil
	}
	return nil, errors.Wrapf(ErrUnknownCommand, "command %q", argv[0])
}

// splitArgs splits a line into arguments. Arguments may be "double quoted"
// with backslash escapes (\n \r \t \b \a \xHH) or 'single quoted' with \'.
// A closing quote must be followed by a space or the end of the line.
func splitArgs(line string) ([]string, error) {
	var (
		args []string
		i    int
	)
	for {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i == len(line) {
			return args, nil
		}

		var (
			cur     strings.Builder
			inDq    bool
			inSq    bool
			done    bool
			started = i
		)
		for !done {
			if i == len(line) {
				if inDq || inSq {
					return nil, errors.Wrapf(ErrUnbalanced, "at offset %d", started)
				}
				break
			}
			c := line[i]
			switch {
			case inDq:
				switch {
				case c == '\\' && i+3 < len(line) && line[i+1] == 'x' && isHex(line[i+2]) && isHex(line[i+3]):
					b, _ := strconv.ParseUint(line[i+2:i+4], 16, 8)
					cur.WriteByte(byte(b))
					i += 3
				case c == '\\' && i+1 < len(line):
					i++
					cur.WriteByte(unescape(line[i]))
				case c == '"':
					if i+1 < len(line) && !isSpace(line[i+1]) {
						return nil, errors.Wrapf(ErrUnbalanced, "at offset %d", i)
					}
					done = true
				default:
					cur.WriteByte(c)
				}
			case inSq:
				switch {
				case c == '\\' && i+1 < len(line) && line[i+1] == '\'':
					i++
					cur.WriteByte('\'')
				case c == '\'':
					if i+1 < len(line) && !isSpace(line[i+1]) {
						return nil, errors.Wrapf(ErrUnbalanced, "at offset %d", i)
					}
					done = true
				default:
					cur.WriteByte(c)
				}
			default:
				switch {
				case isSpace(c):
					done = true
				case c == '"':
					inDq = true
				case c == '\'':
					inSq = true
				default:
					cur.WriteByte(c)
				}
			}
			if i < len(line) {
				i++
			}
		}
		args = append(args, cur.String())
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'a':
		return '\a'
	default:
		return c
	}
}
