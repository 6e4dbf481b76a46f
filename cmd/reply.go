package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fzft/go-chained-map/db"
)

// reply is rendered the way redis-cli renders RESP replies.
type reply interface {
	String() string
}

type (
	statusReply string
	bulkReply   string
	intReply    int
	textReply   string
	arrayReply  []string
	nilReply    struct{}
)

func (r statusReply) String() string { return string(r) }
func (r bulkReply) String() string   { return strconv.Quote(string(r)) }
func (r intReply) String() string    { return fmt.Sprintf("(integer) %d", int(r)) }
func (r textReply) String() string   { return string(r) }
func (nilReply) String() string      { return "(nil)" }

func (r arrayReply) String() string {
	if len(r) == 0 {
		return "(empty array)"
	}
	var b strings.Builder
	pad := len(strconv.Itoa(len(r)))
	for i, item := range r {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%*d) %s", pad, i+1, strconv.Quote(item))
	}
	return b.String()
}

// columnReply lays items out in columns when a terminal width is known.
type columnReply struct {
	items []string
	width int
}

func (r columnReply) String() string {
	if r.width <= 0 || len(r.items) == 0 {
		return arrayReply(r.items).String()
	}
	return formatColumns(r.items, r.width)
}

// formatColumns prints items column-major, ls style, in as many columns as
// fit in width.
func formatColumns(items []string, width int) string {
	colWidth := 0
	for _, it := range items {
		if len(it) > colWidth {
			colWidth = len(it)
		}
	}
	colWidth += 2

	cols := width / colWidth
	if cols < 1 {
		cols = 1
	}
	rows := (len(items) + cols - 1) / cols

	var b strings.Builder
	for row := 0; row < rows; row++ {
		var line strings.Builder
		for col := 0; col < cols; col++ {
			i := col*rows + row
			if i >= len(items) {
				break
			}
			fmt.Fprintf(&line, "%-*s", colWidth, items[i])
		}
		if row > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
	}
	return b.String()
}

func statsReply(s db.Stats) textReply {
	return textReply(fmt.Sprintf(
		"buckets:%d\nentries:%d\nempty_buckets:%d\nlongest_chain:%d\nload_factor:%.2f",
		s.Buckets, s.Entries, s.EmptyBuckets, s.LongestChain, s.LoadFactor,
	))
}
