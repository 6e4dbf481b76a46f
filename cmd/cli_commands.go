package cmd

import (
	"fmt"
	"strings"
)

const (
	groupKeyspace      = "keyspace"
	groupIntrospection = "introspection"
	groupShell         = "shell"
)

// commandDocs documentation info used for help command and arity checks.
type commandDocs struct {
	name    string
	params  string
	summary string
	group   string

	// arity counts the command name. Positive values are exact, negative
	// values are a minimum.
	arity int
	// maxArgs bounds a negative arity; 0 means unbounded.
	maxArgs int
}

var commandTable = []commandDocs{
	{name: "SET", params: "key value [GET]", summary: "Insert or update the value stored at key; GET replies with the previous value", group: groupKeyspace, arity: -3, maxArgs: 4},
	{name: "GET", params: "key", summary: "Get the value stored at key", group: groupKeyspace, arity: 2},
	{name: "DEL", params: "key [key ...]", summary: "Remove keys and reply with the number removed", group: groupKeyspace, arity: -2},
	{name: "EXISTS", params: "key", summary: "Reply 1 if key is present, 0 otherwise", group: groupKeyspace, arity: 2},
	{name: "KEYS", summary: "List every key in bucket order", group: groupKeyspace, arity: 1},
	{name: "SAMPLE", params: "count", summary: "Up to count keys taken from random buckets", group: groupKeyspace, arity: 2},
	{name: "LEN", summary: "Number of entries", group: groupIntrospection, arity: 1},
	{name: "DBSIZE", summary: "Alias of LEN", group: groupIntrospection, arity: 1},
	{name: "STATS", summary: "Bucket layout of the table", group: groupIntrospection, arity: 1},
	{name: "HELP", params: "[command]", summary: "Show help for all commands or one command", group: groupShell, arity: -1, maxArgs: 2},
	{name: "CLEAR", summary: "Clear the screen", group: groupShell, arity: 1},
	{name: "QUIT", summary: "Leave the shell", group: groupShell, arity: 1},
	{name: "EXIT", summary: "Alias of QUIT", group: groupShell, arity: 1},
}

func lookupCommand(name string) (commandDocs, bool) {
	for _, c := range commandTable {
		if strings.EqualFold(c.name, name) {
			return c, true
		}
	}
	return commandDocs{}, false
}

func commandNames() []string {
	names := make([]string, 0, len(commandTable))
	for _, c := range commandTable {
		names = append(names, c.name)
	}
	return names
}

// checkArity reports whether argc (command name included) fits c.
func (c commandDocs) checkArity(argc int) bool {
	if c.arity >= 0 {
		return argc == c.arity
	}
	if argc < -c.arity {
		return false
	}
	return c.maxArgs == 0 || argc <= c.maxArgs
}

func (c commandDocs) usage() string {
	if c.params == "" {
		return c.name
	}
	return c.name + " " + c.params
}

func helpAll() string {
	var b strings.Builder
	b.WriteString("Commands are case insensitive. Prefix a command with a number to repeat it.\n")
	for _, group := range []string{groupKeyspace, groupIntrospection, groupShell} {
		fmt.Fprintf(&b, "\n@%s\n", group)
		for _, c := range commandTable {
			if c.group == group {
				fmt.Fprintf(&b, "  %-24s %s\n", c.usage(), c.summary)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func helpCommand(c commandDocs) string {
	return fmt.Sprintf("\n  %s\n  summary: %s\n  group: %s\n", c.usage(), c.summary, c.group)
}
