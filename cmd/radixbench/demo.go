package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	radix "github.com/akmistry/go-radix/radix-tree"
)

var demoKeys = []string{"c", "c", "a", "b", "abba", "ab", "abc", "abd"}

func renderEntries(w io.Writer, title string, entries []radix.Entry[string]) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{title})
	t.AppendSeparator()

	t.AppendRow(table.Row{"Key", "Value"})
	t.AppendSeparator()
	for _, e := range entries {
		t.AppendRow(table.Row{fmt.Sprintf("%q", e.Key), e.Value})
	}

	fmt.Fprintln(w, t.Render())
}

func runDemo(w io.Writer) (*radix.Tree[string], error) {
	var tree radix.Tree[string]
	for _, k := range demoKeys {
		old, replaced, err := tree.Insert(k, k+"_")
		if err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"key":      k,
			"replaced": replaced,
			"previous": old,
		}).Debugln("Inserted")
	}

	for _, k := range []string{"abba", "abbaaa"} {
		v, ok := tree.Get(k)
		logrus.WithFields(logrus.Fields{
			"key":   k,
			"found": ok,
			"value": v,
		}).Println("Lookup")
	}

	renderEntries(w, "All entries", tree.Entries())
	renderEntries(w, `Entries under "ab"`, tree.Subtree("ab").Entries())
	return &tree, nil
}

func demoCommand() cli.Command {
	return cli.Command{
		Name:  "demo",
		Usage: "insert a handful of keys and print lookups, entries and a prefix subtree",
		Action: func(c *cli.Context) error {
			_, err := runDemo(c.App.Writer)
			return err
		},
	}
}
