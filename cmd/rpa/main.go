// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

// Command rpa is a small CLI over the RPA codec: list, stats, extract,
// add, replace, delete, and save.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/woozymasta/pathrules"

	"github.com/woozymasta/rpa"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "list":
		err = cmdList(args)
	case "stats":
		err = cmdStats(args)
	case "extract":
		err = cmdExtract(args)
	case "add":
		err = cmdAdd(args)
	case "replace":
		err = cmdReplace(args)
	case "delete":
		err = cmdDelete(args)
	case "save":
		err = cmdSave(args)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "rpa %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: rpa <command> [flags]

Commands:
  list     <archive>                        list entries with sizes
  stats    <archive>                        per-kind statistics
  extract  <archive> <dir> [-p pattern]...  extract entries to directory
  add      <archive> <name> <file>          add or overwrite an entry, then save
  replace  <archive> <name> <file>          replace an existing entry, then save
  delete   <archive> <name>...              drop entries, then save
  save     <archive> [-o output]            rewrite archive (normalizes layout)`)
}

// newLogger builds console logger for codec warnings.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func openArchive(fs *flag.FlagSet, args []string, positional int) (*rpa.Archive, []string, error) {
	verbose := fs.Bool("v", false, "verbose codec logging")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	rest := fs.Args()
	if len(rest) < positional {
		fs.Usage()
		return nil, nil, fmt.Errorf("expected at least %d arguments", positional)
	}

	rpa.SetLogger(newLogger(*verbose))

	a, err := rpa.Open(rest[0])
	if err != nil {
		return nil, nil, err
	}

	return a, rest, nil
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	a, _, err := openArchive(fs, args, 1)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if a.Recovered() {
		fmt.Fprintln(os.Stderr, "note: index rebuilt by heuristic recovery, listing may be incomplete")
	}

	for _, entry := range a.Entries() {
		fmt.Printf("%10s  %s\n", humanize.Bytes(entry.Size()), entry.Name)
	}

	return nil
}

func cmdStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	a, _, err := openArchive(fs, args, 1)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	stats := a.Stats()
	fmt.Printf("version: %s\n", a.Version())
	fmt.Printf("key:     %08x\n", a.Key())
	fmt.Printf("entries: %d (%s)\n", stats.Total, stats.HumanTotalBytes)

	kinds := make([]rpa.Kind, 0, len(stats.ByKind))
	for kind := range stats.ByKind {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	for _, kind := range kinds {
		stat := stats.ByKind[kind]
		fmt.Printf("  %-7s %5d  %s\n", kind, stat.Count, stat.HumanBytes)
	}

	return nil
}

func cmdExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	var patterns stringList
	fs.Var(&patterns, "p", "include glob pattern (repeatable); default is all entries")
	workers := fs.Int("workers", 0, "extraction workers (0 = auto)")

	a, rest, err := openArchive(fs, args, 2)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		rules = append(rules, pathrules.Rule{
			Action:  pathrules.ActionInclude,
			Pattern: pattern,
		})
	}

	return a.Extract(context.Background(), rest[1], rpa.ExtractOptions{
		Rules:   rules,
		Workers: *workers,
	})
}

func cmdAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	a, rest, err := openArchive(fs, args, 3)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	data, err := os.ReadFile(rest[2])
	if err != nil {
		return err
	}

	if err := a.Add(rest[1], data); err != nil {
		return err
	}

	return a.Save(context.Background(), rest[0])
}

func cmdReplace(args []string) error {
	fs := flag.NewFlagSet("replace", flag.ContinueOnError)
	a, rest, err := openArchive(fs, args, 3)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	data, err := os.ReadFile(rest[2])
	if err != nil {
		return err
	}

	if err := a.Replace(rest[1], data); err != nil {
		return err
	}

	return a.Save(context.Background(), rest[0])
}

func cmdDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	a, rest, err := openArchive(fs, args, 2)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	for _, name := range rest[1:] {
		if err := a.MarkDeleted(name); err != nil {
			return err
		}
	}

	return a.Save(context.Background(), rest[0])
}

func cmdSave(args []string) error {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	output := fs.String("o", "", "output path (default: rewrite in place)")

	a, rest, err := openArchive(fs, args, 1)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	dst := *output
	if dst == "" {
		dst = rest[0]
	}

	return a.Save(context.Background(), dst)
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return fmt.Sprint([]string(*s))
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}
