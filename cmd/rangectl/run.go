package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/henderiw/rangecollection/pkg/rangecollection"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultScript = `add 1 5
add 10 20
add 20 20
add 20 21
add 2 4
add 3 8
remove 10 10
remove 10 11
remove 15 17
remove 3 19
`

func newRunCmd() *cobra.Command {
	var (
		file      string
		seed      string
		keepGoing bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply add/remove lines to a collection and print it after every step",
		Long: `Reads lines of the form "add <start> <end>" or "remove <start> <end>"
from --file ("-" for stdin) and prints the collection after each line.
Without --file the built in example sequence is replayed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := rangecollection.Parse(seed)
			if err != nil {
				return err
			}

			var in io.Reader = strings.NewReader(defaultScript)
			switch file {
			case "":
			case "-":
				in = cmd.InOrStdin()
			default:
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return applyScript(rc, in, cmd.OutOrStdout(), keepGoing)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "script file, - for stdin")
	cmd.Flags().StringVar(&seed, "seed", "", `initial collection, e.g. "[1, 5), [10, 20)"`)
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "log invalid lines and continue")
	return cmd
}

// applyScript applies every script line to rc and prints rc after each one.
func applyScript(rc *rangecollection.RangeCollection, in io.Reader, out io.Writer, keepGoing bool) error {
	scanner := bufio.NewScanner(in)
	lineNr := 0
	for scanner.Scan() {
		lineNr++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := applyLine(rc, line); err != nil {
			log.WithFields(logrus.Fields{"line": lineNr, "input": line}).Error(err)
			if keepGoing {
				continue
			}
			return fmt.Errorf("line %d: %w", lineNr, err)
		}
		if err := rc.Print(out); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func applyLine(rc *rangecollection.RangeCollection, line string) error {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return fmt.Errorf("expected \"<add|remove> <start> <end>\", got %q", line)
	}
	start, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid start %q: %w", fields[1], rangecollection.ErrInvalidRange)
	}
	end, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid end %q: %w", fields[2], rangecollection.ErrInvalidRange)
	}
	r := rangecollection.RangeFrom(start, end)

	switch fields[0] {
	case "add":
		err = rc.Add(r)
	case "remove":
		err = rc.Remove(r)
	default:
		return fmt.Errorf("unknown operation %q", fields[0])
	}
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"op": fields[0], "range": r.String(), "ranges": rc.Count()}).Debug("applied")
	return nil
}
