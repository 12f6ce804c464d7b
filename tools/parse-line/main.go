package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/john/tmichat/internal/irc"
	"github.com/john/tmichat/internal/message"
)

// parse-line classifies raw chat lines read from stdin (or the files named
// on the command line) and prints one JSON record per line.
func main() {
	inputs := []*os.File{os.Stdin}
	if len(os.Args) > 1 {
		inputs = inputs[:0]
		for _, name := range os.Args[1:] {
			f, err := os.Open(name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()
			inputs = append(inputs, f)
		}
	}

	out := json.NewEncoder(os.Stdout)
	counts := make(map[irc.Kind]int)
	now := time.Now()

	for _, in := range inputs {
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 4096), 64*1024)
		for sc.Scan() {
			if sc.Text() == "" {
				continue
			}
			ev := irc.NewEvent(sc.Text())
			counts[ev.Kind()]++
			if err := out.Encode(message.FromEvent(ev, now)); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		if err := sc.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", in.Name(), err)
			os.Exit(1)
		}
	}

	fmt.Fprintln(os.Stderr, "Summary:")
	for kind := irc.Unknown; kind <= irc.UserLeave; kind++ {
		if counts[kind] > 0 {
			fmt.Fprintf(os.Stderr, "  %-12s %d\n", kind, counts[kind])
		}
	}
}
