package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jsondocdb/jsondoc/pkg/log"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive session against a resident Engine",
	Long: `repl keeps one Engine instance alive for the duration of the
session instead of reloading the key space from disk on every
command, then saves every key to disk on exit.

Commands are typed one per line, e.g.:
  SET doc . {"a":1}
  GET doc .a
  DEBUG MEMORY`,
	RunE: runRepl,
}

func runRepl(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")

	eng, ks, err := openEngine(dataDir)
	if err != nil {
		return err
	}
	defer ks.Close()
	defer func() {
		if err := eng.SaveAll(ks); err != nil {
			log.Errorf("save key space on exit", err)
		}
	}()

	fmt.Println("jsondoc-bench repl — type HELP or press Ctrl+D to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "HELP") {
			fmt.Println("type any engine command, e.g. SET k . {\"a\":1} / GET k . / DEBUG MEMORY")
			continue
		}
		fields := tokenize(line)
		if len(fields) == 0 {
			continue
		}
		reply, err := eng.Dispatch(fields[0], fields[1:])
		if err != nil {
			fmt.Printf("(error) %v\n", err)
			continue
		}
		printReply(reply)
	}
	fmt.Println()
	return nil
}

// tokenize splits line on whitespace, treating a single- or
// double-quoted run that starts a field (needed for JSON payloads
// containing spaces) as one field; quotes inside a field are kept.
func tokenize(line string) []string {
	var fields []string
	var b strings.Builder
	inQuote := byte(0)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			} else {
				b.WriteByte(c)
			}
		case (c == '\'' || c == '"') && b.Len() == 0:
			inQuote = c
		case c == ' ' || c == '\t':
			if b.Len() > 0 {
				fields = append(fields, b.String())
				b.Reset()
			}
		default:
			b.WriteByte(c)
		}
	}
	if b.Len() > 0 {
		fields = append(fields, b.String())
	}
	return fields
}
