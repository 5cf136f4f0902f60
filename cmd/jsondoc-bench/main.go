package main

import (
	"fmt"
	"os"

	"github.com/jsondocdb/jsondoc/pkg/config"
	"github.com/jsondocdb/jsondoc/pkg/engine"
	"github.com/jsondocdb/jsondoc/pkg/host"
	"github.com/jsondocdb/jsondoc/pkg/log"
	"github.com/jsondocdb/jsondoc/pkg/persist"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "jsondoc-bench",
	Short:   "Standalone command-line harness for the embedded JSON document engine",
	Version: Version,
	Long: `jsondoc-bench drives pkg/engine directly from the command line,
without a host process in front of it: every invocation opens the
bbolt-backed key space under --data-dir, loads it into a fresh Engine,
runs one command, persists anything that changed, and exits.

Use "jsondoc-bench repl" for an interactive session that keeps the
engine resident across multiple commands instead of reloading it
from disk each time.`,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"jsondoc-bench version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("data-dir", "./jsondoc-data", "Data directory for the key-space store")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(delCmd)
	rootCmd.AddCommand(mgetCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(replCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// openEngine opens the bbolt-backed key space at dataDir, loads its
// contents into a fresh Engine, and returns both so the caller can run
// a command and persist any mutation before closing the store.
func openEngine(dataDir string) (*engine.Engine, *persist.KeyspaceStore, error) {
	ks, err := persist.NewKeyspaceStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open key space: %w", err)
	}
	eng, err := engine.New(config.New(), nil)
	if err != nil {
		ks.Close()
		return nil, nil, fmt.Errorf("create engine: %w", err)
	}
	if err := eng.LoadAll(ks); err != nil {
		ks.Close()
		return nil, nil, fmt.Errorf("load key space: %w", err)
	}
	return eng, ks, nil
}

// printReply renders a host.Reply as human-readable text for terminal
// output (the harness's own rendering, distinct from the RESP2 wire
// encoding pkg/host.WriteRESP produces for a real host).
func printReply(r *host.Reply) {
	switch r.Kind {
	case host.ReplyNull:
		fmt.Println("(nil)")
	case host.ReplySimpleString, host.ReplyBulkString:
		fmt.Println(r.Str)
	case host.ReplyInteger:
		fmt.Println(r.Int)
	case host.ReplyArray:
		for i, item := range r.Items {
			fmt.Printf("%d) ", i+1)
			printReply(item)
		}
	}
}
