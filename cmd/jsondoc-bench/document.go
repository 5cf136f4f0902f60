package main

import (
	"fmt"

	"github.com/jsondocdb/jsondoc/pkg/jsonio"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set KEY PATH JSON",
	Short: "Set a document or a path within one",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		nx, _ := cmd.Flags().GetBool("nx")
		xx, _ := cmd.Flags().GetBool("xx")

		eng, ks, err := openEngine(dataDir)
		if err != nil {
			return err
		}
		defer ks.Close()

		key, path, jsonText := args[0], args[1], args[2]
		n, err := eng.Set(key, path, jsonText, nx, xx)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Println("(nil)")
			return nil
		}
		if err := eng.SaveKey(ks, key); err != nil {
			return fmt.Errorf("persist key %q: %w", key, err)
		}
		fmt.Println("OK")
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get KEY [PATH...]",
	Short: "Fetch one or more paths from a document",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")

		eng, ks, err := openEngine(dataDir)
		if err != nil {
			return err
		}
		defer ks.Close()

		text, err := eng.Get(args[0], args[1:], jsonio.PrettyOptions{Indent: "  ", Newline: "\n", Space: " "})
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

var delCmd = &cobra.Command{
	Use:   "del KEY [PATH]",
	Short: "Delete a document or a path within one",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")

		eng, ks, err := openEngine(dataDir)
		if err != nil {
			return err
		}
		defer ks.Close()

		path := "."
		if len(args) > 1 {
			path = args[1]
		}
		n, err := eng.Del(args[0], path)
		if err != nil {
			return err
		}
		switch {
		case n == 0:
			// nothing changed
		case path == "." || path == "$":
			if _, err := ks.Delete(args[0]); err != nil {
				return fmt.Errorf("remove key %q from key space: %w", args[0], err)
			}
		default:
			if err := eng.SaveKey(ks, args[0]); err != nil {
				return fmt.Errorf("persist key %q: %w", args[0], err)
			}
		}
		fmt.Println(n)
		return nil
	},
}

var mgetCmd = &cobra.Command{
	Use:   "mget PATH KEY...",
	Short: "Fetch one path across several documents",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")

		eng, ks, err := openEngine(dataDir)
		if err != nil {
			return err
		}
		defer ks.Close()

		path, keys := args[0], args[1:]
		texts, ok, err := eng.MGet(keys, path)
		if err != nil {
			return err
		}
		for i, key := range keys {
			if ok[i] {
				fmt.Printf("%s: %s\n", key, texts[i])
			} else {
				fmt.Printf("%s: (nil)\n", key)
			}
		}
		return nil
	},
}

func init() {
	setCmd.Flags().Bool("nx", false, "Only set if the path does not already exist")
	setCmd.Flags().Bool("xx", false, "Only set if the path already exists")
}
