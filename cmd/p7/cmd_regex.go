package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhamidi/p7/regex"
)

func newRegexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regex",
		Short: "Test the regular expressions used by lexical rules",
	}

	cmd.AddCommand(newRegexMatchCmd())
	cmd.AddCommand(newRegexPrefixCmd())

	return cmd
}

func newRegexMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <pattern> <text>...",
		Short: "Report whether each text matches the pattern in full",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			re, err := regex.Compile(args[0])
			if err != nil {
				return err
			}
			for _, text := range args[1:] {
				fmt.Printf("%q\t%t\n", text, re.Matches(text))
			}
			return nil
		},
	}
}

func newRegexPrefixCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prefix <pattern> <text>...",
		Short: "Classify each text as a prefix of the pattern's language",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			re, err := regex.Compile(args[0])
			if err != nil {
				return err
			}
			for _, text := range args[1:] {
				n, viable := re.LongestMatch(text)
				fmt.Printf("%q\t%s\tlongest=%d\tviable=%t\n", text, re.PrefixMatch(text), n, viable)
			}
			return nil
		},
	}
}
