package main

import "github.com/spf13/cobra"

//nolint:gochecknoglobals // fixed example set
var exampleQueries = []string{
	"What are the legal implications of a breach of contract in California?",
	"Summarize the side effects of Lisinopril.",
	"Explain the force majeure clause in a standard SaaS agreement.",
	"What is the capital of Australia and what are its main industries?",
}

var examplesCmd = &cobra.Command{
	Use:   "examples",
	Short: "List example queries for 'ask --example N'",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for i, q := range exampleQueries {
			cmd.Printf("%d. %s\n", i+1, q)
		}
	},
}
