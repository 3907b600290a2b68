// orgbridge bridges a Salesforce org to a RAG documentation index: it serves
// the search and org-data REST API, receives Data Cloud Data Action webhooks,
// and manages the vector index from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/orgbridge/go-orgbridge/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
