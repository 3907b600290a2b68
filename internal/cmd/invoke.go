package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/orgbridge/go-orgbridge/internal/crm"
)

// Invoke command flags
var (
	invokeData   string
	invokeTarget string
)

var invokeCmd = &cobra.Command{
	Use:   "invoke <org-domain> <access-token> <org-id> <user-id> [method] [path]",
	Short: "Call a local endpoint with a synthetic org client context",
	Long: `Call a locally running orgbridge endpoint with the x-client-context header
the AppLink runtime would otherwise inject.

This is for local testing of the /api routes against a real org: pass your
org domain, a valid access token (e.g. from 'sf org display'), and the org
and user IDs. Method defaults to GET and path to /api/accounts/.

Examples:
  orgbridge invoke mycompany.my.salesforce.com $TOKEN 00DSG... 005SG...
  orgbridge invoke mycompany.my.salesforce.com $TOKEN 00DSG... 005SG... \
    POST /api/unitofwork/ --data '{"data":{"accountName":"Acme","lastName":"Ng","subject":"Hi"}}'`,
	Args: cobra.RangeArgs(4, 6),
	RunE: runInvoke,
}

func runInvoke(cmd *cobra.Command, args []string) error {
	orgDomain := args[0]
	if !strings.Contains(orgDomain, "://") {
		orgDomain = "https://" + orgDomain
	}

	method := "GET"
	if len(args) > 4 {
		method = strings.ToUpper(args[4])
	}
	apiPath := "/api/accounts/"
	if len(args) > 5 {
		apiPath = args[5]
	}

	target := invokeTarget
	if target == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8000"
		}
		target = "http://localhost:" + port
	}

	encoded, err := crm.EncodeClientContext(&crm.Context{
		OrgID:        args[2],
		OrgDomainURL: orgDomain,
		AccessToken:  args[1],
		APIVersion:   crm.DefaultAPIVersion,
		UserID:       args[3],
	})
	if err != nil {
		return fmt.Errorf("encode client context: %w", err)
	}

	var body io.Reader
	if invokeData != "" {
		body = strings.NewReader(invokeData)
	}
	req, err := http.NewRequest(method, strings.TrimRight(target, "/")+apiPath, body)
	if err != nil {
		return err
	}
	req.Header.Set("x-client-context", encoded)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s -> %s\n", method, apiPath, resp.Status)
	if len(respBody) > 0 {
		fmt.Println(strings.TrimSpace(string(respBody)))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}
