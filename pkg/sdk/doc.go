// Package searchagent provides a Go client for the searchagent HTTP API.
//
//	client, _ := searchagent.New("http://localhost:8080",
//	    searchagent.WithAPIKey(os.Getenv("SEARCHAGENT_API_KEY")),
//	)
//	resp, _ := client.Search(ctx, "what are my upgrade options?",
//	    searchagent.AsUser("user-42"),
//	)
//	fmt.Println(resp.Summary, resp.Links, resp.Personalised)
//
// Every successful call returns the three-field answer. Upstream outages
// surface as degraded answers, never as errors; errors are reserved for
// invalid input, authentication and transport failures.
package searchagent
