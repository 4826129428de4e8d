// Package navigator provides an embeddable client for the funding-program
// retrieval engine, for Go applications that want retrieval in-process
// instead of talking to the HTTP API.
//
//	client, _ := navigator.New(ctx,
//	    navigator.WithMemoryStore(),
//	    navigator.WithIngestBaseURL("https://assets.example.at/dataset"),
//	)
//	defer client.Close()
//
//	_, _ = client.Reload(ctx)
//	res := client.Search("weiterbildung kosten", 5)
//	for _, c := range res.Citations {
//	    fmt.Println(c.ProgramName, c.Page, c.Score)
//	}
package navigator
