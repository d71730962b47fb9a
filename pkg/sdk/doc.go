// Package moneyez provides a Go client for the MoneyEZ AI service.
//
// The client covers the full HTTP surface: the conversational agent,
// knowledge base management, spending model suggestions, conversation
// threads and the health endpoint.
//
//	client, _ := moneyez.New("http://localhost:8888",
//	    moneyez.WithExternalSecret("thisIsSerectKeyPythonService"),
//	)
//
//	answer, _ := client.Chat().Send(ctx, moneyez.ChatMessage{
//	    UserID:         "user-1",
//	    ConversationID: "conv-1",
//	    Message:        "ăn sáng 30k",
//	})
//
//	info, _ := client.Knowledge().Upload(ctx, "guide.txt", data, "text/plain")
//	docs, _ := client.Knowledge().List(ctx)
//
// Streaming delivers the answer incrementally:
//
//	answer, err := client.Chat().Stream(ctx, msg, func(delta string) error {
//	    fmt.Print(delta)
//	    return nil
//	})
//
// Service failures decode into *APIError and map onto sentinel errors:
//
//	if errors.Is(err, moneyez.ErrDocumentNotFound) { ... }
package moneyez
