// Package gmail provides the mailbox client used by the processing pipeline.
//
// It covers the operations the agent needs:
//   - Polling for messages newer than a watermark
//   - Flattening messages into Envelopes (headers, decoded body, snippet)
//   - Label management (ensure, apply) and marking messages read
//   - Listing recent sent mail for writing-style analysis
//
// The client supports multi-account authentication using the Google OAuth2
// flow; tokens are loaded from the file system (~/.cache/inboxpilot/).
//
// Example usage:
//
//	ctx := context.Background()
//	client, err := gmail.NewClient(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Fetch messages newer than the watermark
//	msgs, err := client.ListMessagesSince(watermark, 10)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, msg := range msgs {
//	    env := gmail.EnvelopeFromMessage(msg)
//	    fmt.Println(env.Subject, env.Sender)
//	}
package gmail
